// Package payments is a payment gateway over hosted checkout
// providers. A Gateway routes one-time orders, recurring subscriptions,
// and crypto charges to the configured provider adapters, caches
// transaction metadata between creation and verification, and emits
// normalized lifecycle events.
package payments

import (
	"context"

	paymentscommand "github.com/goliatone/go-payments/command"
	"github.com/goliatone/go-payments/core"
	"github.com/goliatone/go-payments/providers/coinbase"
	"github.com/goliatone/go-payments/providers/paypal"
	"github.com/goliatone/go-payments/transport"
	"github.com/goliatone/go-payments/webhooks"
)

type (
	Config                    = core.Config
	Option                    = core.Option
	Event                     = core.Event
	EventHandler              = core.EventHandler
	CanonicalStatus           = core.CanonicalStatus
	CreateOrderRequest        = core.CreateOrderRequest
	OrderCheckout             = core.OrderCheckout
	OrderVerification         = core.OrderVerification
	CreatePlanRequest         = core.CreatePlanRequest
	Plan                      = core.Plan
	CreateSubscriptionRequest = core.CreateSubscriptionRequest
	SubscriptionCheckout      = core.SubscriptionCheckout
	SubscriptionVerification  = core.SubscriptionVerification
	SubscriptionCancellation  = core.SubscriptionCancellation
	CreateChargeRequest       = core.CreateChargeRequest
	ChargeCheckout            = core.ChargeCheckout
	ChargeVerification        = core.ChargeVerification
)

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithConfigProvider  = core.WithConfigProvider
	WithMetadataStore   = core.WithMetadataStore
	WithDispatcher      = core.WithDispatcher
	WithTransport       = core.WithTransport
	WithClock           = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

// Gateway is the single entry point. Orders, plans, and subscriptions
// route to the bearer-token provider; charges route to the crypto
// charge provider. Adapters exist only for the accounts the config
// names.
type Gateway struct {
	runtime  *core.Runtime
	paypal   *paypal.Provider
	coinbase *coinbase.Provider
}

func New(cfg Config, options ...Option) (*Gateway, error) {
	withDefaults := make([]Option, 0, len(options)+1)
	withDefaults = append(withDefaults, WithTransport(defaultTransport()))
	withDefaults = append(withDefaults, options...)

	runtime, err := core.NewRuntime(cfg, withDefaults...)
	if err != nil {
		return nil, err
	}

	gateway := &Gateway{runtime: runtime}
	resolved := runtime.Config()
	if resolved.PayPal.Enabled() {
		provider, err := paypal.FromRuntime(runtime)
		if err != nil {
			return nil, err
		}
		gateway.paypal = provider
	}
	if resolved.Coinbase.Enabled() {
		provider, err := coinbase.FromRuntime(runtime)
		if err != nil {
			return nil, err
		}
		gateway.coinbase = provider
	}
	return gateway, nil
}

func defaultTransport() core.TransportAdapter {
	return transport.NewBreakerAdapter(
		transport.NewRESTAdapter(nil),
		transport.DefaultBreakerConfig("payments"),
	)
}

// On registers a handler for one lifecycle event name. Unknown names
// are rejected.
func (g *Gateway) On(event string, handler EventHandler) error {
	return g.runtime.Events().On(event, handler)
}

func (g *Gateway) Events() *core.Dispatcher {
	if g == nil {
		return nil
	}
	return g.runtime.Events()
}

func (g *Gateway) Runtime() *core.Runtime {
	if g == nil {
		return nil
	}
	return g.runtime
}

func (g *Gateway) CreateOrder(ctx context.Context, req CreateOrderRequest) (OrderCheckout, error) {
	if g == nil || g.paypal == nil {
		return OrderCheckout{}, core.ValidationError("payments: order provider is not configured", nil)
	}
	return g.paypal.CreateOrder(ctx, req)
}

func (g *Gateway) VerifyOrder(ctx context.Context, orderID string) (OrderVerification, error) {
	if g == nil || g.paypal == nil {
		return OrderVerification{}, core.ValidationError("payments: order provider is not configured", nil)
	}
	return g.paypal.VerifyOrder(ctx, orderID)
}

func (g *Gateway) CreatePlan(ctx context.Context, req CreatePlanRequest) (Plan, error) {
	if g == nil || g.paypal == nil {
		return Plan{}, core.ValidationError("payments: subscription provider is not configured", nil)
	}
	return g.paypal.CreatePlan(ctx, req)
}

func (g *Gateway) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (SubscriptionCheckout, error) {
	if g == nil || g.paypal == nil {
		return SubscriptionCheckout{}, core.ValidationError("payments: subscription provider is not configured", nil)
	}
	return g.paypal.CreateSubscription(ctx, req)
}

func (g *Gateway) VerifySubscription(ctx context.Context, subscriptionID string) (SubscriptionVerification, error) {
	if g == nil || g.paypal == nil {
		return SubscriptionVerification{}, core.ValidationError("payments: subscription provider is not configured", nil)
	}
	return g.paypal.VerifySubscription(ctx, subscriptionID)
}

func (g *Gateway) CancelSubscription(ctx context.Context, subscriptionID string, reason string) (SubscriptionCancellation, error) {
	if g == nil || g.paypal == nil {
		return SubscriptionCancellation{}, core.ValidationError("payments: subscription provider is not configured", nil)
	}
	return g.paypal.CancelSubscription(ctx, subscriptionID, reason)
}

func (g *Gateway) CreateCharge(ctx context.Context, req CreateChargeRequest) (ChargeCheckout, error) {
	if g == nil || g.coinbase == nil {
		return ChargeCheckout{}, core.ValidationError("payments: charge provider is not configured", nil)
	}
	return g.coinbase.CreateCharge(ctx, req)
}

func (g *Gateway) VerifyCharge(ctx context.Context, chargeCode string) (ChargeVerification, error) {
	if g == nil || g.coinbase == nil {
		return ChargeVerification{}, core.ValidationError("payments: charge provider is not configured", nil)
	}
	return g.coinbase.VerifyCharge(ctx, chargeCode)
}

// VerifyWebhook reports whether a pushed delivery is authentic. It
// never returns an error; malformed input is simply not authentic.
func VerifyWebhook(payload []byte, signature string, secret string) bool {
	return coinbase.VerifyWebhook(payload, signature, secret)
}

// ChargeWebhookProcessor returns a delivery processor for the charge
// provider's notifications. Passing a nil ledger uses an in-process
// one.
func (g *Gateway) ChargeWebhookProcessor(ledger webhooks.DeliveryLedger) (*webhooks.Processor, error) {
	if g == nil || g.coinbase == nil {
		return nil, core.ValidationError("payments: charge provider is not configured", nil)
	}
	return g.coinbase.NewWebhookProcessor(ledger), nil
}

// Commands groups the dispatchable command handlers bound to one
// gateway.
type Commands struct {
	CreateOrder        *paymentscommand.CreateOrderCommand
	VerifyOrder        *paymentscommand.VerifyOrderCommand
	CreatePlan         *paymentscommand.CreatePlanCommand
	CreateSubscription *paymentscommand.CreateSubscriptionCommand
	VerifySubscription *paymentscommand.VerifySubscriptionCommand
	CancelSubscription *paymentscommand.CancelSubscriptionCommand
	CreateCharge       *paymentscommand.CreateChargeCommand
	VerifyCharge       *paymentscommand.VerifyChargeCommand
}

// NewCommands builds the command set for a gateway.
func NewCommands(g *Gateway) Commands {
	return g.Commands()
}

func (g *Gateway) Commands() Commands {
	return Commands{
		CreateOrder:        paymentscommand.NewCreateOrderCommand(g),
		VerifyOrder:        paymentscommand.NewVerifyOrderCommand(g),
		CreatePlan:         paymentscommand.NewCreatePlanCommand(g),
		CreateSubscription: paymentscommand.NewCreateSubscriptionCommand(g),
		VerifySubscription: paymentscommand.NewVerifySubscriptionCommand(g),
		CancelSubscription: paymentscommand.NewCancelSubscriptionCommand(g),
		CreateCharge:       paymentscommand.NewCreateChargeCommand(g),
		VerifyCharge:       paymentscommand.NewVerifyChargeCommand(g),
	}
}

var _ paymentscommand.PaymentService = (*Gateway)(nil)
