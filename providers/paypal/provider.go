// Package paypal adapts the PayPal order, plan, and subscription REST
// APIs to the common payment lifecycle contract.
package paypal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-payments/auth"
	"github.com/goliatone/go-payments/core"
)

const (
	ProviderID = "paypal"

	sandboxBaseURL    = "https://api-m.sandbox.paypal.com"
	productionBaseURL = "https://api-m.paypal.com"

	tokenPath         = "/v1/oauth2/token"
	ordersPath        = "/v2/checkout/orders"
	productsPath      = "/v1/catalogs/products"
	plansPath         = "/v1/billing/plans"
	subscriptionsPath = "/v1/billing/subscriptions"

	relApprove = "approve"

	statusApproved = "APPROVED"

	defaultCurrency = "EUR"
)

type Config struct {
	ClientID     string
	ClientSecret string
	Environment  string
	BaseURL      string
	BrandName    string
	Currency     string
	TokenTTL     int64
}

type Provider struct {
	config  Config
	runtime *core.Runtime
	tokens  core.TokenSource
	baseURL string
}

// FromRuntime builds the adapter from the runtime's paypal config
// section.
func FromRuntime(runtime *core.Runtime) (*Provider, error) {
	cfg := runtime.Config().PayPal
	return New(runtime, Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Environment:  cfg.Environment,
		BrandName:    cfg.BrandName,
		Currency:     cfg.Currency,
		TokenTTL:     int64(cfg.TokenTTL.Seconds()),
	})
}

func New(runtime *core.Runtime, cfg Config) (*Provider, error) {
	if runtime == nil {
		return nil, core.InternalError("paypal: runtime is required", nil)
	}
	if runtime.Transport() == nil {
		return nil, core.InternalError("paypal: transport adapter is required", nil)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, core.ValidationError("paypal: client id is required", nil)
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, core.ValidationError("paypal: client secret is required", nil)
	}

	baseURL, err := resolveBaseURL(cfg)
	if err != nil {
		return nil, err
	}

	authConfig := auth.ClientCredentialsConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + tokenPath,
		Provider:     ProviderID,
	}
	if cfg.TokenTTL > 0 {
		authConfig.TokenTTL = secondsToDuration(cfg.TokenTTL)
	}
	tokens, err := auth.NewClientCredentialsSource(authConfig, runtime.Transport(), runtime)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:  cfg,
		runtime: runtime,
		tokens:  tokens,
		baseURL: baseURL,
	}, nil
}

func (p *Provider) ID() string {
	return ProviderID
}

// CreateOrder registers a one-time payment order, caches the caller's
// metadata under the transaction id, and emits payment.created.
func (p *Provider) CreateOrder(ctx context.Context, req core.CreateOrderRequest) (core.OrderCheckout, error) {
	startedAt := p.runtime.Now()
	out, err := p.createOrder(ctx, req)
	p.runtime.ObserveOperation(ctx, startedAt, core.OperationOrderCreation, err, map[string]any{
		"provider": ProviderID,
		"kind":     string(core.KindOrder),
	})
	if err != nil {
		p.runtime.ReportError(ctx, core.OperationOrderCreation, ProviderID, err, nil)
		return core.OrderCheckout{}, p.runtime.MapError(err)
	}
	return out, nil
}

func (p *Provider) createOrder(ctx context.Context, req core.CreateOrderRequest) (core.OrderCheckout, error) {
	if strings.TrimSpace(req.Title) == "" {
		return core.OrderCheckout{}, core.ValidationError("paypal: order title is required", nil)
	}
	if req.Price <= 0 {
		return core.OrderCheckout{}, core.ValidationError("paypal: order price is required", nil)
	}
	if strings.TrimSpace(req.ReturnURL) == "" || strings.TrimSpace(req.CancelURL) == "" {
		return core.OrderCheckout{}, core.ValidationError("paypal: return and cancel urls are required", nil)
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	currency := p.currency(req.Currency)
	amount := core.RoundAmount(req.Price * float64(quantity))
	transactionID := strings.TrimSpace(req.CustomID)
	if transactionID == "" {
		transactionID = core.NewTransactionID()
	}

	payload := orderCreatePayload{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnitPayload{{
			CustomID: transactionID,
			Amount: amountPayload{
				CurrencyCode: currency,
				Value:        core.FormatAmount(amount),
			},
		}},
		ApplicationContext: applicationContextPayload{
			BrandName: p.config.BrandName,
			ReturnURL: req.ReturnURL,
			CancelURL: req.CancelURL,
		},
	}

	var order orderResource
	if err := p.call(ctx, http.MethodPost, ordersPath, payload, &order); err != nil {
		return core.OrderCheckout{}, err
	}

	metadata := core.CloneMetadata(req.Metadata)
	ttl := p.runtime.MetadataTTL()
	p.runtime.Metadata().Put(transactionID, metadata, ttl)
	p.rememberCorrelation(core.KindOrder, order.ID, transactionID, ttl)

	p.runtime.Events().Emit(ctx, core.EventPaymentCreated, core.Event{
		Provider:      ProviderID,
		Type:          core.KindOrder,
		Status:        core.StatusCreated,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      currency,
		Metadata:      metadata,
		Raw:           order,
	})

	return core.OrderCheckout{
		ApprovalURL:   linkByRel(order.Links, relApprove),
		TransactionID: transactionID,
		OrderID:       order.ID,
		Amount:        amount,
		Currency:      currency,
	}, nil
}

// VerifyOrder reads the order's current state, capturing it first when
// the buyer has approved but funds are not yet captured. The cached
// metadata entry is deleted whether or not verification succeeds.
func (p *Provider) VerifyOrder(ctx context.Context, orderID string) (core.OrderVerification, error) {
	startedAt := p.runtime.Now()
	out, err := p.verifyOrder(ctx, orderID)
	p.runtime.ObserveOperation(ctx, startedAt, core.OperationOrderVerification, err, map[string]any{
		"provider": ProviderID,
		"kind":     string(core.KindOrder),
	})
	if err != nil {
		p.runtime.ReportError(ctx, core.OperationOrderVerification, ProviderID, err, nil)
		return core.OrderVerification{}, p.runtime.MapError(err)
	}
	return out, nil
}

func (p *Provider) verifyOrder(ctx context.Context, orderID string) (core.OrderVerification, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return core.OrderVerification{}, core.ValidationError("paypal: order id is required", nil)
	}

	// Verification is terminal for the cached metadata: the entry goes
	// away even when the provider call fails.
	defer p.forgetCorrelation(core.KindOrder, orderID)

	var order orderResource
	if err := p.call(ctx, http.MethodGet, ordersPath+"/"+orderID, nil, &order); err != nil {
		return core.OrderVerification{}, err
	}

	if normalizeStatus(order.Status) == statusApproved {
		var captured orderResource
		if err := p.call(ctx, http.MethodPost, ordersPath+"/"+orderID+"/capture", struct{}{}, &captured); err != nil {
			return core.OrderVerification{}, err
		}
		if captured.ID != "" {
			captured.PurchaseUnits = mergePurchaseUnits(captured.PurchaseUnits, order.PurchaseUnits)
			order = captured
		}
	}

	transactionID := p.transactionIDFor(core.KindOrder, orderID, orderCustomID(order))
	metadata, ok := p.runtime.Metadata().Get(transactionID)
	if !ok {
		metadata = map[string]any{}
	}
	amount, currency := orderAmount(order)

	status, mapped := core.NormalizeOrderStatus(order.Status)
	if !mapped {
		p.runtime.LogNormalizationGap(ctx, ProviderID, core.KindOrder, order.Status)
	}

	p.runtime.Events().Emit(ctx, core.EventForStatus(core.KindOrder, status), core.Event{
		Provider:      ProviderID,
		Type:          core.KindOrder,
		Status:        status,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      currency,
		Metadata:      metadata,
		Raw:           order,
	})

	return core.OrderVerification{
		Status:        status,
		TransactionID: transactionID,
		Amount:        amount,
		Currency:      currency,
	}, nil
}

// CreatePlan registers a product and a billing plan under it. Plans are
// not transactions, so nothing is cached and no lifecycle event fires.
func (p *Provider) CreatePlan(ctx context.Context, req core.CreatePlanRequest) (core.Plan, error) {
	startedAt := p.runtime.Now()
	out, err := p.createPlan(ctx, req)
	p.runtime.ObserveOperation(ctx, startedAt, core.OperationPlanCreation, err, map[string]any{
		"provider": ProviderID,
	})
	if err != nil {
		p.runtime.ReportError(ctx, core.OperationPlanCreation, ProviderID, err, nil)
		return core.Plan{}, p.runtime.MapError(err)
	}
	return out, nil
}

func (p *Provider) createPlan(ctx context.Context, req core.CreatePlanRequest) (core.Plan, error) {
	if strings.TrimSpace(req.Name) == "" {
		return core.Plan{}, core.ValidationError("paypal: plan name is required", nil)
	}
	if req.Price <= 0 {
		return core.Plan{}, core.ValidationError("paypal: plan price is required", nil)
	}
	interval := normalizeStatus(req.Interval)
	switch interval {
	case "DAY", "WEEK", "MONTH", "YEAR":
	default:
		return core.Plan{}, core.ValidationError(
			fmt.Sprintf("paypal: plan interval %q is invalid", req.Interval),
			map[string]any{"interval": req.Interval},
		)
	}
	frequency := req.Frequency
	if frequency <= 0 {
		frequency = 1
	}

	var product productResource
	if err := p.call(ctx, http.MethodPost, productsPath, productCreatePayload{
		Name: req.Name,
		Type: "SERVICE",
	}, &product); err != nil {
		return core.Plan{}, err
	}

	var plan planResource
	if err := p.call(ctx, http.MethodPost, plansPath, planCreatePayload{
		ProductID: product.ID,
		Name:      req.Name,
		BillingCycles: []billingCycle{{
			Frequency: billingFrequency{
				IntervalUnit:  interval,
				IntervalCount: frequency,
			},
			TenureType:  "REGULAR",
			Sequence:    1,
			TotalCycles: 0,
			PricingScheme: pricingScheme{
				FixedPrice: amountPayload{
					CurrencyCode: p.currency(req.Currency),
					Value:        core.FormatAmount(req.Price),
				},
			},
		}},
		PaymentPreferences: paymentPreferences{AutoBillOutstanding: true},
	}, &plan); err != nil {
		return core.Plan{}, err
	}

	return core.Plan{PlanID: plan.ID}, nil
}

// CreateSubscription starts a recurring subscription on an existing
// plan, caches metadata, and emits subscription.created.
func (p *Provider) CreateSubscription(ctx context.Context, req core.CreateSubscriptionRequest) (core.SubscriptionCheckout, error) {
	startedAt := p.runtime.Now()
	out, err := p.createSubscription(ctx, req)
	p.runtime.ObserveOperation(ctx, startedAt, core.OperationSubscriptionCreation, err, map[string]any{
		"provider": ProviderID,
		"kind":     string(core.KindSubscription),
	})
	if err != nil {
		p.runtime.ReportError(ctx, core.OperationSubscriptionCreation, ProviderID, err, nil)
		return core.SubscriptionCheckout{}, p.runtime.MapError(err)
	}
	return out, nil
}

func (p *Provider) createSubscription(ctx context.Context, req core.CreateSubscriptionRequest) (core.SubscriptionCheckout, error) {
	if strings.TrimSpace(req.PlanID) == "" {
		return core.SubscriptionCheckout{}, core.ValidationError("paypal: plan id is required", nil)
	}
	if strings.TrimSpace(req.ReturnURL) == "" || strings.TrimSpace(req.CancelURL) == "" {
		return core.SubscriptionCheckout{}, core.ValidationError("paypal: return and cancel urls are required", nil)
	}

	transactionID := strings.TrimSpace(req.CustomID)
	if transactionID == "" {
		transactionID = core.NewTransactionID()
	}

	var subscription subscriptionResource
	if err := p.call(ctx, http.MethodPost, subscriptionsPath, subscriptionCreatePayload{
		PlanID:   req.PlanID,
		CustomID: transactionID,
		ApplicationContext: applicationContextPayload{
			BrandName: p.config.BrandName,
			ReturnURL: req.ReturnURL,
			CancelURL: req.CancelURL,
		},
	}, &subscription); err != nil {
		return core.SubscriptionCheckout{}, err
	}

	metadata := core.CloneMetadata(req.Metadata)
	ttl := p.runtime.MetadataTTL()
	p.runtime.Metadata().Put(transactionID, metadata, ttl)
	p.rememberCorrelation(core.KindSubscription, subscription.ID, transactionID, ttl)

	p.runtime.Events().Emit(ctx, core.EventSubscriptionCreated, core.Event{
		Provider:      ProviderID,
		Type:          core.KindSubscription,
		Status:        core.StatusCreated,
		TransactionID: transactionID,
		PlanID:        req.PlanID,
		Metadata:      metadata,
		Raw:           subscription,
	})

	return core.SubscriptionCheckout{
		ApprovalURL:    linkByRel(subscription.Links, relApprove),
		TransactionID:  transactionID,
		SubscriptionID: subscription.ID,
	}, nil
}

// VerifySubscription reads the subscription state, classifies it, and
// purges the cached metadata.
func (p *Provider) VerifySubscription(ctx context.Context, subscriptionID string) (core.SubscriptionVerification, error) {
	startedAt := p.runtime.Now()
	out, err := p.verifySubscription(ctx, subscriptionID)
	p.runtime.ObserveOperation(ctx, startedAt, core.OperationSubscriptionVerification, err, map[string]any{
		"provider": ProviderID,
		"kind":     string(core.KindSubscription),
	})
	if err != nil {
		p.runtime.ReportError(ctx, core.OperationSubscriptionVerification, ProviderID, err, nil)
		return core.SubscriptionVerification{}, p.runtime.MapError(err)
	}
	return out, nil
}

func (p *Provider) verifySubscription(ctx context.Context, subscriptionID string) (core.SubscriptionVerification, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return core.SubscriptionVerification{}, core.ValidationError("paypal: subscription id is required", nil)
	}

	defer p.forgetCorrelation(core.KindSubscription, subscriptionID)

	var subscription subscriptionResource
	if err := p.call(ctx, http.MethodGet, subscriptionsPath+"/"+subscriptionID, nil, &subscription); err != nil {
		return core.SubscriptionVerification{}, err
	}

	transactionID := p.transactionIDFor(core.KindSubscription, subscriptionID, subscription.CustomID)
	metadata, ok := p.runtime.Metadata().Get(transactionID)
	if !ok {
		metadata = map[string]any{}
	}

	status, mapped := core.NormalizeSubscriptionStatus(subscription.Status)
	if !mapped {
		p.runtime.LogNormalizationGap(ctx, ProviderID, core.KindSubscription, subscription.Status)
	}

	p.runtime.Events().Emit(ctx, core.EventForStatus(core.KindSubscription, status), core.Event{
		Provider:      ProviderID,
		Type:          core.KindSubscription,
		Status:        status,
		TransactionID: transactionID,
		PlanID:        subscription.PlanID,
		Metadata:      metadata,
		Raw:           subscription,
	})

	return core.SubscriptionVerification{
		Status:        status,
		TransactionID: transactionID,
		PlanID:        subscription.PlanID,
	}, nil
}

// CancelSubscription cancels the subscription and always emits
// subscription.cancelled on provider acknowledgement, regardless of the
// acknowledgement's detail. Residual cached metadata is purged.
func (p *Provider) CancelSubscription(ctx context.Context, subscriptionID string, reason string) (core.SubscriptionCancellation, error) {
	startedAt := p.runtime.Now()
	out, err := p.cancelSubscription(ctx, subscriptionID, reason)
	p.runtime.ObserveOperation(ctx, startedAt, core.OperationSubscriptionCancellation, err, map[string]any{
		"provider": ProviderID,
		"kind":     string(core.KindSubscription),
	})
	if err != nil {
		p.runtime.ReportError(ctx, core.OperationSubscriptionCancellation, ProviderID, err, nil)
		return core.SubscriptionCancellation{}, p.runtime.MapError(err)
	}
	return out, nil
}

func (p *Provider) cancelSubscription(ctx context.Context, subscriptionID string, reason string) (core.SubscriptionCancellation, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return core.SubscriptionCancellation{}, core.ValidationError("paypal: subscription id is required", nil)
	}

	if err := p.call(ctx, http.MethodPost, subscriptionsPath+"/"+subscriptionID+"/cancel", cancelSubscriptionPayload{
		Reason: strings.TrimSpace(reason),
	}, nil); err != nil {
		return core.SubscriptionCancellation{}, err
	}

	transactionID := p.transactionIDFor(core.KindSubscription, subscriptionID, "")
	metadata, ok := p.runtime.Metadata().Get(transactionID)
	if !ok {
		metadata = map[string]any{}
	}
	p.forgetCorrelation(core.KindSubscription, subscriptionID)

	p.runtime.Events().Emit(ctx, core.EventSubscriptionCancelled, core.Event{
		Provider:      ProviderID,
		Type:          core.KindSubscription,
		Status:        core.StatusCancelled,
		TransactionID: transactionID,
		Metadata:      metadata,
	})

	return core.SubscriptionCancellation{Status: core.StatusCancelled}, nil
}

// call performs one authenticated provider request and decodes a 2xx
// JSON body into out when out is non-nil.
func (p *Provider) call(ctx context.Context, method string, path string, payload any, out any) error {
	token, err := p.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return core.InternalError("paypal: encode request payload", map[string]any{"path": path})
		}
		body = encoded
	}

	res, err := p.runtime.Transport().Do(ctx, core.TransportRequest{
		Method: method,
		URL:    p.baseURL + path,
		Headers: map[string]string{
			"Authorization": "Bearer " + token,
			"Content-Type":  "application/json",
			"Accept":        "application/json",
		},
		Body: body,
	})
	if err != nil {
		return core.WrapProviderCall(err, "paypal: provider request failed", map[string]any{
			"method": method,
			"path":   path,
		})
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return core.ProviderError(
			fmt.Sprintf("paypal: %s %s returned status %d", method, path, res.StatusCode),
			res.StatusCode,
			res.Body,
			map[string]any{"method": method, "path": path},
		)
	}
	if out == nil || len(res.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return core.ProviderError("paypal: decode provider response", res.StatusCode, res.Body, map[string]any{
			"method": method,
			"path":   path,
		})
	}
	return nil
}

func (p *Provider) currency(requested string) string {
	if value := strings.TrimSpace(strings.ToUpper(requested)); value != "" {
		return value
	}
	if value := strings.TrimSpace(strings.ToUpper(p.config.Currency)); value != "" {
		return value
	}
	return defaultCurrency
}

// Correlation entries let verification and cancellation find (and
// purge) the cached metadata by provider id even when the provider
// response omits the custom id or the call fails outright. They share
// the metadata TTL so they never outlive the entry they point at.
func (p *Provider) rememberCorrelation(kind core.TransactionKind, providerID string, transactionID string, ttl time.Duration) {
	if strings.TrimSpace(providerID) == "" {
		return
	}
	p.runtime.Metadata().Put(correlationKey(kind, providerID), map[string]any{
		"transaction_id": transactionID,
	}, ttl)
}

func (p *Provider) transactionIDFor(kind core.TransactionKind, providerID string, customID string) string {
	if value := strings.TrimSpace(customID); value != "" {
		return value
	}
	if entry, ok := p.runtime.Metadata().Get(correlationKey(kind, providerID)); ok {
		if value, ok := entry["transaction_id"].(string); ok {
			return value
		}
	}
	return ""
}

// forgetCorrelation purges the correlation entry and the metadata it
// points at. Both deletes are no-ops on absent keys.
func (p *Provider) forgetCorrelation(kind core.TransactionKind, providerID string) {
	key := correlationKey(kind, providerID)
	if entry, ok := p.runtime.Metadata().Get(key); ok {
		if value, ok := entry["transaction_id"].(string); ok && value != "" {
			p.runtime.Metadata().Delete(value)
		}
	}
	p.runtime.Metadata().Delete(key)
}

func correlationKey(kind core.TransactionKind, providerID string) string {
	return string(kind) + ":" + strings.TrimSpace(providerID)
}

func orderCustomID(order orderResource) string {
	if len(order.PurchaseUnits) == 0 {
		return ""
	}
	return strings.TrimSpace(order.PurchaseUnits[0].CustomID)
}

func orderAmount(order orderResource) (float64, string) {
	if len(order.PurchaseUnits) == 0 {
		return 0, ""
	}
	unit := order.PurchaseUnits[0]
	amount, err := core.ParseAmount(unit.Amount.Value)
	if err != nil {
		return 0, unit.Amount.CurrencyCode
	}
	return amount, unit.Amount.CurrencyCode
}

func mergePurchaseUnits(primary []purchaseUnitPayload, fallback []purchaseUnitPayload) []purchaseUnitPayload {
	if len(primary) == 0 {
		return fallback
	}
	if len(fallback) == 0 {
		return primary
	}
	merged := append([]purchaseUnitPayload(nil), primary...)
	if strings.TrimSpace(merged[0].CustomID) == "" {
		merged[0].CustomID = fallback[0].CustomID
	}
	if strings.TrimSpace(merged[0].Amount.Value) == "" {
		merged[0].Amount = fallback[0].Amount
	}
	return merged
}

func linkByRel(links []linkResource, rel string) string {
	for _, link := range links {
		if strings.EqualFold(strings.TrimSpace(link.Rel), rel) {
			return strings.TrimSpace(link.Href)
		}
	}
	return ""
}

func normalizeStatus(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func resolveBaseURL(cfg Config) (string, error) {
	if value := strings.TrimSpace(cfg.BaseURL); value != "" {
		return strings.TrimSuffix(value, "/"), nil
	}
	switch strings.TrimSpace(strings.ToLower(cfg.Environment)) {
	case "", core.EnvironmentSandbox:
		return sandboxBaseURL, nil
	case core.EnvironmentProduction:
		return productionBaseURL, nil
	default:
		return "", core.ValidationError(
			fmt.Sprintf("paypal: environment %q is invalid", cfg.Environment),
			map[string]any{"environment": cfg.Environment},
		)
	}
}

func secondsToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}
