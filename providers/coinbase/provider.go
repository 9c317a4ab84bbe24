// Package coinbase adapts the Coinbase Commerce charge API to the
// common payment lifecycle contract. Authentication is a static API key
// sent on every request, so no token source is involved.
package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-payments/core"
)

const (
	ProviderID = "coinbase"

	defaultBaseURL = "https://api.commerce.coinbase.com"
	chargesPath    = "/charges"

	apiKeyHeader  = "X-CC-Api-Key"
	versionHeader = "X-CC-Version"
	apiVersion    = "2018-03-22"

	defaultCurrency = "EUR"
)

type Config struct {
	APIKey        string
	WebhookSecret string
	BaseURL       string
	Currency      string
}

type Provider struct {
	config  Config
	runtime *core.Runtime
	baseURL string
}

// FromRuntime builds the adapter from the runtime's coinbase config
// section.
func FromRuntime(runtime *core.Runtime) (*Provider, error) {
	cfg := runtime.Config().Coinbase
	return New(runtime, Config{
		APIKey:        cfg.APIKey,
		WebhookSecret: cfg.WebhookSecret,
		BaseURL:       cfg.BaseURL,
		Currency:      cfg.Currency,
	})
}

func New(runtime *core.Runtime, cfg Config) (*Provider, error) {
	if runtime == nil {
		return nil, core.InternalError("coinbase: runtime is required", nil)
	}
	if runtime.Transport() == nil {
		return nil, core.InternalError("coinbase: transport adapter is required", nil)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, core.ValidationError("coinbase: api key is required", nil)
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		config:  cfg,
		runtime: runtime,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

func (p *Provider) ID() string {
	return ProviderID
}

// WebhookSecret exposes the shared secret used to verify webhook
// deliveries for this account.
func (p *Provider) WebhookSecret() string {
	return p.config.WebhookSecret
}

// CreateCharge registers a hosted crypto charge and emits
// payment.created. Caller metadata travels inside the charge itself;
// the provider stores it and echoes it back on reads, so nothing
// enters the shared metadata store.
func (p *Provider) CreateCharge(ctx context.Context, req core.CreateChargeRequest) (core.ChargeCheckout, error) {
	startedAt := p.runtime.Now()
	out, err := p.createCharge(ctx, req)
	p.runtime.ObserveOperation(ctx, startedAt, core.OperationChargeCreation, err, map[string]any{
		"provider": ProviderID,
		"kind":     string(core.KindCharge),
	})
	if err != nil {
		p.runtime.ReportError(ctx, core.OperationChargeCreation, ProviderID, err, nil)
		return core.ChargeCheckout{}, p.runtime.MapError(err)
	}
	return out, nil
}

func (p *Provider) createCharge(ctx context.Context, req core.CreateChargeRequest) (core.ChargeCheckout, error) {
	if strings.TrimSpace(req.Title) == "" {
		return core.ChargeCheckout{}, core.ValidationError("coinbase: charge title is required", nil)
	}
	if req.Price <= 0 {
		return core.ChargeCheckout{}, core.ValidationError("coinbase: charge price is required", nil)
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	currency := p.currency(req.Currency)
	amount := core.RoundAmount(req.Price * float64(quantity))

	metadata := core.CloneMetadata(req.Metadata)

	var envelope chargeEnvelope
	if err := p.call(ctx, http.MethodPost, chargesPath, chargeCreatePayload{
		Name:        req.Title,
		Description: req.Description,
		PricingType: "fixed_price",
		LocalPrice: localPricePayload{
			Amount:   core.FormatAmount(amount),
			Currency: currency,
		},
		RedirectURL: req.RedirectURL,
		CancelURL:   req.CancelURL,
		Metadata:    metadata,
	}, &envelope); err != nil {
		return core.ChargeCheckout{}, err
	}
	charge := envelope.Data
	if strings.TrimSpace(charge.Code) == "" {
		return core.ChargeCheckout{}, core.ProviderError("coinbase: charge response has no code", 0, nil, nil)
	}

	p.runtime.Events().Emit(ctx, core.EventPaymentCreated, core.Event{
		Provider:      ProviderID,
		Type:          core.KindCharge,
		Status:        core.StatusCreated,
		TransactionID: charge.Code,
		Amount:        amount,
		Currency:      currency,
		Metadata:      metadata,
		Raw:           charge,
	})

	return core.ChargeCheckout{
		HostedURL:  charge.HostedURL,
		ChargeID:   charge.ID,
		ChargeCode: charge.Code,
		Amount:     amount,
		Currency:   currency,
	}, nil
}

// VerifyCharge reads the charge, classifies the last timeline entry,
// and dispatches exactly one lifecycle event carrying the metadata the
// provider echoes back from creation.
func (p *Provider) VerifyCharge(ctx context.Context, chargeCode string) (core.ChargeVerification, error) {
	startedAt := p.runtime.Now()
	out, err := p.verifyCharge(ctx, chargeCode)
	p.runtime.ObserveOperation(ctx, startedAt, core.OperationChargeVerification, err, map[string]any{
		"provider": ProviderID,
		"kind":     string(core.KindCharge),
	})
	if err != nil {
		p.runtime.ReportError(ctx, core.OperationChargeVerification, ProviderID, err, nil)
		return core.ChargeVerification{}, p.runtime.MapError(err)
	}
	return out, nil
}

func (p *Provider) verifyCharge(ctx context.Context, chargeCode string) (core.ChargeVerification, error) {
	chargeCode = strings.TrimSpace(chargeCode)
	if chargeCode == "" {
		return core.ChargeVerification{}, core.ValidationError("coinbase: charge code is required", nil)
	}

	var envelope chargeEnvelope
	if err := p.call(ctx, http.MethodGet, chargesPath+"/"+chargeCode, nil, &envelope); err != nil {
		return core.ChargeVerification{}, err
	}
	charge := envelope.Data

	metadata := core.CloneMetadata(charge.Metadata)

	raw := lastTimelineStatus(charge.Timeline)
	status, mapped := core.NormalizeChargeStatus(raw)
	if !mapped {
		p.runtime.LogNormalizationGap(ctx, ProviderID, core.KindCharge, raw)
	}

	amount, currency := chargeAmount(charge)

	p.runtime.Events().Emit(ctx, core.EventForStatus(core.KindCharge, status), core.Event{
		Provider:      ProviderID,
		Type:          core.KindCharge,
		Status:        status,
		TransactionID: charge.Code,
		Amount:        amount,
		Currency:      currency,
		Metadata:      metadata,
		Raw:           charge,
	})

	return core.ChargeVerification{
		Status:   status,
		ChargeID: charge.ID,
		Amount:   amount,
		Currency: currency,
		Metadata: metadata,
	}, nil
}

func (p *Provider) call(ctx context.Context, method string, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return core.InternalError("coinbase: encode request payload", map[string]any{"path": path})
		}
		body = encoded
	}

	res, err := p.runtime.Transport().Do(ctx, core.TransportRequest{
		Method: method,
		URL:    p.baseURL + path,
		Headers: map[string]string{
			apiKeyHeader:   p.config.APIKey,
			versionHeader:  apiVersion,
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: body,
	})
	if err != nil {
		return core.WrapProviderCall(err, "coinbase: provider request failed", map[string]any{
			"method": method,
			"path":   path,
		})
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return core.ProviderError(
			fmt.Sprintf("coinbase: %s %s returned status %d", method, path, res.StatusCode),
			res.StatusCode,
			res.Body,
			map[string]any{"method": method, "path": path},
		)
	}
	if out == nil || len(res.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.Body, out); err != nil {
		return core.ProviderError("coinbase: decode provider response", res.StatusCode, res.Body, map[string]any{
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

// lastTimelineStatus takes the most recent timeline entry at face
// value. The timeline is append-only on the provider side, so the last
// entry is the charge's current state.
func lastTimelineStatus(timeline []timelineEntry) string {
	if len(timeline) == 0 {
		return ""
	}
	return timeline[len(timeline)-1].Status
}

func chargeAmount(charge chargeResource) (float64, string) {
	amount, err := core.ParseAmount(charge.Pricing.Local.Amount)
	if err != nil {
		return 0, charge.Pricing.Local.Currency
	}
	return amount, charge.Pricing.Local.Currency
}
