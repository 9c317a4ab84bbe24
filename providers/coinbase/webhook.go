package coinbase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/goliatone/go-payments/core"
	"github.com/goliatone/go-payments/webhooks"
)

const SignatureHeader = "X-CC-Webhook-Signature"

// VerifyWebhook reports whether signature is the hex HMAC-SHA256 of
// payload under secret. Malformed input yields false, never an error.
func VerifyWebhook(payload []byte, signature string, secret string) bool {
	signature = strings.TrimSpace(signature)
	if signature == "" || strings.TrimSpace(secret) == "" {
		return false
	}
	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return subtle.ConstantTimeCompare(decoded, mac.Sum(nil)) == 1
}

// NewWebhookVerifier returns the signature verifier for this account's
// shared secret.
func NewWebhookVerifier(secret string) webhooks.HeaderHMACVerifier {
	return webhooks.HeaderHMACVerifier{
		Header:   SignatureHeader,
		Secret:   strings.TrimSpace(secret),
		Encoding: "hex",
	}
}

// webhookEnvelope is the notification body: the delivery id sits at the
// top level, the charge code inside event.data.
type webhookEnvelope struct {
	ID    string `json:"id"`
	Event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Code string `json:"code"`
		} `json:"data"`
	} `json:"event"`
}

// WebhookDeliveryID extracts the notification id for dedupe, falling
// back to the inner event id.
func WebhookDeliveryID(req core.InboundRequest) (string, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(req.Body, &envelope); err != nil {
		return "", core.ValidationError("coinbase: decode webhook envelope", nil)
	}
	if value := strings.TrimSpace(envelope.ID); value != "" {
		return value, nil
	}
	if value := strings.TrimSpace(envelope.Event.ID); value != "" {
		return value, nil
	}
	return "", core.ValidationError("coinbase: webhook delivery id is required", nil)
}

// WebhookHandler re-verifies the referenced charge against the API
// rather than trusting the pushed state.
func (p *Provider) WebhookHandler() webhooks.Handler {
	return webhooks.HandlerFunc(func(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
		var envelope webhookEnvelope
		if err := json.Unmarshal(req.Body, &envelope); err != nil {
			return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusBadRequest,
			}, core.ValidationError("coinbase: decode webhook envelope", nil)
		}
		code := strings.TrimSpace(envelope.Event.Data.Code)
		if code == "" {
			return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusBadRequest,
			}, core.ValidationError("coinbase: webhook event has no charge code", nil)
		}

		verification, err := p.VerifyCharge(ctx, code)
		if err != nil {
			return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusInternalServerError,
			}, err
		}
		return core.InboundResult{
			Accepted:   true,
			StatusCode: http.StatusOK,
			Metadata: map[string]any{
				"charge_code": code,
				"event_type":  envelope.Event.Type,
				"status":      string(verification.Status),
			},
		}, nil
	})
}

// NewWebhookProcessor wires the account's verifier, an in-process
// ledger, and the charge handler into a ready processor.
func (p *Provider) NewWebhookProcessor(ledger webhooks.DeliveryLedger) *webhooks.Processor {
	if ledger == nil {
		ledger = webhooks.NewMemoryDeliveryLedger()
	}
	processor := webhooks.NewProcessor(NewWebhookVerifier(p.config.WebhookSecret), ledger, p.WebhookHandler())
	processor.ExtractID = WebhookDeliveryID
	return processor
}
