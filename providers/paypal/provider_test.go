package paypal

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/goliatone/go-payments/core"
	"github.com/goliatone/go-payments/providers/devkit"
)

func tokenScript() devkit.TransportScript {
	return devkit.TransportScript{
		Response: core.TransportResponse{
			StatusCode: 200,
			Body:       []byte(`{"access_token":"token-1","token_type":"Bearer","expires_in":3600}`),
		},
	}
}

func newTestProvider(t *testing.T, scripts ...devkit.TransportScript) (*Provider, *core.Runtime, *devkit.FakeTransportAdapter) {
	t.Helper()

	transport := devkit.NewFakeTransportAdapter("rest", scripts...)
	cfg := core.DefaultConfig()
	cfg.PayPal.ClientID = "client-id"
	cfg.PayPal.ClientSecret = "client-secret"
	cfg.PayPal.BrandName = "Acme Store"

	runtime, err := core.NewRuntime(cfg, core.WithTransport(transport))
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	provider, err := FromRuntime(runtime)
	if err != nil {
		t.Fatalf("unexpected provider error: %v", err)
	}
	return provider, runtime, transport
}

func captureEvent(t *testing.T, runtime *core.Runtime, name string) *core.Event {
	t.Helper()
	captured := &core.Event{}
	if err := runtime.Events().On(name, func(_ context.Context, evt core.Event) {
		*captured = evt
	}); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	return captured
}

func TestCreateOrder(t *testing.T) {
	provider, runtime, transport := newTestProvider(t,
		tokenScript(),
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 201,
			Body: []byte(`{
				"id": "ORD-1",
				"status": "CREATED",
				"links": [
					{"href": "https://paypal.example/checkoutnow?token=ORD-1", "rel": "approve", "method": "GET"},
					{"href": "https://paypal.example/orders/ORD-1", "rel": "self", "method": "GET"}
				]
			}`),
		}},
	)
	created := captureEvent(t, runtime, core.EventPaymentCreated)

	checkout, err := provider.CreateOrder(context.Background(), core.CreateOrderRequest{
		Title:     "Widget",
		Price:     19.99,
		Quantity:  2,
		ReturnURL: "https://shop.example/return",
		CancelURL: "https://shop.example/cancel",
		Metadata:  map[string]any{"user_id": "u-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if checkout.Amount != 39.98 {
		t.Fatalf("expected amount 39.98, got %v", checkout.Amount)
	}
	if checkout.OrderID != "ORD-1" {
		t.Fatalf("expected order id ORD-1, got %q", checkout.OrderID)
	}
	if checkout.ApprovalURL != "https://paypal.example/checkoutnow?token=ORD-1" {
		t.Fatalf("expected approval link, got %q", checkout.ApprovalURL)
	}
	if len(checkout.TransactionID) != 12 {
		t.Fatalf("expected generated 12-digit transaction id, got %q", checkout.TransactionID)
	}

	requests := transport.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected token and order requests, got %d", len(requests))
	}
	orderReq := requests[1]
	if !strings.HasSuffix(orderReq.URL, "/v2/checkout/orders") {
		t.Fatalf("unexpected order url %q", orderReq.URL)
	}
	if orderReq.Headers["Authorization"] != "Bearer token-1" {
		t.Fatalf("expected bearer token, got %q", orderReq.Headers["Authorization"])
	}

	var payload orderCreatePayload
	if err := json.Unmarshal(orderReq.Body, &payload); err != nil {
		t.Fatalf("unexpected payload decode error: %v", err)
	}
	if payload.Intent != "CAPTURE" {
		t.Fatalf("expected CAPTURE intent, got %q", payload.Intent)
	}
	if len(payload.PurchaseUnits) != 1 || payload.PurchaseUnits[0].Amount.Value != "39.98" {
		t.Fatalf("expected 39.98 purchase unit, got %+v", payload.PurchaseUnits)
	}
	if payload.PurchaseUnits[0].CustomID != checkout.TransactionID {
		t.Fatalf("expected custom id %q, got %q", checkout.TransactionID, payload.PurchaseUnits[0].CustomID)
	}
	if payload.ApplicationContext.BrandName != "Acme Store" {
		t.Fatalf("expected brand name, got %q", payload.ApplicationContext.BrandName)
	}

	metadata, ok := runtime.Metadata().Get(checkout.TransactionID)
	if !ok || metadata["user_id"] != "u-1" {
		t.Fatalf("expected metadata cached under transaction id, got %v ok=%v", metadata, ok)
	}

	if created.Status != core.StatusCreated || created.TransactionID != checkout.TransactionID {
		t.Fatalf("expected payment.created event, got %+v", created)
	}
	if created.Amount != 39.98 {
		t.Fatalf("expected event amount 39.98, got %v", created.Amount)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	provider, runtime, transport := newTestProvider(t)
	errEvent := captureEvent(t, runtime, core.EventError)

	_, err := provider.CreateOrder(context.Background(), core.CreateOrderRequest{
		Price:     10,
		ReturnURL: "https://shop.example/return",
		CancelURL: "https://shop.example/cancel",
	})
	if err == nil {
		t.Fatalf("expected missing title to fail")
	}
	if len(transport.Requests()) != 0 {
		t.Fatalf("expected no provider call on validation failure")
	}
	if errEvent.Operation != core.OperationOrderCreation {
		t.Fatalf("expected order_creation operation tag, got %q", errEvent.Operation)
	}
	if errEvent.Err == nil {
		t.Fatalf("expected error carried on error event")
	}

	if _, err := provider.CreateOrder(context.Background(), core.CreateOrderRequest{
		Title:     "Widget",
		Price:     0,
		ReturnURL: "https://shop.example/return",
		CancelURL: "https://shop.example/cancel",
	}); err == nil {
		t.Fatalf("expected zero price to fail")
	}

	if _, err := provider.CreateOrder(context.Background(), core.CreateOrderRequest{
		Title: "Widget",
		Price: 10,
	}); err == nil {
		t.Fatalf("expected missing urls to fail")
	}
}

func TestVerifyOrderCapturesApproved(t *testing.T) {
	provider, runtime, transport := newTestProvider(t,
		tokenScript(),
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 200,
			Body: []byte(`{
				"id": "ORD-1",
				"status": "APPROVED",
				"purchase_units": [{"custom_id": "TX1", "amount": {"currency_code": "EUR", "value": "39.98"}}]
			}`),
		}},
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 201,
			Body: []byte(`{
				"id": "ORD-1",
				"status": "COMPLETED",
				"purchase_units": [{"custom_id": "TX1", "amount": {"currency_code": "EUR", "value": "39.98"}}]
			}`),
		}},
	)
	completed := captureEvent(t, runtime, core.EventPaymentCompleted)

	runtime.Metadata().Put("TX1", map[string]any{"user_id": "u-1"}, runtime.MetadataTTL())
	provider.rememberCorrelation(core.KindOrder, "ORD-1", "TX1", runtime.MetadataTTL())

	verification, err := provider.VerifyOrder(context.Background(), "ORD-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if verification.Status != core.StatusCompleted {
		t.Fatalf("expected completed, got %q", verification.Status)
	}
	if verification.TransactionID != "TX1" {
		t.Fatalf("expected transaction TX1, got %q", verification.TransactionID)
	}
	if verification.Amount != 39.98 || verification.Currency != "EUR" {
		t.Fatalf("expected 39.98 EUR, got %v %s", verification.Amount, verification.Currency)
	}

	requests := transport.Requests()
	if len(requests) != 3 {
		t.Fatalf("expected token, lookup, and capture requests, got %d", len(requests))
	}
	if !strings.HasSuffix(requests[2].URL, "/v2/checkout/orders/ORD-1/capture") {
		t.Fatalf("expected capture call, got %q", requests[2].URL)
	}

	if completed.Metadata["user_id"] != "u-1" {
		t.Fatalf("expected cached metadata on event, got %v", completed.Metadata)
	}

	if _, ok := runtime.Metadata().Get("TX1"); ok {
		t.Fatalf("expected metadata purged after verification")
	}
	if runtime.Metadata().Len() != 0 {
		t.Fatalf("expected correlation entry purged, %d entries remain", runtime.Metadata().Len())
	}
}

func TestVerifyOrderCompletedWithoutCapture(t *testing.T) {
	provider, _, transport := newTestProvider(t,
		tokenScript(),
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 200,
			Body: []byte(`{
				"id": "ORD-2",
				"status": "COMPLETED",
				"purchase_units": [{"custom_id": "TX2", "amount": {"currency_code": "EUR", "value": "10.00"}}]
			}`),
		}},
	)

	verification, err := provider.VerifyOrder(context.Background(), "ORD-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verification.Status != core.StatusCompleted {
		t.Fatalf("expected completed, got %q", verification.Status)
	}
	if len(transport.Requests()) != 2 {
		t.Fatalf("expected no capture call, got %d requests", len(transport.Requests()))
	}
}

func TestVerifyOrderUnknownStatusFails(t *testing.T) {
	provider, runtime, _ := newTestProvider(t,
		tokenScript(),
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 200,
			Body: []byte(`{
				"id": "ORD-3",
				"status": "PENDING_APPROVAL",
				"purchase_units": [{"custom_id": "TX3", "amount": {"currency_code": "EUR", "value": "10.00"}}]
			}`),
		}},
	)
	failed := captureEvent(t, runtime, core.EventPaymentFailed)

	verification, err := provider.VerifyOrder(context.Background(), "ORD-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verification.Status != core.StatusFailed {
		t.Fatalf("expected failed for unmapped status, got %q", verification.Status)
	}
	if failed.Status != core.StatusFailed {
		t.Fatalf("expected payment.failed event, got %+v", failed)
	}
}

func TestVerifyOrderPurgesMetadataOnFailure(t *testing.T) {
	provider, runtime, _ := newTestProvider(t,
		tokenScript(),
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 500,
			Body:       []byte(`{"error":"internal"}`),
		}},
	)

	runtime.Metadata().Put("TX4", map[string]any{"user_id": "u-4"}, runtime.MetadataTTL())
	provider.rememberCorrelation(core.KindOrder, "ORD-4", "TX4", runtime.MetadataTTL())

	if _, err := provider.VerifyOrder(context.Background(), "ORD-4"); err == nil {
		t.Fatalf("expected provider failure")
	}

	if _, ok := runtime.Metadata().Get("TX4"); ok {
		t.Fatalf("expected metadata purged even on failed verification")
	}
	if runtime.Metadata().Len() != 0 {
		t.Fatalf("expected correlation entry purged, %d entries remain", runtime.Metadata().Len())
	}
}

func TestCreatePlan(t *testing.T) {
	provider, _, transport := newTestProvider(t,
		tokenScript(),
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 201,
			Body:       []byte(`{"id": "PROD-1"}`),
		}},
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 201,
			Body:       []byte(`{"id": "PLAN-1"}`),
		}},
	)

	plan, err := provider.CreatePlan(context.Background(), core.CreatePlanRequest{
		Name:     "Pro",
		Price:    9.99,
		Interval: "month",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.PlanID != "PLAN-1" {
		t.Fatalf("expected PLAN-1, got %q", plan.PlanID)
	}

	requests := transport.Requests()
	if len(requests) != 3 {
		t.Fatalf("expected token, product, and plan requests, got %d", len(requests))
	}
	if !strings.HasSuffix(requests[1].URL, "/v1/catalogs/products") {
		t.Fatalf("expected product creation first, got %q", requests[1].URL)
	}
	if !strings.HasSuffix(requests[2].URL, "/v1/billing/plans") {
		t.Fatalf("expected plan creation second, got %q", requests[2].URL)
	}

	var payload planCreatePayload
	if err := json.Unmarshal(requests[2].Body, &payload); err != nil {
		t.Fatalf("unexpected payload decode error: %v", err)
	}
	if payload.ProductID != "PROD-1" {
		t.Fatalf("expected plan bound to PROD-1, got %q", payload.ProductID)
	}
	if len(payload.BillingCycles) != 1 || payload.BillingCycles[0].Frequency.IntervalUnit != "MONTH" {
		t.Fatalf("expected MONTH billing cycle, got %+v", payload.BillingCycles)
	}
	if payload.BillingCycles[0].PricingScheme.FixedPrice.Value != "9.99" {
		t.Fatalf("expected 9.99 fixed price, got %+v", payload.BillingCycles[0].PricingScheme)
	}
}

func TestCreatePlanRejectsInvalidInterval(t *testing.T) {
	provider, _, transport := newTestProvider(t)
	if _, err := provider.CreatePlan(context.Background(), core.CreatePlanRequest{
		Name:     "Pro",
		Price:    9.99,
		Interval: "fortnight",
	}); err == nil {
		t.Fatalf("expected invalid interval to fail")
	}
	if len(transport.Requests()) != 0 {
		t.Fatalf("expected no provider call")
	}
}

func TestCreateSubscription(t *testing.T) {
	provider, runtime, transport := newTestProvider(t,
		tokenScript(),
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 201,
			Body: []byte(`{
				"id": "SUB-1",
				"status": "APPROVAL_PENDING",
				"plan_id": "PLAN-1",
				"links": [{"href": "https://paypal.example/approve/SUB-1", "rel": "approve"}]
			}`),
		}},
	)
	created := captureEvent(t, runtime, core.EventSubscriptionCreated)

	checkout, err := provider.CreateSubscription(context.Background(), core.CreateSubscriptionRequest{
		PlanID:    "PLAN-1",
		ReturnURL: "https://shop.example/return",
		CancelURL: "https://shop.example/cancel",
		CustomID:  "TX-SUB-1",
		Metadata:  map[string]any{"user_id": "u-1"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if checkout.SubscriptionID != "SUB-1" {
		t.Fatalf("expected SUB-1, got %q", checkout.SubscriptionID)
	}
	if checkout.TransactionID != "TX-SUB-1" {
		t.Fatalf("expected caller custom id kept, got %q", checkout.TransactionID)
	}
	if checkout.ApprovalURL != "https://paypal.example/approve/SUB-1" {
		t.Fatalf("expected approval link, got %q", checkout.ApprovalURL)
	}

	if created.PlanID != "PLAN-1" || created.Status != core.StatusCreated {
		t.Fatalf("expected subscription.created event, got %+v", created)
	}
	if _, ok := runtime.Metadata().Get("TX-SUB-1"); !ok {
		t.Fatalf("expected metadata cached under transaction id")
	}
	if len(transport.Requests()) != 2 {
		t.Fatalf("expected token and create requests, got %d", len(transport.Requests()))
	}
}

func TestVerifySubscriptionActive(t *testing.T) {
	provider, runtime, _ := newTestProvider(t,
		tokenScript(),
		devkit.TransportScript{Response: core.TransportResponse{
			StatusCode: 200,
			Body: []byte(`{
				"id": "SUB-1",
				"status": "ACTIVE",
				"plan_id": "PLAN-1",
				"custom_id": "TX-SUB-1"
			}`),
		}},
	)
	activated := captureEvent(t, runtime, core.EventSubscriptionActivated)

	runtime.Metadata().Put("TX-SUB-1", map[string]any{"user_id": "u-1"}, runtime.MetadataTTL())
	provider.rememberCorrelation(core.KindSubscription, "SUB-1", "TX-SUB-1", runtime.MetadataTTL())

	verification, err := provider.VerifySubscription(context.Background(), "SUB-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verification.Status != core.StatusActive {
		t.Fatalf("expected active, got %q", verification.Status)
	}
	if verification.PlanID != "PLAN-1" {
		t.Fatalf("expected plan id, got %q", verification.PlanID)
	}
	if activated.Metadata["user_id"] != "u-1" {
		t.Fatalf("expected cached metadata on event, got %v", activated.Metadata)
	}
	if runtime.Metadata().Len() != 0 {
		t.Fatalf("expected metadata purged, %d entries remain", runtime.Metadata().Len())
	}
}

func TestCancelSubscription(t *testing.T) {
	provider, runtime, transport := newTestProvider(t,
		tokenScript(),
		devkit.TransportScript{Response: core.TransportResponse{StatusCode: 204}},
	)
	cancelled := captureEvent(t, runtime, core.EventSubscriptionCancelled)

	runtime.Metadata().Put("TX-SUB-1", map[string]any{"user_id": "u-1"}, runtime.MetadataTTL())
	provider.rememberCorrelation(core.KindSubscription, "SUB-1", "TX-SUB-1", runtime.MetadataTTL())

	cancellation, err := provider.CancelSubscription(context.Background(), "SUB-1", "user requested")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancellation.Status != core.StatusCancelled {
		t.Fatalf("expected cancelled, got %q", cancellation.Status)
	}

	requests := transport.Requests()
	if len(requests) != 2 {
		t.Fatalf("expected token and cancel requests, got %d", len(requests))
	}
	if !strings.HasSuffix(requests[1].URL, "/v1/billing/subscriptions/SUB-1/cancel") {
		t.Fatalf("expected cancel call, got %q", requests[1].URL)
	}

	var payload cancelSubscriptionPayload
	if err := json.Unmarshal(requests[1].Body, &payload); err != nil {
		t.Fatalf("unexpected payload decode error: %v", err)
	}
	if payload.Reason != "user requested" {
		t.Fatalf("expected cancellation reason forwarded, got %q", payload.Reason)
	}

	if cancelled.Status != core.StatusCancelled || cancelled.TransactionID != "TX-SUB-1" {
		t.Fatalf("expected subscription.cancelled event, got %+v", cancelled)
	}
	if runtime.Metadata().Len() != 0 {
		t.Fatalf("expected residual metadata purged, %d entries remain", runtime.Metadata().Len())
	}
}

func TestResolveBaseURL(t *testing.T) {
	url, err := resolveBaseURL(Config{Environment: "sandbox"})
	if err != nil || url != sandboxBaseURL {
		t.Fatalf("expected sandbox base url, got %q err=%v", url, err)
	}
	url, err = resolveBaseURL(Config{Environment: "production"})
	if err != nil || url != productionBaseURL {
		t.Fatalf("expected production base url, got %q err=%v", url, err)
	}
	url, err = resolveBaseURL(Config{BaseURL: "https://override.example/"})
	if err != nil || url != "https://override.example" {
		t.Fatalf("expected override base url, got %q err=%v", url, err)
	}
	if _, err := resolveBaseURL(Config{Environment: "staging"}); err == nil {
		t.Fatalf("expected invalid environment to fail")
	}
}
