package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-payments/core"
)

type stubVerifier struct {
	err error
}

func (v stubVerifier) Verify(context.Context, core.InboundRequest) error {
	return v.err
}

type stubHandler struct {
	calls   int
	results []core.InboundResult
	errs    []error
}

func (h *stubHandler) Handle(context.Context, core.InboundRequest) (core.InboundResult, error) {
	index := h.calls
	h.calls++
	var result core.InboundResult
	var err error
	if index < len(h.results) {
		result = h.results[index]
	}
	if index < len(h.errs) {
		err = h.errs[index]
	}
	return result, err
}

func inbound(deliveryID string) core.InboundRequest {
	return core.InboundRequest{
		ProviderID: "coinbase",
		Headers:    map[string]string{"X-Delivery-Id": deliveryID},
		Body:       []byte(`{"ok":true}`),
	}
}

func TestProcessorRejectsInvalidSignatureBeforeHandler(t *testing.T) {
	handler := &stubHandler{}
	processor := NewProcessor(stubVerifier{err: fmt.Errorf("signature verification failed")}, NewMemoryDeliveryLedger(), handler)

	result, err := processor.Process(context.Background(), inbound("d-1"))
	if err == nil {
		t.Fatalf("expected verification failure")
	}
	if result.Accepted || result.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected rejected 401 result, got %+v", result)
	}
	if handler.calls != 0 {
		t.Fatalf("expected handler untouched, got %d calls", handler.calls)
	}
}

func TestProcessorHandlesAndDedupes(t *testing.T) {
	handler := &stubHandler{results: []core.InboundResult{{Accepted: true, StatusCode: http.StatusOK}}}
	processor := NewProcessor(stubVerifier{}, NewMemoryDeliveryLedger(), handler)

	result, err := processor.Process(context.Background(), inbound("d-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Accepted || result.Metadata["delivery_id"] != "d-1" {
		t.Fatalf("expected accepted result with delivery id, got %+v", result)
	}

	replay, err := processor.Process(context.Background(), inbound("d-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if replay.Metadata["deduped"] != true {
		t.Fatalf("expected deduped replay, got %+v", replay)
	}
	if handler.calls != 1 {
		t.Fatalf("expected one handler call, got %d", handler.calls)
	}
}

func TestProcessorSchedulesRetryOnHandlerFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewMemoryDeliveryLedger()
	ledger.Now = func() time.Time { return now }

	handler := &stubHandler{
		results: []core.InboundResult{{}, {Accepted: true, StatusCode: http.StatusOK}},
		errs:    []error{fmt.Errorf("provider lookup failed"), nil},
	}
	processor := NewProcessor(stubVerifier{}, ledger, handler)
	processor.Now = func() time.Time { return now }

	if _, err := processor.Process(context.Background(), inbound("d-2")); err == nil {
		t.Fatalf("expected handler failure to propagate")
	}

	record, err := ledger.Get(context.Background(), "coinbase", "d-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != DeliveryStatusRetryReady {
		t.Fatalf("expected retry_ready, got %q", record.Status)
	}
	if record.NextAttemptAt == nil || !record.NextAttemptAt.After(now) {
		t.Fatalf("expected future retry time, got %v", record.NextAttemptAt)
	}

	// Before the retry window opens the delivery stays claimed.
	blocked, err := processor.Process(context.Background(), inbound("d-2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if blocked.Metadata["deduped"] != true {
		t.Fatalf("expected blocked retry to dedupe, got %+v", blocked)
	}

	// Once the window passes the retry succeeds.
	now = now.Add(time.Minute)
	result, err := processor.Process(context.Background(), inbound("d-2"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected retry to succeed, got %+v", result)
	}
	if handler.calls != 2 {
		t.Fatalf("expected two handler calls, got %d", handler.calls)
	}
}

func TestProcessorMarksDeadAfterMaxAttempts(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewMemoryDeliveryLedger()
	ledger.Now = func() time.Time { return now }

	handler := &stubHandler{errs: []error{fmt.Errorf("boom"), fmt.Errorf("boom")}}
	processor := NewProcessor(stubVerifier{}, ledger, handler)
	processor.MaxAttempts = 2
	processor.Now = func() time.Time { return now }

	if _, err := processor.Process(context.Background(), inbound("d-3")); err == nil {
		t.Fatalf("expected first attempt to fail")
	}
	now = now.Add(time.Minute)
	if _, err := processor.Process(context.Background(), inbound("d-3")); err == nil {
		t.Fatalf("expected second attempt to fail")
	}

	record, err := ledger.Get(context.Background(), "coinbase", "d-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != DeliveryStatusDead {
		t.Fatalf("expected dead delivery, got %q", record.Status)
	}

	// Dead deliveries never run the handler again.
	now = now.Add(time.Hour)
	result, err := processor.Process(context.Background(), inbound("d-3"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Metadata["deduped"] != true {
		t.Fatalf("expected dead delivery to dedupe, got %+v", result)
	}
	if handler.calls != 2 {
		t.Fatalf("expected no further handler calls, got %d", handler.calls)
	}
}

func TestProcessorRequiresProviderAndDeliveryID(t *testing.T) {
	processor := NewProcessor(stubVerifier{}, NewMemoryDeliveryLedger(), &stubHandler{})

	if _, err := processor.Process(context.Background(), core.InboundRequest{Body: []byte(`{}`)}); err == nil {
		t.Fatalf("expected missing provider id to fail")
	}
	if _, err := processor.Process(context.Background(), core.InboundRequest{
		ProviderID: "coinbase",
		Body:       []byte(`{}`),
	}); err == nil {
		t.Fatalf("expected missing delivery id to fail")
	}
}

func TestExponentialRetryPolicy(t *testing.T) {
	policy := ExponentialRetryPolicy{Initial: time.Second, Max: 8 * time.Second}
	if got := policy.NextDelay(1); got != time.Second {
		t.Fatalf("expected 1s, got %v", got)
	}
	if got := policy.NextDelay(3); got != 4*time.Second {
		t.Fatalf("expected 4s, got %v", got)
	}
	if got := policy.NextDelay(10); got != 8*time.Second {
		t.Fatalf("expected cap at 8s, got %v", got)
	}
}
