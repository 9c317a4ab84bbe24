package core

import "testing"

func TestNormalizeOrderStatus(t *testing.T) {
	status, ok := NormalizeOrderStatus("COMPLETED")
	if !ok || status != StatusCompleted {
		t.Fatalf("expected completed, got %q ok=%v", status, ok)
	}
	status, ok = NormalizeOrderStatus(" voided ")
	if !ok || status != StatusCancelled {
		t.Fatalf("expected cancelled for voided, got %q ok=%v", status, ok)
	}
	status, ok = NormalizeOrderStatus("CANCELLED")
	if !ok || status != StatusCancelled {
		t.Fatalf("expected cancelled, got %q ok=%v", status, ok)
	}
	status, ok = NormalizeOrderStatus("PENDING_APPROVAL")
	if ok || status != StatusFailed {
		t.Fatalf("expected unmapped failed, got %q ok=%v", status, ok)
	}
	status, ok = NormalizeOrderStatus("")
	if ok || status != StatusFailed {
		t.Fatalf("expected failed for empty status, got %q ok=%v", status, ok)
	}
}

func TestNormalizeSubscriptionStatus(t *testing.T) {
	status, ok := NormalizeSubscriptionStatus("ACTIVE")
	if !ok || status != StatusActive {
		t.Fatalf("expected active, got %q ok=%v", status, ok)
	}
	status, ok = NormalizeSubscriptionStatus("EXPIRED")
	if !ok || status != StatusCancelled {
		t.Fatalf("expected cancelled for expired, got %q ok=%v", status, ok)
	}
	status, ok = NormalizeSubscriptionStatus("SUSPENDED")
	if ok || status != StatusFailed {
		t.Fatalf("expected unmapped failed, got %q ok=%v", status, ok)
	}
}

func TestNormalizeChargeStatus(t *testing.T) {
	cases := map[string]CanonicalStatus{
		"NEW":        StatusCreated,
		"CREATED":    StatusCreated,
		"PENDING":    StatusCreated,
		"COMPLETED":  StatusCompleted,
		"RESOLVED":   StatusCompleted,
		"CANCELED":   StatusCancelled,
		"EXPIRED":    StatusFailed,
		"UNRESOLVED": StatusFailed,
	}
	for raw, want := range cases {
		status, ok := NormalizeChargeStatus(raw)
		if !ok {
			t.Fatalf("expected %q to be mapped", raw)
		}
		if status != want {
			t.Fatalf("expected %q for %q, got %q", want, raw, status)
		}
	}
	status, ok := NormalizeChargeStatus("DELAYED")
	if ok || status != StatusFailed {
		t.Fatalf("expected unmapped failed, got %q ok=%v", status, ok)
	}
}

func TestEventForStatus(t *testing.T) {
	if got := EventForStatus(KindOrder, StatusCompleted); got != EventPaymentCompleted {
		t.Fatalf("expected %s, got %s", EventPaymentCompleted, got)
	}
	if got := EventForStatus(KindCharge, StatusCancelled); got != EventPaymentCancelled {
		t.Fatalf("expected %s, got %s", EventPaymentCancelled, got)
	}
	if got := EventForStatus(KindOrder, StatusFailed); got != EventPaymentFailed {
		t.Fatalf("expected %s, got %s", EventPaymentFailed, got)
	}
	if got := EventForStatus(KindSubscription, StatusActive); got != EventSubscriptionActivated {
		t.Fatalf("expected %s, got %s", EventSubscriptionActivated, got)
	}
	if got := EventForStatus(KindSubscription, StatusCancelled); got != EventSubscriptionCancelled {
		t.Fatalf("expected %s, got %s", EventSubscriptionCancelled, got)
	}
	if got := EventForStatus(KindSubscription, StatusFailed); got != EventPaymentFailed {
		t.Fatalf("expected %s, got %s", EventPaymentFailed, got)
	}
}
