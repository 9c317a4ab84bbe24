package core

import "strings"

// Status normalization tables, one per provider vocabulary. Each table
// is total over the raw statuses the provider's current API version
// returns; a status outside the table is a normalization gap that the
// caller must log loudly before classifying the result failed.

var orderStatusTable = map[string]CanonicalStatus{
	"COMPLETED": StatusCompleted,
	"VOIDED":    StatusCancelled,
	"CANCELLED": StatusCancelled,
}

var subscriptionStatusTable = map[string]CanonicalStatus{
	"ACTIVE":    StatusActive,
	"CANCELLED": StatusCancelled,
	"EXPIRED":   StatusCancelled,
}

var chargeStatusTable = map[string]CanonicalStatus{
	"NEW":        StatusCreated,
	"CREATED":    StatusCreated,
	"PENDING":    StatusCreated,
	"COMPLETED":  StatusCompleted,
	"RESOLVED":   StatusCompleted,
	"CANCELED":   StatusCancelled,
	"EXPIRED":    StatusFailed,
	"UNRESOLVED": StatusFailed,
}

// NormalizeOrderStatus classifies an order status. Anything outside the
// table classifies failed, including legitimate in-progress states such
// as PENDING_APPROVAL; the mapped flag lets callers log the raw status
// when that fail-fast branch is taken.
func NormalizeOrderStatus(raw string) (CanonicalStatus, bool) {
	status, ok := orderStatusTable[normalizeRawStatus(raw)]
	if !ok {
		return StatusFailed, false
	}
	return status, true
}

func NormalizeSubscriptionStatus(raw string) (CanonicalStatus, bool) {
	status, ok := subscriptionStatusTable[normalizeRawStatus(raw)]
	if !ok {
		return StatusFailed, false
	}
	return status, true
}

func NormalizeChargeStatus(raw string) (CanonicalStatus, bool) {
	status, ok := chargeStatusTable[normalizeRawStatus(raw)]
	if !ok {
		return StatusFailed, false
	}
	return status, true
}

// EventForStatus selects the single callback fired for a verification
// outcome.
func EventForStatus(kind TransactionKind, status CanonicalStatus) string {
	if kind == KindSubscription {
		switch status {
		case StatusCreated:
			return EventSubscriptionCreated
		case StatusActive:
			return EventSubscriptionActivated
		case StatusCancelled:
			return EventSubscriptionCancelled
		default:
			return EventPaymentFailed
		}
	}
	switch status {
	case StatusCreated:
		return EventPaymentCreated
	case StatusCompleted:
		return EventPaymentCompleted
	case StatusCancelled:
		return EventPaymentCancelled
	default:
		return EventPaymentFailed
	}
}

func normalizeRawStatus(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
