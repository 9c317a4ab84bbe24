package core

import (
	"crypto/rand"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type TransactionKind string

const (
	KindOrder        TransactionKind = "order"
	KindSubscription TransactionKind = "subscription"
	KindCharge       TransactionKind = "charge"
)

// CanonicalStatus is the provider-agnostic lifecycle classification.
// Every raw provider status maps to exactly one canonical value before
// dispatch.
type CanonicalStatus string

const (
	StatusCreated   CanonicalStatus = "created"
	StatusCompleted CanonicalStatus = "completed"
	StatusCancelled CanonicalStatus = "cancelled"
	StatusFailed    CanonicalStatus = "failed"
	StatusActive    CanonicalStatus = "active"
)

const (
	EventPaymentCreated        = "payment.created"
	EventPaymentCompleted      = "payment.completed"
	EventPaymentFailed         = "payment.failed"
	EventPaymentCancelled      = "payment.cancelled"
	EventSubscriptionCreated   = "subscription.created"
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventError                 = "error"
)

// Operation tags carried on error events so handlers can identify the
// failing operation without parsing messages.
const (
	OperationAuth                     = "auth"
	OperationOrderCreation            = "order_creation"
	OperationOrderVerification        = "order_verification"
	OperationPlanCreation             = "plan_creation"
	OperationSubscriptionCreation     = "subscription_creation"
	OperationSubscriptionVerification = "subscription_verification"
	OperationSubscriptionCancellation = "subscription_cancellation"
	OperationChargeCreation           = "charge_creation"
	OperationChargeVerification       = "charge_verification"
)

// Event is the normalized record every host callback receives.
type Event struct {
	Provider      string
	Type          TransactionKind
	Status        CanonicalStatus
	TransactionID string
	PlanID        string
	Amount        float64
	Currency      string
	Metadata      map[string]any
	Raw           any

	// Operation and Err are populated on error events only.
	Operation string
	Err       error
}

type Transaction struct {
	TransactionID string
	ProviderID    string
	Kind          TransactionKind
	Amount        float64
	Currency      string
	Metadata      map[string]any
	CreatedAt     time.Time
}

type CreateOrderRequest struct {
	Title     string
	Price     float64
	Quantity  int
	Currency  string
	ReturnURL string
	CancelURL string
	CustomID  string
	Metadata  map[string]any
}

type OrderCheckout struct {
	ApprovalURL   string
	TransactionID string
	OrderID       string
	Amount        float64
	Currency      string
}

type OrderVerification struct {
	Status        CanonicalStatus
	TransactionID string
	Amount        float64
	Currency      string
}

type CreatePlanRequest struct {
	Name      string
	Price     float64
	Interval  string
	Frequency int
	Currency  string
}

type Plan struct {
	PlanID string
}

type CreateSubscriptionRequest struct {
	PlanID    string
	ReturnURL string
	CancelURL string
	CustomID  string
	Metadata  map[string]any
}

type SubscriptionCheckout struct {
	ApprovalURL    string
	TransactionID  string
	SubscriptionID string
}

type SubscriptionVerification struct {
	Status        CanonicalStatus
	TransactionID string
	PlanID        string
}

type SubscriptionCancellation struct {
	Status CanonicalStatus
}

type CreateChargeRequest struct {
	Title       string
	Description string
	Price       float64
	Quantity    int
	Currency    string
	RedirectURL string
	CancelURL   string
	Metadata    map[string]any
}

type ChargeCheckout struct {
	HostedURL  string
	ChargeID   string
	ChargeCode string
	Amount     float64
	Currency   string
}

type ChargeVerification struct {
	Status   CanonicalStatus
	ChargeID string
	Amount   float64
	Currency string
	Metadata map[string]any
}

// RoundAmount rounds a computed total to two decimal places.
func RoundAmount(value float64) float64 {
	return math.Round(value*100) / 100
}

// FormatAmount renders an amount the way provider APIs expect it,
// always with two decimals.
func FormatAmount(value float64) string {
	return strconv.FormatFloat(RoundAmount(value), 'f', 2, 64)
}

// ParseAmount reads a provider-formatted decimal amount. Empty input
// parses to zero.
func ParseAmount(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("core: parse amount %q: %w", value, err)
	}
	return parsed, nil
}

const transactionIDLength = 12

// NewTransactionID generates a fixed-length numeric correlation key for
// callers that do not supply their own custom id.
func NewTransactionID() string {
	buf := make([]byte, transactionIDLength)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%012d", time.Now().UnixNano()%1e12)
	}
	digits := make([]byte, transactionIDLength)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}
	return string(digits)
}

func CloneMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		out[key] = value
	}
	return out
}
