// internal/domain/payment.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentKind distinguishes what a provider payment funds.
type PaymentKind string

const (
	PaymentKindDeposit      PaymentKind = "DEPOSIT"
	PaymentKindSubscription PaymentKind = "SUBSCRIPTION"
)

// PaymentStatus is the lifecycle status of a payment transaction record.
// PENDING is the only non-terminal status; terminal rows are immutable.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSucceeded PaymentStatus = "SUCCEEDED"
	PaymentStatusCanceled  PaymentStatus = "CANCELED"
)

// IsTerminal returns true if the record may not transition again.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusCanceled
}

// ProviderStatus is the closed set of provider webhook outcomes. Anything the
// provider sends that is not recognized maps to ProviderStatusOther, which the
// dispatcher treats as "still unresolved".
type ProviderStatus int

const (
	ProviderStatusOther ProviderStatus = iota
	ProviderStatusSucceeded
	ProviderStatusCanceled
)

// ParseProviderStatus maps a provider status string onto the closed variant.
func ParseProviderStatus(s string) ProviderStatus {
	switch s {
	case "succeeded":
		return ProviderStatusSucceeded
	case "canceled":
		return ProviderStatusCanceled
	default:
		return ProviderStatusOther
	}
}

func (s ProviderStatus) String() string {
	switch s {
	case ProviderStatusSucceeded:
		return "succeeded"
	case ProviderStatusCanceled:
		return "canceled"
	default:
		return "other"
	}
}

// PaymentTransaction is the external-payment-id-keyed record used to
// de-duplicate provider webhooks and to know which ledger action a webhook
// should trigger. ProcessedAt is set exactly once, on the terminal transition.
type PaymentTransaction struct {
	PaymentID      string          `db:"payment_id" json:"payment_id"` // Provider-assigned, unique key
	UserID         int64           `db:"user_id" json:"user_id"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key"` // Sent to the provider; dedupes retried HTTP calls provider-side
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	Kind           PaymentKind     `db:"kind" json:"kind"`
	Status         PaymentStatus   `db:"status" json:"status"`
	ProcessedAt    *time.Time      `db:"processed_at" json:"processed_at"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// NewIdempotencyKey generates the caller-side key sent with the provider
// request, so a retried HTTP call is deduplicated on the provider side.
func NewIdempotencyKey() string {
	return uuid.New().String()
}

// NewPaymentTransaction creates a PENDING record. The idempotency key is the
// one already sent to the provider when the payment was requested.
func NewPaymentTransaction(paymentID string, userID int64, idempotencyKey string, amount decimal.Decimal, kind PaymentKind) *PaymentTransaction {
	return &PaymentTransaction{
		PaymentID:      paymentID,
		UserID:         userID,
		IdempotencyKey: idempotencyKey,
		Amount:         amount,
		Kind:           kind,
		Status:         PaymentStatusPending,
		CreatedAt:      time.Now().UTC(),
	}
}
