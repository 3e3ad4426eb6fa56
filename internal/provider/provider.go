// internal/provider/provider.go

// Package provider abstracts the external payment provider: creating a
// payment yields a provider-assigned id and a redirect URL for the user.
package provider

import (
	"context"

	"github.com/shopspring/decimal"
)

// CreatePaymentRequest describes a payment to request from the provider.
type CreatePaymentRequest struct {
	UserID         int64
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string // Dedupes retried HTTP calls provider-side
	Description    string
}

// CreatePaymentResult is the provider's answer.
type CreatePaymentResult struct {
	PaymentID   string
	RedirectURL string
}

// Client is the outbound payment-provider interface.
type Client interface {
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResult, error)
}
