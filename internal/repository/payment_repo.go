// internal/repository/payment_repo.go
package repository

import (
	"context"
	"time"

	"escrowpay/internal/domain"
)

// PaymentRepository defines the interface for payment transaction records.
type PaymentRepository interface {
	// CreatePayment inserts a new PENDING record.
	CreatePayment(ctx context.Context, q DBExecutor, payment *domain.PaymentTransaction) error
	// GetPaymentByID retrieves a record by its provider-assigned payment ID.
	GetPaymentByID(ctx context.Context, q DBExecutor, paymentID string) (*domain.PaymentTransaction, error)
	// GetPaymentByIDForUpdate retrieves a record and takes a row lock, so two
	// concurrent webhook deliveries serialize on the same row.
	GetPaymentByIDForUpdate(ctx context.Context, q DBExecutor, paymentID string) (*domain.PaymentTransaction, error)
	// MarkProcessed moves a PENDING record to a terminal status and stamps
	// processed_at. The PENDING guard lives in the UPDATE; a record already
	// terminal affects zero rows and returns util.ErrInvalidState.
	MarkProcessed(ctx context.Context, q DBExecutor, paymentID string, status domain.PaymentStatus, processedAt time.Time) error
}
