// internal/repository/postgres/payment_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"escrowpay/internal/domain"
	"escrowpay/internal/repository"
	"escrowpay/internal/util"
)

// PaymentRepository implements repository.PaymentRepository for PostgreSQL.
type PaymentRepository struct {
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &PaymentRepository{}
}

// CreatePayment inserts a new PENDING record using the provided DBExecutor.
func (r *PaymentRepository) CreatePayment(ctx context.Context, q repository.DBExecutor, payment *domain.PaymentTransaction) error {
	query := `INSERT INTO payment_transactions (payment_id, user_id, idempotency_key, amount, kind, status, processed_at, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q.ExecContext(ctx, query,
		payment.PaymentID, payment.UserID, payment.IdempotencyKey, payment.Amount,
		payment.Kind, payment.Status, payment.ProcessedAt, payment.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create payment record %s: %w", payment.PaymentID, err)
	}
	return nil
}

// GetPaymentByID retrieves a record by its provider-assigned payment ID.
func (r *PaymentRepository) GetPaymentByID(ctx context.Context, q repository.DBExecutor, paymentID string) (*domain.PaymentTransaction, error) {
	var payment domain.PaymentTransaction
	query := `SELECT payment_id, user_id, idempotency_key, amount, kind, status, processed_at, created_at
              FROM payment_transactions WHERE payment_id = $1`
	err := q.GetContext(ctx, &payment, query, paymentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment record %s: %w", paymentID, err)
	}
	return &payment, nil
}

// GetPaymentByIDForUpdate retrieves a record and locks its row, so concurrent
// webhook deliveries for the same payment serialize here.
func (r *PaymentRepository) GetPaymentByIDForUpdate(ctx context.Context, q repository.DBExecutor, paymentID string) (*domain.PaymentTransaction, error) {
	var payment domain.PaymentTransaction
	query := `SELECT payment_id, user_id, idempotency_key, amount, kind, status, processed_at, created_at
              FROM payment_transactions WHERE payment_id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &payment, query, paymentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to lock payment record %s: %w", paymentID, err)
	}
	return &payment, nil
}

// MarkProcessed moves a PENDING record to a terminal status. The status guard
// in the WHERE clause keeps terminal records immutable.
func (r *PaymentRepository) MarkProcessed(ctx context.Context, q repository.DBExecutor, paymentID string, status domain.PaymentStatus, processedAt time.Time) error {
	query := `UPDATE payment_transactions SET status = $1, processed_at = $2
              WHERE payment_id = $3 AND status = $4`
	result, err := q.ExecContext(ctx, query, status, processedAt, paymentID, domain.PaymentStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark payment %s as %s: %w", paymentID, status, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for payment %s: %w", paymentID, err)
	}
	if rowsAffected == 0 {
		return util.ErrInvalidState
	}
	return nil
}
