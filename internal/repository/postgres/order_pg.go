// internal/repository/postgres/order_pg.go
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

// OrderRepository implements repository.OrderRepository for PostgreSQL.
type OrderRepository struct {
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) repository.OrderRepository {
	return &OrderRepository{}
}

// CreateOrder inserts a new order row using the provided DBExecutor.
func (r *OrderRepository) CreateOrder(ctx context.Context, q repository.DBExecutor, order *domain.Order) error {
	query := `INSERT INTO orders (id, customer_id, freelancer_id, total_budget, escrow_status, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := q.ExecContext(ctx, query,
		order.ID, order.CustomerID, order.FreelancerID, order.TotalBudget,
		order.EscrowStatus, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create order %d: %w", order.ID, err)
	}
	return nil
}

// GetOrderByID retrieves an order by its ID using the provided DBExecutor.
func (r *OrderRepository) GetOrderByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Order, error) {
	var order domain.Order
	query := `SELECT id, customer_id, freelancer_id, total_budget, escrow_status, created_at, updated_at
              FROM orders WHERE id = $1`
	err := q.GetContext(ctx, &order, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return &order, nil
}

// GetOrderByIDForUpdate retrieves an order and locks its row until the
// surrounding transaction commits or rolls back.
func (r *OrderRepository) GetOrderByIDForUpdate(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Order, error) {
	var order domain.Order
	query := `SELECT id, customer_id, freelancer_id, total_budget, escrow_status, created_at, updated_at
              FROM orders WHERE id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &order, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", id, err)
	}
	return &order, nil
}

// AdvanceEscrowStatus moves the order escrow tag from one status to the next.
// The WHERE clause carries the transition guard: if another transaction got
// there first, zero rows are affected and ErrInvalidState is returned.
func (r *OrderRepository) AdvanceEscrowStatus(ctx context.Context, q repository.DBExecutor, id int64, from, to domain.EscrowStatus) error {
	query := `UPDATE orders SET escrow_status = $1, updated_at = $2
              WHERE id = $3 AND escrow_status = $4`
	result, err := q.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return fmt.Errorf("failed to advance escrow status of order %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for order %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return util.ErrInvalidState
	}
	return nil
}
