// internal/repository/order_repo.go
package repository

import (
	"context"

	"escrowpay/internal/domain"
)

// OrderRepository defines the interface for the escrow-relevant order subset.
type OrderRepository interface {
	// CreateOrder inserts a new order row with escrow status NONE.
	CreateOrder(ctx context.Context, q DBExecutor, order *domain.Order) error
	// GetOrderByID retrieves an order by its ID.
	GetOrderByID(ctx context.Context, q DBExecutor, id int64) (*domain.Order, error)
	// GetOrderByIDForUpdate retrieves an order and takes a row lock for the
	// duration of the surrounding transaction.
	GetOrderByIDForUpdate(ctx context.Context, q DBExecutor, id int64) (*domain.Order, error)
	// AdvanceEscrowStatus moves the order from one escrow status to the next.
	// The guard on the current status lives in the UPDATE itself; a stale
	// transition affects zero rows and returns util.ErrInvalidState.
	AdvanceEscrowStatus(ctx context.Context, q DBExecutor, id int64, from, to domain.EscrowStatus) error
}
