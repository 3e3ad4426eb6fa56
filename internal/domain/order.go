// internal/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EscrowStatus is the per-order escrow tag gating which ledger operation may
// run next. Transitions: NONE -> FROZEN -> RELEASED, or NONE -> FROZEN -> REFUNDED.
type EscrowStatus string

const (
	EscrowStatusNone     EscrowStatus = "NONE"
	EscrowStatusFrozen   EscrowStatus = "FROZEN"
	EscrowStatusReleased EscrowStatus = "RELEASED"
	EscrowStatusRefunded EscrowStatus = "REFUNDED"
)

// IsTerminal returns true if no further escrow transition is permitted.
func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleased || s == EscrowStatusRefunded
}

// Order is the escrow-relevant subset of a marketplace order. TotalBudget is
// fixed at creation and immutable thereafter.
type Order struct {
	ID           int64           `db:"id" json:"id"`
	CustomerID   int64           `db:"customer_id" json:"customer_id"`
	FreelancerID int64           `db:"freelancer_id" json:"freelancer_id"`
	TotalBudget  decimal.Decimal `db:"total_budget" json:"total_budget"` // NUMERIC(20, 2) in DB
	EscrowStatus EscrowStatus    `db:"escrow_status" json:"escrow_status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// NewOrder creates a new Order with escrow status NONE.
func NewOrder(id, customerID, freelancerID int64, totalBudget decimal.Decimal) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:           id,
		CustomerID:   customerID,
		FreelancerID: freelancerID,
		TotalBudget:  totalBudget,
		EscrowStatus: EscrowStatusNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
