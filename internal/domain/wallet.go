// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Wallet holds a user's available and escrowed funds. Exactly one row per user.
// Both balances are non-negative at every committed point; mutations go
// through the ledger service only.
type Wallet struct {
	UserID        int64           `db:"user_id" json:"user_id"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`               // Spendable funds, NUMERIC(20, 2) in DB
	FrozenBalance decimal.Decimal `db:"frozen_balance" json:"frozen_balance"` // Funds held in escrow
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// NewWallet creates a new Wallet instance with the given opening balance.
// The opening balance is a provisioning policy decision; production default is zero.
func NewWallet(userID int64, openingBalance decimal.Decimal) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		UserID:        userID,
		Balance:       openingBalance,
		FrozenBalance: decimal.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
