// internal/domain/entry.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies a ledger journal entry.
type EntryType string

const (
	EntryTypeDeposit    EntryType = "DEPOSIT"
	EntryTypeWithdrawal EntryType = "WITHDRAWAL"
	EntryTypeHold       EntryType = "HOLD"
	EntryTypeRelease    EntryType = "RELEASE"
	EntryTypeRefund     EntryType = "REFUND"
)

// LedgerEntry is an append-only journal row recording one committed ledger
// operation. Fee is zero except on RELEASE entries, where it names the
// platform's cut explicitly for auditability.
type LedgerEntry struct {
	ID        int64           `db:"id" json:"id"`
	UserID    int64           `db:"user_id" json:"user_id"`
	Type      EntryType       `db:"type" json:"type"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Fee       decimal.Decimal `db:"fee" json:"fee"`
	OrderID   *int64          `db:"order_id" json:"order_id,omitempty"`     // Set for escrow entries
	PaymentID *string         `db:"payment_id" json:"payment_id,omitempty"` // Set for settled deposits
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// NewLedgerEntry creates a journal entry with zero fee.
func NewLedgerEntry(userID int64, entryType EntryType, amount decimal.Decimal) *LedgerEntry {
	return &LedgerEntry{
		UserID:    userID,
		Type:      entryType,
		Amount:    amount,
		Fee:       decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
}
