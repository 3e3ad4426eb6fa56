// internal/repository/entry_repo.go
package repository

import (
	"context"

	"escrowpay/internal/domain"
)

// EntryRepository defines the interface for the append-only ledger journal.
type EntryRepository interface {
	// CreateEntry appends a journal row inside the same transaction as the
	// wallet mutation it records.
	CreateEntry(ctx context.Context, q DBExecutor, entry *domain.LedgerEntry) error
	// GetEntriesByUserID retrieves a paginated journal for a user, newest first,
	// along with the total count.
	GetEntriesByUserID(ctx context.Context, q DBExecutor, userID int64, limit, offset int) ([]domain.LedgerEntry, int64, error)
}
