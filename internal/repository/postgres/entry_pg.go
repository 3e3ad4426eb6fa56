// internal/repository/postgres/entry_pg.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"escrowpay/internal/domain"
	"escrowpay/internal/repository"
)

// EntryRepository implements repository.EntryRepository for PostgreSQL.
type EntryRepository struct {
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db *sqlx.DB) repository.EntryRepository {
	return &EntryRepository{}
}

// CreateEntry appends a journal row using the provided DBExecutor.
func (r *EntryRepository) CreateEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (user_id, type, amount, fee, order_id, payment_id, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		entry.UserID, entry.Type, entry.Amount, entry.Fee,
		entry.OrderID, entry.PaymentID, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}
	return nil
}

// GetEntriesByUserID retrieves a paginated journal for a user, newest first.
// It performs two queries: one for the data and one for the total count.
func (r *EntryRepository) GetEntriesByUserID(ctx context.Context, q repository.DBExecutor, userID int64, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	entries := []domain.LedgerEntry{}

	query := `
		SELECT id, user_id, type, amount, fee, order_id, payment_id, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	err := q.SelectContext(ctx, &entries, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch ledger entries for user %d: %w", userID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM ledger_entries WHERE user_id = $1`
	err = q.GetContext(ctx, &totalCount, countQuery, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ledger entries for user %d: %w", userID, err)
	}

	return entries, totalCount, nil
}
