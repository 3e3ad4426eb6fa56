// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"escrowpay/internal/domain"
	"escrowpay/internal/repository"
	"escrowpay/internal/util"
)

// WalletRepository implements repository.WalletRepository for PostgreSQL.
type WalletRepository struct {
	// Methods receive a DBExecutor directly, so no *sqlx.DB is held here.
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) repository.WalletRepository {
	return &WalletRepository{}
}

// CreateWallet inserts the per-user wallet row using the provided DBExecutor.
func (r *WalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	query := `INSERT INTO wallets (user_id, balance, frozen_balance, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5)`
	_, err := q.ExecContext(ctx, query, wallet.UserID, wallet.Balance, wallet.FrozenBalance, wallet.CreatedAt, wallet.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return util.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create wallet for user %d: %w", wallet.UserID, err)
	}
	return nil
}

// GetWalletByUserID retrieves a wallet by user ID using the provided DBExecutor.
func (r *WalletRepository) GetWalletByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT user_id, balance, frozen_balance, created_at, updated_at FROM wallets WHERE user_id = $1`
	err := q.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for user %d: %w", userID, err)
	}
	return &wallet, nil
}

// GetWalletByUserIDForUpdate retrieves a wallet and locks its row until the
// surrounding transaction commits or rolls back.
func (r *WalletRepository) GetWalletByUserIDForUpdate(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	var wallet domain.Wallet
	query := `SELECT user_id, balance, frozen_balance, created_at, updated_at FROM wallets WHERE user_id = $1 FOR UPDATE`
	err := q.GetContext(ctx, &wallet, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet for user %d: %w", userID, err)
	}
	return &wallet, nil
}

// ApplyBalanceDelta adjusts balance and frozen_balance in one statement.
// The table's CHECK constraints are the last line of defense against a
// negative balance; callers verify preconditions under the row lock first.
func (r *WalletRepository) ApplyBalanceDelta(ctx context.Context, q repository.DBExecutor, userID int64, balanceDelta, frozenDelta decimal.Decimal) error {
	query := `UPDATE wallets
              SET balance = balance + $1, frozen_balance = frozen_balance + $2, updated_at = $3
              WHERE user_id = $4`
	result, err := q.ExecContext(ctx, query, balanceDelta, frozenDelta, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to apply balance delta for user %d: %w", userID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for user %d: %w", userID, err)
	}
	if rowsAffected == 0 {
		return util.ErrWalletNotFound
	}
	return nil
}
