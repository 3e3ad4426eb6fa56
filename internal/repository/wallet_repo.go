// internal/repository/wallet_repo.go
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"escrowpay/internal/domain"
)

// WalletRepository defines the interface for wallet data operations.
type WalletRepository interface {
	// CreateWallet inserts the per-user wallet row using the provided DBExecutor.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.Wallet) error
	// GetWalletByUserID retrieves a wallet by user ID using the provided DBExecutor.
	GetWalletByUserID(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// GetWalletByUserIDForUpdate retrieves a wallet and takes a row lock for the
	// duration of the surrounding transaction.
	GetWalletByUserIDForUpdate(ctx context.Context, q DBExecutor, userID int64) (*domain.Wallet, error)
	// ApplyBalanceDelta adjusts balance and frozen_balance atomically. The
	// database CHECK constraints reject any delta driving either negative.
	ApplyBalanceDelta(ctx context.Context, q DBExecutor, userID int64, balanceDelta, frozenDelta decimal.Decimal) error
}
