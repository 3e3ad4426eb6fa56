// internal/service/ledger_service.go
package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"escrowpay/internal/domain"
	"escrowpay/internal/repository"
	"escrowpay/internal/util"
	"escrowpay/pkg/db"
)

// ReleaseResult is the audit breakdown of a completed release. The fee is an
// explicit, named quantity: payout + fee always equals the order's budget.
type ReleaseResult struct {
	Order  *domain.Order
	Payout decimal.Decimal
	Fee    decimal.Decimal
}

// LedgerService defines the fund-mutating primitives and the escrow
// transitions built on them. Every method is a single storage transaction;
// escrow_status is written nowhere else in the codebase.
type LedgerService interface {
	ProvisionWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error)
	GetEntries(ctx context.Context, userID int64, limit, offset int) ([]domain.LedgerEntry, int64, error)
	RegisterOrder(ctx context.Context, orderID, customerID, freelancerID int64, totalBudget decimal.Decimal) (*domain.Order, error)

	Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Wallet, error)
	Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Wallet, error)
	Refund(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Wallet, error)

	Hold(ctx context.Context, orderID int64) (*domain.Order, *domain.Wallet, error)
	Release(ctx context.Context, orderID int64, feeRate decimal.Decimal) (*ReleaseResult, error)
	RefundOrder(ctx context.Context, orderID int64) (*domain.Order, *domain.Wallet, error)

	// DepositInTx applies a deposit inside a transaction owned by the caller
	// (the settlement dispatcher), so the wallet credit and the payment
	// record's terminal transition commit or roll back together.
	DepositInTx(ctx context.Context, q repository.DBExecutor, userID int64, amount decimal.Decimal, paymentID *string) (*domain.Wallet, error)
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	dbBeginner db.DBTxBeginner       // For starting transactions (e.g., *sqlx.DB)
	dbExecutor repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	walletRepo repository.WalletRepository
	orderRepo  repository.OrderRepository
	entryRepo  repository.EntryRepository
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc

	openingBalance decimal.Decimal // Provisioning policy; production default is zero
	platformUserID int64           // Wallet receiving release fees; 0 disables the credit
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	walletRepo repository.WalletRepository,
	orderRepo repository.OrderRepository,
	entryRepo repository.EntryRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	openingBalance decimal.Decimal,
	platformUserID int64,
) LedgerService {
	return &ledgerService{
		dbBeginner:     dbBeginner,
		dbExecutor:     dbExecutor,
		walletRepo:     walletRepo,
		orderRepo:      orderRepo,
		entryRepo:      entryRepo,
		beginTx:        beginTx,
		commitTx:       commitTx,
		rollbackTx:     rollbackTx,
		openingBalance: openingBalance,
		platformUserID: platformUserID,
	}
}

// validAmount accepts positive amounts with at most two fractional digits.
// Storage is NUMERIC(20, 2) and the provider charges whole cents, so a
// sub-cent amount would be silently rounded somewhere downstream and the
// charged, stored and credited quantities would no longer be the same number.
func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.Equal(amount.Round(2))
}

// ProvisionWallet creates the per-user wallet row at registration time.
func (s *ledgerService) ProvisionWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	wallet := domain.NewWallet(userID, s.openingBalance)
	if err := s.walletRepo.CreateWallet(ctx, s.dbExecutor, wallet); err != nil {
		return nil, fmt.Errorf("provision wallet: %w", err)
	}
	return wallet, nil
}

// GetWallet returns the wallet as of the most recently committed operation.
func (s *ledgerService) GetWallet(ctx context.Context, userID int64) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: failed to get wallet for user %d: %w", userID, err)
	}
	return wallet, nil
}

// GetEntries retrieves a paginated ledger journal for a user.
func (s *ledgerService) GetEntries(ctx context.Context, userID int64, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	if _, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID); err != nil {
		return nil, 0, fmt.Errorf("get entries: %w", err)
	}
	entries, totalCount, err := s.entryRepo.GetEntriesByUserID(ctx, s.dbExecutor, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("get entries: %w", err)
	}
	return entries, totalCount, nil
}

// RegisterOrder records the escrow-relevant subset of a new order.
func (s *ledgerService) RegisterOrder(ctx context.Context, orderID, customerID, freelancerID int64, totalBudget decimal.Decimal) (*domain.Order, error) {
	if !validAmount(totalBudget) {
		return nil, util.ErrInvalidAmount
	}
	order := domain.NewOrder(orderID, customerID, freelancerID, totalBudget)
	if err := s.orderRepo.CreateOrder(ctx, s.dbExecutor, order); err != nil {
		return nil, fmt.Errorf("register order: %w", err)
	}
	return order, nil
}

// Deposit credits a user's available balance. This primitive is not
// idempotent; exactly-once application of provider payments is the
// settlement dispatcher's responsibility.
func (s *ledgerService) Deposit(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Wallet, error) {
	if !validAmount(amount) {
		return nil, util.ErrInvalidAmount
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("deposit: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("deposit: transaction controller does not implement DBExecutor")
	}

	wallet, err := s.DepositInTx(ctx, txExecutor, userID, amount, nil)
	if err != nil {
		return nil, err
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("deposit: failed to commit transaction: %w", err)
	}
	return wallet, nil
}

// DepositInTx applies a deposit using the caller's executor. When the caller
// is the settlement dispatcher, paymentID links the journal entry to the
// settled payment record.
func (s *ledgerService) DepositInTx(ctx context.Context, q repository.DBExecutor, userID int64, amount decimal.Decimal, paymentID *string) (*domain.Wallet, error) {
	if !validAmount(amount) {
		return nil, util.ErrInvalidAmount
	}

	if _, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, q, userID); err != nil {
		return nil, fmt.Errorf("deposit: failed to lock wallet for user %d: %w", userID, err)
	}

	if err := s.walletRepo.ApplyBalanceDelta(ctx, q, userID, amount, decimal.Zero); err != nil {
		return nil, fmt.Errorf("deposit: failed to update balance: %w", err)
	}

	entry := domain.NewLedgerEntry(userID, domain.EntryTypeDeposit, amount)
	entry.PaymentID = paymentID
	if err := s.entryRepo.CreateEntry(ctx, q, entry); err != nil {
		return nil, fmt.Errorf("deposit: failed to create ledger entry: %w", err)
	}

	wallet, err := s.walletRepo.GetWalletByUserID(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("deposit: failed to re-fetch wallet for user %d: %w", userID, err)
	}
	return wallet, nil
}

// Withdraw debits a user's available balance, e.g. for non-escrow purchases.
func (s *ledgerService) Withdraw(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Wallet, error) {
	if !validAmount(amount) {
		return nil, util.ErrInvalidAmount
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("withdraw: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("withdraw: transaction controller does not implement DBExecutor")
	}

	wallet, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, txExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("withdraw: failed to lock wallet for user %d: %w", userID, err)
	}
	if wallet.Balance.LessThan(amount) {
		return nil, util.NewInsufficientFundsError(amount, wallet.Balance)
	}

	if err := s.walletRepo.ApplyBalanceDelta(ctx, txExecutor, userID, amount.Neg(), decimal.Zero); err != nil {
		return nil, fmt.Errorf("withdraw: failed to update balance: %w", err)
	}

	entry := domain.NewLedgerEntry(userID, domain.EntryTypeWithdrawal, amount)
	if err := s.entryRepo.CreateEntry(ctx, txExecutor, entry); err != nil {
		return nil, fmt.Errorf("withdraw: failed to create ledger entry: %w", err)
	}

	updatedWallet, err := s.walletRepo.GetWalletByUserID(ctx, txExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("withdraw: failed to re-fetch wallet for user %d: %w", userID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("withdraw: failed to commit transaction: %w", err)
	}
	return updatedWallet, nil
}

// Refund credits a user's available balance to reverse a canceled payment.
func (s *ledgerService) Refund(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Wallet, error) {
	if !validAmount(amount) {
		return nil, util.ErrInvalidAmount
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("refund: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("refund: transaction controller does not implement DBExecutor")
	}

	if _, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, txExecutor, userID); err != nil {
		return nil, fmt.Errorf("refund: failed to lock wallet for user %d: %w", userID, err)
	}

	if err := s.walletRepo.ApplyBalanceDelta(ctx, txExecutor, userID, amount, decimal.Zero); err != nil {
		return nil, fmt.Errorf("refund: failed to update balance: %w", err)
	}

	entry := domain.NewLedgerEntry(userID, domain.EntryTypeRefund, amount)
	if err := s.entryRepo.CreateEntry(ctx, txExecutor, entry); err != nil {
		return nil, fmt.Errorf("refund: failed to create ledger entry: %w", err)
	}

	wallet, err := s.walletRepo.GetWalletByUserID(ctx, txExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("refund: failed to re-fetch wallet for user %d: %w", userID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("refund: failed to commit transaction: %w", err)
	}
	return wallet, nil
}

// Hold freezes the order's budget in the customer's wallet and moves the
// escrow tag NONE -> FROZEN. The balance check and the debit run under the
// same row lock, so two concurrent holds cannot both pass on one balance.
func (s *ledgerService) Hold(ctx context.Context, orderID int64) (*domain.Order, *domain.Wallet, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("hold: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("hold: transaction controller does not implement DBExecutor")
	}

	order, err := s.orderRepo.GetOrderByIDForUpdate(ctx, txExecutor, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("hold: failed to lock order %d: %w", orderID, err)
	}
	if order.EscrowStatus != domain.EscrowStatusNone {
		return nil, nil, util.ErrInvalidState
	}

	wallet, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, txExecutor, order.CustomerID)
	if err != nil {
		return nil, nil, fmt.Errorf("hold: failed to lock customer wallet: %w", err)
	}
	if wallet.Balance.LessThan(order.TotalBudget) {
		return nil, nil, util.NewInsufficientFundsError(order.TotalBudget, wallet.Balance)
	}

	if err := s.walletRepo.ApplyBalanceDelta(ctx, txExecutor, order.CustomerID, order.TotalBudget.Neg(), order.TotalBudget); err != nil {
		return nil, nil, fmt.Errorf("hold: failed to freeze funds: %w", err)
	}

	if err := s.orderRepo.AdvanceEscrowStatus(ctx, txExecutor, orderID, domain.EscrowStatusNone, domain.EscrowStatusFrozen); err != nil {
		return nil, nil, fmt.Errorf("hold: failed to advance escrow status of order %d: %w", orderID, err)
	}

	entry := domain.NewLedgerEntry(order.CustomerID, domain.EntryTypeHold, order.TotalBudget)
	entry.OrderID = &order.ID
	if err := s.entryRepo.CreateEntry(ctx, txExecutor, entry); err != nil {
		return nil, nil, fmt.Errorf("hold: failed to create ledger entry: %w", err)
	}

	updatedWallet, err := s.walletRepo.GetWalletByUserID(ctx, txExecutor, order.CustomerID)
	if err != nil {
		return nil, nil, fmt.Errorf("hold: failed to re-fetch customer wallet: %w", err)
	}
	updatedOrder, err := s.orderRepo.GetOrderByID(ctx, txExecutor, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("hold: failed to re-fetch order %d: %w", orderID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("hold: failed to commit transaction: %w", err)
	}
	return updatedOrder, updatedWallet, nil
}

// ComputeFee returns the platform's cut of a budget: budget * feeRate, in
// decimal arithmetic, rounded half-up to the smallest currency unit.
func ComputeFee(totalBudget, feeRate decimal.Decimal) decimal.Decimal {
	return totalBudget.Mul(feeRate).Round(2)
}

// Release pays the frozen budget out to the freelancer minus the platform fee
// and moves the escrow tag FROZEN -> RELEASED. It touches two wallets (three
// when a platform revenue wallet is configured), locking them in ascending
// user-id order so concurrent releases cannot deadlock.
func (s *ledgerService) Release(ctx context.Context, orderID int64, feeRate decimal.Decimal) (*ReleaseResult, error) {
	if feeRate.IsNegative() || feeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, util.ErrInvalidInput
	}

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, fmt.Errorf("release: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, fmt.Errorf("release: transaction controller does not implement DBExecutor")
	}

	order, err := s.orderRepo.GetOrderByIDForUpdate(ctx, txExecutor, orderID)
	if err != nil {
		return nil, fmt.Errorf("release: failed to lock order %d: %w", orderID, err)
	}
	if order.EscrowStatus != domain.EscrowStatusFrozen {
		return nil, util.ErrInvalidState
	}

	fee := ComputeFee(order.TotalBudget, feeRate)
	payout := order.TotalBudget.Sub(fee)

	creditFee := s.platformUserID != 0 && fee.IsPositive()
	userIDs := []int64{order.CustomerID, order.FreelancerID}
	if creditFee {
		userIDs = append(userIDs, s.platformUserID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
	for _, id := range userIDs {
		if _, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, txExecutor, id); err != nil {
			return nil, fmt.Errorf("release: failed to lock wallet for user %d: %w", id, err)
		}
	}

	if err := s.walletRepo.ApplyBalanceDelta(ctx, txExecutor, order.CustomerID, decimal.Zero, order.TotalBudget.Neg()); err != nil {
		return nil, fmt.Errorf("release: failed to unfreeze customer funds: %w", err)
	}
	if err := s.walletRepo.ApplyBalanceDelta(ctx, txExecutor, order.FreelancerID, payout, decimal.Zero); err != nil {
		return nil, fmt.Errorf("release: failed to credit freelancer: %w", err)
	}
	if creditFee {
		if err := s.walletRepo.ApplyBalanceDelta(ctx, txExecutor, s.platformUserID, fee, decimal.Zero); err != nil {
			return nil, fmt.Errorf("release: failed to credit platform fee: %w", err)
		}
	}

	if err := s.orderRepo.AdvanceEscrowStatus(ctx, txExecutor, orderID, domain.EscrowStatusFrozen, domain.EscrowStatusReleased); err != nil {
		return nil, fmt.Errorf("release: failed to advance escrow status of order %d: %w", orderID, err)
	}

	entry := domain.NewLedgerEntry(order.FreelancerID, domain.EntryTypeRelease, payout)
	entry.Fee = fee
	entry.OrderID = &order.ID
	if err := s.entryRepo.CreateEntry(ctx, txExecutor, entry); err != nil {
		return nil, fmt.Errorf("release: failed to create ledger entry: %w", err)
	}

	updatedOrder, err := s.orderRepo.GetOrderByID(ctx, txExecutor, orderID)
	if err != nil {
		return nil, fmt.Errorf("release: failed to re-fetch order %d: %w", orderID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, fmt.Errorf("release: failed to commit transaction: %w", err)
	}
	return &ReleaseResult{Order: updatedOrder, Payout: payout, Fee: fee}, nil
}

// RefundOrder unfreezes the order's budget back to the customer and moves the
// escrow tag FROZEN -> REFUNDED. Symmetric to Release, crediting the customer
// instead of the freelancer, with no fee.
func (s *ledgerService) RefundOrder(ctx context.Context, orderID int64) (*domain.Order, *domain.Wallet, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return nil, nil, fmt.Errorf("refund order: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return nil, nil, fmt.Errorf("refund order: transaction controller does not implement DBExecutor")
	}

	order, err := s.orderRepo.GetOrderByIDForUpdate(ctx, txExecutor, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("refund order: failed to lock order %d: %w", orderID, err)
	}
	if order.EscrowStatus != domain.EscrowStatusFrozen {
		return nil, nil, util.ErrInvalidState
	}

	if _, err := s.walletRepo.GetWalletByUserIDForUpdate(ctx, txExecutor, order.CustomerID); err != nil {
		return nil, nil, fmt.Errorf("refund order: failed to lock customer wallet: %w", err)
	}

	if err := s.walletRepo.ApplyBalanceDelta(ctx, txExecutor, order.CustomerID, order.TotalBudget, order.TotalBudget.Neg()); err != nil {
		return nil, nil, fmt.Errorf("refund order: failed to unfreeze funds: %w", err)
	}

	if err := s.orderRepo.AdvanceEscrowStatus(ctx, txExecutor, orderID, domain.EscrowStatusFrozen, domain.EscrowStatusRefunded); err != nil {
		return nil, nil, fmt.Errorf("refund order: failed to advance escrow status of order %d: %w", orderID, err)
	}

	entry := domain.NewLedgerEntry(order.CustomerID, domain.EntryTypeRefund, order.TotalBudget)
	entry.OrderID = &order.ID
	if err := s.entryRepo.CreateEntry(ctx, txExecutor, entry); err != nil {
		return nil, nil, fmt.Errorf("refund order: failed to create ledger entry: %w", err)
	}

	updatedWallet, err := s.walletRepo.GetWalletByUserID(ctx, txExecutor, order.CustomerID)
	if err != nil {
		return nil, nil, fmt.Errorf("refund order: failed to re-fetch customer wallet: %w", err)
	}
	updatedOrder, err := s.orderRepo.GetOrderByID(ctx, txExecutor, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("refund order: failed to re-fetch order %d: %w", orderID, err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, nil, fmt.Errorf("refund order: failed to commit transaction: %w", err)
	}
	return updatedOrder, updatedWallet, nil
}
