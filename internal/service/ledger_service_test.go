// internal/service/ledger_service_test.go
package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"escrowpay/internal/domain"
	"escrowpay/internal/repository"
	"escrowpay/internal/util"
	"escrowpay/pkg/db"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

// MockTxController is a mock transaction controller that also satisfies
// repository.DBExecutor by embedding MockDBExecutor.
type MockTxController struct {
	mock.Mock
	MockDBExecutor
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockWalletRepository is a mock implementation of repository.WalletRepository.
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.Wallet) error {
	args := m.Called(ctx, q, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetWalletByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) GetWalletByUserIDForUpdate(ctx context.Context, q repository.DBExecutor, userID int64) (*domain.Wallet, error) {
	args := m.Called(ctx, q, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Wallet), args.Error(1)
}

func (m *MockWalletRepository) ApplyBalanceDelta(ctx context.Context, q repository.DBExecutor, userID int64, balanceDelta, frozenDelta decimal.Decimal) error {
	args := m.Called(ctx, q, userID, balanceDelta, frozenDelta)
	return args.Error(0)
}

// MockOrderRepository is a mock implementation of repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, q repository.DBExecutor, order *domain.Order) error {
	args := m.Called(ctx, q, order)
	return args.Error(0)
}

func (m *MockOrderRepository) GetOrderByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Order, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetOrderByIDForUpdate(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Order, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) AdvanceEscrowStatus(ctx context.Context, q repository.DBExecutor, id int64, from, to domain.EscrowStatus) error {
	args := m.Called(ctx, q, id, from, to)
	return args.Error(0)
}

// MockEntryRepository is a mock implementation of repository.EntryRepository.
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) CreateEntry(ctx context.Context, q repository.DBExecutor, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, q, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) GetEntriesByUserID(ctx context.Context, q repository.DBExecutor, userID int64, limit, offset int) ([]domain.LedgerEntry, int64, error) {
	args := m.Called(ctx, q, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Get(1).(int64), args.Error(2)
}

// ledgerFixture wires a ledgerService against mocks with an always-succeeding
// transaction lifecycle.
type ledgerFixture struct {
	walletRepo *MockWalletRepository
	orderRepo  *MockOrderRepository
	entryRepo  *MockEntryRepository
	txCtrl     *MockTxController
	svc        LedgerService
}

func newLedgerFixture(t *testing.T, platformUserID int64) *ledgerFixture {
	t.Helper()

	f := &ledgerFixture{
		walletRepo: new(MockWalletRepository),
		orderRepo:  new(MockOrderRepository),
		entryRepo:  new(MockEntryRepository),
		txCtrl:     new(MockTxController),
	}
	f.txCtrl.On("Commit").Return(nil).Maybe()
	f.txCtrl.On("Rollback").Return(nil).Maybe()

	beginTx := func(ctx context.Context, dbConn db.DBTxBeginner) (db.TxController, error) {
		return f.txCtrl, nil
	}
	commitTx := func(tx db.TxController) error { return tx.Commit() }
	rollbackTx := func(tx db.TxController) { _ = tx.Rollback() }

	f.svc = NewLedgerService(
		nil, // dbBeginner unused with the injected beginTx
		new(MockDBExecutor),
		f.walletRepo,
		f.orderRepo,
		f.entryRepo,
		beginTx,
		commitTx,
		rollbackTx,
		decimal.Zero,
		platformUserID,
	)
	return f
}

func TestHold(t *testing.T) {
	ctx := context.Background()
	orderID := int64(10)
	customerID := int64(1)
	freelancerID := int64(2)
	budget := decimal.NewFromFloat(400.00)

	t.Run("SuccessfulHold", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		order := domain.NewOrder(orderID, customerID, freelancerID, budget)
		wallet := domain.NewWallet(customerID, decimal.NewFromFloat(1000.00))

		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(order, nil).Once()
		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, customerID).Return(wallet, nil).Once()
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, customerID, budget.Neg(), budget).Return(nil).Once()
		f.orderRepo.On("AdvanceEscrowStatus", ctx, mock.Anything, orderID, domain.EscrowStatusNone, domain.EscrowStatusFrozen).Return(nil).Once()
		f.entryRepo.On("CreateEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Once()

		frozenWallet := &domain.Wallet{
			UserID:        customerID,
			Balance:       decimal.NewFromFloat(600.00),
			FrozenBalance: decimal.NewFromFloat(400.00),
		}
		frozenOrder := *order
		frozenOrder.EscrowStatus = domain.EscrowStatusFrozen
		f.walletRepo.On("GetWalletByUserID", ctx, mock.Anything, customerID).Return(frozenWallet, nil).Once()
		f.orderRepo.On("GetOrderByID", ctx, mock.Anything, orderID).Return(&frozenOrder, nil).Once()

		gotOrder, gotWallet, err := f.svc.Hold(ctx, orderID)

		assert.NoError(t, err)
		assert.Equal(t, domain.EscrowStatusFrozen, gotOrder.EscrowStatus)
		assert.True(t, gotWallet.Balance.Equal(decimal.NewFromFloat(600.00)))
		assert.True(t, gotWallet.FrozenBalance.Equal(decimal.NewFromFloat(400.00)))
		f.txCtrl.AssertCalled(t, "Commit")
		mock.AssertExpectationsForObjects(t, f.walletRepo, f.orderRepo, f.entryRepo)
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		order := domain.NewOrder(orderID, customerID, freelancerID, budget)
		wallet := domain.NewWallet(customerID, decimal.NewFromFloat(100.00))

		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(order, nil).Once()
		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, customerID).Return(wallet, nil).Once()

		_, _, err := f.svc.Hold(ctx, orderID)

		assert.ErrorIs(t, err, util.ErrInsufficientFunds)
		var insufficientErr *util.InsufficientFundsError
		assert.ErrorAs(t, err, &insufficientErr)
		assert.True(t, insufficientErr.Required.Equal(budget))
		assert.True(t, insufficientErr.Available.Equal(decimal.NewFromFloat(100.00)))
		f.walletRepo.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.txCtrl.AssertNotCalled(t, "Commit")
	})

	t.Run("AlreadyFrozen", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		order := domain.NewOrder(orderID, customerID, freelancerID, budget)
		order.EscrowStatus = domain.EscrowStatusFrozen

		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(order, nil).Once()

		_, _, err := f.svc.Hold(ctx, orderID)

		assert.ErrorIs(t, err, util.ErrInvalidState)
		f.walletRepo.AssertNotCalled(t, "GetWalletByUserIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
		f.txCtrl.AssertNotCalled(t, "Commit")
	})

	t.Run("OrderNotFound", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(nil, util.ErrOrderNotFound).Once()

		_, _, err := f.svc.Hold(ctx, orderID)

		assert.ErrorIs(t, err, util.ErrOrderNotFound)
		f.txCtrl.AssertNotCalled(t, "Commit")
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	orderID := int64(10)
	customerID := int64(1)
	freelancerID := int64(2)
	budget := decimal.NewFromFloat(400.00)
	feeRate := decimal.NewFromFloat(0.10)

	t.Run("SuccessfulRelease", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		order := domain.NewOrder(orderID, customerID, freelancerID, budget)
		order.EscrowStatus = domain.EscrowStatusFrozen

		fee := ComputeFee(budget, feeRate)
		payout := budget.Sub(fee)

		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(order, nil).Once()
		// Wallets locked in ascending user-id order.
		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, customerID).Return(domain.NewWallet(customerID, decimal.Zero), nil).Once()
		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, freelancerID).Return(domain.NewWallet(freelancerID, decimal.Zero), nil).Once()
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, customerID, decimal.Zero, budget.Neg()).Return(nil).Once()
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, freelancerID, payout, decimal.Zero).Return(nil).Once()
		f.orderRepo.On("AdvanceEscrowStatus", ctx, mock.Anything, orderID, domain.EscrowStatusFrozen, domain.EscrowStatusReleased).Return(nil).Once()
		f.entryRepo.On("CreateEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Once()

		releasedOrder := *order
		releasedOrder.EscrowStatus = domain.EscrowStatusReleased
		f.orderRepo.On("GetOrderByID", ctx, mock.Anything, orderID).Return(&releasedOrder, nil).Once()

		result, err := f.svc.Release(ctx, orderID, feeRate)

		assert.NoError(t, err)
		assert.True(t, result.Payout.Equal(decimal.NewFromFloat(360.00)), "payout should be 360.00, got %s", result.Payout)
		assert.True(t, result.Fee.Equal(decimal.NewFromFloat(40.00)), "fee should be 40.00, got %s", result.Fee)
		assert.Equal(t, domain.EscrowStatusReleased, result.Order.EscrowStatus)
		// Conservation: budget fully accounted for as payout + fee.
		assert.True(t, result.Payout.Add(result.Fee).Equal(budget))
		f.txCtrl.AssertCalled(t, "Commit")
		mock.AssertExpectationsForObjects(t, f.walletRepo, f.orderRepo, f.entryRepo)
	})

	t.Run("FeeCreditedToPlatformWallet", func(t *testing.T) {
		platformUserID := int64(99)
		f := newLedgerFixture(t, platformUserID)
		order := domain.NewOrder(orderID, customerID, freelancerID, budget)
		order.EscrowStatus = domain.EscrowStatusFrozen

		fee := ComputeFee(budget, feeRate)
		payout := budget.Sub(fee)

		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(order, nil).Once()
		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, mock.AnythingOfType("int64")).Return(domain.NewWallet(0, decimal.Zero), nil).Times(3)
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, customerID, decimal.Zero, budget.Neg()).Return(nil).Once()
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, freelancerID, payout, decimal.Zero).Return(nil).Once()
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, platformUserID, fee, decimal.Zero).Return(nil).Once()
		f.orderRepo.On("AdvanceEscrowStatus", ctx, mock.Anything, orderID, domain.EscrowStatusFrozen, domain.EscrowStatusReleased).Return(nil).Once()
		f.entryRepo.On("CreateEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Once()

		releasedOrder := *order
		releasedOrder.EscrowStatus = domain.EscrowStatusReleased
		f.orderRepo.On("GetOrderByID", ctx, mock.Anything, orderID).Return(&releasedOrder, nil).Once()

		_, err := f.svc.Release(ctx, orderID, feeRate)

		assert.NoError(t, err)
		mock.AssertExpectationsForObjects(t, f.walletRepo, f.orderRepo, f.entryRepo)
	})

	t.Run("ReleaseWithoutHold", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		order := domain.NewOrder(orderID, customerID, freelancerID, budget) // escrow status NONE

		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(order, nil).Once()

		_, err := f.svc.Release(ctx, orderID, feeRate)

		assert.ErrorIs(t, err, util.ErrInvalidState)
		f.walletRepo.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.txCtrl.AssertNotCalled(t, "Commit")
	})

	t.Run("DoubleRelease", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		order := domain.NewOrder(orderID, customerID, freelancerID, budget)
		order.EscrowStatus = domain.EscrowStatusReleased

		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(order, nil).Once()

		_, err := f.svc.Release(ctx, orderID, feeRate)

		assert.ErrorIs(t, err, util.ErrInvalidState)
		f.walletRepo.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.txCtrl.AssertNotCalled(t, "Commit")
	})

	t.Run("InvalidFeeRate", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.Release(ctx, orderID, decimal.NewFromInt(1))

		assert.ErrorIs(t, err, util.ErrInvalidInput)
		f.orderRepo.AssertNotCalled(t, "GetOrderByIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRefundOrder(t *testing.T) {
	ctx := context.Background()
	orderID := int64(10)
	customerID := int64(1)
	budget := decimal.NewFromFloat(250.00)

	t.Run("SuccessfulRefund", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		order := domain.NewOrder(orderID, customerID, int64(2), budget)
		order.EscrowStatus = domain.EscrowStatusFrozen

		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(order, nil).Once()
		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, customerID).Return(domain.NewWallet(customerID, decimal.Zero), nil).Once()
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, customerID, budget, budget.Neg()).Return(nil).Once()
		f.orderRepo.On("AdvanceEscrowStatus", ctx, mock.Anything, orderID, domain.EscrowStatusFrozen, domain.EscrowStatusRefunded).Return(nil).Once()
		f.entryRepo.On("CreateEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Once()

		refundedOrder := *order
		refundedOrder.EscrowStatus = domain.EscrowStatusRefunded
		f.walletRepo.On("GetWalletByUserID", ctx, mock.Anything, customerID).Return(domain.NewWallet(customerID, budget), nil).Once()
		f.orderRepo.On("GetOrderByID", ctx, mock.Anything, orderID).Return(&refundedOrder, nil).Once()

		gotOrder, _, err := f.svc.RefundOrder(ctx, orderID)

		assert.NoError(t, err)
		assert.Equal(t, domain.EscrowStatusRefunded, gotOrder.EscrowStatus)
		f.txCtrl.AssertCalled(t, "Commit")
		mock.AssertExpectationsForObjects(t, f.walletRepo, f.orderRepo, f.entryRepo)
	})

	t.Run("RefundWithoutHold", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		order := domain.NewOrder(orderID, customerID, int64(2), budget)

		f.orderRepo.On("GetOrderByIDForUpdate", ctx, mock.Anything, orderID).Return(order, nil).Once()

		_, _, err := f.svc.RefundOrder(ctx, orderID)

		assert.ErrorIs(t, err, util.ErrInvalidState)
		f.txCtrl.AssertNotCalled(t, "Commit")
	})
}

func TestWithdraw(t *testing.T) {
	ctx := context.Background()
	userID := int64(1)

	t.Run("SuccessfulWithdrawal", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		amount := decimal.NewFromFloat(100.00)
		wallet := domain.NewWallet(userID, decimal.NewFromFloat(500.00))

		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, userID).Return(wallet, nil).Once()
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, userID, amount.Neg(), decimal.Zero).Return(nil).Once()
		f.entryRepo.On("CreateEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Once()
		f.walletRepo.On("GetWalletByUserID", ctx, mock.Anything, userID).Return(domain.NewWallet(userID, decimal.NewFromFloat(400.00)), nil).Once()

		updated, err := f.svc.Withdraw(ctx, userID, amount)

		assert.NoError(t, err)
		assert.True(t, updated.Balance.Equal(decimal.NewFromFloat(400.00)))
		f.txCtrl.AssertCalled(t, "Commit")
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		wallet := domain.NewWallet(userID, decimal.NewFromFloat(50.00))

		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, userID).Return(wallet, nil).Once()

		_, err := f.svc.Withdraw(ctx, userID, decimal.NewFromFloat(100.00))

		assert.ErrorIs(t, err, util.ErrInsufficientFunds)
		f.walletRepo.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.txCtrl.AssertNotCalled(t, "Commit")
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.Withdraw(ctx, userID, decimal.NewFromFloat(-5.00))

		assert.ErrorIs(t, err, util.ErrInvalidAmount)
		f.walletRepo.AssertNotCalled(t, "GetWalletByUserIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("SubCentPrecision", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.Withdraw(ctx, userID, decimal.RequireFromString("0.001"))

		assert.ErrorIs(t, err, util.ErrInvalidAmount)
		f.walletRepo.AssertNotCalled(t, "GetWalletByUserIDForUpdate", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeposit(t *testing.T) {
	ctx := context.Background()
	userID := int64(1)

	t.Run("SuccessfulDeposit", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		amount := decimal.NewFromFloat(50.00)

		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, userID).Return(domain.NewWallet(userID, decimal.Zero), nil).Once()
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, userID, amount, decimal.Zero).Return(nil).Once()
		f.entryRepo.On("CreateEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Once()
		f.walletRepo.On("GetWalletByUserID", ctx, mock.Anything, userID).Return(domain.NewWallet(userID, amount), nil).Once()

		wallet, err := f.svc.Deposit(ctx, userID, amount)

		assert.NoError(t, err)
		assert.True(t, wallet.Balance.Equal(amount))
		f.txCtrl.AssertCalled(t, "Commit")
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.Deposit(ctx, userID, decimal.Zero)

		assert.ErrorIs(t, err, util.ErrInvalidAmount)
		f.txCtrl.AssertNotCalled(t, "Commit")
	})

	t.Run("SubCentPrecision", func(t *testing.T) {
		// NUMERIC(20, 2) would round 10.009 to 10.01 on insert while the
		// provider charges whole cents; such amounts never enter the ledger.
		f := newLedgerFixture(t, 0)

		_, err := f.svc.Deposit(ctx, userID, decimal.RequireFromString("10.009"))

		assert.ErrorIs(t, err, util.ErrInvalidAmount)
		f.walletRepo.AssertNotCalled(t, "ApplyBalanceDelta", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.txCtrl.AssertNotCalled(t, "Commit")
	})

	t.Run("TrailingZerosAccepted", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		amount := decimal.RequireFromString("10.0000") // Equals 10.00 exactly

		f.walletRepo.On("GetWalletByUserIDForUpdate", ctx, mock.Anything, userID).Return(domain.NewWallet(userID, decimal.Zero), nil).Once()
		f.walletRepo.On("ApplyBalanceDelta", ctx, mock.Anything, userID, amount, decimal.Zero).Return(nil).Once()
		f.entryRepo.On("CreateEntry", ctx, mock.Anything, mock.AnythingOfType("*domain.LedgerEntry")).Return(nil).Once()
		f.walletRepo.On("GetWalletByUserID", ctx, mock.Anything, userID).Return(domain.NewWallet(userID, amount), nil).Once()

		_, err := f.svc.Deposit(ctx, userID, amount)

		assert.NoError(t, err)
	})
}

func TestRegisterOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessfulRegistration", func(t *testing.T) {
		f := newLedgerFixture(t, 0)
		f.orderRepo.On("CreateOrder", ctx, mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Once()

		order, err := f.svc.RegisterOrder(ctx, 10, 1, 2, decimal.NewFromFloat(400.00))

		assert.NoError(t, err)
		assert.Equal(t, domain.EscrowStatusNone, order.EscrowStatus)
		f.orderRepo.AssertExpectations(t)
	})

	t.Run("SubCentBudget", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.RegisterOrder(ctx, 10, 1, 2, decimal.RequireFromString("99.999"))

		assert.ErrorIs(t, err, util.ErrInvalidAmount)
		f.orderRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NonPositiveBudget", func(t *testing.T) {
		f := newLedgerFixture(t, 0)

		_, err := f.svc.RegisterOrder(ctx, 10, 1, 2, decimal.Zero)

		assert.ErrorIs(t, err, util.ErrInvalidAmount)
		f.orderRepo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestComputeFee(t *testing.T) {
	feeRate := decimal.NewFromFloat(0.10)

	testCases := []struct {
		name     string
		budget   string
		expected string
	}{
		{"WholeAmount", "400.00", "40.00"},
		{"RepeatingFraction", "333.33", "33.33"}, // 33.333 rounds half-up to 33.33
		{"RoundHalfUp", "100.05", "10.01"},       // 10.005 rounds half-up to 10.01
		{"SmallAmount", "0.01", "0.00"},          // 0.001 rounds down
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			budget := decimal.RequireFromString(tc.budget)
			fee := ComputeFee(budget, feeRate)
			assert.True(t, fee.Equal(decimal.RequireFromString(tc.expected)),
				"fee for %s should be %s, got %s", tc.budget, tc.expected, fee)

			// Conservation: payout + fee reassembles the budget exactly.
			payout := budget.Sub(fee)
			assert.True(t, payout.Add(fee).Equal(budget))
		})
	}
}

func TestComputeFeeNoDriftAcrossCycles(t *testing.T) {
	// Repeated hold/release cycles with an awkward amount must not drift.
	feeRate := decimal.NewFromFloat(0.10)
	budget := decimal.RequireFromString("333.33")

	customerOut := decimal.Zero
	freelancerIn := decimal.Zero
	platformIn := decimal.Zero
	for i := 0; i < 100; i++ {
		fee := ComputeFee(budget, feeRate)
		payout := budget.Sub(fee)
		customerOut = customerOut.Add(budget)
		freelancerIn = freelancerIn.Add(payout)
		platformIn = platformIn.Add(fee)
	}

	assert.True(t, customerOut.Equal(freelancerIn.Add(platformIn)),
		"customer debits %s must equal payouts %s plus fees %s", customerOut, freelancerIn, platformIn)
}
