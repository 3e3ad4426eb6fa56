// internal/service/settlement_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"escrowpay/internal/domain"
	"escrowpay/internal/metrics"
	"escrowpay/internal/provider"
	"escrowpay/internal/repository"
	"escrowpay/internal/util"
	"escrowpay/pkg/db"
)

// PaymentIntent is what the caller needs to send the user off to pay.
type PaymentIntent struct {
	PaymentID   string `json:"payment_id"`
	RedirectURL string `json:"redirect_url"`
}

// SettlementService turns external payment notifications into ledger
// mutations exactly once per payment record.
type SettlementService interface {
	// CreatePaymentIntent obtains a redirect URL from the provider and records
	// the PENDING payment transaction.
	CreatePaymentIntent(ctx context.Context, userID int64, amount decimal.Decimal) (*PaymentIntent, error)
	// HandleNotification processes one provider webhook delivery. Safe to call
	// any number of times for the same payment; only the first delivery that
	// finds the record PENDING has a wallet effect.
	HandleNotification(ctx context.Context, paymentID string, status domain.ProviderStatus) error
}

// LedgerApplier is the slice of the ledger the dispatcher needs: applying a
// deposit inside the dispatcher's own transaction.
type LedgerApplier interface {
	DepositInTx(ctx context.Context, q repository.DBExecutor, userID int64, amount decimal.Decimal, paymentID *string) (*domain.Wallet, error)
}

// settlementService implements the SettlementService interface.
type settlementService struct {
	dbBeginner  db.DBTxBeginner
	dbExecutor  repository.DBExecutor
	paymentRepo repository.PaymentRepository
	walletRepo  repository.WalletRepository
	ledger      LedgerApplier
	provider    provider.Client
	publisher   EventPublisher
	beginTx     db.BeginTxFunc
	commitTx    db.CommitTxFunc
	rollbackTx  db.RollbackTxFunc
	currency    string
	logger      *slog.Logger
}

// NewSettlementService creates a new instance of SettlementService.
func NewSettlementService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	paymentRepo repository.PaymentRepository,
	walletRepo repository.WalletRepository,
	ledger LedgerApplier,
	providerClient provider.Client,
	publisher EventPublisher,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	currency string,
	logger *slog.Logger,
) SettlementService {
	return &settlementService{
		dbBeginner:  dbBeginner,
		dbExecutor:  dbExecutor,
		paymentRepo: paymentRepo,
		walletRepo:  walletRepo,
		ledger:      ledger,
		provider:    providerClient,
		publisher:   publisher,
		beginTx:     beginTx,
		commitTx:    commitTx,
		rollbackTx:  rollbackTx,
		currency:    currency,
		logger:      logger,
	}
}

// CreatePaymentIntent asks the provider for a payment and records it PENDING.
// The idempotency key is generated here and sent with the provider call, so a
// retried HTTP request cannot open a second payment provider-side.
func (s *settlementService) CreatePaymentIntent(ctx context.Context, userID int64, amount decimal.Decimal) (*PaymentIntent, error) {
	if !validAmount(amount) {
		return nil, util.ErrInvalidAmount
	}
	if _, err := s.walletRepo.GetWalletByUserID(ctx, s.dbExecutor, userID); err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	idempotencyKey := domain.NewIdempotencyKey()
	result, err := s.provider.CreatePayment(ctx, provider.CreatePaymentRequest{
		UserID:         userID,
		Amount:         amount,
		Currency:       s.currency,
		IdempotencyKey: idempotencyKey,
		Description:    "Wallet deposit",
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: provider call failed: %w", err)
	}

	record := domain.NewPaymentTransaction(result.PaymentID, userID, idempotencyKey, amount, domain.PaymentKindDeposit)
	if err := s.paymentRepo.CreatePayment(ctx, s.dbExecutor, record); err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}

	s.logger.Info("payment intent created",
		"payment_id", record.PaymentID, "user_id", userID, "amount", amount.StringFixed(2))

	return &PaymentIntent{PaymentID: result.PaymentID, RedirectURL: result.RedirectURL}, nil
}

// HandleNotification reconciles one (paymentID, providerStatus) delivery.
//
// The record row is locked FOR UPDATE, then gated on PENDING: that gate plus
// the single transaction around deposit-and-mark is what makes redelivery
// harmless. On any storage error the transaction rolls back with the record
// still PENDING, and the returned error tells the webhook layer to answer
// with a retryable status.
func (s *settlementService) HandleNotification(ctx context.Context, paymentID string, status domain.ProviderStatus) error {
	metrics.WebhooksReceived.WithLabelValues(status.String()).Inc()

	txController, err := s.beginTx(ctx, s.dbBeginner)
	if err != nil {
		return fmt.Errorf("handle notification: failed to begin transaction: %w", err)
	}
	defer s.rollbackTx(txController)

	txExecutor, ok := txController.(repository.DBExecutor)
	if !ok {
		return fmt.Errorf("handle notification: transaction controller does not implement DBExecutor")
	}

	record, err := s.paymentRepo.GetPaymentByIDForUpdate(ctx, txExecutor, paymentID)
	if err != nil {
		if util.IsError(err, util.ErrPaymentNotFound) {
			// Unknown or foreign payment. Not an error to the caller: the
			// provider retries on any non-2xx.
			metrics.UnknownPayments.Inc()
			s.logger.Warn("webhook for unknown payment", "payment_id", paymentID)
			return nil
		}
		return fmt.Errorf("handle notification: failed to lock payment %s: %w", paymentID, err)
	}

	if record.Status != domain.PaymentStatusPending {
		// Idempotency gate: a terminal record is never re-processed.
		metrics.DuplicatesSuppressed.Inc()
		s.logger.Info("duplicate webhook ignored",
			"payment_id", paymentID, "status", record.Status)
		return nil
	}

	switch status {
	case domain.ProviderStatusSucceeded:
		if record.Kind != domain.PaymentKindDeposit {
			s.logger.Warn("settlement for unsupported payment kind skipped",
				"payment_id", paymentID, "kind", record.Kind)
			return nil
		}
		if _, err := s.ledger.DepositInTx(ctx, txExecutor, record.UserID, record.Amount, &record.PaymentID); err != nil {
			return fmt.Errorf("handle notification: deposit failed for payment %s: %w", paymentID, err)
		}
		if err := s.paymentRepo.MarkProcessed(ctx, txExecutor, paymentID, domain.PaymentStatusSucceeded, time.Now().UTC()); err != nil {
			return fmt.Errorf("handle notification: failed to mark payment %s succeeded: %w", paymentID, err)
		}

	case domain.ProviderStatusCanceled:
		if err := s.paymentRepo.MarkProcessed(ctx, txExecutor, paymentID, domain.PaymentStatusCanceled, time.Now().UTC()); err != nil {
			return fmt.Errorf("handle notification: failed to mark payment %s canceled: %w", paymentID, err)
		}

	default:
		// The provider may still resolve this payment later; leave it PENDING.
		s.logger.Info("webhook with unresolved provider status ignored", "payment_id", paymentID)
		return nil
	}

	if err := s.commitTx(txController); err != nil {
		return fmt.Errorf("handle notification: failed to commit transaction: %w", err)
	}

	succeeded := status == domain.ProviderStatusSucceeded
	if succeeded {
		metrics.SettlementsApplied.WithLabelValues("succeeded").Inc()
	} else {
		metrics.SettlementsApplied.WithLabelValues("canceled").Inc()
	}
	s.publisher.PublishPaymentSettled(ctx, PaymentSettled{
		UserID:    record.UserID,
		PaymentID: record.PaymentID,
		Succeeded: succeeded,
		Amount:    record.Amount,
	})
	return nil
}
