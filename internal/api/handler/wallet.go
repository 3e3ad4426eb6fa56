// internal/api/handler/wallet.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"escrowpay/internal/service"
	"escrowpay/internal/util"
)

// Page size bounds for the entries listing.
const (
	defaultEntriesLimit = 10
	maxEntriesLimit     = 100
)

// WalletHandler handles HTTP requests related to wallet operations.
type WalletHandler struct {
	ledger     service.LedgerService
	settlement service.SettlementService
	logger     *slog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(ledger service.LedgerService, settlement service.SettlementService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		ledger:     ledger,
		settlement: settlement,
		logger:     logger,
	}
}

func (h *WalletHandler) userIDParam(r *http.Request) (int64, error) {
	userIDStr := chi.URLParam(r, "userID")
	userID, err := strconv.ParseInt(userIDStr, 10, 64)
	if err != nil || userID <= 0 {
		return 0, util.ErrInvalidInput
	}
	return userID, nil
}

// ProvisionRequest represents the request body for wallet provisioning.
type ProvisionRequest struct {
	UserID int64 `json:"user_id"`
}

// Provision handles wallet creation at user registration.
// POST /wallets
func (h *WalletHandler) Provision(w http.ResponseWriter, r *http.Request) {
	var req ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}
	if req.UserID <= 0 {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	wallet, err := h.ledger.ProvisionWallet(r.Context(), req.UserID)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	respondWithJSON(h.logger, w, http.StatusCreated, wallet)
}

// GetWallet handles the balance query.
// GET /wallets/{userID}
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	wallet, err := h.ledger.GetWallet(r.Context(), userID)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	respondWithJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"user_id":        wallet.UserID,
		"balance":        wallet.Balance,
		"frozen_balance": wallet.FrozenBalance,
	})
}

// GetEntries handles the ledger journal query.
// GET /wallets/{userID}/entries
func (h *WalletHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultEntriesLimit
	} else if limit > maxEntriesLimit {
		limit = maxEntriesLimit
	}
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	entries, totalCount, err := h.ledger.GetEntries(r.Context(), userID, limit, offset)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	respondWithJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"data":        entries,
		"limit":       limit,
		"offset":      offset,
		"total_count": totalCount,
	})
}

// DepositRequest represents the request body for requesting a deposit.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreateDeposit requests a payment URL from the provider and records the
// PENDING payment transaction. The wallet is credited later, by the webhook.
// POST /wallets/{userID}/deposits
func (h *WalletHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		respondWithError(h.logger, w, util.ErrInvalidAmount)
		return
	}

	intent, err := h.settlement.CreatePaymentIntent(r.Context(), userID, req.Amount)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	respondWithJSON(h.logger, w, http.StatusCreated, intent)
}

// WithdrawRequest represents the request body for withdraw.
type WithdrawRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Withdraw handles the withdraw money request.
// POST /wallets/{userID}/withdraw
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := h.userIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		respondWithError(h.logger, w, util.ErrInvalidAmount)
		return
	}

	wallet, err := h.ledger.Withdraw(r.Context(), userID, req.Amount)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	respondWithJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"message":        "Withdrawal successful",
		"user_id":        wallet.UserID,
		"balance":        wallet.Balance,
		"frozen_balance": wallet.FrozenBalance,
	})
}
