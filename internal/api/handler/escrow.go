// internal/api/handler/escrow.go
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

// EscrowHandler handles the order-lifecycle collaborator's escrow calls.
type EscrowHandler struct {
	ledger  service.LedgerService
	feeRate decimal.Decimal
	logger  *slog.Logger
}

// NewEscrowHandler creates a new EscrowHandler.
func NewEscrowHandler(ledger service.LedgerService, feeRate decimal.Decimal, logger *slog.Logger) *EscrowHandler {
	return &EscrowHandler{
		ledger:  ledger,
		feeRate: feeRate,
		logger:  logger,
	}
}

func (h *EscrowHandler) orderIDParam(r *http.Request) (int64, error) {
	orderIDStr := chi.URLParam(r, "orderID")
	orderID, err := strconv.ParseInt(orderIDStr, 10, 64)
	if err != nil || orderID <= 0 {
		return 0, util.ErrInvalidInput
	}
	return orderID, nil
}

// CreateOrderRequest represents the request body for order registration.
type CreateOrderRequest struct {
	OrderID      int64           `json:"order_id"`
	CustomerID   int64           `json:"customer_id"`
	FreelancerID int64           `json:"freelancer_id"`
	TotalBudget  decimal.Decimal `json:"total_budget"`
}

// CreateOrder registers the escrow-relevant subset of a new order.
// POST /orders
func (h *EscrowHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}
	if req.OrderID <= 0 || req.CustomerID <= 0 || req.FreelancerID <= 0 {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	order, err := h.ledger.RegisterOrder(r.Context(), req.OrderID, req.CustomerID, req.FreelancerID, req.TotalBudget)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	respondWithJSON(h.logger, w, http.StatusCreated, order)
}

// Hold freezes the order's budget in the customer's wallet.
// POST /orders/{orderID}/hold
func (h *EscrowHandler) Hold(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.orderIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	order, wallet, err := h.ledger.Hold(r.Context(), orderID)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	respondWithJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"message":        "Funds held in escrow",
		"order_id":       order.ID,
		"escrow_status":  order.EscrowStatus,
		"balance":        wallet.Balance,
		"frozen_balance": wallet.FrozenBalance,
	})
}

// Release pays the frozen budget out to the freelancer minus the platform fee.
// POST /orders/{orderID}/release
func (h *EscrowHandler) Release(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.orderIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	result, err := h.ledger.Release(r.Context(), orderID, h.feeRate)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	respondWithJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"message":       "Funds released to freelancer",
		"order_id":      result.Order.ID,
		"escrow_status": result.Order.EscrowStatus,
		"payout":        result.Payout,
		"fee":           result.Fee,
	})
}

// Refund returns the frozen budget to the customer on order cancellation.
// POST /orders/{orderID}/refund
func (h *EscrowHandler) Refund(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.orderIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	order, wallet, err := h.ledger.RefundOrder(r.Context(), orderID)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	respondWithJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"message":        "Escrow refunded to customer",
		"order_id":       order.ID,
		"escrow_status":  order.EscrowStatus,
		"balance":        wallet.Balance,
		"frozen_balance": wallet.FrozenBalance,
	})
}
