// internal/api/handler/webhook.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"escrowpay/internal/domain"
	"escrowpay/internal/service"
)

// WebhookHandler receives provider payment notifications.
type WebhookHandler struct {
	settlement service.SettlementService
	logger     *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(settlement service.SettlementService, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		settlement: settlement,
		logger:     logger,
	}
}

// webhookPayload is the provider-agnostic slice of the notification we need.
type webhookPayload struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HandlePaymentWebhook processes one webhook delivery. The provider delivers
// at least once and retries on any non-2xx, so: 200 for success and every
// no-op, 502 only for transient failures where redelivery can succeed.
// POST /webhooks/payment
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.ID == "" {
		// Malformed payloads cannot become valid on retry.
		h.logger.Warn("malformed webhook payload", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	status := domain.ParseProviderStatus(payload.Status)
	if err := h.settlement.HandleNotification(r.Context(), payload.ID, status); err != nil {
		h.logger.Error("webhook processing failed, provider will retry",
			"payment_id", payload.ID, "error", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusOK)
}
