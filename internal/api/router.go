// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"escrowpay/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router.
func NewRouter(
	walletHandler *handler.WalletHandler,
	escrowHandler *handler.EscrowHandler,
	webhookHandler *handler.WebhookHandler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(handler.DefaultTimeout))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Wallet API routes
	r.Route("/wallets", func(r chi.Router) {
		r.Post("/", walletHandler.Provision)
		r.Get("/{userID}", walletHandler.GetWallet)
		r.Get("/{userID}/entries", walletHandler.GetEntries)
		r.Post("/{userID}/deposits", walletHandler.CreateDeposit)
		r.Post("/{userID}/withdraw", walletHandler.Withdraw)
	})

	// Escrow routes, called by the order-lifecycle collaborator
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", escrowHandler.CreateOrder)
		r.Post("/{orderID}/hold", escrowHandler.Hold)
		r.Post("/{orderID}/release", escrowHandler.Release)
		r.Post("/{orderID}/refund", escrowHandler.Refund)
	})

	// Payment provider callback
	r.Post("/webhooks/payment", webhookHandler.HandlePaymentWebhook)

	return r
}
