// internal/service/events.go
package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
)

// PaymentSettled is emitted after each terminal webhook processing, for the
// notification collaborator.
type PaymentSettled struct {
	UserID    int64           `json:"user_id"`
	PaymentID string          `json:"payment_id"`
	Succeeded bool            `json:"succeeded"`
	Amount    decimal.Decimal `json:"amount"`
}

// EventPublisher delivers domain events to collaborators. Publishing is
// fire-and-forget: the settlement already committed, so a delivery failure
// is logged by the implementation, never surfaced.
type EventPublisher interface {
	PublishPaymentSettled(ctx context.Context, event PaymentSettled)
}

// LogEventPublisher writes domain events to the structured log. It stands in
// until a real notification transport is attached.
type LogEventPublisher struct {
	logger *slog.Logger
}

// NewLogEventPublisher creates a LogEventPublisher.
func NewLogEventPublisher(logger *slog.Logger) *LogEventPublisher {
	return &LogEventPublisher{logger: logger}
}

func (p *LogEventPublisher) PublishPaymentSettled(ctx context.Context, event PaymentSettled) {
	p.logger.Info("payment settled",
		"user_id", event.UserID,
		"payment_id", event.PaymentID,
		"succeeded", event.Succeeded,
		"amount", event.Amount.StringFixed(2),
	)
}
