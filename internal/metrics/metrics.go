// internal/metrics/metrics.go

// Package metrics holds the Prometheus collectors for the settlement pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// WebhooksReceived counts provider webhook deliveries by parsed status.
	WebhooksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrowpay",
		Subsystem: "settlement",
		Name:      "webhooks_received_total",
		Help:      "Total provider webhook deliveries by parsed provider status.",
	}, []string{"provider_status"})

	// SettlementsApplied counts terminal transitions actually applied.
	SettlementsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "escrowpay",
		Subsystem: "settlement",
		Name:      "applied_total",
		Help:      "Total payment records moved to a terminal status, by result.",
	}, []string{"result"})

	// DuplicatesSuppressed counts webhook deliveries dropped by the
	// idempotency gate (record already terminal).
	DuplicatesSuppressed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "escrowpay",
		Subsystem: "settlement",
		Name:      "duplicates_suppressed_total",
		Help:      "Total webhook deliveries ignored because the record was already terminal.",
	})

	// UnknownPayments counts webhooks for payment ids we never issued.
	UnknownPayments = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "escrowpay",
		Subsystem: "settlement",
		Name:      "unknown_payments_total",
		Help:      "Total webhook deliveries referencing an unknown payment id.",
	})
)

func init() {
	prometheus.MustRegister(WebhooksReceived, SettlementsApplied, DuplicatesSuppressed, UnknownPayments)
}
