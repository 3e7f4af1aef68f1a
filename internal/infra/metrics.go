package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide Prometheus collectors. Served on /metrics by the router.
var (
	LedgerOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasir",
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Stock ledger operations by kind and outcome.",
	}, []string{"op", "outcome"})

	LedgerUnits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasir",
		Subsystem: "ledger",
		Name:      "units_total",
		Help:      "Units moved by the stock ledger, by movement type.",
	}, []string{"type"})

	Checkouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasir",
		Subsystem: "sales",
		Name:      "checkouts_total",
		Help:      "Retail checkouts by payment method and outcome.",
	}, []string{"method", "outcome"})

	RefundLines = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasir",
		Subsystem: "sales",
		Name:      "refund_lines_total",
		Help:      "Sale lines processed on sale deletion, by outcome.",
	}, []string{"outcome"})

	TicketTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasir",
		Subsystem: "tickets",
		Name:      "transitions_total",
		Help:      "Service ticket status transitions by target status.",
	}, []string{"to"})

	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kasir",
		Subsystem: "worker",
		Name:      "jobs_total",
		Help:      "Async jobs processed by type and outcome.",
	}, []string{"type", "outcome"})
)
