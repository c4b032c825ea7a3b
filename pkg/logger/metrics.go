package logger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the monitoring pipeline. Auto-registered via promauto
// and exposed on /metrics by the HTTP server.

var (
	// CyclesTotal counts evaluation cycles by final status (ok, error, skipped).
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_cycles_total",
			Help: "Total number of evaluation cycles by status",
		},
		[]string{"status"},
	)

	// CycleDuration tracks wall-clock duration of evaluation cycles.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "monitor_cycle_duration_seconds",
			Help:    "Duration of evaluation cycles in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// PairsEvaluated counts (rule, symbol) pairs evaluated by outcome
	// (no_trigger, triggered, unevaluable).
	PairsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_pairs_evaluated_total",
			Help: "Total number of (rule, symbol) evaluations by outcome",
		},
		[]string{"outcome"},
	)

	// TriggersTotal counts trigger dispositions (accepted, suppressed, failed).
	TriggersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_triggers_total",
			Help: "Total number of rule triggers by disposition",
		},
		[]string{"disposition"},
	)

	// SnapshotFetches counts market snapshot fetch attempts by result
	// (hit, miss, stale, error).
	SnapshotFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_snapshot_fetches_total",
			Help: "Total number of market snapshot lookups by result",
		},
		[]string{"result"},
	)

	// NotificationsTotal counts alert notifications by channel and status.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_notifications_total",
			Help: "Total number of alert notifications by channel and status",
		},
		[]string{"channel", "status"},
	)

	// RequestDuration tracks HTTP request latency on the control surface.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "endpoint", "status"},
	)
)
