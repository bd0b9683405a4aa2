// Package metrics provides Prometheus metrics for iskwatch.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "iskwatch"
)

// Monitor metrics
var (
	// ChecksTotal counts alert evaluations by outcome status.
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "checks_total",
			Help:      "Total alert evaluations by outcome",
		},
		[]string{"status"},
	)

	// CyclesTotal counts completed evaluation cycles.
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Total completed evaluation cycles",
		},
	)

	// CyclesSkipped counts ticks dropped because a cycle was still running.
	CyclesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycles_skipped_total",
			Help:      "Ticks skipped because the previous cycle was still in progress",
		},
	)

	// SuppressedTotal counts triggers held back by the suppression window.
	SuppressedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "suppressed_total",
			Help:      "Total triggers suppressed by the per-alert cooldown",
		},
	)

	// CycleDuration tracks evaluation cycle latency.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Evaluation cycle latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// AlertsConfigured tracks alerts by enabled state.
	AlertsConfigured = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "alerts",
			Help:      "Number of configured alerts by state",
		},
		[]string{"state"}, // enabled, disabled
	)
)

// Notification metrics
var (
	// DispatchesTotal counts dispatched triggers.
	DispatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dispatches_total",
			Help:      "Total triggers dispatched to notification channels",
		},
	)

	// ChannelOutcomes counts per-channel delivery outcomes.
	ChannelOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "channel_outcomes_total",
			Help:      "Notification channel outcomes",
		},
		[]string{"channel", "result"}, // result: delivered, skipped, failed
	)

	// PendingTriggered tracks triggers awaiting acknowledgment.
	PendingTriggered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "pending_triggered",
			Help:      "Triggered alerts not yet dismissed",
		},
	)
)

// Provider metrics
var (
	// ProviderRequestDuration tracks market data request latency.
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Market data request latency in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	// ProviderErrors counts failed market data lookups.
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "errors_total",
			Help:      "Total failed market data requests",
		},
		[]string{"endpoint"},
	)
)

// Storage metrics
var (
	// PersistErrors counts failed loads and saves by key.
	PersistErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total persistence errors by key",
		},
		[]string{"key"},
	)
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// HTTPRequestsInFlight tracks requests currently being served.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit string) {
	BuildInfo.WithLabelValues(version, commit).Set(1)
}
