// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the coreengine: connection lifecycle, interpreter stepping,
// and callback dispatch.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// CONNECTION METRICS
// =============================================================================

var (
	connectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protocoldsl_connections_total",
			Help: "Total number of connections by lifecycle outcome",
		},
		[]string{"outcome"}, // outcome: inserted, exited, rejected
	)

	connectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "protocoldsl_connections_active",
			Help: "Number of connections currently tracked by the collection manager",
		},
	)
)

// =============================================================================
// INTERPRETER METRICS
// =============================================================================

var (
	interpreterStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protocoldsl_interpreter_steps_total",
			Help: "Total RunUntilBlocked passes by resulting continuation state",
		},
		[]string{"state"}, // state: exited, blocked
	)

	interpreterBlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protocoldsl_interpreter_blocked_total",
			Help: "Total times a continuation blocked, by reason",
		},
		[]string{"reason"}, // WaitingForRead, WaitingForWrite, WaitingForCallback, WaitingCallbackData
	)
)

// =============================================================================
// CALLBACK METRICS
// =============================================================================

var (
	callbackDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "protocoldsl_callback_dispatch_total",
			Help: "Total host callback dispatches by name and status",
		},
		[]string{"name", "status"}, // status: success, unknown
	)

	callbackDispatchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "protocoldsl_callback_dispatch_duration_seconds",
			Help:    "Host callback dispatch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"name"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordConnectionInserted marks a connection entering the collection
// manager's live set.
func RecordConnectionInserted() {
	connectionsTotal.WithLabelValues("inserted").Inc()
	connectionsActive.Inc()
}

// RecordConnectionExited marks a connection whose continuation reached
// Exited and was removed from the collection manager.
func RecordConnectionExited() {
	connectionsTotal.WithLabelValues("exited").Inc()
	connectionsActive.Dec()
}

// RecordConnectionRejected marks an insert attempt the collection manager
// refused because the slot already held a live (non-exited) connection.
func RecordConnectionRejected() {
	connectionsTotal.WithLabelValues("rejected").Inc()
}

// RecordInterpreterStep records the outcome of one RunUntilBlocked pass
// over a connection's continuation.
func RecordInterpreterStep(state string) {
	interpreterStepsTotal.WithLabelValues(state).Inc()
}

// RecordInterpreterBlocked records why a continuation blocked.
func RecordInterpreterBlocked(reason string) {
	interpreterBlockedTotal.WithLabelValues(reason).Inc()
}

// RecordCallbackDispatch records one host callback invocation.
func RecordCallbackDispatch(name string, status string, durationMS int) {
	callbackDispatchTotal.WithLabelValues(name, status).Inc()
	callbackDispatchDurationSeconds.WithLabelValues(name).Observe(float64(durationMS) / 1000.0)
}
