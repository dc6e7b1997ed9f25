package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// METRICS TESTS
// =============================================================================

func TestRecordConnectionLifecycle(t *testing.T) {
	insertedBefore := testutil.ToFloat64(connectionsTotal.WithLabelValues("inserted"))
	exitedBefore := testutil.ToFloat64(connectionsTotal.WithLabelValues("exited"))
	activeBefore := testutil.ToFloat64(connectionsActive)

	RecordConnectionInserted()
	RecordConnectionInserted()
	RecordConnectionExited()

	assert.Equal(t, insertedBefore+2, testutil.ToFloat64(connectionsTotal.WithLabelValues("inserted")))
	assert.Equal(t, exitedBefore+1, testutil.ToFloat64(connectionsTotal.WithLabelValues("exited")))
	assert.Equal(t, activeBefore+1, testutil.ToFloat64(connectionsActive))
}

func TestRecordConnectionRejected(t *testing.T) {
	before := testutil.ToFloat64(connectionsTotal.WithLabelValues("rejected"))
	activeBefore := testutil.ToFloat64(connectionsActive)

	RecordConnectionRejected()

	assert.Equal(t, before+1, testutil.ToFloat64(connectionsTotal.WithLabelValues("rejected")))
	assert.Equal(t, activeBefore, testutil.ToFloat64(connectionsActive),
		"a rejected insert must not change the active gauge")
}

func TestRecordInterpreterStep(t *testing.T) {
	tests := []struct {
		name  string
		state string
	}{
		{"exited pass", "exited"},
		{"blocked pass", "blocked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(interpreterStepsTotal.WithLabelValues(tt.state))
			RecordInterpreterStep(tt.state)
			assert.Equal(t, before+1, testutil.ToFloat64(interpreterStepsTotal.WithLabelValues(tt.state)))
		})
	}
}

func TestRecordInterpreterBlocked(t *testing.T) {
	reasons := []string{
		"WaitingForRead",
		"WaitingForWrite",
		"WaitingForCallback",
		"WaitingCallbackData",
	}

	for _, reason := range reasons {
		t.Run(reason, func(t *testing.T) {
			before := testutil.ToFloat64(interpreterBlockedTotal.WithLabelValues(reason))
			RecordInterpreterBlocked(reason)
			assert.Equal(t, before+1, testutil.ToFloat64(interpreterBlockedTotal.WithLabelValues(reason)))
		})
	}
}

func TestRecordCallbackDispatch(t *testing.T) {
	tests := []struct {
		name       string
		callback   string
		status     string
		durationMS int
	}{
		{"successful dispatch", "provide_Hello", "success", 100},
		{"unknown callback", "no_such_callback", "unknown", 0},
		{"slow dispatch", "deliver_Greeting", "success", 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(callbackDispatchTotal.WithLabelValues(tt.callback, tt.status))
			RecordCallbackDispatch(tt.callback, tt.status, tt.durationMS)
			assert.Equal(t, before+1, testutil.ToFloat64(callbackDispatchTotal.WithLabelValues(tt.callback, tt.status)))
		})
	}
}

func TestMetrics_Concurrent(t *testing.T) {
	// Metric recording must be safe from the interpreter loop, the callback
	// loop, and host I/O threads all at once.
	const goroutines = 10
	const iterations = 100

	before := testutil.ToFloat64(interpreterStepsTotal.WithLabelValues("blocked"))
	done := make(chan bool, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			for j := 0; j < iterations; j++ {
				RecordInterpreterStep("blocked")
				RecordInterpreterBlocked("WaitingForRead")
				RecordCallbackDispatch("concurrent_cb", "success", 10)
			}
			done <- true
		}()
	}

	for i := 0; i < goroutines; i++ {
		<-done
	}

	count := testutil.ToFloat64(interpreterStepsTotal.WithLabelValues("blocked"))
	assert.Equal(t, before+float64(goroutines*iterations), count)
}

func TestMetrics_DifferentLabels(t *testing.T) {
	RecordCallbackDispatch("cb-a", "success", 100)
	RecordCallbackDispatch("cb-a", "unknown", 0)
	RecordCallbackDispatch("cb-b", "success", 300)

	assert.Greater(t, testutil.ToFloat64(callbackDispatchTotal.WithLabelValues("cb-a", "success")), 0.0)
	assert.Greater(t, testutil.ToFloat64(callbackDispatchTotal.WithLabelValues("cb-a", "unknown")), 0.0)
	assert.Greater(t, testutil.ToFloat64(callbackDispatchTotal.WithLabelValues("cb-b", "success")), 0.0)
}

// =============================================================================
// TRACING TESTS
// =============================================================================

func TestInitTracer_InvalidEndpoint(t *testing.T) {
	shutdown, err := InitTracer("test-service", "")

	// Empty endpoint should fail
	require.Error(t, err)
	assert.Nil(t, shutdown)
	assert.Contains(t, err.Error(), "failed to create trace exporter")
}

func TestInitTracer_ValidParameters(t *testing.T) {
	// Skip this test in CI or when OTLP endpoint is not available
	// This is an integration test that requires a real OTLP collector
	t.Skip("Skipping integration test - requires OTLP collector")

	shutdown, err := InitTracer("test-service", "localhost:4317")

	if err != nil {
		// Expected - no OTLP collector running
		assert.Contains(t, err.Error(), "failed to create trace exporter")
		return
	}

	// If we got here, cleanup
	require.NotNil(t, shutdown)
	defer shutdown(context.Background())
}

func TestInitTracer_ServiceName(t *testing.T) {
	// Calls InitTracer with a custom service name; the name itself is not
	// inspected here (the endpoint is unreachable, which is fine)
	shutdown, err := InitTracer("protocoldsl-runner", "invalid-endpoint:1234")

	// Should fail due to invalid endpoint, but we're testing the call works
	if err != nil {
		assert.Contains(t, err.Error(), "failed to create trace exporter")
	}

	if shutdown != nil {
		shutdown(context.Background())
	}
}

func TestTracer_WorksWithoutInit(t *testing.T) {
	// Tracer must hand back a usable (no-op) tracer even when InitTracer
	// was never called, so runner spans never nil-panic in tests.
	tr := Tracer()
	require.NotNil(t, tr)

	_, span := tr.Start(context.Background(), "test.span")
	span.End()
}

func TestMetrics_Registries(t *testing.T) {
	// Our metrics use promauto which registers with the default registry;
	// this is a smoke test that a custom registry coexists with that.
	reg := prometheus.NewRegistry()
	assert.NotNil(t, reg)
}
