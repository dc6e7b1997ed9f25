// Package runner implements the two cooperating driver loops that advance
// every live connection: the interpreter loop (advances each connection's
// continuation to its next block or exit) and the callback loop
// (dispatches queued host callbacks by name).
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/collection"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/continuation"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/observability"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/operation"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

// Logger is the structured-logging interface the runner reports through.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// NoopLogger discards everything, for tests.
func NoopLogger() Logger { return noopLogger{} }

// CallbackFunc is a host-registered callback implementation.
type CallbackFunc func(ctx context.Context, args []value.Value) value.Value

// Config carries the runner's tunables.
type Config struct {
	// ExitWhenDone stops both loops once set and no work remains.
	ExitWhenDone bool
	// QueryTimeout bounds how long a loop waits on its wake signal before
	// re-checking the collection on its own. Zero means DefaultQueryTimeout.
	QueryTimeout time.Duration
}

// DefaultQueryTimeout is the QueryTimeout a zero Config falls back to.
const DefaultQueryTimeout = 2 * time.Second

// Runner drives a Collection's interpreter and callback loops.
type Runner struct {
	collection *collection.Collection
	callbacks  map[string]CallbackFunc
	logger     Logger

	mu  sync.RWMutex
	cfg Config

	wg   sync.WaitGroup
	stop chan struct{}
}

// New builds a Runner over coll, dispatching callback requests to the
// matching entry of callbacks by name.
func New(coll *collection.Collection, callbacks map[string]CallbackFunc, logger Logger) *Runner {
	if logger == nil {
		logger = NoopLogger()
	}
	cbs := make(map[string]CallbackFunc, len(callbacks))
	for k, v := range callbacks {
		cbs[k] = v
	}
	return &Runner{
		collection: coll,
		callbacks:  cbs,
		logger:     logger,
		cfg:        Config{QueryTimeout: DefaultQueryTimeout},
		stop:       make(chan struct{}),
	}
}

// SetConfig replaces the runner's Config. A zero QueryTimeout is treated as
// DefaultQueryTimeout.
func (r *Runner) SetConfig(cfg Config) {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	r.mu.Lock()
	r.cfg = cfg
	r.mu.Unlock()
}

// SetExitWhenDone toggles whether both loops stop once every connection in
// the collection has exited.
func (r *Runner) SetExitWhenDone(v bool) {
	r.mu.Lock()
	r.cfg.ExitWhenDone = v
	r.mu.Unlock()
}

func (r *Runner) exitWhenDoneSet() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.ExitWhenDone
}

func (r *Runner) queryTimeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg.QueryTimeout
}

// Start launches both loops as goroutines. Stop (or ExitWhenDone plus an
// idle pass) ends them.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(2)
	go r.interpreterLoop(ctx)
	go r.callbackLoop(ctx)
}

// Stop signals both loops to end and waits for them to exit.
func (r *Runner) Stop() {
	close(r.stop)
	r.wg.Wait()
}

// allDrained reports whether every connection in snap has reached its
// terminal state, the condition under which ExitWhenDone is satisfied.
func allDrained(snap collection.Snapshot) bool {
	for _, conn := range snap {
		if !conn.Exited() {
			return false
		}
	}
	return true
}

func (r *Runner) interpreterLoop(ctx context.Context) {
	defer r.wg.Done()
	signals := r.collection.Signals
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		default:
		}

		snap := r.collection.Snapshot()
		if r.exitWhenDoneSet() && allDrained(snap) {
			return
		}

		for fd, conn := range snap {
			if conn.Exited() {
				continue
			}
			conn.DrainInbound()
			conn.DrainCallbackResult()

			_, span := observability.Tracer().Start(ctx, "interpreter.step",
				trace.WithAttributes(attribute.Int("protocoldsl.fd", fd)),
			)
			state := conn.Continuation().RunUntilBlocked()
			// A write block resolves as soon as its bytes reach the
			// outbound queue; flush and keep stepping until the
			// continuation needs something only the host can provide.
			for state == continuation.Blocked &&
				conn.Continuation().BlockReason() == operation.WaitingForWrite {
				if conn.FlushOutbound() == 0 {
					break
				}
				signals.WakeUpForOutput.Notify()
				state = conn.Continuation().RunUntilBlocked()
			}
			switch state {
			case continuation.Exited:
				conn.SetResult(conn.Continuation().Result())
				observability.RecordInterpreterStep("exited")
				span.SetStatus(codes.Ok, "exited")
				r.logger.Info("interpreter_exited", "fd", fd, "id", conn.ID)
			case continuation.Blocked:
				reason := conn.Continuation().BlockReason()
				observability.RecordInterpreterStep("blocked")
				observability.RecordInterpreterBlocked(reason.String())
				span.SetAttributes(attribute.String("protocoldsl.block_reason", reason.String()))
				if reason == operation.WaitingForCallback {
					conn.RequestCallbackIfPending()
					signals.WakeUpForCallback.Notify()
				}
				r.logger.Debug("interpreter_blocked", "fd", fd, "id", conn.ID, "reason", reason.String())
			}
			span.End()
		}

		signals.WakeUpInterpreter.WaitTimeout(r.queryTimeout())
	}
}

func (r *Runner) callbackLoop(ctx context.Context) {
	defer r.wg.Done()
	signals := r.collection.Signals
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		default:
		}

		snap := r.collection.Snapshot()
		if r.exitWhenDoneSet() && allDrained(snap) {
			return
		}

		for fd, conn := range snap {
			req, ok := conn.DequeueCallback()
			if !ok {
				continue
			}
			spanCtx, span := observability.Tracer().Start(ctx, "callback.dispatch",
				trace.WithAttributes(
					attribute.Int("protocoldsl.fd", fd),
					attribute.String("protocoldsl.callback", req.Name),
				),
			)
			start := time.Now()
			fn, known := r.callbacks[req.Name]
			var result value.Value
			if !known {
				result = value.ErrorValue(value.NameError)
				span.SetStatus(codes.Error, "unknown callback")
				observability.RecordCallbackDispatch(req.Name, "unknown", int(time.Since(start).Milliseconds()))
				r.logger.Warn("callback_unknown", "fd", fd, "name", req.Name)
			} else {
				result = fn(spanCtx, req.Arguments)
				observability.RecordCallbackDispatch(req.Name, "success", int(time.Since(start).Milliseconds()))
			}
			span.End()
			conn.DeliverCallbackResult(result)
			signals.WakeUpInterpreter.Notify()
		}

		signals.WakeUpForCallback.WaitTimeout(r.queryTimeout())
	}
}

// ShutdownError aggregates errors from a best-effort Shutdown.
type ShutdownError struct {
	Errors []error
}

func (e *ShutdownError) Error() string {
	if len(e.Errors) == 0 {
		return "runner shutdown completed with no errors"
	}
	return fmt.Sprintf("runner shutdown completed with %d errors", len(e.Errors))
}

func (e *ShutdownError) Unwrap() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Shutdown forces ExitWhenDone, wakes both loops and waits for them to
// return, which they do once every connection has exited or the context
// given to Start is cancelled. If ctx ends first, it returns a
// ShutdownError wrapping ctx.Err().
func (r *Runner) Shutdown(ctx context.Context) error {
	r.SetExitWhenDone(true)
	r.collection.Signals.WakeUpInterpreter.Notify()
	r.collection.Signals.WakeUpForCallback.Notify()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return &ShutdownError{Errors: []error{ctx.Err()}}
	}
}
