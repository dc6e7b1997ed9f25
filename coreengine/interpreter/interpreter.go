// Package interpreter holds the per-connection Context: the top-level
// Continuation plus everything a host needs to drive it without touching
// a socket directly.
package interpreter

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/continuation"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/optree"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/support"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

// CallbackRequest is one entry on a Context's callback-request queue: the
// name of the host callback to invoke plus the already-evaluated argument
// list.
type CallbackRequest struct {
	Name      string
	Arguments []value.Value
}

// Context is one connection's Interpreter Context: one Continuation over a
// shared op-tree, its octet queues, its callback queues, a one-shot result,
// an opaque host-data slot, and the eof/exited flags. Exactly one Context
// exists per connection; the collection manager owns a map of them keyed
// by an integer file descriptor supplied by the host.
type Context struct {
	ID string

	continuation *continuation.Continuation

	inboundMu sync.Mutex
	inbound   []byte

	outboundMu sync.Mutex
	outbound   []byte

	requests  *support.MutexLockQueue[CallbackRequest]
	responses *support.MutexLockQueue[value.Value]

	result chan value.Value

	// HostData is an opaque slot the host may use to attach its own
	// connection state (socket, peer address, TLS state); the core never
	// reads it.
	HostData any

	eof    atomic.Bool
	exited atomic.Bool

	// callbackRequested/callbackDispatched bridge the producer (interpreter
	// loop, noticing WaitingForCallback) and the consumer (callback loop,
	// dequeuing the request) without either side calling Continuation
	// methods from the wrong goroutine: at most one thread may advance a
	// given continuation at a time, so only the interpreter loop ever calls
	// SetCallbackCalled/SetCallbackReturn; the callback loop communicates
	// purely through these atomics and the queues.
	callbackRequested  atomic.Bool
	callbackDispatched atomic.Bool

	resultOnce sync.Once
}

// New builds a fresh Context for root, evaluated against a brand-new root
// pad (via continuation.New).
func New(root *optree.Node) *Context {
	return &Context{
		ID:           uuid.New().String(),
		continuation: continuation.New(root),
		requests:     support.NewMutexLockQueue[CallbackRequest](),
		responses:    support.NewMutexLockQueue[value.Value](),
		result:       make(chan value.Value, 1),
	}
}

// Continuation exposes the underlying continuation for the runner's
// interpreter loop.
func (c *Context) Continuation() *continuation.Continuation { return c.continuation }

// AppendInbound appends newly received bytes to the inbound queue, for the
// host's I/O thread to call whenever data arrives on the socket.
func (c *Context) AppendInbound(data []byte) {
	c.inboundMu.Lock()
	c.inbound = append(c.inbound, data...)
	c.inboundMu.Unlock()
}

// DrainInbound hands all currently queued inbound bytes to the
// continuation's blocked read operation via HandleRead, removing whatever
// prefix it consumes, then delivers a pending end-of-stream to the active
// operation. Only ever called from the interpreter loop, the sole thread
// permitted to touch the continuation; the I/O thread reaches this data
// exclusively through AppendInbound/MarkEOF.
func (c *Context) DrainInbound() {
	c.inboundMu.Lock()
	for len(c.inbound) > 0 {
		n := c.continuation.HandleRead(c.inbound)
		if n <= 0 {
			break
		}
		c.inbound = c.inbound[n:]
	}
	c.inboundMu.Unlock()
	if c.eof.Load() {
		c.continuation.HandleEOF()
	}
}

// MarkEOF records end-of-stream, for the host's I/O thread. The flag
// reaches the active I/O operation on the interpreter loop's next
// DrainInbound pass; the I/O thread never touches the continuation itself.
func (c *Context) MarkEOF() {
	c.eof.Store(true)
}

// EOF reports whether MarkEOF has been called.
func (c *Context) EOF() bool { return c.eof.Load() }

// FlushOutbound moves the continuation's pending write-buffer bytes onto
// the outbound queue, acknowledging them to the blocked write operation so
// it can complete. Called by the interpreter loop when it observes a
// WaitingForWrite block; socket backpressure is absorbed by the queue, not
// by the operation. Returns the number of bytes moved.
func (c *Context) FlushOutbound() int {
	buf := c.continuation.WriteBuffer()
	if len(buf) == 0 {
		return 0
	}
	c.outboundMu.Lock()
	c.outbound = append(c.outbound, buf...)
	c.outboundMu.Unlock()
	return c.continuation.HandleWrite(len(buf))
}

// PullOutbound returns the bytes currently queued for transmission, for
// the host's I/O thread to flush to the socket. The queue is the host's
// whole view of the write side; the continuation is never touched here.
func (c *Context) PullOutbound() []byte {
	c.outboundMu.Lock()
	defer c.outboundMu.Unlock()
	return c.outbound
}

// AcknowledgeWrite reports that n bytes of PullOutbound's result were
// accepted by the host socket, removing them from the queue.
func (c *Context) AcknowledgeWrite(n int) {
	c.outboundMu.Lock()
	defer c.outboundMu.Unlock()
	if n > len(c.outbound) {
		n = len(c.outbound)
	}
	c.outbound = c.outbound[n:]
}

// RequestCallbackIfPending enqueues a callback request built from the
// continuation's currently blocked callback operation, called by the
// interpreter loop whenever it observes WaitingForCallback. Idempotent: a
// second call before the first request is answered is a no-op, so a
// spurious extra wake-up never double-dispatches the same callback.
func (c *Context) RequestCallbackIfPending() {
	if !c.callbackRequested.CompareAndSwap(false, true) {
		return
	}
	c.requests.PushBack(CallbackRequest{
		Name:      c.continuation.CallbackKey(),
		Arguments: c.continuation.CallbackArguments(),
	})
}

// DequeueCallback pops the next pending callback request, for the callback
// loop. Marks the request dispatched so the interpreter loop will later
// advance the continuation's Called flag.
func (c *Context) DequeueCallback() (CallbackRequest, bool) {
	req, ok := c.requests.Pop()
	if ok {
		c.callbackDispatched.Store(true)
	}
	return req, ok
}

// DeliverCallbackResult pushes the host's response, for the interpreter
// loop to pick up via DrainCallbackResult.
func (c *Context) DeliverCallbackResult(v value.Value) {
	c.responses.PushBack(v)
}

// DrainCallbackResult advances the continuation's CallbackContext: first
// propagating a dispatched-but-not-yet-called transition, then delivering
// any pending response. Only ever called from the interpreter loop, the
// sole thread permitted to mutate the continuation.
func (c *Context) DrainCallbackResult() {
	if c.callbackDispatched.CompareAndSwap(true, false) {
		c.continuation.SetCallbackCalled()
	}
	v, ok := c.responses.Pop()
	if !ok {
		return
	}
	c.callbackRequested.Store(false)
	c.continuation.SetCallbackReturn(v)
}

// SetResult publishes the interpreter's terminal value exactly once and
// marks the context exited.
func (c *Context) SetResult(v value.Value) {
	c.resultOnce.Do(func() {
		c.exited.Store(true)
		c.result <- v
	})
}

// Result blocks until SetResult has been called, then returns the value.
func (c *Context) Result() value.Value { return <-c.result }

// Exited reports whether the continuation has reached its terminal state.
func (c *Context) Exited() bool { return c.exited.Load() }
