// Package operation implements every concrete operation kind the op-tree can
// hold, grouped by the five concepts in the taxonomy: Interpreted,
// Dynamic-input, Control-flow, Callback, and I/O (lexical-pad operations are
// a sixth, narrow concept). The per-concept interfaces below are the
// invocation contracts the continuation dispatches on; every concrete type
// except StateMachineOperation, which the continuation recognises by its
// concrete type, satisfies exactly one of them.
package operation

import (
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/optree"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/pad"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

// BlockReason enumerates why a step did not produce a value: which signal
// has to fire before the blocked operation can resume.
type BlockReason int

const (
	WaitingForRead BlockReason = iota
	WaitingForWrite
	WaitingForCallableInvocation
	WaitingForCallableResult
	WaitingForCallback
	WaitingCallbackData
)

func (r BlockReason) String() string {
	switch r {
	case WaitingForRead:
		return "WaitingForRead"
	case WaitingForWrite:
		return "WaitingForWrite"
	case WaitingForCallableInvocation:
		return "WaitingForCallableInvocation"
	case WaitingForCallableResult:
		return "WaitingForCallableResult"
	case WaitingForCallback:
		return "WaitingForCallback"
	case WaitingCallbackData:
		return "WaitingCallbackData"
	default:
		return "Unknown"
	}
}

// Result is what executing an operation produces: either a completed
// Value or a reason the operation is blocked.
type Result struct {
	Blocked bool
	Reason  BlockReason
	Value   value.Value
}

// Done wraps a completed Value.
func Done(v value.Value) Result { return Result{Value: v} }

// Block reports that the operation cannot progress until reason clears.
func Block(reason BlockReason) Result { return Result{Blocked: true, Reason: reason} }

// Interpreted operations are pure functions of their already-evaluated
// arguments.
type Interpreted interface {
	optree.Operation
	EvalInterpreted(args []value.Value) value.Value
}

// DynamicInput operations fold an arbitrary-arity, already-evaluated
// argument list into one Value.
type DynamicInput interface {
	optree.Operation
	EvalDynamicInput(args []value.Value) value.Value
}

// PadOperation operations read or write the current lexical pad.
type PadOperation interface {
	optree.Operation
	EvalPad(args []value.Value, p *pad.Pad) value.Value
}

// ControlFlowContext is the per-frame mutable state a control-flow operation
// threads across repeated Step calls.
type ControlFlowContext struct {
	HasCallable     bool
	Callable        value.Callable
	CallableInvoked bool
	HasValue        bool
	Value           value.Value
	ArgList         []value.Value
	Accumulator     []value.Value
}

// ControlFlow operations push a Callable as a new continuation frame and
// resume once it returns, via the WaitingForCallableInvocation /
// WaitingForCallableResult handshake.
type ControlFlow interface {
	optree.Operation
	Step(ctx *ControlFlowContext, args []value.Value) Result
	// ArgumentList produces the argument values to bind for the next
	// invocation of ctx.Callable; called only while ctx.HasCallable.
	ArgumentList(ctx *ControlFlowContext) []value.Value
}

// CallbackContext is the per-frame state threaded across a blocking host
// callback.
type CallbackContext struct {
	Called   bool
	HasValue bool
	Value    value.Value
}

// Callback operations dispatch a named request to the host and block until
// a response value arrives.
type Callback interface {
	optree.Operation
	Step(ctx *CallbackContext, args []value.Value) Result
	Key(ctx *CallbackContext) string
}

// IOContext is the per-frame byte-level state an I/O operation threads
// across repeated reads/writes.
type IOContext struct {
	Buffer []byte
	Cursor int
	EOF    bool
	Ready  bool
}

// IO operations exchange bytes with the host-owned transport.
// HandleRead/HandleWrite are driven by the host as bytes arrive or drain;
// Step is driven by the continuation to determine whether the operation
// can now produce a Value.
type IO interface {
	optree.Operation
	Step(ctx *IOContext, args []value.Value) Result
	// HandleRead consumes as many leading bytes of in as this operation
	// wants and returns the count consumed.
	HandleRead(ctx *IOContext, in []byte) int
	// WriteBuffer returns the unsent suffix of bytes this operation still
	// owes the host.
	WriteBuffer(ctx *IOContext) []byte
	// HandleWrite reports that n leading bytes of WriteBuffer were
	// accepted by the host and returns how many this operation consumed.
	HandleWrite(ctx *IOContext, n int) int
	HandleEOF(ctx *IOContext)
	// ReadyToEvaluate reports, for the read operations, whether HandleRead
	// has gathered the bytes Step needs. The write operations and
	// TerminateListIfReadAhead always report true and leave the decision
	// to block entirely to Step.
	ReadyToEvaluate(ctx *IOContext) bool
}
