// Package continuation drives one thread of op-tree execution: a stack of
// frames plus the ContinuationState describing whether it can keep
// stepping on its own, is waiting on a Value from a child, or is blocked on
// something external.
package continuation

import (
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/frame"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/operation"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/optree"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/pad"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

// State describes whether a Continuation can keep stepping on its own.
type State int

const (
	MissingArguments State = iota
	Ready
	Blocked
	Exited
)

func (s State) String() string {
	switch s {
	case MissingArguments:
		return "MissingArguments"
	case Ready:
		return "Ready"
	case Blocked:
		return "Blocked"
	case Exited:
		return "Exited"
	default:
		return "Unknown"
	}
}

// Continuation is a single thread of execution over one op-tree.
type Continuation struct {
	stack       []*frame.Frame
	state       State
	blockReason operation.BlockReason
	result      value.Value
}

// New starts a continuation at root, evaluating against a fresh root pad.
func New(root *optree.Node) *Continuation {
	c := &Continuation{state: MissingArguments}
	c.stack = append(c.stack, frame.New(root, pad.New()))
	return c
}

// State reports the continuation's current ContinuationState.
func (c *Continuation) State() State { return c.state }

// BlockReason is valid only while State() == Blocked.
func (c *Continuation) BlockReason() operation.BlockReason { return c.blockReason }

// Result is valid only while State() == Exited.
func (c *Continuation) Result() value.Value { return c.result }

// Top returns the frame currently being advanced, or nil if Exited.
func (c *Continuation) Top() *frame.Frame {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// CallbackKey reports the request name of the top frame's Callback
// operation; valid only while Blocked on WaitingForCallback.
func (c *Continuation) CallbackKey() string {
	top := c.Top()
	cb, ok := top.Node.Op.(operation.Callback)
	if !ok {
		return ""
	}
	return cb.Key(top.CallbackContext())
}

// CallbackArguments returns the already-evaluated argument Values available
// to the top frame's Callback operation, for building the request payload.
func (c *Continuation) CallbackArguments() []value.Value {
	top := c.Top()
	return top.Accumulator
}

// SetCallbackCalled records that the host has dequeued the pending request.
func (c *Continuation) SetCallbackCalled() {
	c.Top().CallbackContext().Called = true
}

// SetCallbackReturn delivers the host's response and unblocks the frame.
func (c *Continuation) SetCallbackReturn(v value.Value) {
	ctx := c.Top().CallbackContext()
	ctx.Value = v
	ctx.HasValue = true
}

// HandleRead offers newly arrived bytes to the top frame's I/O operation,
// returning the number of bytes it consumed.
func (c *Continuation) HandleRead(in []byte) int {
	top := c.Top()
	io, ok := top.Node.Op.(operation.IO)
	if !ok {
		return 0
	}
	return io.HandleRead(top.IOContext(), in)
}

// HandleEOF marks end-of-stream on the top frame's I/O operation.
func (c *Continuation) HandleEOF() {
	top := c.Top()
	if io, ok := top.Node.Op.(operation.IO); ok {
		io.HandleEOF(top.IOContext())
	}
}

// WriteBuffer returns the bytes the top frame's I/O operation still owes
// the host.
func (c *Continuation) WriteBuffer() []byte {
	top := c.Top()
	io, ok := top.Node.Op.(operation.IO)
	if !ok {
		return nil
	}
	return io.WriteBuffer(top.IOContext())
}

// HandleWrite reports that n bytes of WriteBuffer were accepted by the
// host, returning how many the operation consumed.
func (c *Continuation) HandleWrite(n int) int {
	top := c.Top()
	io, ok := top.Node.Op.(operation.IO)
	if !ok {
		return 0
	}
	return io.HandleWrite(top.IOContext(), n)
}

// Step advances the continuation by one micro-step:
//  1. If the top frame's arguments are not all ready, push its next child.
//  2. Otherwise execute the operation. A Value pops the frame and feeds the
//     parent (or becomes the final result if the stack is now empty). A
//     block records the reason. WaitingForCallableInvocation pushes the
//     selected Callable as a new frame instead of blocking the caller.
func (c *Continuation) Step() State {
	top := c.Top()
	if top == nil {
		c.state = Exited
		return c.state
	}

	if !top.ArgumentsReady() {
		child := top.NextChild()
		c.stack = append(c.stack, frame.New(child, top.Pad))
		c.state = MissingArguments
		return c.state
	}

	result := execute(top)

	if result.Blocked {
		if result.Reason == operation.WaitingForCallableInvocation {
			c.pushCallableInvocation(top)
			c.state = MissingArguments
			return c.state
		}
		c.state = Blocked
		c.blockReason = result.Reason
		return c.state
	}

	c.popWithValue(result.Value)
	return c.state
}

// RunUntilBlocked repeatedly Steps until the continuation is Blocked or
// Exited, the two states a driving runner needs to react to.
func (c *Continuation) RunUntilBlocked() State {
	for {
		switch c.Step() {
		case Blocked, Exited:
			return c.state
		}
	}
}

func (c *Continuation) pushCallableInvocation(caller *frame.Frame) {
	var callable value.Callable
	switch ctx := caller.Context.(type) {
	case *operation.StateMachineContext:
		callable = ctx.Callable
		ctx.CallableInvoked = true
	case *operation.ControlFlowContext:
		callable = ctx.Callable
		ctx.CallableInvoked = true
	}

	scope := caller.Pad
	if !callable.InheritsScope {
		scope = pad.NewChild(caller.Pad)
	}

	var args []value.Value
	switch op := caller.Node.Op.(type) {
	case operation.StateMachineOperation:
		args = op.ArgumentList(caller.Context.(*operation.StateMachineContext))
	case operation.ControlFlow:
		args = op.ArgumentList(caller.Context.(*operation.ControlFlowContext))
	}
	for i, name := range callable.Params {
		if i < len(args) {
			scope.Initialize(name, args[i])
		}
	}

	child := frame.New(callable.Body, scope)
	child.IsCallableInvocation = true
	c.stack = append(c.stack, child)
}

func (c *Continuation) popWithValue(v value.Value) {
	c.stack = c.stack[:len(c.stack)-1]
	if len(c.stack) == 0 {
		c.state = Exited
		c.result = v
		return
	}

	// A popped frame reports either into the parent's Accumulator (an
	// ordinary child expression) or into the parent's context Value (a
	// pushed Callable invocation). The parent's own context tells us which:
	// a control-flow/state-machine frame mid-invocation (CallableInvoked but
	// no value yet) is always the one a just-finished invocation reports
	// back to.
	parent := c.Top()
	switch ctx := parent.Context.(type) {
	case *operation.StateMachineContext:
		if ctx.CallableInvoked && !ctx.HasValue {
			ctx.Value = v
			ctx.HasValue = true
			c.state = Ready
			return
		}
	case *operation.ControlFlowContext:
		if ctx.CallableInvoked && !ctx.HasValue {
			ctx.Value = v
			ctx.HasValue = true
			c.state = Ready
			return
		}
	}

	parent.PushResult(v)
	c.state = Ready
}

func execute(f *frame.Frame) operation.Result {
	switch op := f.Node.Op.(type) {
	case operation.Interpreted:
		return operation.Done(op.EvalInterpreted(f.Accumulator))
	case operation.DynamicInput:
		return operation.Done(op.EvalDynamicInput(f.Accumulator))
	case operation.PadOperation:
		return operation.Done(op.EvalPad(f.Accumulator, f.Pad))
	case operation.StateMachineOperation:
		return op.StepState(f.StateMachineContext())
	case operation.ControlFlow:
		return op.Step(f.ControlFlowContext(), f.Accumulator)
	case operation.Callback:
		return op.Step(f.CallbackContext(), f.Accumulator)
	case operation.IO:
		return op.Step(f.IOContext(), f.Accumulator)
	default:
		return operation.Done(value.ErrorValue(value.TypeError))
	}
}
