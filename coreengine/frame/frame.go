// Package frame implements the execution stack frame: one node of the
// op-tree paired with the Values its children have produced so far, its
// per-concept operation context, and the lexical pad it evaluates against.
package frame

import (
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/operation"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/optree"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/pad"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

// Frame is one entry on a Continuation's stack.
type Frame struct {
	Node        *optree.Node
	Accumulator []value.Value
	Context     any
	Pad         *pad.Pad

	// IsCallableInvocation marks a frame pushed to run a Callable that a
	// ControlFlow/StateMachine operation on the parent frame selected. Its
	// result is delivered back into the parent's context (ctx.Value), not
	// appended to the parent's Accumulator.
	IsCallableInvocation bool
}

// New builds a frame for node, allocating whichever per-concept context its
// operation kind requires.
func New(node *optree.Node, p *pad.Pad) *Frame {
	return &Frame{
		Node:    node,
		Context: newContext(node.Op),
		Pad:     p,
	}
}

func newContext(op optree.Operation) any {
	switch op.(type) {
	case operation.StateMachineOperation:
		return &operation.StateMachineContext{}
	case operation.ControlFlow:
		return &operation.ControlFlowContext{}
	case operation.Callback:
		return &operation.CallbackContext{}
	case operation.IO:
		return &operation.IOContext{}
	default:
		return nil
	}
}

// ArgumentsReady reports whether every child of Node has produced a Value,
// or (for OpSequence specifically) whether an earlier child already
// produced an absorbed RuntimeError or ControlFlowInstruction that later
// children would never change the outcome of.
func (f *Frame) ArgumentsReady() bool {
	if len(f.Accumulator) >= len(f.Node.Children) {
		return true
	}
	if _, ok := f.Node.Op.(operation.OpSequence); ok && len(f.Accumulator) > 0 {
		if last := f.Accumulator[len(f.Accumulator)-1]; last.IsError() || last.IsControlFlow() {
			return true
		}
	}
	return false
}

// NextChild returns the child node whose Value has not yet been
// accumulated. Only valid when !ArgumentsReady().
func (f *Frame) NextChild() *optree.Node {
	return f.Node.Children[len(f.Accumulator)]
}

// PushResult appends a child's Value to this frame's accumulator.
func (f *Frame) PushResult(v value.Value) {
	f.Accumulator = append(f.Accumulator, v)
}

// ControlFlowContext type-asserts Context for control-flow operations.
func (f *Frame) ControlFlowContext() *operation.ControlFlowContext {
	ctx, _ := f.Context.(*operation.ControlFlowContext)
	return ctx
}

// StateMachineContext type-asserts Context for StateMachineOperation.
func (f *Frame) StateMachineContext() *operation.StateMachineContext {
	ctx, _ := f.Context.(*operation.StateMachineContext)
	return ctx
}

// CallbackContext type-asserts Context for callback operations.
func (f *Frame) CallbackContext() *operation.CallbackContext {
	ctx, _ := f.Context.(*operation.CallbackContext)
	return ctx
}

// IOContext type-asserts Context for I/O operations.
func (f *Frame) IOContext() *operation.IOContext {
	ctx, _ := f.Context.(*operation.IOContext)
	return ctx
}
