package operation

import "github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"

func derefList(v value.Value) []value.Value {
	if v.List.Values == nil {
		return nil
	}
	return *v.List.Values
}

// FunctionCall invokes a Callable with a DynamicList of arguments. A
// general error does not propagate through the callable operand: only a
// (Callable, RuntimeError) argument pairing is recognized as an error
// path, any other non-matching pairing (including a RuntimeError callable
// operand) falls through to TypeError.
type FunctionCall struct{}

func (FunctionCall) OperationKind() string { return "FunctionCall" }

func (FunctionCall) Step(ctx *ControlFlowContext, args []value.Value) Result {
	if ctx.HasCallable {
		if !ctx.CallableInvoked {
			return Block(WaitingForCallableInvocation)
		}
		if !ctx.HasValue {
			return Block(WaitingForCallableResult)
		}
		return Done(ctx.Value)
	}
	callable, arglist := args[0], args[1]
	if callable.Kind == value.KindCallable {
		switch arglist.Kind {
		case value.KindDynamicList:
			ctx.HasCallable = true
			ctx.Callable = callable.Callable
			ctx.ArgList = derefList(arglist)
			return Block(WaitingForCallableInvocation)
		case value.KindError:
			return Done(arglist)
		}
	}
	return Done(value.ErrorValue(value.TypeError))
}

func (FunctionCall) ArgumentList(ctx *ControlFlowContext) []value.Value {
	return ctx.ArgList
}

// If evaluates a Bool condition and invokes whichever Callable branch it
// selects. cond, then, and else are each checked for RuntimeError in that
// order before the condition is interpreted; a ControlFlowInstruction
// operand is not absorbed and falls through to TypeError like any other
// non-matching operand.
type If struct{}

func (If) OperationKind() string { return "If" }

func (If) Step(ctx *ControlFlowContext, args []value.Value) Result {
	if ctx.HasCallable {
		if !ctx.CallableInvoked {
			return Block(WaitingForCallableInvocation)
		}
		if !ctx.HasValue {
			return Block(WaitingForCallableResult)
		}
		return Done(ctx.Value)
	}
	for _, a := range args {
		if a.IsError() {
			return Done(a)
		}
	}
	cond, then, els := args[0], args[1], args[2]
	if cond.Kind != value.KindBool || then.Kind != value.KindCallable || els.Kind != value.KindCallable {
		return Done(value.ErrorValue(value.TypeError))
	}
	ctx.HasCallable = true
	if cond.Bool {
		ctx.Callable = then.Callable
	} else {
		ctx.Callable = els.Callable
	}
	return Block(WaitingForCallableInvocation)
}

func (If) ArgumentList(ctx *ControlFlowContext) []value.Value {
	return nil
}

// GenerateList repeatedly invokes a zero-argument generator Callable,
// accumulating each yielded Value until it returns the InterruptGenerator
// control-flow instruction. A non-Callable operand yields TypeError rather
// than propagating an embedded RuntimeError.
type GenerateList struct{}

func (GenerateList) OperationKind() string { return "GenerateList" }

func (GenerateList) Step(ctx *ControlFlowContext, args []value.Value) Result {
	if ctx.HasCallable {
		if !ctx.CallableInvoked {
			return Block(WaitingForCallableInvocation)
		}
		if !ctx.HasValue {
			return Block(WaitingForCallableResult)
		}
		if ctx.Value.IsControlFlow() && ctx.Value.ControlFlow == value.InterruptGenerator {
			return Done(value.DynamicListValue(value.NewDynamicList(ctx.Accumulator)))
		}
		if ctx.Value.IsError() {
			return Done(ctx.Value)
		}
		ctx.Accumulator = append(ctx.Accumulator, ctx.Value)
		ctx.CallableInvoked = false
		ctx.HasValue = false
		return Block(WaitingForCallableInvocation)
	}
	callable := args[0]
	if callable.Kind != value.KindCallable {
		return Done(value.ErrorValue(value.TypeError))
	}
	ctx.HasCallable = true
	ctx.Callable = callable.Callable
	ctx.Accumulator = []value.Value{}
	return Block(WaitingForCallableInvocation)
}

func (GenerateList) ArgumentList(ctx *ControlFlowContext) []value.Value {
	return nil
}

// FunctionCallForEach invokes a Callable once per element of a DynamicList
// argument. ElementIsSingleArgument selects between the two unpacking
// modes: passing each element as the sole argument, or (when false)
// treating each element as itself a DynamicList of arguments to spread.
type FunctionCallForEach struct {
	ElementIsSingleArgument bool
}

func (FunctionCallForEach) OperationKind() string { return "FunctionCallForEach" }

func (FunctionCallForEach) Step(ctx *ControlFlowContext, args []value.Value) Result {
	if ctx.HasCallable {
		if !ctx.CallableInvoked {
			return Block(WaitingForCallableInvocation)
		}
		if !ctx.HasValue {
			return Block(WaitingForCallableResult)
		}
		ctx.Accumulator = append(ctx.Accumulator, ctx.Value)
		if len(ctx.Accumulator) < len(ctx.ArgList) {
			ctx.HasValue = false
			ctx.CallableInvoked = false
			return Block(WaitingForCallableInvocation)
		}
		return Done(value.DynamicListValue(value.NewDynamicList(ctx.Accumulator)))
	}
	callable, arglist := args[0], args[1]
	if callable.Kind == value.KindCallable && arglist.Kind == value.KindDynamicList {
		elems := derefList(arglist)
		if len(elems) == 0 {
			return Done(value.DynamicListValue(value.NewDynamicList([]value.Value{})))
		}
		ctx.HasCallable = true
		ctx.Callable = callable.Callable
		ctx.ArgList = elems
		ctx.Accumulator = []value.Value{}
		return Block(WaitingForCallableInvocation)
	}
	return Done(value.ErrorValue(value.TypeError))
}

func (op FunctionCallForEach) ArgumentList(ctx *ControlFlowContext) []value.Value {
	idx := len(ctx.Accumulator)
	if op.ElementIsSingleArgument {
		return []value.Value{ctx.ArgList[idx]}
	}
	elem := ctx.ArgList[idx]
	return derefList(elem)
}
