package operation

import (
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/optree"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

// TransitionInfo names a reaction: a Callable invoked with ArgNames bound
// positionally from the entry Callable's captured-values Dictionary,
// moving the machine to Target once it returns.
type TransitionInfo struct {
	Body     *optree.Node
	Params   []string
	ArgNames []string
	Target   string
}

// StateInfo pairs a state's entry Callable with the transitions reachable
// from it. A state is terminal two ways: Entry is nil (no callable to run
// at all), or Entry runs and returns the sentinel empty-Octets transition
// label.
type StateInfo struct {
	Entry       *optree.Node
	EntryParams []string
	Transitions map[string]TransitionInfo
}

// StateMap is the full state graph a StateMachineOperation walks.
type StateMap map[string]StateInfo

// StateMachineContext extends ControlFlowContext with the state-machine's
// own position in the graph. The two phases it cycles through (running a
// state's entry Callable, then running the transition it selected) both
// reuse the FunctionCall-style WaitingForCallableInvocation /
// WaitingForCallableResult protocol, so this embeds ControlFlowContext
// rather than reinventing it.
type StateMachineContext struct {
	ControlFlowContext
	CurrentState  string
	RunningEntry  bool
	PendingTarget string
}

// StateMachineOperation maps a declared protocol onto the runtime: on
// entering a state it invokes that state's entry Callable; that Callable
// is expected to return a DynamicList of exactly two elements, an Octets transition
// label and a Dictionary of captured values. An empty-string label
// terminates the machine, yielding the captured Dictionary as the
// operation's result: the entry ran and may have gathered data worth
// keeping, it just named no further transition. A non-empty label selects
// a TransitionInfo from the current state, whose ArgNames are looked up in
// the captured-values Dictionary to bind the transition Callable's
// parameters; once the transition Callable returns, the machine moves to
// its Target state and loops. A state with a nil Entry is terminal outright,
// with no Callable to run at all; it yields an empty Dictionary.
type StateMachineOperation struct {
	States  StateMap
	Initial string
}

func (StateMachineOperation) OperationKind() string { return "StateMachineOperation" }

// StepState advances ctx by at most one Callable invocation per call,
// matching the single-callable-in-flight discipline every other
// control-flow operation follows. It takes the wider StateMachineContext
// rather than the bare ControlFlowContext the generic ControlFlow interface
// declares, so the continuation recognizes StateMachineOperation specially
// instead of treating it as an ordinary ControlFlow operation (see
// coreengine/continuation).
func (op StateMachineOperation) StepState(ctx *StateMachineContext) Result {
	if ctx.CurrentState == "" {
		ctx.CurrentState = op.Initial
	}
	state, ok := op.States[ctx.CurrentState]
	if !ok {
		return Done(value.ErrorValue(value.NameError))
	}

	if !ctx.RunningEntry && !ctx.HasCallable && ctx.PendingTarget == "" {
		if state.Entry == nil {
			return Done(value.DictionaryValue(value.NewDictionary(nil)))
		}
		ctx.RunningEntry = true
		ctx.HasCallable = true
		ctx.Callable = value.Callable{Body: state.Entry, Params: state.EntryParams, InheritsScope: false}
		return Block(WaitingForCallableInvocation)
	}

	if !ctx.HasCallable {
		return Block(WaitingForCallableInvocation)
	}
	if !ctx.CallableInvoked {
		return Block(WaitingForCallableInvocation)
	}
	if !ctx.HasValue {
		return Block(WaitingForCallableResult)
	}

	result := ctx.Value
	ctx.HasCallable = false
	ctx.CallableInvoked = false
	ctx.HasValue = false

	if ctx.RunningEntry {
		ctx.RunningEntry = false
		if result.IsError() || result.IsControlFlow() {
			return Done(result)
		}
		shape := derefList(result)
		if result.Kind != value.KindDynamicList || len(shape) != 2 {
			return Done(value.ErrorValue(value.ProtocolMismatchError))
		}
		label, captured := shape[0], shape[1]
		if label.Kind != value.KindOctets || captured.Kind != value.KindDictionary {
			return Done(value.ErrorValue(value.ProtocolMismatchError))
		}
		if label.Octets == "" {
			return Done(captured)
		}
		transition, ok := state.Transitions[string(label.Octets)]
		if !ok {
			return Done(value.ErrorValue(value.ProtocolMismatchError))
		}
		argValues := make([]value.Value, 0, len(transition.ArgNames))
		for _, name := range transition.ArgNames {
			v, ok := captured.Dict.Values[name]
			if !ok {
				return Done(value.ErrorValue(value.NameError))
			}
			argValues = append(argValues, v)
		}
		ctx.ArgList = argValues
		ctx.PendingTarget = transition.Target
		ctx.HasCallable = true
		ctx.Callable = value.Callable{Body: transition.Body, Params: transition.Params, InheritsScope: false}
		return Block(WaitingForCallableInvocation)
	}

	ctx.CurrentState = ctx.PendingTarget
	ctx.PendingTarget = ""
	return op.StepState(ctx)
}

// ArgumentList supplies the arguments to bind for ctx's in-flight
// invocation: none for an entry Callable, the captured transition
// arguments otherwise.
func (op StateMachineOperation) ArgumentList(ctx *StateMachineContext) []value.Value {
	if ctx.RunningEntry {
		return nil
	}
	return ctx.ArgList
}
