package operation

import "github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"

// UnaryCallback dispatches a single-argument request to the host under a
// fixed key and blocks until a response Value arrives. The runner reads
// the operation's single
// evaluated argument (args[0]) as the request payload once Step reports
// WaitingForCallback; ctx only tracks whether the host has been asked and
// whether it has answered.
type UnaryCallback struct {
	CallbackKey string
}

func (UnaryCallback) OperationKind() string { return "UnaryCallback" }

func (op UnaryCallback) Step(ctx *CallbackContext, args []value.Value) Result {
	if !ctx.Called {
		return Block(WaitingForCallback)
	}
	if !ctx.HasValue {
		return Block(WaitingCallbackData)
	}
	return Done(ctx.Value)
}

func (op UnaryCallback) Key(ctx *CallbackContext) string {
	return op.CallbackKey
}
