package operation

import "github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"

// OpSequence evaluates its children in order and yields the last one.
// Per-child error/control-flow short-circuiting is a continuation-level
// concern (the continuation stops walking children once one yields an
// absorbed value) rather than something this fold function itself decides;
// it unconditionally returns the last accumulated value.
type OpSequence struct{}

func (OpSequence) OperationKind() string { return "OpSequence" }

func (OpSequence) EvalDynamicInput(args []value.Value) value.Value {
	return args[len(args)-1]
}

// DynamicListCtor builds a DynamicList from its already-evaluated children.
type DynamicListCtor struct{}

func (DynamicListCtor) OperationKind() string { return "DynamicListCtor" }

func (DynamicListCtor) EvalDynamicInput(args []value.Value) value.Value {
	cp := make([]value.Value, len(args))
	copy(cp, args)
	return value.DynamicListValue(value.NewDynamicList(cp))
}
