package operation

import (
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/optree"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

// StaticCallable yields a constant Callable wrapping a fixed sub-tree. It
// takes no arguments: the generator bakes the sub-tree, parameter names,
// and scope-inheritance flag in at build time.
type StaticCallable struct {
	Body          *optree.Node
	Params        []string
	InheritsScope bool
}

func (StaticCallable) OperationKind() string { return "StaticCallable" }

func (op StaticCallable) EvalInterpreted(args []value.Value) value.Value {
	return value.CallableValue(value.Callable{
		Body:          op.Body,
		Params:        op.Params,
		InheritsScope: op.InheritsScope,
	})
}
