package operation

import (
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/pad"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

// PadGet reads a binding from the current lexical pad.
type PadGet struct {
	Name string
}

func (PadGet) OperationKind() string { return "PadGet" }

func (op PadGet) EvalPad(args []value.Value, p *pad.Pad) value.Value {
	return p.Get(op.Name)
}

// PadSet overwrites an existing binding anywhere up the pad chain.
type PadSet struct {
	Name string
}

func (PadSet) OperationKind() string { return "PadSet" }

func (op PadSet) EvalPad(args []value.Value, p *pad.Pad) value.Value {
	return p.Set(op.Name, args[0])
}

// PadInitialize declares a binding in the current pad.
type PadInitialize struct {
	Name string
}

func (PadInitialize) OperationKind() string { return "PadInitialize" }

func (op PadInitialize) EvalPad(args []value.Value, p *pad.Pad) value.Value {
	p.Initialize(op.Name, args[0])
	return args[0]
}

// PadInitializeGlobal declares a binding in the outermost pad.
type PadInitializeGlobal struct {
	Name string
}

func (PadInitializeGlobal) OperationKind() string { return "PadInitializeGlobal" }

func (op PadInitializeGlobal) EvalPad(args []value.Value, p *pad.Pad) value.Value {
	p.InitializeGlobal(op.Name, args[0])
	return args[0]
}

// PadAsDict snapshots the current pad as a Dictionary.
type PadAsDict struct{}

func (PadAsDict) OperationKind() string { return "PadAsDict" }

func (PadAsDict) EvalPad(args []value.Value, p *pad.Pad) value.Value {
	return value.DictionaryValue(p.AsDict())
}
