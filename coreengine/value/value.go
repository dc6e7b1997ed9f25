// Package value provides the tagged-sum Value type shared by every
// operation, the lexical pad, and the interpreter.
//
// A single tagged struct stands in for a virtual-dispatch hierarchy: Kind
// selects which field is live, the same way coreengine/operation dispatches
// on concrete operation types instead of a class hierarchy.
package value

import "github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/optree"

// Kind tags which field of a Value is populated.
type Kind int

const (
	KindInt32 Kind = iota
	KindBool
	KindOctets
	KindCallable
	KindDynamicList
	KindDictionary
	KindError
	KindControlFlow
)

func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "Int32"
	case KindBool:
		return "Bool"
	case KindOctets:
		return "Octets"
	case KindCallable:
		return "Callable"
	case KindDynamicList:
		return "DynamicList"
	case KindDictionary:
		return "Dictionary"
	case KindError:
		return "RuntimeError"
	case KindControlFlow:
		return "ControlFlowInstruction"
	default:
		return "Unknown"
	}
}

// RuntimeError enumerates the three error kinds a continuation can
// terminate with.
type RuntimeError int

const (
	TypeError RuntimeError = iota
	NameError
	ProtocolMismatchError
)

func (e RuntimeError) Error() string {
	switch e {
	case TypeError:
		return "type error"
	case NameError:
		return "name error"
	case ProtocolMismatchError:
		return "protocol mismatch"
	default:
		return "unknown runtime error"
	}
}

// ControlFlowInstruction is a non-error signal used to unwind generator
// loops. It propagates like an error but is never treated as one.
type ControlFlowInstruction int

const (
	InterruptGenerator ControlFlowInstruction = iota
)

// Octets is an immutable, shared byte string. Go's string type is already
// immutable and GC-shared, so no extra indirection is needed.
type Octets string

// Callable wraps a sub-tree plus its argument names. InheritsScope decides
// whether invocation creates a fresh child pad or executes against the
// caller's pad directly.
type Callable struct {
	Body          *optree.Node
	Params        []string
	InheritsScope bool
}

// DynamicList is a shared, ordered sequence of Values. It is backed by a
// pointer to a slice, so every copy of a DynamicList refers to the same
// elements.
type DynamicList struct {
	Values *[]Value
}

// NewDynamicList wraps an existing slice as a shared DynamicList.
func NewDynamicList(values []Value) DynamicList {
	return DynamicList{Values: &values}
}

// Dictionary is a shared mapping from byte-string key to Value. Go maps are
// already reference types, so no extra indirection is required.
type Dictionary struct {
	Values map[string]Value
}

// NewDictionary wraps a map as a Dictionary.
func NewDictionary(values map[string]Value) Dictionary {
	if values == nil {
		values = make(map[string]Value)
	}
	return Dictionary{Values: values}
}

// Value is the tagged union over every runtime value kind.
type Value struct {
	Kind        Kind
	Int32       int32
	Bool        bool
	Octets      Octets
	Callable    Callable
	List        DynamicList
	Dict        Dictionary
	Err         RuntimeError
	ControlFlow ControlFlowInstruction
}

// Int32Value constructs an Int32 value.
func Int32Value(n int32) Value { return Value{Kind: KindInt32, Int32: n} }

// BoolValue constructs a Bool value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// OctetsValue constructs an Octets value.
func OctetsValue(s string) Value { return Value{Kind: KindOctets, Octets: Octets(s)} }

// CallableValue constructs a Callable value.
func CallableValue(c Callable) Value { return Value{Kind: KindCallable, Callable: c} }

// DynamicListValue constructs a DynamicList value.
func DynamicListValue(l DynamicList) Value { return Value{Kind: KindDynamicList, List: l} }

// DictionaryValue constructs a Dictionary value.
func DictionaryValue(d Dictionary) Value { return Value{Kind: KindDictionary, Dict: d} }

// ErrorValue constructs a RuntimeError value.
func ErrorValue(e RuntimeError) Value { return Value{Kind: KindError, Err: e} }

// ControlFlowValue constructs a ControlFlowInstruction value.
func ControlFlowValue(c ControlFlowInstruction) Value {
	return Value{Kind: KindControlFlow, ControlFlow: c}
}

// IsError reports whether v carries a RuntimeError.
func (v Value) IsError() bool { return v.Kind == KindError }

// IsControlFlow reports whether v carries a ControlFlowInstruction.
func (v Value) IsControlFlow() bool { return v.Kind == KindControlFlow }

// FirstAbsorbed scans args in order and returns the first RuntimeError or
// ControlFlowInstruction found, implementing the propagation rule shared by
// the pure operations (the control-flow operations apply their own operand
// checks instead): any operation receiving an error
// operand returns that error as its own result, the earliest operand wins,
// and a control-flow instruction passes through unchanged the same way.
func FirstAbsorbed(args ...Value) (Value, bool) {
	for _, a := range args {
		if a.IsError() || a.IsControlFlow() {
			return a, true
		}
	}
	return Value{}, false
}
