package operation

import (
	"strconv"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

// Int32Literal yields a constant Int32 value.
type Int32Literal struct {
	V int32
}

func (Int32Literal) OperationKind() string { return "Int32Literal" }

func (op Int32Literal) EvalInterpreted(args []value.Value) value.Value {
	return value.Int32Value(op.V)
}

// OctetsLiteral yields a constant Octets value. Most DSL string literals
// lower directly into WriteStaticOctets contents; this exists for the
// places the generator needs a constant Octets as an ordinary argument (a
// transition label handed to DynamicListCtor, for instance).
type OctetsLiteral struct {
	V value.Octets
}

func (OctetsLiteral) OperationKind() string { return "OctetsLiteral" }

func (op OctetsLiteral) EvalInterpreted(args []value.Value) value.Value {
	return value.Value{Kind: value.KindOctets, Octets: op.V}
}

func binaryArith(args []value.Value, f func(lhs, rhs int32) int32) value.Value {
	if abs, ok := value.FirstAbsorbed(args...); ok {
		return abs
	}
	lhs, rhs := args[0], args[1]
	if lhs.Kind != value.KindInt32 || rhs.Kind != value.KindInt32 {
		return value.ErrorValue(value.TypeError)
	}
	return value.Int32Value(f(lhs.Int32, rhs.Int32))
}

// Add implements integer addition.
type Add struct{}

func (Add) OperationKind() string { return "Add" }

func (Add) EvalInterpreted(args []value.Value) value.Value {
	return binaryArith(args, func(lhs, rhs int32) int32 { return lhs + rhs })
}

// Subtract implements integer subtraction.
type Subtract struct{}

func (Subtract) OperationKind() string { return "Subtract" }

func (Subtract) EvalInterpreted(args []value.Value) value.Value {
	return binaryArith(args, func(lhs, rhs int32) int32 { return lhs - rhs })
}

// Multiply implements integer multiplication.
type Multiply struct{}

func (Multiply) OperationKind() string { return "Multiply" }

func (Multiply) EvalInterpreted(args []value.Value) value.Value {
	return binaryArith(args, func(lhs, rhs int32) int32 { return lhs * rhs })
}

// Eq compares two Int32 values. Any other operand pairing is a TypeError.
type Eq struct{}

func (Eq) OperationKind() string { return "Eq" }

func (Eq) EvalInterpreted(args []value.Value) value.Value {
	if abs, ok := value.FirstAbsorbed(args...); ok {
		return abs
	}
	lhs, rhs := args[0], args[1]
	if lhs.Kind != value.KindInt32 || rhs.Kind != value.KindInt32 {
		return value.ErrorValue(value.TypeError)
	}
	return value.BoolValue(lhs.Int32 == rhs.Int32)
}

// LessOrEqual compares two Int32 values.
type LessOrEqual struct{}

func (LessOrEqual) OperationKind() string { return "LessOrEqual" }

func (LessOrEqual) EvalInterpreted(args []value.Value) value.Value {
	if abs, ok := value.FirstAbsorbed(args...); ok {
		return abs
	}
	lhs, rhs := args[0], args[1]
	if lhs.Kind != value.KindInt32 || rhs.Kind != value.KindInt32 {
		return value.ErrorValue(value.TypeError)
	}
	return value.BoolValue(lhs.Int32 <= rhs.Int32)
}

// IntToAscii renders an Int32 as decimal Octets.
type IntToAscii struct{}

func (IntToAscii) OperationKind() string { return "IntToAscii" }

func (IntToAscii) EvalInterpreted(args []value.Value) value.Value {
	if abs, ok := value.FirstAbsorbed(args...); ok {
		return abs
	}
	v := args[0]
	if v.Kind != value.KindInt32 {
		return value.ErrorValue(value.TypeError)
	}
	return value.OctetsValue(strconv.FormatInt(int64(v.Int32), 10))
}
