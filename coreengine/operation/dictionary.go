package operation

import "github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"

// DictionaryInitialize builds an empty Dictionary.
type DictionaryInitialize struct{}

func (DictionaryInitialize) OperationKind() string { return "DictionaryInitialize" }

func (DictionaryInitialize) EvalInterpreted(args []value.Value) value.Value {
	return value.DictionaryValue(value.NewDictionary(nil))
}

// DictionaryGet looks up Key in a Dictionary operand. A missing key is a
// NameError; a non-dictionary operand is a TypeError.
type DictionaryGet struct {
	Key string
}

func (DictionaryGet) OperationKind() string { return "DictionaryGet" }

func (op DictionaryGet) EvalInterpreted(args []value.Value) value.Value {
	if abs, ok := value.FirstAbsorbed(args...); ok {
		return abs
	}
	dict := args[0]
	if dict.Kind != value.KindDictionary {
		return value.ErrorValue(value.TypeError)
	}
	v, ok := dict.Dict.Values[op.Key]
	if !ok {
		return value.ErrorValue(value.NameError)
	}
	return v
}

// DictionarySet returns a new Dictionary with Key bound to the second
// operand. The input dictionary is shared data and is never mutated; a
// fresh map is rebuilt instead.
type DictionarySet struct {
	Key string
}

func (DictionarySet) OperationKind() string { return "DictionarySet" }

func (op DictionarySet) EvalInterpreted(args []value.Value) value.Value {
	if abs, ok := value.FirstAbsorbed(args...); ok {
		return abs
	}
	dict, v := args[0], args[1]
	if dict.Kind != value.KindDictionary {
		return value.ErrorValue(value.TypeError)
	}
	next := make(map[string]value.Value, len(dict.Dict.Values)+1)
	for k, existing := range dict.Dict.Values {
		if k != op.Key {
			next[k] = existing
		}
	}
	next[op.Key] = v
	return value.DictionaryValue(value.NewDictionary(next))
}
