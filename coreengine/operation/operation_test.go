package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

func TestReadStaticOctets_MismatchIsProtocolMismatch(t *testing.T) {
	op := ReadStaticOctets{Contents: []byte("HELLO")}
	ctx := &IOContext{}
	op.HandleRead(ctx, []byte("GOODBYE"))
	got := op.Step(ctx, nil)
	assert.False(t, got.Blocked)
	assert.Equal(t, value.ErrorValue(value.ProtocolMismatchError), got.Value)
}

func TestReadStaticOctets_MatchSucceeds(t *testing.T) {
	op := ReadStaticOctets{Contents: []byte("HI")}
	ctx := &IOContext{}
	n := op.HandleRead(ctx, []byte("HI there"))
	assert.Equal(t, 2, n)
	got := op.Step(ctx, nil)
	assert.Equal(t, value.BoolValue(true), got.Value)
}

func TestReadOctetsUntilTerminator_EscapeTakesPriorityOverTerminator(t *testing.T) {
	// Terminator is ".", escape sequence ".." maps back to a literal ".".
	// A line containing ".." must not end the read early.
	op := ReadOctetsUntilTerminator{Terminator: []byte("."), EscapeChar: []byte("."), EscapeSeq: []byte("..")}
	ctx := &IOContext{}
	consumed := op.HandleRead(ctx, []byte("a..b.\r\n"))
	assert.Equal(t, len("a..b."), consumed)
	assert.True(t, ctx.Ready)
	assert.Equal(t, "a.b", string(ctx.Buffer))
}

func TestTerminateListIfReadAhead_NeverConsumesUnlessMatched(t *testing.T) {
	op := TerminateListIfReadAhead{Terminator: []byte("END")}

	ctx := &IOContext{}
	n := op.HandleRead(ctx, []byte("data"))
	assert.Equal(t, 0, n, "a non-matching lookahead must not consume bytes")

	ctx2 := &IOContext{}
	n2 := op.HandleRead(ctx2, []byte("END-rest"))
	assert.Equal(t, 3, n2, "a matching terminator is consumed")
}

func TestGenerateList_AccumulatesUntilInterrupt(t *testing.T) {
	op := GenerateList{}
	ctx := &ControlFlowContext{}

	result := op.Step(ctx, []value.Value{value.CallableValue(value.Callable{})})
	assert.True(t, result.Blocked)
	assert.Equal(t, WaitingForCallableInvocation, result.Reason)

	ctx.CallableInvoked = true
	ctx.HasValue = true
	ctx.Value = value.Int32Value(1)
	result = op.Step(ctx, nil)
	assert.True(t, result.Blocked)
	assert.Equal(t, WaitingForCallableInvocation, result.Reason)

	ctx.CallableInvoked = true
	ctx.HasValue = true
	ctx.Value = value.ControlFlowValue(value.InterruptGenerator)
	result = op.Step(ctx, nil)
	assert.False(t, result.Blocked)
	assert.Equal(t, value.KindDynamicList, result.Value.Kind)
	assert.Equal(t, []value.Value{value.Int32Value(1)}, *result.Value.List.Values)
}

func TestFunctionCallForEach_SingleArgumentMode(t *testing.T) {
	op := FunctionCallForEach{ElementIsSingleArgument: true}
	ctx := &ControlFlowContext{}

	elements := value.NewDynamicList([]value.Value{value.Int32Value(1), value.Int32Value(2)})
	result := op.Step(ctx, []value.Value{value.CallableValue(value.Callable{}), value.DynamicListValue(elements)})
	assert.True(t, result.Blocked)

	args := op.ArgumentList(ctx)
	assert.Equal(t, []value.Value{value.Int32Value(1)}, args)
}

func TestIf_ControlFlowConditionIsTypeError(t *testing.T) {
	op := If{}
	ctx := &ControlFlowContext{}
	result := op.Step(ctx, []value.Value{
		value.ControlFlowValue(value.InterruptGenerator),
		value.CallableValue(value.Callable{}),
		value.CallableValue(value.Callable{}),
	})
	assert.False(t, result.Blocked)
	assert.Equal(t, value.ErrorValue(value.TypeError), result.Value)
}

func TestIf_ErrorOperandPropagates(t *testing.T) {
	op := If{}
	ctx := &ControlFlowContext{}
	result := op.Step(ctx, []value.Value{
		value.BoolValue(true),
		value.ErrorValue(value.NameError),
		value.CallableValue(value.Callable{}),
	})
	assert.False(t, result.Blocked)
	assert.Equal(t, value.ErrorValue(value.NameError), result.Value)
}

func TestUnaryCallback_Lifecycle(t *testing.T) {
	op := UnaryCallback{CallbackKey: "greet"}
	ctx := &CallbackContext{}

	result := op.Step(ctx, []value.Value{value.Int32Value(1)})
	assert.True(t, result.Blocked)
	assert.Equal(t, WaitingForCallback, result.Reason)
	assert.Equal(t, "greet", op.Key(ctx))

	ctx.Called = true
	result = op.Step(ctx, nil)
	assert.True(t, result.Blocked)
	assert.Equal(t, WaitingCallbackData, result.Reason)

	ctx.HasValue = true
	ctx.Value = value.Int32Value(42)
	result = op.Step(ctx, nil)
	assert.False(t, result.Blocked)
	assert.Equal(t, value.Int32Value(42), result.Value)
}

func TestWriteOctetsWithEscape_InsertsSequenceAtEveryOccurrence(t *testing.T) {
	op := WriteOctetsWithEscape{EscapeChar: []byte("."), EscapeSequence: []byte("..")}
	ctx := &IOContext{}
	result := op.Step(ctx, []value.Value{value.OctetsValue("a.b.c")})
	assert.True(t, result.Blocked)
	assert.Equal(t, "a..b..c", string(op.WriteBuffer(ctx)))
}

func TestReadIntFromAscii_OverflowIsProtocolMismatch(t *testing.T) {
	op := ReadIntFromAscii{}
	ctx := &IOContext{}
	op.HandleRead(ctx, []byte("99999999999 "))
	result := op.Step(ctx, nil)
	assert.Equal(t, value.ErrorValue(value.ProtocolMismatchError), result.Value)
}

func TestDictionarySet_LeavesOriginalUntouched(t *testing.T) {
	op := DictionarySet{Key: "a"}
	original := value.NewDictionary(map[string]value.Value{"a": value.Int32Value(1)})
	result := op.EvalInterpreted([]value.Value{value.DictionaryValue(original), value.Int32Value(2)})

	assert.Equal(t, value.Int32Value(1), original.Values["a"], "original dictionary must be unmodified")
	assert.Equal(t, value.Int32Value(2), result.Dict.Values["a"])
}
