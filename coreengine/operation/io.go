package operation

import (
	"bytes"
	"encoding/binary"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

func hasPrefix(buf, prefix []byte) bool {
	return len(buf) >= len(prefix) && bytes.Equal(buf[:len(prefix)], prefix)
}

// ReadStaticOctets blocks until enough bytes have arrived to compare
// against a fixed literal. It never inspects ctx.EOF: a short read against
// a static literal keeps waiting rather than producing an error.
type ReadStaticOctets struct {
	Contents []byte
}

func (ReadStaticOctets) OperationKind() string { return "ReadStaticOctets" }

func (op ReadStaticOctets) Step(ctx *IOContext, args []value.Value) Result {
	if len(ctx.Buffer) < len(op.Contents) {
		return Block(WaitingForRead)
	}
	if bytes.Equal(ctx.Buffer[:len(op.Contents)], op.Contents) {
		return Done(value.BoolValue(true))
	}
	return Done(value.ErrorValue(value.ProtocolMismatchError))
}

func (op ReadStaticOctets) HandleRead(ctx *IOContext, in []byte) int {
	if len(in) < len(op.Contents) {
		return 0
	}
	ctx.Buffer = append([]byte(nil), in[:len(op.Contents)]...)
	return len(op.Contents)
}

func (ReadStaticOctets) WriteBuffer(ctx *IOContext) []byte    { return ctx.Buffer }
func (ReadStaticOctets) HandleWrite(ctx *IOContext, n int) int { return 0 }
func (ReadStaticOctets) HandleEOF(ctx *IOContext)              {}
func (op ReadStaticOctets) ReadyToEvaluate(ctx *IOContext) bool {
	return len(ctx.Buffer) >= len(op.Contents)
}

// ReadOctetsUntilTerminator reads bytes up to (and consuming) a terminator
// literal. When EscapeSeq is non-empty, any occurrence of EscapeSeq is
// translated to EscapeChar and skipped before testing for the terminator
// at that position, so a terminator-shaped byte run hidden inside an
// escape sequence never ends the read early.
type ReadOctetsUntilTerminator struct {
	Terminator []byte
	EscapeChar []byte
	EscapeSeq  []byte
}

func (ReadOctetsUntilTerminator) OperationKind() string { return "ReadOctetsUntilTerminator" }

func (op ReadOctetsUntilTerminator) Step(ctx *IOContext, args []value.Value) Result {
	if ctx.Ready {
		return Done(value.OctetsValue(string(ctx.Buffer)))
	}
	if ctx.EOF {
		return Done(value.ErrorValue(value.ProtocolMismatchError))
	}
	return Block(WaitingForRead)
}

func (op ReadOctetsUntilTerminator) HandleRead(ctx *IOContext, in []byte) int {
	var out []byte
	i := 0
	for i < len(in) {
		if len(op.EscapeSeq) > 0 && hasPrefix(in[i:], op.EscapeSeq) {
			out = append(out, op.EscapeChar...)
			i += len(op.EscapeSeq)
			continue
		}
		if hasPrefix(in[i:], op.Terminator) {
			ctx.Buffer = out
			ctx.Ready = true
			return i + len(op.Terminator)
		}
		out = append(out, in[i])
		i++
	}
	return 0
}

func (ReadOctetsUntilTerminator) WriteBuffer(ctx *IOContext) []byte    { return ctx.Buffer }
func (ReadOctetsUntilTerminator) HandleWrite(ctx *IOContext, n int) int { return 0 }
func (ReadOctetsUntilTerminator) HandleEOF(ctx *IOContext)              { ctx.EOF = true }
func (ReadOctetsUntilTerminator) ReadyToEvaluate(ctx *IOContext) bool {
	return ctx.Ready || ctx.EOF
}

// ReadInt32Native reads 4 raw bytes and reinterprets them as a
// native-endian int32 via encoding/binary.NativeEndian.
type ReadInt32Native struct{}

func (ReadInt32Native) OperationKind() string { return "ReadInt32Native" }

func (ReadInt32Native) Step(ctx *IOContext, args []value.Value) Result {
	if len(ctx.Buffer) < 4 {
		if ctx.EOF {
			return Done(value.ErrorValue(value.ProtocolMismatchError))
		}
		return Block(WaitingForRead)
	}
	v := binary.NativeEndian.Uint32(ctx.Buffer[:4])
	return Done(value.Int32Value(int32(v)))
}

func (ReadInt32Native) HandleRead(ctx *IOContext, in []byte) int {
	expecting := 4 - len(ctx.Buffer)
	if expecting <= 0 {
		return 0
	}
	n := len(in)
	if n > expecting {
		n = expecting
	}
	ctx.Buffer = append(ctx.Buffer, in[:n]...)
	return n
}

func (ReadInt32Native) WriteBuffer(ctx *IOContext) []byte    { return ctx.Buffer }
func (ReadInt32Native) HandleWrite(ctx *IOContext, n int) int { return 0 }
func (ReadInt32Native) HandleEOF(ctx *IOContext)              { ctx.EOF = true }
func (ReadInt32Native) ReadyToEvaluate(ctx *IOContext) bool   { return len(ctx.Buffer) >= 4 }

// ReadIntFromAscii reads decimal digits (an optional leading '-' allowed
// as the first byte) up to the first non-digit byte, which it leaves
// unconsumed for whatever operation follows. A parse that overflows int32
// yields ProtocolMismatchError rather than wrapping or silently
// truncating.
type ReadIntFromAscii struct{}

func (ReadIntFromAscii) OperationKind() string { return "ReadIntFromAscii" }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (ReadIntFromAscii) Step(ctx *IOContext, args []value.Value) Result {
	if !ctx.Ready && !ctx.EOF {
		return Block(WaitingForRead)
	}
	if len(ctx.Buffer) == 0 {
		return Done(value.ErrorValue(value.ProtocolMismatchError))
	}
	var neg bool
	digits := ctx.Buffer
	if digits[0] == '-' {
		neg = true
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return Done(value.ErrorValue(value.ProtocolMismatchError))
	}
	var n int64
	for _, d := range digits {
		if !isDigit(d) {
			return Done(value.ErrorValue(value.ProtocolMismatchError))
		}
		n = n*10 + int64(d-'0')
		if neg {
			if -n < int64(minInt32) {
				return Done(value.ErrorValue(value.ProtocolMismatchError))
			}
		} else if n > int64(maxInt32) {
			return Done(value.ErrorValue(value.ProtocolMismatchError))
		}
	}
	if neg {
		n = -n
	}
	return Done(value.Int32Value(int32(n)))
}

const (
	maxInt32 = int32(1<<31 - 1)
	minInt32 = -int32(1<<31 - 1) - 1
)

func (ReadIntFromAscii) HandleRead(ctx *IOContext, in []byte) int {
	consumed := 0
	for consumed < len(in) {
		b := in[consumed]
		if isDigit(b) || (consumed == 0 && len(ctx.Buffer) == 0 && b == '-') {
			ctx.Buffer = append(ctx.Buffer, b)
			consumed++
			continue
		}
		ctx.Ready = true
		return consumed
	}
	return consumed
}

func (ReadIntFromAscii) HandleEOF(ctx *IOContext)            { ctx.EOF = true }
func (ReadIntFromAscii) WriteBuffer(ctx *IOContext) []byte    { return ctx.Buffer }
func (ReadIntFromAscii) HandleWrite(ctx *IOContext, n int) int { return 0 }
func (ReadIntFromAscii) ReadyToEvaluate(ctx *IOContext) bool  { return ctx.Ready || ctx.EOF }

// WriteStaticOctets writes a fixed literal.
type WriteStaticOctets struct {
	Contents []byte
}

func (WriteStaticOctets) OperationKind() string { return "WriteStaticOctets" }

func (op WriteStaticOctets) Step(ctx *IOContext, args []value.Value) Result {
	if len(ctx.Buffer) == 0 {
		ctx.Buffer = op.Contents
		ctx.Cursor = 0
	}
	if ctx.Cursor != len(ctx.Buffer) {
		return Block(WaitingForWrite)
	}
	return Done(value.Int32Value(0))
}

func (WriteStaticOctets) HandleRead(ctx *IOContext, in []byte) int { return 0 }
func (op WriteStaticOctets) WriteBuffer(ctx *IOContext) []byte {
	return ctx.Buffer[ctx.Cursor:]
}
func (WriteStaticOctets) HandleWrite(ctx *IOContext, n int) int {
	consumed := n
	if remaining := len(ctx.Buffer) - ctx.Cursor; consumed > remaining {
		consumed = remaining
	}
	ctx.Cursor += consumed
	return consumed
}
func (WriteStaticOctets) HandleEOF(ctx *IOContext)            {}
func (WriteStaticOctets) ReadyToEvaluate(ctx *IOContext) bool { return true }

// WriteInt32Native writes an Int32 argument as 4 raw native-endian bytes.
type WriteInt32Native struct{}

func (WriteInt32Native) OperationKind() string { return "WriteInt32Native" }

func (WriteInt32Native) Step(ctx *IOContext, args []value.Value) Result {
	if len(ctx.Buffer) == 0 {
		if args[0].Kind != value.KindInt32 {
			return Done(value.ErrorValue(value.TypeError))
		}
		b := make([]byte, 4)
		binary.NativeEndian.PutUint32(b, uint32(args[0].Int32))
		ctx.Buffer = b
		ctx.Cursor = 0
	}
	if ctx.Cursor != len(ctx.Buffer) {
		return Block(WaitingForWrite)
	}
	return Done(value.Int32Value(0))
}

func (WriteInt32Native) HandleRead(ctx *IOContext, in []byte) int { return 0 }
func (WriteInt32Native) WriteBuffer(ctx *IOContext) []byte {
	return ctx.Buffer[ctx.Cursor:]
}
func (WriteInt32Native) HandleWrite(ctx *IOContext, n int) int {
	consumed := n
	if remaining := len(ctx.Buffer) - ctx.Cursor; consumed > remaining {
		consumed = remaining
	}
	ctx.Cursor += consumed
	return consumed
}
func (WriteInt32Native) HandleEOF(ctx *IOContext)            {}
func (WriteInt32Native) ReadyToEvaluate(ctx *IOContext) bool { return true }

// WriteOctets writes an Octets argument.
type WriteOctets struct{}

func (WriteOctets) OperationKind() string { return "WriteOctets" }

func (WriteOctets) Step(ctx *IOContext, args []value.Value) Result {
	arg := args[0]
	switch arg.Kind {
	case value.KindError, value.KindControlFlow:
		return Done(arg)
	case value.KindOctets:
	default:
		return Done(value.ErrorValue(value.TypeError))
	}
	if len(arg.Octets) == 0 {
		return Done(value.Int32Value(0))
	}
	if len(ctx.Buffer) == 0 {
		ctx.Buffer = []byte(arg.Octets)
		ctx.Cursor = 0
	}
	if ctx.Cursor != len(ctx.Buffer) {
		return Block(WaitingForWrite)
	}
	return Done(value.Int32Value(0))
}

func (WriteOctets) HandleRead(ctx *IOContext, in []byte) int { return 0 }
func (WriteOctets) WriteBuffer(ctx *IOContext) []byte {
	return ctx.Buffer[ctx.Cursor:]
}
func (WriteOctets) HandleWrite(ctx *IOContext, n int) int {
	consumed := n
	if remaining := len(ctx.Buffer) - ctx.Cursor; consumed > remaining {
		consumed = remaining
	}
	ctx.Cursor += consumed
	return consumed
}
func (WriteOctets) HandleEOF(ctx *IOContext)            {}
func (WriteOctets) ReadyToEvaluate(ctx *IOContext) bool { return true }

// WriteOctetsWithEscape writes an Octets argument with every occurrence of
// EscapeChar replaced by EscapeSequence. The substitution happens once, up
// front; the result then streams like WriteOctets.
type WriteOctetsWithEscape struct {
	EscapeChar     []byte
	EscapeSequence []byte
}

func (WriteOctetsWithEscape) OperationKind() string { return "WriteOctetsWithEscape" }

func (op WriteOctetsWithEscape) Step(ctx *IOContext, args []value.Value) Result {
	arg := args[0]
	switch arg.Kind {
	case value.KindError, value.KindControlFlow:
		return Done(arg)
	case value.KindOctets:
	default:
		return Done(value.ErrorValue(value.TypeError))
	}
	if len(ctx.Buffer) == 0 && ctx.Cursor == 0 {
		raw := []byte(arg.Octets)
		escaped := bytes.ReplaceAll(raw, op.EscapeChar, op.EscapeSequence)
		if len(escaped) == 0 {
			return Done(value.Int32Value(0))
		}
		ctx.Buffer = escaped
	}
	if ctx.Cursor != len(ctx.Buffer) {
		return Block(WaitingForWrite)
	}
	return Done(value.Int32Value(0))
}

func (WriteOctetsWithEscape) HandleRead(ctx *IOContext, in []byte) int { return 0 }
func (WriteOctetsWithEscape) WriteBuffer(ctx *IOContext) []byte {
	return ctx.Buffer[ctx.Cursor:]
}
func (WriteOctetsWithEscape) HandleWrite(ctx *IOContext, n int) int {
	consumed := n
	if remaining := len(ctx.Buffer) - ctx.Cursor; consumed > remaining {
		consumed = remaining
	}
	ctx.Cursor += consumed
	return consumed
}
func (WriteOctetsWithEscape) HandleEOF(ctx *IOContext)            {}
func (WriteOctetsWithEscape) ReadyToEvaluate(ctx *IOContext) bool { return true }

// TerminateListIfReadAhead peeks at unconsumed input without advancing past
// it unless it matches a terminator literal exactly. It is the predicate a GenerateList
// loop body tests before producing another element: a match yields
// InterruptGenerator, a definite mismatch yields false and leaves the bytes
// for the loop body to consume, too few bytes to decide blocks for more
// input, and end-of-stream before a decision yields ProtocolMismatchError.
type TerminateListIfReadAhead struct {
	Terminator []byte
}

func (TerminateListIfReadAhead) OperationKind() string { return "TerminateListIfReadAhead" }

func (op TerminateListIfReadAhead) Step(ctx *IOContext, args []value.Value) Result {
	switch {
	case len(ctx.Buffer) == 0:
		if ctx.EOF {
			return Done(value.ErrorValue(value.ProtocolMismatchError))
		}
		return Block(WaitingForRead)
	case len(ctx.Buffer) < len(op.Terminator):
		if bytes.Equal(ctx.Buffer, op.Terminator[:len(ctx.Buffer)]) {
			if ctx.EOF {
				return Done(value.ErrorValue(value.ProtocolMismatchError))
			}
			return Block(WaitingForRead)
		}
		return Done(value.BoolValue(false))
	default:
		if bytes.Equal(ctx.Buffer[:len(op.Terminator)], op.Terminator) {
			return Done(value.ControlFlowValue(value.InterruptGenerator))
		}
		return Done(value.BoolValue(false))
	}
}

func (op TerminateListIfReadAhead) HandleRead(ctx *IOContext, in []byte) int {
	ctx.Buffer = in
	if hasPrefix(ctx.Buffer, op.Terminator) {
		return len(op.Terminator)
	}
	return 0
}

func (TerminateListIfReadAhead) WriteBuffer(ctx *IOContext) []byte    { return ctx.Buffer }
func (TerminateListIfReadAhead) HandleWrite(ctx *IOContext, n int) int { return 0 }
func (TerminateListIfReadAhead) HandleEOF(ctx *IOContext)              { ctx.EOF = true }
func (TerminateListIfReadAhead) ReadyToEvaluate(ctx *IOContext) bool   { return true }
