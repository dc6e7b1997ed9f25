package interpreter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/operation"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/optree"
	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

func leaf(op optree.Operation) *optree.Node { return &optree.Node{Op: op} }

func TestNew_AssignsID(t *testing.T) {
	root := leaf(operation.Int32Literal{V: 1})
	c := New(root)
	assert.NotEmpty(t, c.ID)
}

func TestContext_ResultDeliveredOnce(t *testing.T) {
	root := leaf(operation.Int32Literal{V: 7})
	c := New(root)

	state := c.Continuation().RunUntilBlocked()
	require.Equal(t, "Exited", state.String())

	c.SetResult(c.Continuation().Result())
	c.SetResult(value.Int32Value(999)) // second call must be ignored

	got := c.Result()
	assert.Equal(t, int32(7), got.Int32)
	assert.True(t, c.Exited())
}

func TestContext_CallbackRoundTrip(t *testing.T) {
	c := New(leaf(operation.UnaryCallback{CallbackKey: "ping"}))
	c.Continuation().Step() // zero children: executes immediately, blocks on WaitingForCallback
	c.RequestCallbackIfPending()

	req, ok := c.DequeueCallback()
	require.True(t, ok)
	assert.Equal(t, "ping", req.Name)

	c.DeliverCallbackResult(value.BoolValue(true))
	c.DrainCallbackResult()

	state := c.Continuation().RunUntilBlocked()
	require.Equal(t, "Exited", state.String())
	assert.True(t, c.Continuation().Result().Bool)
}

func TestContext_EOFPropagatesToContinuation(t *testing.T) {
	c := New(leaf(operation.ReadOctetsUntilTerminator{Terminator: []byte("\n")}))
	state := c.Continuation().RunUntilBlocked()
	require.Equal(t, "Blocked", state.String())

	c.MarkEOF()
	assert.True(t, c.EOF())

	// The flag reaches the blocked read operation on the interpreter
	// loop's next drain pass, which then fails the read: the terminator
	// never arrived.
	c.DrainInbound()
	state = c.Continuation().RunUntilBlocked()
	require.Equal(t, "Exited", state.String())
	assert.Equal(t, value.ErrorValue(value.ProtocolMismatchError), c.Continuation().Result())
}

func TestContext_OutboundFlushThenAcknowledge(t *testing.T) {
	c := New(leaf(operation.WriteStaticOctets{Contents: []byte("hello")}))
	state := c.Continuation().RunUntilBlocked()
	require.Equal(t, "Blocked", state.String())
	require.Equal(t, operation.WaitingForWrite, c.Continuation().BlockReason())

	moved := c.FlushOutbound()
	assert.Equal(t, 5, moved)

	// Flushing resolves the write block; the bytes now sit on the queue
	// awaiting the host, however often it polls.
	state = c.Continuation().RunUntilBlocked()
	assert.Equal(t, "Exited", state.String())
	assert.Equal(t, []byte("hello"), c.PullOutbound())
	assert.Equal(t, []byte("hello"), c.PullOutbound(), "polling must not duplicate queued bytes")

	c.AcknowledgeWrite(2)
	assert.Equal(t, []byte("llo"), c.PullOutbound())
	c.AcknowledgeWrite(3)
	assert.Empty(t, c.PullOutbound())
}
