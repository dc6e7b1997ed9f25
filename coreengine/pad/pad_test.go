package pad

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jeeves-cluster-organization/networkprotocoldsl/coreengine/value"
)

func TestPad_GetMissingIsNameError(t *testing.T) {
	p := New()
	assert.Equal(t, value.ErrorValue(value.NameError), p.Get("x"))
}

func TestPad_InitializeThenGet(t *testing.T) {
	p := New()
	p.Initialize("x", value.Int32Value(7))
	assert.Equal(t, value.Int32Value(7), p.Get("x"))
}

func TestPad_ChildFallsThroughToParent(t *testing.T) {
	parent := New()
	parent.Initialize("x", value.Int32Value(1))
	child := NewChild(parent)
	assert.Equal(t, value.Int32Value(1), child.Get("x"))
}

func TestPad_SetWalksUpTheChainAndReturnsOldValue(t *testing.T) {
	parent := New()
	parent.Initialize("x", value.Int32Value(1))
	child := NewChild(parent)

	old := child.Set("x", value.Int32Value(2))
	assert.Equal(t, value.Int32Value(1), old)
	assert.Equal(t, value.Int32Value(2), parent.Get("x"))
	// The binding lives in parent, not a shadow in child.
	assert.Equal(t, value.Int32Value(2), child.Get("x"))
}

func TestPad_SetMissingIsNameError(t *testing.T) {
	p := New()
	assert.Equal(t, value.ErrorValue(value.NameError), p.Set("x", value.Int32Value(1)))
}

func TestPad_InitializeNeverWalksUp(t *testing.T) {
	parent := New()
	parent.Initialize("x", value.Int32Value(1))
	child := NewChild(parent)

	child.Initialize("x", value.Int32Value(99))
	assert.Equal(t, value.Int32Value(99), child.Get("x"))
	assert.Equal(t, value.Int32Value(1), parent.Get("x"))
}

func TestPad_InitializeGlobalWalksToRoot(t *testing.T) {
	root := New()
	mid := NewChild(root)
	leaf := NewChild(mid)

	leaf.InitializeGlobal("g", value.Int32Value(5))

	assert.Equal(t, value.Int32Value(5), root.Get("g"))
	assert.Equal(t, value.Int32Value(5), leaf.Get("g"))
}

func TestPad_AsDictSnapshotsCurrentPadOnly(t *testing.T) {
	parent := New()
	parent.Initialize("inherited", value.Int32Value(1))
	child := NewChild(parent)
	child.Initialize("own", value.Int32Value(2))

	dict := child.AsDict()
	_, hasInherited := dict.Values["inherited"]
	assert.False(t, hasInherited)
	assert.Equal(t, value.Int32Value(2), dict.Values["own"])
}
