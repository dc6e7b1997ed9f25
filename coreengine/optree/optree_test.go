package optree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeOp string

func (f fakeOp) OperationKind() string { return string(f) }

func TestNewNode_OwnsChildrenInOrder(t *testing.T) {
	a := NewNode(fakeOp("a"))
	b := NewNode(fakeOp("b"))
	root := NewNode(fakeOp("root"), a, b)

	assert.Equal(t, "root", root.Op.OperationKind())
	assert.Same(t, a, root.Children[0])
	assert.Same(t, b, root.Children[1])
}

func TestNewTree_WrapsRoot(t *testing.T) {
	root := NewNode(fakeOp("root"))
	tree := NewTree(root)
	assert.Same(t, root, tree.Root)
}
