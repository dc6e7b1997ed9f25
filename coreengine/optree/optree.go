// Package optree provides the immutable operation-tree data model.
//
// A Tree is produced once, by the op-tree generator (protocol/gen), and
// shared by every interpreter executing the same client or server program.
// Nodes are never mutated after construction; Operation is a marker
// interface implemented by every concrete operation kind in
// coreengine/operation so that coreengine/optree itself stays free of any
// dependency on the value model or on individual operation semantics.
package optree

// Operation is implemented by every concrete operation kind. It carries no
// behavior itself: dispatch on the concrete kind happens in
// coreengine/operation, which keeps this package a pure data model.
type Operation interface {
	OperationKind() string
}

// Node pairs one Operation with its ordered child nodes.
type Node struct {
	Op       Operation
	Children []*Node
}

// NewNode constructs a Node. Trees are built once by the generator and never
// mutated afterward.
func NewNode(op Operation, children ...*Node) *Node {
	return &Node{Op: op, Children: children}
}

// Tree owns a root Node. A Tree is shared, read-only, immutable data once
// published to any interpreter.
type Tree struct {
	Root *Node
}

// NewTree wraps a root node as a Tree.
func NewTree(root *Node) *Tree {
	return &Tree{Root: root}
}
