// Package xpathshadow maintains an auxiliary XPath-facing node tree over the
// live, prunable element tree. The shadow tree is built lazily on first use
// and invalidated, never patched, when the underlying tree is pruned.
package xpathshadow

import (
	"github.com/jacoelho/xmlresource/internal/xmldom"
)

// Node wraps one element of the live tree.
type Node struct {
	Elem   *xmldom.Element
	Parent *Node

	children []*Node
	built    bool
}

// Tree is the shadow tree. Its root is a virtual document node above the
// element root, so absolute paths have an anchor.
type Tree struct {
	Root *Node
}

// Build creates a shadow tree over root. Children are materialized lazily
// during navigation.
func Build(root *xmldom.Element) *Tree {
	doc := &Node{}
	if root != nil {
		doc.children = []*Node{{Elem: root, Parent: doc}}
		doc.built = true
	}
	return &Tree{Root: doc}
}

// Invalidate drops every cached child below the document node, keeping the
// root element wrapper. A later navigation rebuilds from the live tree, which
// may have grown or been pruned meanwhile.
func (t *Tree) Invalidate() {
	if t == nil || t.Root == nil {
		return
	}
	for _, child := range t.Root.children {
		child.children = nil
		child.built = false
	}
}

// Children returns the cached child nodes, materializing them from the live
// element on first access.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	if !n.built {
		for _, child := range n.Elem.Children() {
			n.children = append(n.children, &Node{Elem: child, Parent: n})
		}
		n.built = true
	}
	return n.children
}

// IsDocument reports whether the node is the virtual document node.
func (n *Node) IsDocument() bool {
	return n != nil && n.Elem == nil
}
