package xpathshadow

import (
	"strings"

	"github.com/antchfx/xpath"

	"github.com/jacoelho/xmlresource/internal/xmldom"
)

// Navigator implements xpath.NodeNavigator over a shadow tree.
//
// Prefix() reports the element namespace URI: query compilation rewrites
// prefixed name tests to namespace-uri() predicates, so the navigator never
// needs the source document prefixes.
type Navigator struct {
	tree *Tree
	cur  *Node
	attr int
}

// NewNavigator returns a navigator positioned on the document node.
func NewNavigator(t *Tree) *Navigator {
	return &Navigator{tree: t, cur: t.Root, attr: -1}
}

// NodeType returns the type of the current node.
func (n *Navigator) NodeType() xpath.NodeType {
	switch {
	case n.attr >= 0:
		return xpath.AttributeNode
	case n.cur.IsDocument():
		return xpath.RootNode
	default:
		return xpath.ElementNode
	}
}

// LocalName returns the local name of the current node.
func (n *Navigator) LocalName() string {
	if n.attr >= 0 {
		return n.cur.Elem.Attrs[n.attr].Local
	}
	if n.cur.IsDocument() {
		return ""
	}
	return n.cur.Elem.Local
}

// Prefix returns the namespace URI of the current node.
func (n *Navigator) Prefix() string {
	if n.attr >= 0 {
		return n.cur.Elem.Attrs[n.attr].Space
	}
	if n.cur.IsDocument() {
		return ""
	}
	return n.cur.Elem.Space
}

// Value returns the string value of the current node.
func (n *Navigator) Value() string {
	if n.attr >= 0 {
		return n.cur.Elem.Attrs[n.attr].Value
	}
	if n.cur.IsDocument() {
		if len(n.cur.Children()) == 0 {
			return ""
		}
		return elementText(n.cur.Children()[0].Elem)
	}
	return elementText(n.cur.Elem)
}

func elementText(e *xmldom.Element) string {
	var sb strings.Builder
	appendText(&sb, e)
	return sb.String()
}

func appendText(sb *strings.Builder, e *xmldom.Element) {
	sb.WriteString(e.Text)
	for _, child := range e.Children() {
		appendText(sb, child)
		sb.WriteString(child.Tail)
	}
}

// Copy returns a copy of the navigator at the same position.
func (n *Navigator) Copy() xpath.NodeNavigator {
	clone := *n
	return &clone
}

// MoveToRoot repositions on the document node.
func (n *Navigator) MoveToRoot() {
	n.cur = n.tree.Root
	n.attr = -1
}

// MoveToParent moves to the parent node.
func (n *Navigator) MoveToParent() bool {
	if n.attr >= 0 {
		n.attr = -1
		return true
	}
	if n.cur.Parent == nil {
		return false
	}
	n.cur = n.cur.Parent
	return true
}

// MoveToNextAttribute advances to the next attribute of the current element.
func (n *Navigator) MoveToNextAttribute() bool {
	if n.cur.IsDocument() {
		return false
	}
	if n.attr+1 >= len(n.cur.Elem.Attrs) {
		return false
	}
	n.attr++
	return true
}

// MoveToChild moves to the first child of the current node.
func (n *Navigator) MoveToChild() bool {
	if n.attr >= 0 {
		return false
	}
	children := n.cur.Children()
	if len(children) == 0 {
		return false
	}
	n.cur = children[0]
	return true
}

// MoveToFirst moves to the first sibling of the current node.
func (n *Navigator) MoveToFirst() bool {
	if n.attr >= 0 || n.cur.Parent == nil {
		return false
	}
	siblings := n.cur.Parent.Children()
	if len(siblings) == 0 {
		return false
	}
	n.cur = siblings[0]
	return true
}

// MoveToNext moves to the next sibling.
func (n *Navigator) MoveToNext() bool {
	return n.moveSibling(1)
}

// MoveToPrevious moves to the previous sibling.
func (n *Navigator) MoveToPrevious() bool {
	return n.moveSibling(-1)
}

func (n *Navigator) moveSibling(delta int) bool {
	if n.attr >= 0 || n.cur.Parent == nil {
		return false
	}
	siblings := n.cur.Parent.Children()
	for i, sibling := range siblings {
		if sibling == n.cur {
			j := i + delta
			if j < 0 || j >= len(siblings) {
				return false
			}
			n.cur = siblings[j]
			return true
		}
	}
	return false
}

// MoveTo repositions on the same node as another navigator over the same tree.
func (n *Navigator) MoveTo(other xpath.NodeNavigator) bool {
	o, ok := other.(*Navigator)
	if !ok || o.tree != n.tree {
		return false
	}
	n.cur = o.cur
	n.attr = o.attr
	return true
}

// Element returns the element of the current node, nil on the document node
// or an attribute.
func (n *Navigator) Element() *xmldom.Element {
	if n.attr >= 0 || n.cur.IsDocument() {
		return nil
	}
	return n.cur.Elem
}
