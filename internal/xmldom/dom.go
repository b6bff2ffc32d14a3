// Package xmldom implements the element tree materialized by the resource
// loader. Elements have pointer identity: they are never copied, only mapped
// over, so they can key auxiliary maps and be pruned in place.
package xmldom

import "iter"

// Attr is an element attribute with an optional namespace.
type Attr struct {
	Space string
	Local string
	Value string
}

// Name returns the attribute name in Clark notation.
func (a Attr) Name() string {
	if a.Space == "" {
		return a.Local
	}
	return "{" + a.Space + "}" + a.Local
}

// Element is a node of the materialized XML tree. Text holds the character
// data before the first child, Tail the character data after the element's
// end tag within its parent.
type Element struct {
	Space string
	Local string
	Attrs []Attr
	Text  string
	Tail  string

	children []*Element
}

// NewElement creates an element with the given expanded name.
func NewElement(space, local string) *Element {
	return &Element{Space: space, Local: local}
}

// Tag returns the element tag in Clark notation ({uri}local, or local when
// the element has no namespace).
func (e *Element) Tag() string {
	if e == nil {
		return ""
	}
	if e.Space == "" {
		return e.Local
	}
	return "{" + e.Space + "}" + e.Local
}

// MatchTag reports whether the element tag matches. The tag "*" or the empty
// string matches any element.
func (e *Element) MatchTag(tag string) bool {
	if e == nil {
		return false
	}
	return tag == "" || tag == "*" || e.Tag() == tag
}

// Append adds a child element.
func (e *Element) Append(child *Element) {
	e.children = append(e.children, child)
}

// Children returns the element children.
// The returned slice aliases the element; do not modify or retain it.
func (e *Element) Children() []*Element {
	if e == nil {
		return nil
	}
	return e.children
}

// Len returns the number of children.
func (e *Element) Len() int {
	if e == nil {
		return 0
	}
	return len(e.children)
}

// Child returns the i-th child, or nil when out of range.
func (e *Element) Child(i int) *Element {
	if e == nil || i < 0 || i >= len(e.children) {
		return nil
	}
	return e.children[i]
}

// ChildIndex returns the index of the child, or -1 when not a direct child.
func (e *Element) ChildIndex(child *Element) int {
	if e == nil {
		return -1
	}
	for i, c := range e.children {
		if c == child {
			return i
		}
	}
	return -1
}

// RemoveChildren discards all children, keeping attributes, text and tail.
func (e *Element) RemoveChildren() {
	if e == nil {
		return
	}
	for i := range e.children {
		e.children[i] = nil
	}
	e.children = e.children[:0]
}

// RemoveChildrenBefore discards the children preceding index i.
func (e *Element) RemoveChildrenBefore(i int) {
	if e == nil || i <= 0 {
		return
	}
	if i > len(e.children) {
		i = len(e.children)
	}
	kept := copy(e.children, e.children[i:])
	for j := kept; j < len(e.children); j++ {
		e.children[j] = nil
	}
	e.children = e.children[:kept]
}

// Iter yields the element and its descendants in document order, filtered by
// tag ("*" yields every element).
func (e *Element) Iter(tag string) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		if e == nil {
			return
		}
		e.iter(tag, yield)
	}
}

func (e *Element) iter(tag string, yield func(*Element) bool) bool {
	if e.MatchTag(tag) && !yield(e) {
		return false
	}
	for _, child := range e.children {
		if !child.iter(tag, yield) {
			return false
		}
	}
	return true
}

// Contains reports whether target is the element itself or one of its
// descendants.
func (e *Element) Contains(target *Element) bool {
	for elem := range e.Iter("*") {
		if elem == target {
			return true
		}
	}
	return false
}

// GetAttr returns the value of an attribute in Clark notation, with ok
// reporting whether the attribute is present.
func (e *Element) GetAttr(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, attr := range e.Attrs {
		if attr.Name() == name {
			return attr.Value, true
		}
	}
	return "", false
}

// GetAttrNS returns the value of a namespaced attribute.
func (e *Element) GetAttrNS(space, local string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, attr := range e.Attrs {
		if attr.Space == space && attr.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute value.
func (e *Element) SetAttr(space, local, value string) {
	for i, attr := range e.Attrs {
		if attr.Space == space && attr.Local == local {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Space: space, Local: local, Value: value})
}
