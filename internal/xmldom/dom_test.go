package xmldom

import (
	"slices"
	"testing"
)

func buildTree() (*Element, []*Element) {
	root := NewElement("urn:x", "root")
	a := NewElement("urn:x", "item")
	b := NewElement("urn:x", "item")
	c := NewElement("", "note")
	inner := NewElement("urn:x", "item")
	root.Append(a)
	root.Append(b)
	root.Append(c)
	b.Append(inner)
	return root, []*Element{root, a, b, inner, c}
}

func TestTag(t *testing.T) {
	if got := NewElement("urn:x", "root").Tag(); got != "{urn:x}root" {
		t.Fatalf("Tag() = %q", got)
	}
	if got := NewElement("", "root").Tag(); got != "root" {
		t.Fatalf("Tag() without namespace = %q", got)
	}
	var nilElem *Element
	if got := nilElem.Tag(); got != "" {
		t.Fatalf("nil Tag() = %q", got)
	}
}

func TestIterDocumentOrder(t *testing.T) {
	root, want := buildTree()
	var got []*Element
	for elem := range root.Iter("*") {
		got = append(got, elem)
	}
	if !slices.Equal(got, want) {
		t.Fatalf("Iter order = %v, want %v", tags(got), tags(want))
	}
}

func TestIterTagFilter(t *testing.T) {
	root, _ := buildTree()
	count := 0
	for elem := range root.Iter("{urn:x}item") {
		if elem.Tag() != "{urn:x}item" {
			t.Fatalf("unexpected element %q", elem.Tag())
		}
		count++
	}
	if count != 3 {
		t.Fatalf("matched %d elements, want 3", count)
	}
}

func TestIterEarlyStop(t *testing.T) {
	root, _ := buildTree()
	count := 0
	for range root.Iter("*") {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Fatalf("visited %d elements, want 2", count)
	}
}

func TestRemoveChildren(t *testing.T) {
	root, _ := buildTree()
	root.RemoveChildren()
	if root.Len() != 0 {
		t.Fatalf("Len after RemoveChildren = %d", root.Len())
	}
	// re-clearing is a no-op
	root.RemoveChildren()
	if root.Len() != 0 {
		t.Fatalf("Len after second RemoveChildren = %d", root.Len())
	}
}

func TestRemoveChildrenBefore(t *testing.T) {
	root, _ := buildTree()
	last := root.Child(2)
	root.RemoveChildrenBefore(2)
	if root.Len() != 1 {
		t.Fatalf("Len = %d, want 1", root.Len())
	}
	if root.Child(0) != last {
		t.Fatalf("remaining child = %q, want note", root.Child(0).Tag())
	}
	root.RemoveChildrenBefore(0)
	if root.Len() != 1 {
		t.Fatalf("RemoveChildrenBefore(0) removed children")
	}
}

func TestContains(t *testing.T) {
	root, all := buildTree()
	for _, elem := range all {
		if !root.Contains(elem) {
			t.Fatalf("Contains(%q) = false", elem.Tag())
		}
	}
	if root.Contains(NewElement("", "other")) {
		t.Fatalf("Contains(foreign) = true")
	}
}

func TestAttrs(t *testing.T) {
	e := NewElement("", "elem")
	e.SetAttr("", "id", "a1")
	e.SetAttr("urn:ns", "ref", "a2")

	if v, ok := e.GetAttr("id"); !ok || v != "a1" {
		t.Fatalf("GetAttr(id) = %q, %v", v, ok)
	}
	if v, ok := e.GetAttr("{urn:ns}ref"); !ok || v != "a2" {
		t.Fatalf("GetAttr({urn:ns}ref) = %q, %v", v, ok)
	}
	if v, ok := e.GetAttrNS("urn:ns", "ref"); !ok || v != "a2" {
		t.Fatalf("GetAttrNS = %q, %v", v, ok)
	}
	e.SetAttr("", "id", "a3")
	if v, _ := e.GetAttr("id"); v != "a3" {
		t.Fatalf("SetAttr replace = %q", v)
	}
	if len(e.Attrs) != 2 {
		t.Fatalf("len(Attrs) = %d, want 2", len(e.Attrs))
	}
}

func TestChildIndex(t *testing.T) {
	root, _ := buildTree()
	if got := root.ChildIndex(root.Child(1)); got != 1 {
		t.Fatalf("ChildIndex = %d, want 1", got)
	}
	if got := root.ChildIndex(NewElement("", "x")); got != -1 {
		t.Fatalf("ChildIndex foreign = %d, want -1", got)
	}
}

func tags(elems []*Element) []string {
	out := make([]string, len(elems))
	for i, e := range elems {
		out[i] = e.Tag()
	}
	return out
}
