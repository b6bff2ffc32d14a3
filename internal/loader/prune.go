package loader

import (
	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/xmldom"
	"github.com/jacoelho/xmlresource/internal/xpathshadow"
)

// Clear removes all descendants of elem from the live tree and from both
// namespace maps, keeping the element's attributes, text and tail. When thin
// mode is active and an ancestor chain is supplied, the consumed preceding
// siblings at every ancestor level are removed too. Clearing is one-way and
// idempotent: re-clearing a cleared element is a no-op.
func (l *Loader) Clear(elem *xmldom.Element, ancestors []*xmldom.Element) {
	if l.thinLazy && len(ancestors) > 0 {
		l.clearPreceding(elem, ancestors)
	}

	for e := range elem.Iter("*") {
		if e == elem {
			continue
		}
		delete(l.xmlns, e)
		delete(l.nsmaps, e)
	}
	elem.RemoveChildren()

	// reset the shadow tree so it stays usable while the parser keeps
	// adding children to the root.
	if l.shadow != nil {
		l.shadow.Invalidate()
	}
}

// clearPreceding removes, at every ancestor level, the subtrees preceding
// the child on the path down to elem.
func (l *Loader) clearPreceding(elem *xmldom.Element, ancestors []*xmldom.Element) {
	for i, parent := range ancestors {
		child := elem
		if i+1 < len(ancestors) {
			child = ancestors[i+1]
		}
		idx := parent.ChildIndex(child)
		if idx <= 0 {
			continue
		}
		for _, preceding := range parent.Children()[:idx] {
			delete(l.xmlns, preceding)
			delete(l.nsmaps, preceding)
		}
		parent.RemoveChildrenBefore(idx)
	}
}

// ClearElement is the public pruning entry for elements of fully loaded
// trees. Elements unknown to the namespace maps (adopted subtrees) just drop
// their children.
func (l *Loader) ClearElement(elem *xmldom.Element) {
	if _, ok := l.nsmaps[elem]; !ok {
		elem.RemoveChildren()
		return
	}
	l.Clear(elem, nil)
}

// XPathTree returns the shadow tree over the live root, building it on first
// use.
func (l *Loader) XPathTree() *xpathshadow.Tree {
	if l.shadow == nil {
		l.shadow = xpathshadow.Build(l.root)
	}
	return l.shadow
}

// ParentMap returns a map from each element to its parent (nil for the
// root), built on first use. It is unavailable on lazy loaders because the
// tree mutates under iteration.
func (l *Loader) ParentMap() (map[*xmldom.Element]*xmldom.Element, error) {
	if l.IsLazy() {
		return nil, reserr.New(reserr.ErrResource, "can't create the parent map of a lazy XML resource")
	}
	if l.parentMap == nil {
		l.parentMap = make(map[*xmldom.Element]*xmldom.Element)
		for elem := range l.root.Iter("*") {
			for _, child := range elem.Children() {
				l.parentMap[child] = elem
			}
		}
		l.parentMap[l.root] = nil
	}
	return l.parentMap, nil
}
