package xmlresource

import (
	"io"
	"iter"
	"slices"

	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/parse"
	"github.com/jacoelho/xmlresource/internal/xpathshadow"
)

// Iter iterates the XML resource tree in document order. If tag is not empty
// or "*", only elements whose tag equals tag are yielded. In a lazy resource
// the yielded elements are full over or at the lazy depth level, incomplete
// otherwise.
func (r *Resource) Iter(tag string) iter.Seq2[*Element, error] {
	if !r.IsLazy() {
		return func(yield func(*Element, error) bool) {
			for elem := range r.Root().Iter(tag) {
				if !yield(elem, nil) {
					return
				}
			}
		}
	}

	return func(yield func(*Element, error) bool) {
		fp, closeFn, err := r.open()
		if err != nil {
			yield(nil, err)
			return
		}
		if closeFn != nil {
			defer func() { _ = closeFn() }()
		}

		lazyDepth := r.loader.Lazy()
		var subtree []*Element
		var ancestors []*Element
		level := 0

		for ev, err := range r.loader.LazyIterparse(fp) {
			if err != nil {
				yield(nil, err)
				return
			}
			node := ev.Elem
			if ev.Kind == parse.EventStart {
				if level < lazyDepth {
					if level > 0 {
						ancestors = append(ancestors, node)
					}
					if node.MatchTag(tag) {
						if !yield(node, nil) { // an incomplete element
							return
						}
					}
				}
				level++
				continue
			}

			level--
			switch {
			case level < lazyDepth:
				if level > 0 {
					ancestors = ancestors[:len(ancestors)-1]
				}
			case level > lazyDepth:
				if node.MatchTag(tag) {
					subtree = append(subtree, node)
				}
			default:
				if node.MatchTag(tag) {
					if !yield(node, nil) { // a full element
						return
					}
				}
				// deep closes replay most recently closed first, not in
				// document order
				for i := len(subtree) - 1; i >= 0; i-- {
					if !yield(subtree[i], nil) {
						return
					}
				}
				subtree = subtree[:0]
				r.loader.Clear(node, ancestors)
			}
		}
	}
}

// IterDepth iterates XML subtrees. For fully loaded resources it yields the
// root element. On lazy resources mode changes the sequence and the
// completeness of yielded elements:
//
//  1. only the elements at the lazy depth level
//  2. the elements at the lazy depth level with thin pruning
//  3. only a root element pruned at the lazy depth
//  4. the elements at the lazy depth and then a pruned root
//  5. an incomplete root at start, the depth level elements and a pruned root
//
// Provide a non-nil ancestors slice pointer for tracking the ancestors of
// yielded elements.
func (r *Resource) IterDepth(mode int, ancestors *[]*Element) iter.Seq2[*Element, error] {
	return func(yield func(*Element, error) bool) {
		if mode < 1 || mode > 5 {
			yield(nil, reserr.Newf(reserr.ErrValue, "invalid argument mode=%d", mode))
			return
		}

		anc := ancestors
		if anc != nil {
			*anc = (*anc)[:0]
		} else if mode <= 2 {
			anc = new([]*Element)
		}

		if !r.IsLazy() {
			yield(r.Root(), nil)
			return
		}

		incompleteRoot := mode == 5
		prunedRoot := mode > 2
		depthElements := mode != 3
		thin := mode <= 2

		fp, closeFn, err := r.open()
		if err != nil {
			yield(nil, err)
			return
		}
		if closeFn != nil {
			defer func() { _ = closeFn() }()
		}

		level := 0
		lazyDepth := r.loader.Lazy()

		for ev, err := range r.loader.LazyIterparse(fp) {
			if err != nil {
				yield(nil, err)
				return
			}
			elem := ev.Elem
			if ev.Kind == parse.EventStart {
				if level == 0 && incompleteRoot {
					if !yield(elem, nil) {
						return
					}
				}
				if anc != nil && level < lazyDepth {
					*anc = append(*anc, elem)
				}
				level++
				continue
			}

			level--
			if level == 0 {
				if prunedRoot {
					if !yield(elem, nil) {
						return
					}
				}
				continue
			}
			if level != lazyDepth {
				if anc != nil && level < lazyDepth {
					*anc = (*anc)[:len(*anc)-1]
				}
				continue
			}
			if depthElements {
				if !yield(elem, nil) {
					return
				}
			}
			if thin {
				r.loader.Clear(elem, *anc)
			} else {
				r.loader.Clear(elem, nil)
			}
		}
	}
}

// IterFind applies an XPath selection to the XML resource, yielding full
// subtrees. On lazy resources the path must select at least as deep as the
// lazy depth. Provide a non-nil ancestors slice pointer for tracking the
// ancestors of yielded elements.
func (r *Resource) IterFind(path string, namespaces map[string]string,
	ancestors *[]*Element) iter.Seq2[*Element, error] {

	return func(yield func(*Element, error) bool) {
		expr, err := xpathshadow.CompilePath(path, namespaces)
		if err != nil {
			yield(nil, reserr.Wrap(reserr.ErrValue, "invalid XPath expression", err))
			return
		}

		if !r.IsLazy() {
			r.selectElements(expr, ancestors, yield)
			return
		}

		lazyDepth := r.loader.Lazy()
		pathDepth := xpathshadow.PathDepth(path)
		selectAll := xpathshadow.SelectsAll(path)

		if pathDepth == 0 {
			yield(nil, reserr.Newf(reserr.ErrValue,
				"can't use path %q on a lazy resource", path))
			return
		}
		if pathDepth < lazyDepth {
			yield(nil, reserr.Newf(reserr.ErrValue,
				"can't use path %q on a lazy resource with lazy depth %d", path, lazyDepth))
			return
		}

		anc := ancestors
		if anc != nil {
			*anc = (*anc)[:0]
		} else if r.IsThin() {
			anc = new([]*Element)
		}

		fp, closeFn, err := r.open()
		if err != nil {
			yield(nil, err)
			return
		}
		if closeFn != nil {
			defer func() { _ = closeFn() }()
		}
		r.iterFindLazy(fp, expr, selectAll, pathDepth, lazyDepth, anc, yield)
	}
}

func (r *Resource) iterFindLazy(fp io.Reader, expr *xpathshadow.Expr, selectAll bool,
	pathDepth, lazyDepth int, anc *[]*Element, yield func(*Element, error) bool) {

	level := 0
	for ev, err := range r.loader.LazyIterparse(fp) {
		if err != nil {
			yield(nil, err)
			return
		}
		node := ev.Elem
		if ev.Kind == parse.EventStart {
			if anc != nil && level < pathDepth {
				*anc = append(*anc, node)
			}
			level++
			continue
		}

		level--
		if level < pathDepth {
			if anc != nil && len(*anc) > 0 {
				*anc = (*anc)[:len(*anc)-1]
			}
			continue
		}
		if level == pathDepth {
			if selectAll || slices.Contains(xpathshadow.Select(r.loader.XPathTree(), expr), node) {
				if !yield(node, nil) {
					return
				}
			}
		}
		if level == lazyDepth {
			var chain []*Element
			if anc != nil {
				chain = *anc
			}
			r.loader.Clear(node, chain)
		}
	}
}

// selectElements evaluates a compiled expression over a fully materialized
// tree, filling the ancestors of each selected element when requested.
func (r *Resource) selectElements(expr *xpathshadow.Expr,
	ancestors *[]*Element, yield func(*Element, error) bool) {

	var parents map[*Element]*Element
	if ancestors != nil {
		var err error
		parents, err = r.loader.ParentMap()
		if err != nil {
			yield(nil, err)
			return
		}
	}

	for _, elem := range xpathshadow.Select(r.loader.XPathTree(), expr) {
		if ancestors != nil {
			*ancestors = (*ancestors)[:0]
			var chain []*Element
			for parent := parents[elem]; parent != nil; parent = parents[parent] {
				chain = append(chain, parent)
			}
			for i := len(chain) - 1; i >= 0; i-- {
				*ancestors = append(*ancestors, chain[i])
			}
		}
		if !yield(elem, nil) {
			return
		}
	}
}

// Find returns the first element selected by the path, nil when the
// selection is empty.
func (r *Resource) Find(path string, namespaces map[string]string) (*Element, error) {
	for elem, err := range r.IterFind(path, namespaces, nil) {
		return elem, err
	}
	return nil, nil
}

// FindAll returns all the elements selected by the path in document order.
func (r *Resource) FindAll(path string, namespaces map[string]string) ([]*Element, error) {
	var elems []*Element
	for elem, err := range r.IterFind(path, namespaces, nil) {
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	return elems, nil
}
