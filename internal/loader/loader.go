// Package loader materializes XML event streams into element trees, tracking
// per-element namespace scope, and bounds memory by destructively pruning
// consumed subtrees.
package loader

import (
	"io"
	"iter"
	"sync"

	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/parse"
	"github.com/jacoelho/xmlresource/internal/xmldom"
	"github.com/jacoelho/xmlresource/internal/xpathshadow"
)

// Config configures a Loader.
type Config struct {
	// Lazy is the materialization boundary depth; 0 means eager loading.
	Lazy int
	// ThinLazy also prunes consumed preceding siblings of ancestors.
	ThinLazy bool
	// IterParse is the incremental parser; nil uses the default.
	IterParse parse.IterParse
}

// Loader holds the live element tree and its namespace bookkeeping.
type Loader struct {
	root      *xmldom.Element
	nsmaps    map[*xmldom.Element]map[string]string
	xmlns     map[*xmldom.Element][]parse.NamespaceDecl
	lazy      int
	thinLazy  bool
	iterParse parse.IterParse
	shadow    *xpathshadow.Tree
	parentMap map[*xmldom.Element]*xmldom.Element

	// lazyMu rejects a second concurrent lazy traversal instead of
	// interleaving two parses of the same stream.
	lazyMu sync.Mutex
}

// New creates a Loader.
func New(cfg Config) *Loader {
	ip := cfg.IterParse
	if ip == nil {
		ip = parse.IterParseDefault
	}
	return &Loader{
		nsmaps:    make(map[*xmldom.Element]map[string]string),
		xmlns:     make(map[*xmldom.Element][]parse.NamespaceDecl),
		lazy:      cfg.Lazy,
		thinLazy:  cfg.ThinLazy,
		iterParse: ip,
	}
}

// Root returns the (possibly partial) materialized tree root.
func (l *Loader) Root() *xmldom.Element { return l.root }

// SetRoot installs a pre-built tree as the loader root.
func (l *Loader) SetRoot(root *xmldom.Element) { l.root = root }

// Lazy returns the materialization boundary depth, 0 for eager resources.
func (l *Loader) Lazy() int { return l.lazy }

// IsLazy reports whether the loader materializes lazily.
func (l *Loader) IsLazy() bool { return l.lazy > 0 }

// IsThin reports whether lazy pruning also discards preceding siblings.
func (l *Loader) IsThin() bool { return l.lazy > 0 && l.thinLazy }

// GetNsmap returns the full prefix map visible at the element, nil when the
// element is unknown. Declaration-free elements share their parent's map.
func (l *Loader) GetNsmap(elem *xmldom.Element) map[string]string {
	return l.nsmaps[elem]
}

// GetXmlns returns the namespace declarations made exactly at the element,
// nil when it declares none.
func (l *Loader) GetXmlns(elem *xmldom.Element) []parse.NamespaceDecl {
	return l.xmlns[elem]
}

// SetNsmap records the scope map for an element of an adopted subtree.
func (l *Loader) SetNsmap(elem *xmldom.Element, nsmap map[string]string) {
	l.nsmaps[elem] = nsmap
}

// SetXmlns records the own declarations for an element of an adopted subtree.
func (l *Loader) SetXmlns(elem *xmldom.Element, decls []parse.NamespaceDecl) {
	l.xmlns[elem] = decls
}

// nsState is the materializer state machine over the four event kinds.
// Declarations apply to the next element; scope pops are deferred so sibling
// runs sharing a scope do not thrash the stack.
type nsState struct {
	stack   []map[string]string
	startNS []parse.NamespaceDecl
	endNS   bool
}

func newNSState() *nsState {
	return &nsState{stack: []map[string]string{{}}}
}

func (s *nsState) onStartNS(decl parse.NamespaceDecl) {
	s.startNS = append(s.startNS, decl)
}

func (s *nsState) onEndNS() {
	s.endNS = true
}

// onStart applies pending state for an element start and returns the
// element's scope map and its own declarations (nil when none). Elements
// that declare nothing receive the same map object as their parent.
func (s *nsState) onStart() (map[string]string, []parse.NamespaceDecl) {
	if s.endNS {
		s.stack = s.stack[:len(s.stack)-1]
		s.endNS = false
	}
	var decls []parse.NamespaceDecl
	if len(s.startNS) > 0 {
		top := s.stack[len(s.stack)-1]
		next := make(map[string]string, len(top)+len(s.startNS))
		for k, v := range top {
			next[k] = v
		}
		for _, decl := range s.startNS {
			next[decl.Prefix] = decl.URI
		}
		s.stack = append(s.stack, next)
		decls = s.startNS
		s.startNS = nil
	}
	return s.stack[len(s.stack)-1], decls
}

func (s *nsState) onEnd() {
	if s.endNS {
		s.stack = s.stack[:len(s.stack)-1]
		s.endNS = false
	}
}

// Parse fully materializes the document from r.
func (l *Loader) Parse(r io.Reader) error {
	state := newNSState()
	for ev, err := range l.iterParse(r, parse.EagerEvents) {
		if err != nil {
			return wrapParseError(err)
		}
		switch ev.Kind {
		case parse.EventStartNS:
			state.onStartNS(ev.Decl)
		case parse.EventEndNS:
			state.onEndNS()
		case parse.EventStart:
			nsmap, decls := state.onStart()
			if decls != nil {
				l.xmlns[ev.Elem] = decls
			}
			l.nsmaps[ev.Elem] = nsmap
			if l.root == nil {
				l.root = ev.Elem
			}
		}
	}
	if l.root == nil {
		return reserr.Wrap(reserr.ErrParse, "no element found", parse.ErrNoRootElement)
	}
	return nil
}

// LazyIterparse drives a lazy materialization of r, yielding each start and
// end event with its element between parser steps so the caller can prune.
// A second concurrent traversal fails fast with a resource error.
func (l *Loader) LazyIterparse(r io.Reader) iter.Seq2[parse.Event, error] {
	return func(yield func(parse.Event, error) bool) {
		if !l.lazyMu.TryLock() {
			yield(parse.Event{}, reserr.New(reserr.ErrResource,
				"lazy resource is already under iteration"))
			return
		}
		defer l.lazyMu.Unlock()

		clear(l.nsmaps)
		clear(l.xmlns)
		state := newNSState()
		rootStarted := false

		for ev, err := range l.iterParse(r, parse.LazyEvents) {
			if err != nil {
				yield(parse.Event{}, wrapParseError(err))
				return
			}
			switch ev.Kind {
			case parse.EventStartNS:
				state.onStartNS(ev.Decl)
			case parse.EventEndNS:
				state.onEndNS()
			case parse.EventStart:
				nsmap, decls := state.onStart()
				if decls != nil {
					l.xmlns[ev.Elem] = decls
				}
				l.nsmaps[ev.Elem] = nsmap
				if !rootStarted {
					l.root = ev.Elem
					l.shadow = nil
					rootStarted = true
				}
				if !yield(ev, nil) {
					return
				}
			case parse.EventEnd:
				state.onEnd()
				if !yield(ev, nil) {
					return
				}
			}
		}
	}
}

// wrapParseError translates tokenizer syntax errors into parse errors and
// read failures into OS errors; already classified errors pass through.
func wrapParseError(err error) error {
	if _, ok := reserr.AsResource(err); ok {
		return err
	}
	if parse.IsSyntaxError(err) {
		return reserr.Wrap(reserr.ErrParse, "XML parse failed", err)
	}
	return reserr.Wrap(reserr.ErrOS, "XML read failed", err)
}
