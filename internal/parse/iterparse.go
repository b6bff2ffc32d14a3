// Package parse defines the incremental event interface that drives tree
// materialization, and a default implementation based on encoding/xml with
// charset-aware decoding.
package parse

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/jacoelho/xmlresource/internal/xmldom"
)

// EventKind identifies one of the four parse event kinds.
type EventKind uint8

const (
	// EventStartNS reports a namespace declaration for the next element.
	EventStartNS EventKind = iota
	// EventEndNS reports that a namespace scope has gone out of scope.
	EventEndNS
	// EventStart reports an opened element.
	EventStart
	// EventEnd reports a closed element.
	EventEnd
)

// String returns the event kind name used by the event protocol.
func (k EventKind) String() string {
	switch k {
	case EventStartNS:
		return "start-ns"
	case EventEndNS:
		return "end-ns"
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	default:
		return fmt.Sprintf("event(%d)", k)
	}
}

// EventSet selects which event kinds an iteration yields.
type EventSet uint8

// Event set flags, combinable with bitwise or.
const (
	StartNSEvents EventSet = 1 << iota
	EndNSEvents
	StartEvents
	EndEvents
)

// EagerEvents are the events consumed by a full tree materialization.
const EagerEvents = StartNSEvents | EndNSEvents | StartEvents

// LazyEvents are the events consumed by a lazy tree materialization.
const LazyEvents = StartNSEvents | EndNSEvents | StartEvents | EndEvents

// Has reports whether the set includes the flag.
func (s EventSet) Has(flag EventSet) bool { return s&flag != 0 }

// NamespaceDecl is a single xmlns declaration.
type NamespaceDecl struct {
	Prefix string
	URI    string
}

// Event is a parse event. Elem is set for start/end events, Decl for
// start-ns events.
type Event struct {
	Kind EventKind
	Elem *xmldom.Element
	Decl NamespaceDecl
}

// IterParse is an injectable incremental parser: it reads XML from r and
// yields the requested events in document order. The tree is built as a side
// effect: every started element is appended to its parent, so consumers that
// subscribe only to start events still observe a growing tree.
type IterParse func(r io.Reader, events EventSet) iter.Seq2[Event, error]

// ErrNoRootElement reports an input that ends before any element opens.
var ErrNoRootElement = errors.New("no element found")

const (
	defaultMaxDepth = 256
	defaultMaxAttrs = 256
)

// Limits bounds the default parser against hostile input.
type Limits struct {
	MaxDepth int
	MaxAttrs int
}

func (l Limits) withDefaults() Limits {
	if l.MaxDepth == 0 {
		l.MaxDepth = defaultMaxDepth
	}
	if l.MaxAttrs == 0 {
		l.MaxAttrs = defaultMaxAttrs
	}
	return l
}

// NewIterParse returns the default incremental parser.
func NewIterParse(limits Limits) IterParse {
	limits = limits.withDefaults()
	return func(r io.Reader, events EventSet) iter.Seq2[Event, error] {
		return func(yield func(Event, error) bool) {
			runIterParse(r, events, limits, yield)
		}
	}
}

// IterParseDefault is the default parser with default limits.
func IterParseDefault(r io.Reader, events EventSet) iter.Seq2[Event, error] {
	return NewIterParse(Limits{})(r, events)
}

func runIterParse(r io.Reader, events EventSet, limits Limits, yield func(Event, error) bool) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	var stack []*xmldom.Element
	var declCounts []int
	var lastClosed *xmldom.Element
	rootSeen := false

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !rootSeen {
					yield(Event{}, ErrNoRootElement)
				} else if len(stack) > 0 {
					yield(Event{}, io.ErrUnexpectedEOF)
				}
				return
			}
			yield(Event{}, err)
			return
		}

		switch tok := tok.(type) {
		case xml.StartElement:
			if len(stack) >= limits.MaxDepth {
				yield(Event{}, fmt.Errorf("element depth exceeds limit %d", limits.MaxDepth))
				return
			}
			if len(tok.Attr) > limits.MaxAttrs {
				yield(Event{}, fmt.Errorf("attribute count %d exceeds limit %d", len(tok.Attr), limits.MaxAttrs))
				return
			}

			decls, elem := splitStartElement(tok)
			for _, decl := range decls {
				if events.Has(StartNSEvents) {
					if !yield(Event{Kind: EventStartNS, Decl: decl}, nil) {
						return
					}
				}
			}
			if len(stack) > 0 {
				stack[len(stack)-1].Append(elem)
			}
			stack = append(stack, elem)
			declCounts = append(declCounts, len(decls))
			lastClosed = nil
			rootSeen = true
			if events.Has(StartEvents) {
				if !yield(Event{Kind: EventStart, Elem: elem}, nil) {
					return
				}
			}

		case xml.EndElement:
			if len(stack) == 0 {
				yield(Event{}, fmt.Errorf("unexpected end element </%s>", tok.Name.Local))
				return
			}
			elem := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			decls := declCounts[len(declCounts)-1]
			declCounts = declCounts[:len(declCounts)-1]
			lastClosed = elem
			if events.Has(EndEvents) {
				if !yield(Event{Kind: EventEnd, Elem: elem}, nil) {
					return
				}
			}
			for range decls {
				if events.Has(EndNSEvents) {
					if !yield(Event{Kind: EventEndNS}, nil) {
						return
					}
				}
			}

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if lastClosed != nil {
				lastClosed.Tail += string(tok)
			} else if top.Len() == 0 {
				top.Text += string(tok)
			} else {
				last := top.Child(top.Len() - 1)
				last.Tail += string(tok)
			}

		case xml.Comment, xml.ProcInst, xml.Directive:
			// ignored, as in tree building parsers
		}
	}
}

// splitStartElement separates namespace declarations from ordinary
// attributes and builds the element node.
func splitStartElement(tok xml.StartElement) ([]NamespaceDecl, *xmldom.Element) {
	elem := xmldom.NewElement(tok.Name.Space, tok.Name.Local)
	var decls []NamespaceDecl
	for _, attr := range tok.Attr {
		switch {
		case attr.Name.Space == "" && attr.Name.Local == "xmlns":
			decls = append(decls, NamespaceDecl{Prefix: "", URI: attr.Value})
		case attr.Name.Space == "xmlns":
			decls = append(decls, NamespaceDecl{Prefix: attr.Name.Local, URI: attr.Value})
		default:
			elem.Attrs = append(elem.Attrs, xmldom.Attr{
				Space: attr.Name.Space,
				Local: attr.Name.Local,
				Value: attr.Value,
			})
		}
	}
	return decls, elem
}

// IsSyntaxError reports whether the error is an XML syntax error or another
// tokenizer-level failure that a materializer must wrap as a parse error.
func IsSyntaxError(err error) bool {
	if err == nil {
		return false
	}
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return true
	}
	if errors.Is(err, ErrNoRootElement) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "XML syntax error") || strings.Contains(msg, "exceeds limit") ||
		strings.Contains(msg, "unexpected end element")
}
