// Package xmlresource loads XML documents from heterogeneous sources and
// exposes them as a uniform, prunable element tree.
//
// A Resource is created from literal XML text, a byte buffer, a file path, a
// URL, an open stream or a pre-built tree. Access control modes restrict
// which locations may be opened, and untrusted data can be defused against
// entity-expansion attacks before the real parse. With a positive lazy depth
// the document is materialized a bounded subtree at a time, pruning consumed
// subtrees so arbitrarily large documents can be iterated in constant memory.
package xmlresource

import (
	"github.com/jacoelho/xmlresource/internal/parse"
	"github.com/jacoelho/xmlresource/internal/xmldom"
)

// Element is a node of the materialized XML tree. Element identity is
// pointer identity: elements are never copied, only mapped over.
type Element = xmldom.Element

// Attr is a namespace-qualified attribute of an Element.
type Attr = xmldom.Attr

// NamespaceDecl is a namespace declaration made at one element.
type NamespaceDecl = parse.NamespaceDecl

// Event is one incremental parsing event.
type Event = parse.Event

// EventKind discriminates incremental parsing events.
type EventKind = parse.EventKind

// EventSet selects which event kinds a parser emits.
type EventSet = parse.EventSet

// IterParse is an injectable incremental parser.
type IterParse = parse.IterParse

// NewElement creates a detached element, for building trees by hand.
func NewElement(space, local string) *Element {
	return xmldom.NewElement(space, local)
}
