package xmlresource

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	reserr "github.com/jacoelho/xmlresource/errors"
)

// ToString serializes the XML resource to a string. The namespaces argument
// optionally provides prefixes registered before serialization. Lazy
// resources can't be serialized.
func (r *Resource) ToString(namespaces map[string]string, xmlDeclaration bool) (string, error) {
	if r.IsLazy() {
		return "", reserr.New(reserr.ErrResource, "can't serialize a lazy XML resource")
	}

	nsmap, err := r.GetNamespaces(namespaces, false)
	if err != nil {
		return "", err
	}
	return serializeTree(r.Root(), nsmap, xmlDeclaration), nil
}

type serializer struct {
	sb         strings.Builder
	elemPrefix map[string]string // namespace URI to element prefix
	attrPrefix map[string]string // namespace URI to attribute prefix, never empty
	decls      [][2]string       // (prefix, uri) declarations for the root
}

func serializeTree(root *Element, nsmap map[string]string, xmlDeclaration bool) string {
	s := newSerializer(root, nsmap)
	if xmlDeclaration {
		s.sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	}
	s.writeElement(root, true)
	return s.sb.String()
}

func newSerializer(root *Element, nsmap map[string]string) *serializer {
	s := &serializer{
		elemPrefix: make(map[string]string),
		attrPrefix: make(map[string]string),
	}

	elemURIs := make(map[string]bool)
	attrURIs := make(map[string]bool)
	for e := range root.Iter("*") {
		if e.Space != "" {
			elemURIs[e.Space] = true
		}
		for _, a := range e.Attrs {
			if a.Space != "" && a.Space != xmlNamespace {
				attrURIs[a.Space] = true
			}
		}
	}

	// a default namespace is unusable when some element has no namespace
	useEmpty := true
	for e := range root.Iter("*") {
		if e.Space == "" {
			useEmpty = false
			break
		}
	}

	prefixes := make([]string, 0, len(nsmap))
	for prefix := range nsmap {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	for _, prefix := range prefixes {
		uri := nsmap[prefix]
		if uri == "" || uri == xmlNamespace {
			continue
		}
		if prefix == "" {
			if useEmpty {
				if _, ok := s.elemPrefix[uri]; !ok {
					s.elemPrefix[uri] = ""
				}
			}
			continue
		}
		if _, ok := s.elemPrefix[uri]; !ok {
			s.elemPrefix[uri] = prefix
		}
		if _, ok := s.attrPrefix[uri]; !ok {
			s.attrPrefix[uri] = prefix
		}
	}

	generated := 0
	generate := func() string {
		prefix := fmt.Sprintf("ns%d", generated)
		generated++
		return prefix
	}
	for _, uri := range sortedKeys(elemURIs) {
		if _, ok := s.elemPrefix[uri]; !ok {
			s.elemPrefix[uri] = generate()
		}
	}
	for _, uri := range sortedKeys(attrURIs) {
		if _, ok := s.attrPrefix[uri]; ok {
			continue
		}
		if prefix, ok := s.elemPrefix[uri]; ok && prefix != "" {
			s.attrPrefix[uri] = prefix
			continue
		}
		s.attrPrefix[uri] = generate()
	}

	seen := make(map[string]bool)
	for uri, prefix := range s.elemPrefix {
		if elemURIs[uri] && !seen[prefix+"="+uri] {
			seen[prefix+"="+uri] = true
			s.decls = append(s.decls, [2]string{prefix, uri})
		}
	}
	for uri, prefix := range s.attrPrefix {
		if attrURIs[uri] && !seen[prefix+"="+uri] {
			seen[prefix+"="+uri] = true
			s.decls = append(s.decls, [2]string{prefix, uri})
		}
	}
	sort.Slice(s.decls, func(i, j int) bool { return s.decls[i][0] < s.decls[j][0] })
	return s
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *serializer) elemName(e *Element) string {
	if e.Space == "" {
		return e.Local
	}
	prefix := s.elemPrefix[e.Space]
	if prefix == "" {
		return e.Local
	}
	return prefix + ":" + e.Local
}

func (s *serializer) attrName(a Attr) string {
	if a.Space == "" {
		return a.Local
	}
	if a.Space == xmlNamespace {
		return "xml:" + a.Local
	}
	return s.attrPrefix[a.Space] + ":" + a.Local
}

func (s *serializer) writeElement(e *Element, isRoot bool) {
	s.sb.WriteByte('<')
	name := s.elemName(e)
	s.sb.WriteString(name)

	if isRoot {
		for _, decl := range s.decls {
			if decl[0] == "" {
				s.sb.WriteString(fmt.Sprintf(" xmlns=%q", decl[1]))
			} else {
				s.sb.WriteString(fmt.Sprintf(" xmlns:%s=%q", decl[0], decl[1]))
			}
		}
	}
	for _, a := range e.Attrs {
		s.sb.WriteString(" " + s.attrName(a) + `="`)
		s.escape(a.Value)
		s.sb.WriteByte('"')
	}

	if e.Text == "" && e.Len() == 0 {
		s.sb.WriteString("/>")
	} else {
		s.sb.WriteByte('>')
		s.escape(e.Text)
		for _, child := range e.Children() {
			s.writeElement(child, false)
			s.escape(child.Tail)
		}
		s.sb.WriteString("</" + name + ">")
	}
}

func (s *serializer) escape(text string) {
	if text == "" {
		return
	}
	_ = xml.EscapeText(&s.sb, []byte(text))
}
