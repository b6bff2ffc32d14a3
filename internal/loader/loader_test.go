package loader

import (
	"strings"
	"testing"

	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/parse"
	"github.com/jacoelho/xmlresource/internal/xmldom"
)

func eagerLoad(t *testing.T, input string) *Loader {
	t.Helper()
	l := New(Config{})
	if err := l.Parse(strings.NewReader(input)); err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	return l
}

func TestParseSharedNsmapIdentity(t *testing.T) {
	input := `<root xmlns="urn:x"><a><b/></a><c xmlns:p="urn:y"><d/></c></root>`
	l := eagerLoad(t, input)

	root := l.Root()
	a := root.Child(0)
	b := a.Child(0)
	c := root.Child(1)
	d := c.Child(0)

	rootMap := l.GetNsmap(root)
	if rootMap == nil {
		t.Fatalf("root nsmap is nil")
	}
	// declaration-free elements share the parent's map object
	if !sameMap(rootMap, l.GetNsmap(a)) {
		t.Fatalf("a does not share root nsmap object")
	}
	if !sameMap(rootMap, l.GetNsmap(b)) {
		t.Fatalf("b does not share root nsmap object")
	}
	if sameMap(rootMap, l.GetNsmap(c)) {
		t.Fatalf("c shares root nsmap object despite declaring xmlns:p")
	}
	if !sameMap(l.GetNsmap(c), l.GetNsmap(d)) {
		t.Fatalf("d does not share c nsmap object")
	}
}

func TestParseVisiblePrefixes(t *testing.T) {
	input := `<root xmlns="urn:x" xmlns:p="urn:p"><child xmlns:p="urn:q" xmlns:r="urn:r"/></root>`
	l := eagerLoad(t, input)

	root := l.Root()
	child := root.Child(0)

	rootMap := l.GetNsmap(root)
	if rootMap[""] != "urn:x" || rootMap["p"] != "urn:p" {
		t.Fatalf("root nsmap = %v", rootMap)
	}
	childMap := l.GetNsmap(child)
	// descendant declarations shadow same-prefix ancestor declarations
	if childMap["p"] != "urn:q" {
		t.Fatalf("child p = %q, want urn:q (shadowed)", childMap["p"])
	}
	if childMap[""] != "urn:x" {
		t.Fatalf("child default = %q, want inherited urn:x", childMap[""])
	}
	if childMap["r"] != "urn:r" {
		t.Fatalf("child r = %q", childMap["r"])
	}
	// the parent map is not polluted by the child's declarations
	if rootMap["p"] != "urn:p" {
		t.Fatalf("root p = %q after child parse, want urn:p", rootMap["p"])
	}
	if _, ok := rootMap["r"]; ok {
		t.Fatalf("root map gained prefix r")
	}
}

func TestParseXmlnsDeclarations(t *testing.T) {
	input := `<root xmlns="urn:x" xmlns:p="urn:p"><plain/><other xmlns:q="urn:q"/></root>`
	l := eagerLoad(t, input)

	root := l.Root()
	decls := l.GetXmlns(root)
	if len(decls) != 2 {
		t.Fatalf("root declarations = %v", decls)
	}
	if decls[0] != (parse.NamespaceDecl{Prefix: "", URI: "urn:x"}) {
		t.Fatalf("first declaration = %+v", decls[0])
	}
	if decls[1] != (parse.NamespaceDecl{Prefix: "p", URI: "urn:p"}) {
		t.Fatalf("second declaration = %+v", decls[1])
	}
	if l.GetXmlns(root.Child(0)) != nil {
		t.Fatalf("plain element has declarations")
	}
	if got := l.GetXmlns(root.Child(1)); len(got) != 1 || got[0].Prefix != "q" {
		t.Fatalf("other declarations = %v", got)
	}
}

func TestParseSiblingScopes(t *testing.T) {
	// consecutive siblings with their own scopes must pop correctly through
	// the deferred end-ns flag.
	input := `<root><a xmlns="urn:a"/><b xmlns="urn:b"/><c/></root>`
	l := eagerLoad(t, input)

	root := l.Root()
	a, b, c := root.Child(0), root.Child(1), root.Child(2)
	if l.GetNsmap(a)[""] != "urn:a" {
		t.Fatalf("a default = %q", l.GetNsmap(a)[""])
	}
	if l.GetNsmap(b)[""] != "urn:b" {
		t.Fatalf("b default = %q", l.GetNsmap(b)[""])
	}
	if _, ok := l.GetNsmap(c)[""]; ok {
		t.Fatalf("c inherited a sibling default namespace")
	}
	if !sameMap(l.GetNsmap(root), l.GetNsmap(c)) {
		t.Fatalf("c does not share root scope")
	}
}

func TestParseErrors(t *testing.T) {
	l := New(Config{})
	err := l.Parse(strings.NewReader("<root><unclosed>"))
	if !reserr.IsParse(err) {
		t.Fatalf("Parse(truncated) = %v, want parse error", err)
	}

	l = New(Config{})
	err = l.Parse(strings.NewReader(""))
	if !reserr.IsParse(err) {
		t.Fatalf("Parse(empty) = %v, want parse error", err)
	}
}

func TestLazyIterparseEvents(t *testing.T) {
	input := `<root><a><b/></a><c/></root>`
	l := New(Config{Lazy: 1})

	var kinds []parse.EventKind
	var names []string
	for ev, err := range l.LazyIterparse(strings.NewReader(input)) {
		if err != nil {
			t.Fatalf("lazy iterparse error = %v", err)
		}
		kinds = append(kinds, ev.Kind)
		names = append(names, ev.Elem.Local)
	}
	wantKinds := []parse.EventKind{
		parse.EventStart, parse.EventStart, parse.EventStart,
		parse.EventEnd, parse.EventEnd, parse.EventStart,
		parse.EventEnd, parse.EventEnd,
	}
	wantNames := []string{"root", "a", "b", "b", "a", "c", "c", "root"}
	for i := range wantKinds {
		if kinds[i] != wantKinds[i] || names[i] != wantNames[i] {
			t.Fatalf("event %d = (%v, %s), want (%v, %s)", i, kinds[i], names[i], wantKinds[i], wantNames[i])
		}
	}
	if l.Root().Local != "root" {
		t.Fatalf("root = %q", l.Root().Local)
	}
}

func TestLazyIterparseReentrancy(t *testing.T) {
	input := `<root><a/><b/></root>`
	l := New(Config{Lazy: 1})

	var reentrantErr error
	count := 0
	for _, err := range l.LazyIterparse(strings.NewReader(input)) {
		if err != nil {
			t.Fatalf("outer iteration error = %v", err)
		}
		count++
		if count == 1 {
			for _, innerErr := range l.LazyIterparse(strings.NewReader(input)) {
				reentrantErr = innerErr
				break
			}
		}
	}
	if reentrantErr == nil {
		t.Fatalf("nested lazy iteration did not fail")
	}
	if !reserr.Is(reentrantErr, reserr.ErrResource) {
		t.Fatalf("nested error = %v, want resource error", reentrantErr)
	}
	if !strings.Contains(reentrantErr.Error(), "already under iteration") {
		t.Fatalf("nested error message = %v", reentrantErr)
	}
}

func TestLazyIterparseReleasesLock(t *testing.T) {
	input := `<root/>`
	l := New(Config{Lazy: 1})
	for range 2 {
		for _, err := range l.LazyIterparse(strings.NewReader(input)) {
			if err != nil {
				t.Fatalf("iteration error = %v", err)
			}
		}
	}
	// breaking out early must release the lock too
	for ev, err := range l.LazyIterparse(strings.NewReader(`<root><a/></root>`)) {
		if err != nil {
			t.Fatalf("iteration error = %v", err)
		}
		_ = ev
		break
	}
	for _, err := range l.LazyIterparse(strings.NewReader(input)) {
		if err != nil {
			t.Fatalf("after break error = %v", err)
		}
	}
}

func TestLazyIterparseParseErrorSurfaces(t *testing.T) {
	l := New(Config{Lazy: 1})
	var last error
	for _, err := range l.LazyIterparse(strings.NewReader("<root><a></root>")) {
		last = err
	}
	if !reserr.IsParse(last) {
		t.Fatalf("lazy malformed error = %v, want parse error", last)
	}
}

func TestClear(t *testing.T) {
	input := `<root xmlns="urn:x"><a xmlns:p="urn:p"><b/></a><c/></root>`
	l := eagerLoad(t, input)

	root := l.Root()
	a := root.Child(0)
	b := a.Child(0)

	l.Clear(a, nil)
	if a.Len() != 0 {
		t.Fatalf("a still has children")
	}
	if l.GetNsmap(b) != nil {
		t.Fatalf("b nsmap survives clear")
	}
	if l.GetNsmap(a) == nil {
		t.Fatalf("a nsmap removed by clearing its own subtree")
	}
	if l.GetXmlns(a) == nil {
		t.Fatalf("a declarations removed by clearing its own subtree")
	}

	// idempotent
	l.Clear(a, nil)
	if a.Len() != 0 || l.GetNsmap(a) == nil {
		t.Fatalf("re-clearing is not a no-op")
	}
}

func TestClearThin(t *testing.T) {
	input := `<root><a><x1/><x2/><target/></a></root>`
	l := New(Config{Lazy: 2, ThinLazy: true})
	var target *xmldom.Element
	var ancestors []*xmldom.Element
	level := 0
	for ev, err := range l.LazyIterparse(strings.NewReader(input)) {
		if err != nil {
			t.Fatalf("iterparse error = %v", err)
		}
		if ev.Kind == parse.EventStart {
			if level < 2 {
				ancestors = append(ancestors, ev.Elem)
			}
			level++
			if ev.Elem.Local == "target" {
				target = ev.Elem
			}
		} else {
			level--
		}
	}
	if target == nil {
		t.Fatalf("target not seen")
	}

	a := l.Root().Child(l.Root().Len() - 1)
	if a.Len() != 3 {
		t.Fatalf("a children before thin clear = %d", a.Len())
	}
	l.Clear(target, ancestors)
	if a.Len() != 1 || a.Child(0) != target {
		t.Fatalf("thin clear kept %d children", a.Len())
	}
	if l.GetNsmap(target) == nil {
		t.Fatalf("target nsmap removed")
	}
}

func TestClearInvalidatesShadowTree(t *testing.T) {
	input := `<root><a/><b/></root>`
	l := eagerLoad(t, input)

	tree := l.XPathTree()
	if got := len(tree.Root.Children()[0].Children()); got != 2 {
		t.Fatalf("shadow children before clear = %d", got)
	}
	l.Clear(l.Root(), nil)
	if got := len(tree.Root.Children()[0].Children()); got != 0 {
		t.Fatalf("shadow children after clear = %d", got)
	}
}

func TestClearElementUnknown(t *testing.T) {
	l := New(Config{})
	adopted := xmldom.NewElement("", "adopted")
	adopted.Append(xmldom.NewElement("", "child"))
	l.ClearElement(adopted)
	if adopted.Len() != 0 {
		t.Fatalf("adopted element not cleared")
	}
}

func TestParentMap(t *testing.T) {
	l := eagerLoad(t, `<root><a><b/></a></root>`)
	pm, err := l.ParentMap()
	if err != nil {
		t.Fatalf("ParentMap = %v", err)
	}
	root := l.Root()
	a := root.Child(0)
	b := a.Child(0)
	if pm[root] != nil || pm[a] != root || pm[b] != a {
		t.Fatalf("parent map = %v", pm)
	}

	lazy := New(Config{Lazy: 1})
	for range lazy.LazyIterparse(strings.NewReader(`<root/>`)) {
		break
	}
	if _, err := lazy.ParentMap(); err == nil {
		t.Fatalf("ParentMap on lazy loader succeeded")
	}
}

func sameMap(a, b map[string]string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	// distinguish object identity: mutate a and observe b.
	const probe = "\x00probe"
	a[probe] = "1"
	_, shared := b[probe]
	delete(a, probe)
	return shared
}
