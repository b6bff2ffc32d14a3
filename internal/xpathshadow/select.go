package xpathshadow

import (
	"fmt"
	"strings"

	"github.com/antchfx/xpath"

	"github.com/jacoelho/xmlresource/internal/xmldom"
)

// Expr is a compiled XPath expression.
type Expr = xpath.Expr

// CompilePath compiles an XPath expression for shadow-tree selection.
// Prefixed name tests are rewritten to local-name()/namespace-uri()
// predicates using the namespaces map, because the shadow navigator exposes
// namespace URIs rather than source prefixes.
func CompilePath(path string, namespaces map[string]string) (*xpath.Expr, error) {
	rewritten, err := rewritePath(path, namespaces)
	if err != nil {
		return nil, err
	}
	expr, err := xpath.Compile(rewritten)
	if err != nil {
		return nil, fmt.Errorf("invalid XPath expression %q: %w", path, err)
	}
	return expr, nil
}

// Select evaluates a compiled expression over the shadow tree and returns
// the selected elements in document order.
func Select(t *Tree, expr *xpath.Expr) []*xmldom.Element {
	var out []*xmldom.Element
	iter := expr.Select(NewNavigator(t))
	for iter.MoveNext() {
		nav, ok := iter.Current().(*Navigator)
		if !ok {
			continue
		}
		if elem := nav.Element(); elem != nil {
			out = append(out, elem)
		}
	}
	return out
}

// PathDepth computes the static depth of a location path: the number of
// child steps from the document root. "." is depth 0, a leading "/" anchors
// at the root element.
func PathDepth(path string) int {
	path = normalizePath(path)
	switch {
	case path == "." || path == "":
		return 0
	case strings.HasPrefix(path, "/"):
		return strings.Count(path, "/") - 1
	default:
		return strings.Count(path, "/") + 1
	}
}

// SelectsAll reports whether the path selects every element at its depth,
// i.e. consists only of wildcard steps.
func SelectsAll(path string) bool {
	path = normalizePath(path)
	if !strings.Contains(path, "*") {
		return false
	}
	for _, c := range path {
		if c != '*' && c != '/' {
			return false
		}
	}
	return true
}

func normalizePath(path string) string {
	path = strings.ReplaceAll(path, " ", "")
	return strings.ReplaceAll(path, "./", "")
}

// rewritePath replaces prefixed QName steps with wildcard steps constrained
// by local-name() and namespace-uri() predicates.
func rewritePath(path string, namespaces map[string]string) (string, error) {
	var sb strings.Builder
	steps := strings.Split(path, "/")
	for i, step := range steps {
		if i > 0 {
			sb.WriteString("/")
		}
		rewrittenStep, err := rewriteStep(step, namespaces)
		if err != nil {
			return "", err
		}
		sb.WriteString(rewrittenStep)
	}
	return sb.String(), nil
}

func rewriteStep(step string, namespaces map[string]string) (string, error) {
	name := step
	var predicates string
	if i := strings.IndexByte(step, '['); i >= 0 {
		name, predicates = step[:i], step[i:]
	}

	attr := strings.HasPrefix(name, "@")
	if attr {
		name = name[1:]
	}

	colon := strings.IndexByte(name, ':')
	if colon < 0 {
		return step, nil
	}
	prefix, local := name[:colon], name[colon+1:]
	uri, ok := namespaces[prefix]
	if !ok {
		return "", fmt.Errorf("unknown namespace prefix %q in path step %q", prefix, step)
	}

	var sb strings.Builder
	if attr {
		sb.WriteString("@")
	}
	sb.WriteString("*[local-name()='")
	sb.WriteString(local)
	sb.WriteString("' and namespace-uri()='")
	sb.WriteString(uri)
	sb.WriteString("']")
	sb.WriteString(predicates)
	return sb.String(), nil
}
