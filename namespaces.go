package xmlresource

import (
	"iter"
	"strconv"
	"strings"

	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/urlutil"
)

const (
	xmlNamespace = "http://www.w3.org/XML/1998/namespace"
	xsiNamespace = "http://www.w3.org/2001/XMLSchema-instance"
)

// LocationHint is a schema location hint: a namespace paired with a
// location. The namespace is empty for noNamespaceSchemaLocation hints.
type LocationHint struct {
	Namespace string
	Location  string
}

// GetNamespaces extracts namespaces with related prefixes from the XML
// resource. If a duplicate prefix is encountered in a xmlns declaration, and
// it maps to a different namespace, the namespace is added under a generated
// prefix. The empty prefix is kept only if declared at root level, otherwise
// the prefix "default" substitutes it.
//
// The namespaces argument optionally integrates the declarations of the
// resource. With rootOnly only the declarations of the root element are
// extracted, otherwise the whole tree is scanned. On lazy resources with
// malformed data the namespaces accumulated up to the error are returned.
func (r *Resource) GetNamespaces(namespaces map[string]string, rootOnly bool) (map[string]string, error) {
	nsmap, err := namespaceMap(namespaces)
	if err != nil {
		return nil, err
	}

	for elem, iterErr := range r.Iter("") {
		if iterErr != nil {
			if reserr.IsParse(iterErr) {
				return nsmap, nil // a lazy resource with malformed XML data
			}
			return nsmap, iterErr
		}
		if decls := r.loader.GetXmlns(elem); decls != nil {
			updateNamespaces(nsmap, decls, elem == r.loader.Root())
		}
		if rootOnly {
			break
		}
	}
	return nsmap, nil
}

// GetLocations extracts the schema location hints of the XML resource,
// normalized against the base URL. The locations argument is prepended after
// normalization. With rootOnly only the hints of the root element are
// extracted.
func (r *Resource) GetLocations(locations []LocationHint, rootOnly bool) ([]LocationHint, error) {
	hints := make([]LocationHint, 0, len(locations))
	for _, hint := range locations {
		hints = append(hints, LocationHint{
			Namespace: hint.Namespace,
			Location:  urlutil.NormalizeURL(hint.Location, r.opts.baseURL),
		})
	}

	if rootOnly {
		for _, hint := range elementLocationHints(r.Root()) {
			hints = append(hints, LocationHint{
				Namespace: hint.Namespace,
				Location:  urlutil.NormalizeURL(hint.Location, r.opts.baseURL),
			})
		}
		return hints, nil
	}

	for hint, err := range r.IterLocationHints("") {
		if err != nil {
			if reserr.IsParse(err) {
				break // malformed XML data after the first tag
			}
			return hints, err
		}
		hints = append(hints, LocationHint{
			Namespace: hint.Namespace,
			Location:  urlutil.NormalizeURL(hint.Location, r.opts.baseURL),
		})
	}
	return hints, nil
}

// IterLocationHints yields all the schema location hints of the XML
// resource, un-normalized. If tag is not empty or "*", only location hints
// of elements whose tag equals tag are yielded.
func (r *Resource) IterLocationHints(tag string) iter.Seq2[LocationHint, error] {
	return func(yield func(LocationHint, error) bool) {
		for elem, err := range r.Iter(tag) {
			if err != nil {
				yield(LocationHint{}, err)
				return
			}
			for _, hint := range elementLocationHints(elem) {
				if !yield(hint, nil) {
					return
				}
			}
		}
	}
}

// elementLocationHints extracts the schema location hints contained in the
// xsi attributes of an element.
func elementLocationHints(elem *Element) []LocationHint {
	if elem == nil {
		return nil
	}
	var hints []LocationHint
	if value, ok := elem.GetAttrNS(xsiNamespace, "schemaLocation"); ok {
		fields := strings.Fields(value)
		for i := 0; i+1 < len(fields); i += 2 {
			hints = append(hints, LocationHint{Namespace: fields[i], Location: fields[i+1]})
		}
	}
	if value, ok := elem.GetAttrNS(xsiNamespace, "noNamespaceSchemaLocation"); ok {
		for _, location := range strings.Fields(value) {
			hints = append(hints, LocationHint{Location: location})
		}
	}
	return hints
}

// namespaceMap returns a new namespace map seeded with the given entries,
// rejecting a rebinding of the reserved xml prefix.
func namespaceMap(namespaces map[string]string) (map[string]string, error) {
	nsmap := make(map[string]string, len(namespaces))
	for prefix, uri := range namespaces {
		nsmap[prefix] = uri
	}
	if uri, ok := nsmap["xml"]; ok && uri != xmlNamespace {
		return nil, reserr.Newf(reserr.ErrValue,
			"reserved prefix 'xml' can be used only for %q namespace", xmlNamespace)
	}
	return nsmap, nil
}

// updateNamespaces merges xmlns declarations into a namespace map without
// overwriting existing declarations, renaming duplicate prefixes bound to a
// different namespace with an integer suffix.
func updateNamespaces(namespaces map[string]string, xmlns []NamespaceDecl, rootDeclarations bool) {
	for _, decl := range xmlns {
		prefix, uri := decl.Prefix, decl.URI
		if prefix == "" {
			switch existing, ok := namespaces[""]; {
			case uri == "":
				continue
			case !ok && rootDeclarations:
				namespaces[""] = uri
				continue
			case ok && existing == uri:
				continue
			}
			prefix = "default"
		}

		for {
			existing, ok := namespaces[prefix]
			if !ok {
				namespaces[prefix] = uri
				break
			}
			if existing == uri {
				break
			}
			prefix = nextPrefix(prefix)
		}
	}
}

// nextPrefix increments the trailing integer suffix of a prefix, starting
// from 0 when there is none.
func nextPrefix(prefix string) string {
	i := len(prefix)
	for i > 0 && prefix[i-1] >= '0' && prefix[i-1] <= '9' {
		i--
	}
	if i == len(prefix) {
		return prefix + "0"
	}
	n, err := strconv.Atoi(prefix[i:])
	if err != nil {
		return prefix + "0"
	}
	return prefix[:i] + strconv.Itoa(n+1)
}
