package xmlresource

import (
	"sort"

	reserr "github.com/jacoelho/xmlresource/errors"
)

// Subresource creates a Resource rooted at a subelement of a fully
// materialized XML tree, copying the relevant namespace map entries.
func (r *Resource) Subresource(elem *Element) (*Resource, error) {
	if r.IsLazy() {
		return nil, reserr.New(reserr.ErrResource,
			"can't create a subresource from a lazy XML resource")
	}
	if elem == nil {
		return nil, reserr.New(reserr.ErrType, "argument must be an element")
	}
	if !r.Root().Contains(elem) {
		return nil, reserr.Newf(reserr.ErrValue,
			"%s is not an element of the XML resource tree", elem.Tag())
	}

	opts := NewOptions().
		WithBaseURL(r.opts.baseURL).
		WithAllow(r.opts.allow).
		WithDefuse(r.opts.defuse).
		WithTimeout(r.opts.timeout)
	sub, err := New(elem, opts)
	if err != nil {
		return nil, err
	}

	for e := range elem.Iter("*") {
		nsmap := r.loader.GetNsmap(e)
		if nsmap == nil {
			continue
		}
		sub.loader.SetNsmap(e, nsmap)

		if e == elem {
			// the subresource root carries its whole visible scope
			if len(nsmap) > 0 {
				sub.loader.SetXmlns(e, scopeDeclarations(nsmap))
			}
		} else if decls := r.loader.GetXmlns(e); decls != nil {
			sub.loader.SetXmlns(e, decls)
		}
	}
	return sub, nil
}

func scopeDeclarations(nsmap map[string]string) []NamespaceDecl {
	prefixes := make([]string, 0, len(nsmap))
	for prefix := range nsmap {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	decls := make([]NamespaceDecl, 0, len(prefixes))
	for _, prefix := range prefixes {
		decls = append(decls, NamespaceDecl{Prefix: prefix, URI: nsmap[prefix]})
	}
	return decls
}
