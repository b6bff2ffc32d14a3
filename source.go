package xmlresource

import (
	"io"
	"net/url"
	"strings"

	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/urlutil"
)

// URLProvider is implemented by readers that expose the URL they were opened
// from, so access control can vet sources that arrive already open.
type URLProvider interface {
	URL() string
}

// normalizeSource resolves the source argument into exactly one of
// {url, text, data, fp, tree}.
func (r *Resource) normalizeSource(source any) error {
	switch src := source.(type) {
	case string:
		if urlutil.IsURL(src) {
			return r.setURL(src)
		}
		r.text = src
		r.textSet = true
	case []byte:
		if urlutil.IsURL(string(src)) {
			return r.setURL(string(src))
		}
		r.data = src
	case *Element:
		if src == nil {
			return reserr.New(reserr.ErrValue, "source tree has no root element")
		}
		r.tree = src
	case io.Reader:
		r.fp = src
		if p, ok := src.(URLProvider); ok {
			if u := p.URL(); u != "" {
				r.url = u
				r.urlScheme = urlScheme(u)
				return r.accessControl(u)
			}
		}
	case nil:
		return reserr.New(reserr.ErrType, "source argument is nil")
	default:
		return reserr.Newf(reserr.ErrType, "unsupported source type %T", source)
	}
	return nil
}

func (r *Resource) setURL(location string) error {
	r.url = r.GetURL(location)
	r.urlScheme = urlScheme(r.url)
	return r.accessControl(r.url)
}

func urlScheme(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return u.Scheme
}
