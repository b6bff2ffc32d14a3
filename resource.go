package xmlresource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"syscall"
	"unicode/utf8"

	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/defuse"
	"github.com/jacoelho/xmlresource/internal/loader"
	"github.com/jacoelho/xmlresource/internal/urlutil"
)

// Resource manages one XML document loaded from a text, byte, path, URL,
// stream or pre-built tree source. Exactly one source form is populated
// after construction.
type Resource struct {
	opts resolvedOptions
	args Options

	source  any
	text    string
	textSet bool
	data    []byte
	fp      io.Reader
	tree    *Element

	url       string
	urlScheme string

	loader *loader.Loader
}

// New creates a Resource from a source, which can be a string containing the
// XML document or a file path or a URL, a byte slice, an io.Reader or a
// pre-built *Element tree.
func New(source any, opts Options) (*Resource, error) {
	resolved, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	r := &Resource{opts: resolved, args: opts, source: source}
	if err := r.normalizeSource(source); err != nil {
		return nil, err
	}

	r.loader = loader.New(loader.Config{
		Lazy:      resolved.lazy,
		ThinLazy:  resolved.thinLazy,
		IterParse: resolved.iterParse,
	})

	if r.tree != nil {
		if resolved.lazy > 0 {
			return nil, reserr.New(reserr.ErrResource,
				"a resource created from an element tree can't be lazy")
		}
		r.loader.SetRoot(r.tree)
		return r, nil
	}

	fp, closeFn, err := r.open()
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	if resolved.lazy > 0 {
		// only the root element is loaded up front
		for _, err := range r.loader.LazyIterparse(fp) {
			if err != nil {
				return nil, err
			}
			break
		}
		if r.loader.Root() == nil {
			return nil, reserr.New(reserr.ErrParse, "no element found")
		}
	} else if err := r.loader.Parse(fp); err != nil {
		return nil, err
	}
	return r, nil
}

// Root returns the XML tree root element, possibly partial for lazy resources.
func (r *Resource) Root() *Element {
	return r.loader.Root()
}

// Namespace returns the namespace of the resource root element.
func (r *Resource) Namespace() string {
	if root := r.Root(); root != nil {
		return root.Space
	}
	return ""
}

// URL returns the resource URL, empty when the source is not URL-addressed.
func (r *Resource) URL() string { return r.url }

// BaseURL returns the configured base URL.
func (r *Resource) BaseURL() string { return r.opts.baseURL }

// Name returns the source name, empty if the resource was created from an
// element or a string.
func (r *Resource) Name() string {
	if r.url == "" {
		return ""
	}
	unescaped, err := url.PathUnescape(r.url)
	if err != nil {
		unescaped = r.url
	}
	return path.Base(unescaped)
}

// Filepath returns the resource filepath if the resource was created from a
// local file, empty otherwise.
func (r *Resource) Filepath() string {
	if r.url != "" && urlutil.IsLocalScheme(r.urlScheme) {
		return urlutil.LocalPath(r.url)
	}
	return ""
}

// LazyDepth returns the depth at which the XML tree is fully loaded during
// iteration, 0 for fully loaded trees.
func (r *Resource) LazyDepth() int { return r.loader.Lazy() }

// IsLazy reports whether the resource materializes lazily.
func (r *Resource) IsLazy() bool { return r.loader.IsLazy() }

// IsThin reports whether the resource is lazy and also prunes consumed
// preceding elements.
func (r *Resource) IsThin() bool { return r.loader.IsThin() }

// IsRemote reports whether the resource relates to remote XML data.
func (r *Resource) IsRemote() bool { return urlutil.IsRemoteURL(r.url) }

// IsLocal reports whether the resource relates to local XML data.
func (r *Resource) IsLocal() bool { return urlutil.IsLocalURL(r.url) }

// IsData reports whether the source argument is in-memory data, that is a
// literal text, a byte buffer or a pre-built tree.
func (r *Resource) IsData() bool {
	return r.url == "" && r.fp == nil
}

// IsLoaded reports whether the XML text of the data source is loaded.
func (r *Resource) IsLoaded() bool { return r.textSet }

// IsDefused reports whether the XML data is defused before parsing.
func (r *Resource) IsDefused() bool {
	switch r.opts.defuse {
	case DefuseAlways:
		return true
	case DefuseRemote:
		return urlutil.IsRemoteURL(r.opts.baseURL)
	case DefuseNonlocal:
		// an unset base URL is not a local location
		return r.opts.baseURL == "" || !urlutil.IsLocalURL(r.opts.baseURL)
	default:
		return false
	}
}

// GetURL resolves a location into a resource URL, applying the URI mapper
// and normalizing against the base URL.
func (r *Resource) GetURL(location string) string {
	uri := strings.TrimSpace(location)
	if r.opts.uriMapper != nil {
		uri = r.opts.uriMapper(uri)
	}
	return urlutil.NormalizeURL(uri, r.opts.baseURL)
}

// MatchLocation reports whether the location resolves to the resource URL.
func (r *Resource) MatchLocation(location string) bool {
	if r.url == "" {
		return false
	}
	return r.url == r.GetURL(location)
}

// Open returns a fresh reader over the XML data, rewound and defused as
// configured. The caller closes the returned reader; closing is a no-op for
// in-memory and caller-owned sources.
func (r *Resource) Open() (io.ReadCloser, error) {
	fp, closeFn, err := r.open()
	if err != nil {
		return nil, err
	}
	return resourceReader{Reader: fp, closeFn: closeFn}, nil
}

type resourceReader struct {
	io.Reader
	closeFn func() error
}

func (r resourceReader) Close() error {
	if r.closeFn == nil {
		return nil
	}
	return r.closeFn()
}

// open resolves the current reader for the resource data. The returned close
// function is non-nil only when this call opened a stream of its own.
func (r *Resource) open() (io.Reader, func() error, error) {
	var fp io.Reader
	var closeFn func() error

	switch {
	case r.fp != nil:
		if s, ok := r.fp.(io.Seeker); ok {
			// pipes and sockets report ESPIPE, read them from the current position
			if _, err := s.Seek(0, io.SeekStart); err != nil && !errors.Is(err, syscall.ESPIPE) {
				return nil, nil, reserr.Wrap(reserr.ErrOS,
					"can't open resource: its reader can't be rewound", err)
			}
		}
		fp = r.fp
	case r.url != "":
		rc, err := r.opts.opener.Open(r.url, r.opts.timeout)
		if err != nil {
			return nil, nil, err
		}
		fp = rc
		closeFn = rc.Close
	case r.textSet:
		fp = strings.NewReader(r.text)
	case r.data != nil:
		fp = bytes.NewReader(r.data)
	default:
		return nil, nil, reserr.New(reserr.ErrResource,
			"can't open resource: its source is an element tree")
	}

	if r.IsDefused() {
		defused, err := defuse.Defuse(fp, true)
		if err != nil {
			if closeFn != nil {
				_ = closeFn()
			}
			if res, ok := reserr.AsResource(err); ok && res.URL == "" && r.url != "" {
				res.URL = r.url
			}
			return nil, nil, err
		}
		fp = defused
	}
	return fp, closeFn, nil
}

// Seek changes the stream position if the resource was created from a
// seekable reader. In the other cases it has no effect.
func (r *Resource) Seek(position int64) (int64, error) {
	if s, ok := r.fp.(io.Seeker); ok {
		return s.Seek(position, io.SeekStart)
	}
	return 0, nil
}

// Close closes the resource reader if the resource was created from a
// closeable reader. In the other cases it has no effect.
func (r *Resource) Close() error {
	if c, ok := r.fp.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Load loads the XML text from the data source into memory. If the source is
// an element tree or already loaded text there is nothing to do. Lazy
// resources can't be loaded.
func (r *Resource) Load() error {
	if r.url == "" && r.fp == nil && r.data == nil {
		return nil
	}
	if r.IsLazy() {
		return reserr.New(reserr.ErrResource, "can't load a lazy XML resource")
	}

	fp, closeFn, err := r.open()
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	data, err := io.ReadAll(fp)
	if err != nil {
		return reserr.Wrap(reserr.ErrOS, "can't read resource data", err)
	}
	r.text = decodeText(data)
	r.textSet = true
	return nil
}

// GetText returns the source text of the XML document, loading it from the
// source when needed. If no source text is available an encoded string
// representation of the XML tree is created.
func (r *Resource) GetText() (string, error) {
	if r.textSet {
		return r.text, nil
	}
	if r.url != "" || r.fp != nil || r.data != nil {
		if err := r.Load(); err != nil {
			return "", err
		}
		if r.textSet {
			return r.text, nil
		}
	}
	return r.ToString(nil, true)
}

// Parse replaces the resource content, parsing another source with the same
// configuration.
func (r *Resource) Parse(source any, lazy int) error {
	other, err := New(source, r.args.WithLazy(lazy))
	if err != nil {
		return err
	}
	*r = *other
	return nil
}

// GetNsmap returns the namespace map of the element, with the full set of
// prefixes visible at it, or nil when the element is unknown. Lazy resources
// keep only the maps of the current materialized subtree.
func (r *Resource) GetNsmap(elem *Element) map[string]string {
	return r.loader.GetNsmap(elem)
}

// GetXmlns returns the namespace declarations made exactly at the element,
// nil when it declares none.
func (r *Resource) GetXmlns(elem *Element) []NamespaceDecl {
	return r.loader.GetXmlns(elem)
}

// ParentMap returns a map from each element to its parent, nil for the root.
// Unavailable on lazy resources.
func (r *Resource) ParentMap() (map[*Element]*Element, error) {
	return r.loader.ParentMap()
}

// String implements fmt.Stringer for diagnostics.
func (r *Resource) String() string {
	if root := r.Root(); root != nil {
		return fmt.Sprintf("Resource(root=%s)", root.Tag())
	}
	return "Resource"
}

// decodeText decodes raw source bytes, falling back from UTF-8 to Latin-1.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
