package xmlresource

import (
	"time"

	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/parse"
)

// AllowMode defines the security mode for accessing resource locations.
type AllowMode string

const (
	// AllowAll allows any kind of URL.
	AllowAll AllowMode = "all"
	// AllowRemote allows only remote resource URLs.
	AllowRemote AllowMode = "remote"
	// AllowLocal allows only file paths and local URLs.
	AllowLocal AllowMode = "local"
	// AllowSandbox allows only paths under the base URL directory.
	AllowSandbox AllowMode = "sandbox"
	// AllowNone blocks resources from any location.
	AllowNone AllowMode = "none"
)

// DefuseMode defines when XML data is defused before parsing.
type DefuseMode string

const (
	// DefuseAlways defuses all XML data that is not already parsed.
	DefuseAlways DefuseMode = "always"
	// DefuseRemote defuses only remote XML data.
	DefuseRemote DefuseMode = "remote"
	// DefuseNonlocal defuses unparsed data except local files.
	DefuseNonlocal DefuseMode = "nonlocal"
	// DefuseNever disables defusing.
	DefuseNever DefuseMode = "never"
)

// URIMapper rewrites a URI before normalization, for relocated or
// URN-addressed resources. It returns the argument when there is no mapping.
type URIMapper func(uri string) string

const defaultTimeout = 300 * time.Second

type intOption struct {
	value int
	set   bool
}

func (o intOption) resolved() int {
	if !o.set {
		return 0
	}
	return o.value
}

type boolOption struct {
	value bool
	set   bool
}

func (o boolOption) resolved(dflt bool) bool {
	if !o.set {
		return dflt
	}
	return o.value
}

// Options configures resource construction.
type Options struct {
	baseURL   string
	allow     AllowMode
	defuse    DefuseMode
	timeout   time.Duration
	lazy      intOption
	thinLazy  boolOption
	uriMapper URIMapper
	opener    Opener
	iterParse parse.IterParse
	maxDepth  intOption
	maxAttrs  intOption
}

type resolvedOptions struct {
	baseURL   string
	allow     AllowMode
	defuse    DefuseMode
	timeout   time.Duration
	lazy      int
	thinLazy  bool
	uriMapper URIMapper
	opener    Opener
	iterParse parse.IterParse
}

// NewOptions returns a default, valid options value.
func NewOptions() Options {
	return Options{}
}

// Validate validates option values.
func (o Options) Validate() error {
	_, err := o.withDefaults()
	return err
}

// WithBaseURL sets the base URL used for the normalization of relative
// locations. Required by the sandbox allow mode.
func (o Options) WithBaseURL(value string) Options {
	o.baseURL = value
	return o
}

// WithAllow sets the security mode for accessing resource locations.
func (o Options) WithAllow(value AllowMode) Options {
	o.allow = value
	return o
}

// WithDefuse sets when to defuse XML data before parsing.
func (o Options) WithDefuse(value DefuseMode) Options {
	o.defuse = value
	return o
}

// WithTimeout sets the connection timeout for remote resources.
func (o Options) WithTimeout(value time.Duration) Options {
	o.timeout = value
	return o
}

// WithLazy sets the depth at which the resource materializes subtrees during
// iteration. Zero loads the whole document into memory.
func (o Options) WithLazy(value int) Options {
	o.lazy = intOption{value: value, set: true}
	return o
}

// WithThinLazy controls whether lazy iteration also discards the consumed
// preceding elements of ancestors. Enabled by default.
func (o Options) WithThinLazy(value bool) Options {
	o.thinLazy = boolOption{value: value, set: true}
	return o
}

// WithURIMapper sets a function that rewrites URIs before normalization.
func (o Options) WithURIMapper(value URIMapper) Options {
	o.uriMapper = value
	return o
}

// WithURIMap sets a lookup table that rewrites URIs before normalization.
func (o Options) WithURIMap(value map[string]string) Options {
	o.uriMapper = func(uri string) string {
		if mapped, ok := value[uri]; ok {
			return mapped
		}
		return uri
	}
	return o
}

// WithOpener sets the opener used for URL sources.
func (o Options) WithOpener(value Opener) Options {
	o.opener = value
	return o
}

// WithIterParse sets the incremental parser used for building the XML tree.
func (o Options) WithIterParse(value parse.IterParse) Options {
	o.iterParse = value
	return o
}

// WithMaxDepth sets the XML max depth limit of the default parser (0 uses default).
func (o Options) WithMaxDepth(value int) Options {
	o.maxDepth = intOption{value: value, set: true}
	return o
}

// WithMaxAttrs sets the XML max attributes limit of the default parser (0 uses default).
func (o Options) WithMaxAttrs(value int) Options {
	o.maxAttrs = intOption{value: value, set: true}
	return o
}

func (o Options) withDefaults() (resolvedOptions, error) {
	allow := o.allow
	if allow == "" {
		allow = AllowAll
	}
	switch allow {
	case AllowAll, AllowRemote, AllowLocal, AllowSandbox, AllowNone:
	default:
		return resolvedOptions{}, reserr.Newf(reserr.ErrValue, "invalid allow mode %q", allow)
	}

	defuse := o.defuse
	if defuse == "" {
		defuse = DefuseRemote
	}
	switch defuse {
	case DefuseAlways, DefuseRemote, DefuseNonlocal, DefuseNever:
	default:
		return resolvedOptions{}, reserr.Newf(reserr.ErrValue, "invalid defuse mode %q", defuse)
	}

	if allow == AllowSandbox && o.baseURL == "" {
		return resolvedOptions{}, reserr.New(reserr.ErrValue,
			"block access to files out of sandbox requires the base URL to be set")
	}

	timeout := o.timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if timeout < 0 {
		return resolvedOptions{}, reserr.Newf(reserr.ErrValue, "invalid timeout %v", timeout)
	}

	lazy := o.lazy.resolved()
	if lazy < 0 {
		return resolvedOptions{}, reserr.Newf(reserr.ErrValue, "invalid lazy depth %d", lazy)
	}
	maxDepth := o.maxDepth.resolved()
	if maxDepth < 0 {
		return resolvedOptions{}, reserr.Newf(reserr.ErrValue, "invalid max depth %d", maxDepth)
	}
	maxAttrs := o.maxAttrs.resolved()
	if maxAttrs < 0 {
		return resolvedOptions{}, reserr.Newf(reserr.ErrValue, "invalid max attrs %d", maxAttrs)
	}

	iterParse := o.iterParse
	if iterParse == nil {
		if maxDepth != 0 || maxAttrs != 0 {
			iterParse = parse.NewIterParse(parse.Limits{MaxDepth: maxDepth, MaxAttrs: maxAttrs})
		} else {
			iterParse = parse.IterParseDefault
		}
	}

	opener := o.opener
	if opener == nil {
		opener = defaultOpener{}
	}

	return resolvedOptions{
		baseURL:   o.baseURL,
		allow:     allow,
		defuse:    defuse,
		timeout:   timeout,
		lazy:      lazy,
		thinLazy:  o.thinLazy.resolved(true),
		uriMapper: o.uriMapper,
		opener:    opener,
		iterParse: iterParse,
	}, nil
}
