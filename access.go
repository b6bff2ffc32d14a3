package xmlresource

import (
	"strings"

	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/urlutil"
)

// accessControl enforces the allow mode before any URL is opened.
func (r *Resource) accessControl(url string) error {
	switch {
	case r.opts.allow == AllowAll || url == "":
		return nil
	case r.opts.allow == AllowNone:
		return reserr.NewWithURL(reserr.ErrBlocked, url, "block access to resource")
	case r.opts.allow == AllowRemote:
		if urlutil.IsLocalURL(url) {
			return reserr.NewWithURL(reserr.ErrBlocked, url, "block access to local resource")
		}
		return nil
	case urlutil.IsRemoteURL(url):
		return reserr.NewWithURL(reserr.ErrBlocked, url, "block access to remote resource")
	case r.opts.allow == AllowSandbox:
		if !strings.HasPrefix(url, urlutil.NormalizeURL(r.opts.baseURL, "")) {
			return reserr.NewWithURL(reserr.ErrBlocked, url, "block access to out of sandbox file")
		}
		return nil
	default:
		return nil
	}
}
