package xmlresource

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	reserr "github.com/jacoelho/xmlresource/errors"
	"github.com/jacoelho/xmlresource/internal/urlutil"
)

// Opener opens a URL and returns its content stream. The default opener
// handles file and http(s) URLs; provide a custom one for other schemes or
// for instrumented transports.
type Opener interface {
	Open(rawURL string, timeout time.Duration) (io.ReadCloser, error)
}

type defaultOpener struct{}

func (defaultOpener) Open(rawURL string, timeout time.Duration) (io.ReadCloser, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, reserr.Wrap(reserr.ErrOS, fmt.Sprintf("can't access resource %q", rawURL), err)
	}

	switch {
	case urlutil.IsLocalScheme(u.Scheme):
		f, err := os.Open(urlutil.LocalPath(rawURL))
		if err != nil {
			return nil, reserr.Wrap(reserr.ErrOS, fmt.Sprintf("can't access resource %q", rawURL), err)
		}
		return f, nil
	case u.Scheme == "http" || u.Scheme == "https":
		client := &http.Client{Timeout: timeout}
		resp, err := client.Get(rawURL)
		if err != nil {
			return nil, reserr.Wrap(reserr.ErrOS, fmt.Sprintf("can't access resource %q", rawURL), err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, reserr.NewWithURL(reserr.ErrOS, rawURL,
				fmt.Sprintf("can't access resource: %s", resp.Status))
		}
		return resp.Body, nil
	default:
		return nil, reserr.NewWithURL(reserr.ErrOS, rawURL,
			fmt.Sprintf("unsupported URL scheme %q", u.Scheme))
	}
}
