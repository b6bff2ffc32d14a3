// Package urlutil provides the URL classification and normalization surface
// consumed by the resource loader. It keeps platform and encoding concerns
// out of the materializer and pruner.
package urlutil

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// remoteSchemes are the URL schemes treated as remote locations.
var remoteSchemes = map[string]bool{
	"http": true, "https": true, "ftp": true, "ftps": true, "sftp": true,
	"rsync": true, "svn": true, "svn+ssh": true, "nfs": true,
	"git": true, "git+ssh": true, "ws": true, "wss": true,
}

// IsURL reports whether the value can be interpreted as a URL or file path.
// A value containing a newline, or starting with optional whitespace followed
// by '<', is XML text, not a URL.
func IsURL(value string) bool {
	if strings.Contains(value, "\n") || strings.HasPrefix(strings.TrimLeft(value, " \t\r"), "<") {
		return false
	}
	_, err := url.Parse(strings.TrimSpace(value))
	return err == nil
}

// IsLocalScheme reports whether the scheme addresses the local filesystem.
// Single ASCII letters are Windows drive letters misread as schemes.
func IsLocalScheme(scheme string) bool {
	if scheme == "" || scheme == "file" {
		return true
	}
	return len(scheme) == 1 && isASCIILetter(scheme[0])
}

// IsRemoteURL reports whether the value is a URL with a remote scheme.
func IsRemoteURL(value string) bool {
	if !IsURL(value) {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return !IsLocalScheme(u.Scheme)
}

// IsLocalURL reports whether the value is a file path or file-scheme URL.
func IsLocalURL(value string) bool {
	if !IsURL(value) {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(value))
	if err != nil {
		return false
	}
	return IsLocalScheme(u.Scheme)
}

// NormalizeURL returns a normalized URL, joining relative paths to baseURL.
// Local paths are converted to file-scheme URLs; relative local paths without
// a usable base are resolved against the working directory.
func NormalizeURL(rawURL, baseURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return rawURL
	}

	u, err := url.Parse(rawURL)
	if err == nil && !IsLocalScheme(u.Scheme) {
		if baseURL != "" {
			if base, baseErr := url.Parse(strings.TrimSpace(baseURL)); baseErr == nil && !IsLocalScheme(base.Scheme) {
				return base.ResolveReference(u).String()
			}
		}
		return u.String()
	}

	p := LocalPath(rawURL)
	if !filepath.IsAbs(p) && baseURL != "" {
		base, baseErr := url.Parse(strings.TrimSpace(baseURL))
		if baseErr == nil && !IsLocalScheme(base.Scheme) {
			joined := *base
			joined.Path = path.Join(base.Path, filepath.ToSlash(p))
			return joined.String()
		}
		p = filepath.Join(LocalPath(baseURL), p)
	}
	if !filepath.IsAbs(p) {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			p = filepath.Join(cwd, p)
		}
	}
	return fileURI(filepath.Clean(p))
}

// NormalizeLocations normalizes a sequence of (namespace, location) hints
// against a base URL, preserving order.
func NormalizeLocations(locations [][2]string, baseURL string) [][2]string {
	normalized := make([][2]string, 0, len(locations))
	for _, hint := range locations {
		normalized = append(normalized, [2]string{hint[0], NormalizeURL(hint[1], baseURL)})
	}
	return normalized
}

// LocalPath extracts the filesystem path from a file URI or plain path.
func LocalPath(value string) string {
	value = strings.TrimSpace(value)
	if u, err := url.Parse(value); err == nil && u.Scheme == "file" {
		// u.Path is already percent-decoded by url.Parse
		p := u.Path
		if u.Host != "" {
			// UNC form file://host/share/...
			p = "//" + u.Host + p
		}
		return filepath.FromSlash(p)
	}
	if unescaped, err := url.PathUnescape(value); err == nil {
		value = unescaped
	}
	return filepath.FromSlash(value)
}

// fileURI converts an absolute filesystem path to a file-scheme URI.
func fileURI(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

func isASCIILetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
