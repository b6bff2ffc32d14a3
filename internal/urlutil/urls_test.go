package urlutil

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestIsURL(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"plain path", "schemas/sample.xsd", true},
		{"absolute path", "/tmp/project/sample.xml", true},
		{"http url", "http://example.com/sample.xml", true},
		{"xml text", "<root/>", false},
		{"xml text with leading space", "  <root/>", false},
		{"multiline text", "first\nsecond", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsURL(tt.value); got != tt.want {
				t.Fatalf("IsURL(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestIsRemoteAndLocalURL(t *testing.T) {
	tests := []struct {
		value  string
		remote bool
		local  bool
	}{
		{"http://example.com/doc.xml", true, false},
		{"https://example.com/doc.xml", true, false},
		{"ftp://example.com/doc.xml", true, false},
		{"file:///tmp/doc.xml", false, true},
		{"/tmp/doc.xml", false, true},
		{"doc.xml", false, true},
		{"<doc/>", false, false},
	}
	for _, tt := range tests {
		if got := IsRemoteURL(tt.value); got != tt.remote {
			t.Fatalf("IsRemoteURL(%q) = %v, want %v", tt.value, got, tt.remote)
		}
		if got := IsLocalURL(tt.value); got != tt.local {
			t.Fatalf("IsLocalURL(%q) = %v, want %v", tt.value, got, tt.local)
		}
	}
}

func TestNormalizeURLRemote(t *testing.T) {
	got := NormalizeURL("sample.xml", "http://example.com/schemas/")
	if got != "http://example.com/schemas/sample.xml" {
		t.Fatalf("NormalizeURL remote join = %q", got)
	}
	got = NormalizeURL("http://example.com/doc.xml", "http://other.com/")
	if got != "http://example.com/doc.xml" {
		t.Fatalf("NormalizeURL absolute remote = %q", got)
	}
}

func TestNormalizeURLLocal(t *testing.T) {
	got := NormalizeURL("/tmp/project/doc.xml", "")
	if got != "file:///tmp/project/doc.xml" {
		t.Fatalf("NormalizeURL absolute path = %q", got)
	}

	got = NormalizeURL("doc.xml", "/tmp/project")
	want := "file://" + filepath.ToSlash(filepath.Join("/tmp/project", "doc.xml"))
	if got != want {
		t.Fatalf("NormalizeURL relative with base = %q, want %q", got, want)
	}

	got = NormalizeURL("doc.xml", "")
	if !strings.HasPrefix(got, "file:///") || !strings.HasSuffix(got, "/doc.xml") {
		t.Fatalf("NormalizeURL relative without base = %q", got)
	}
}

func TestNormalizeURLSandboxPrefix(t *testing.T) {
	base := NormalizeURL("/tmp/project", "")
	inside := NormalizeURL("/tmp/project/data/doc.xml", "")
	outside := NormalizeURL("/etc/passwd", "")

	if !strings.HasPrefix(inside, base) {
		t.Fatalf("inside = %q does not start with base %q", inside, base)
	}
	if strings.HasPrefix(outside, base) {
		t.Fatalf("outside = %q unexpectedly starts with base %q", outside, base)
	}
}

func TestNormalizeLocations(t *testing.T) {
	locations := [][2]string{
		{"urn:a", "/tmp/a.xsd"},
		{"urn:b", "b.xsd"},
	}
	got := NormalizeLocations(locations, "/tmp/project")
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0][1] != "file:///tmp/a.xsd" {
		t.Fatalf("first = %q", got[0][1])
	}
	if got[1][1] != "file:///tmp/project/b.xsd" {
		t.Fatalf("second = %q", got[1][1])
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"file uri", "file:///tmp/doc.xml", "/tmp/doc.xml"},
		{"file uri with escape", "file:///tmp/a%20b.xml", "/tmp/a b.xml"},
		{"file uri decoded once", "file:///tmp/a%2520b.xml", "/tmp/a%20b.xml"},
		{"plain path", "/tmp/doc.xml", "/tmp/doc.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := filepath.FromSlash(tt.want)
			if got := LocalPath(tt.value); got != want {
				t.Fatalf("LocalPath(%q) = %q, want %q", tt.value, got, want)
			}
		})
	}
}
