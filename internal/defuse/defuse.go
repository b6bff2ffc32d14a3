// Package defuse neutralizes entity-expansion attacks by scanning untrusted
// XML with a restricted tokenizer before the real parse.
package defuse

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	reserr "github.com/jacoelho/xmlresource/errors"
)

// Defuse scans fp for forbidden constructs and, when rewind is true, returns
// a reader repositioned at offset 0. Seekable readers are rewound in place;
// non-seekable readers are wrapped in a bounded look-ahead Reader. The scan
// stops at the first element-open token and swallows syntax errors: its job
// is attack detection, not well-formedness checking.
func Defuse(fp io.Reader, rewind bool) (io.Reader, error) {
	if !rewind {
		if err := Scan(fp); err != nil {
			return nil, err
		}
		return fp, nil
	}

	if seeker, ok := fp.(io.Seeker); ok {
		if err := Scan(fp); err != nil {
			return nil, err
		}
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return nil, reserr.Wrap(reserr.ErrOS, "can't rewind after defusing", err)
		}
		return fp, nil
	}

	buffered := NewReader(fp)
	if err := Scan(buffered); err != nil {
		return nil, err
	}
	if _, err := buffered.Seek(0, io.SeekStart); err != nil {
		return nil, reserr.Wrap(reserr.ErrOS, "can't rewind after defusing", err)
	}
	return buffered, nil
}

// Scan runs the restricted forward-only pre-scan on r. Entity declarations,
// unparsed entities and external entity references raise a forbidden error
// instead of being expanded.
func Scan(r io.Reader) error {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			var syntaxErr *xml.SyntaxError
			if errors.As(err, &syntaxErr) {
				return nil
			}
			return reserr.Wrap(reserr.ErrOS, "read error while defusing", err)
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			return nil
		case xml.Directive:
			if err := checkDirective(string(tok)); err != nil {
				return err
			}
		}
	}
}

// checkDirective inspects a DOCTYPE (or other) directive for entity
// declarations. Any entity declaration is forbidden.
func checkDirective(directive string) error {
	i := strings.Index(directive, "<!ENTITY")
	if i < 0 {
		return nil
	}
	decl := directive[i:]
	if j := strings.IndexByte(decl, '>'); j >= 0 {
		decl = decl[:j]
	}
	name := entityName(decl)
	switch {
	case strings.Contains(decl, " NDATA "):
		return reserr.Newf(reserr.ErrForbidden, "unparsed entities are forbidden (entity %q)", name)
	case strings.Contains(decl, "SYSTEM") || strings.Contains(decl, "PUBLIC"):
		return reserr.Newf(reserr.ErrForbidden, "external entity references are forbidden (entity %q)", name)
	default:
		return reserr.Newf(reserr.ErrForbidden, "entities are forbidden (entity %q)", name)
	}
}

func entityName(decl string) string {
	fields := strings.Fields(strings.TrimPrefix(decl, "<!ENTITY"))
	if len(fields) == 0 {
		return ""
	}
	if fields[0] == "%" && len(fields) > 1 {
		return fields[1]
	}
	return strings.TrimPrefix(fields[0], "%")
}
