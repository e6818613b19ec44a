// Package charset maps the encoding names used in source and output
// configuration to golang.org/x/text encodings.
package charset

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// UTF8 is the canonical name of the default encoding.
const UTF8 = "utf-8"

var encodings = map[string]encoding.Encoding{
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso8859-1":    charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"latin-1":      charmap.ISO8859_1,
	"windows-1252": charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
}

// Lookup returns the encoding registered under name (case-insensitive).
func Lookup(name string) (encoding.Encoding, error) {
	enc, ok := encodings[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unsupported encoding %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return enc, nil
}

// Supported reports whether name is a known encoding.
func Supported(name string) bool {
	_, ok := encodings[normalize(name)]
	return ok
}

// Names returns the registered encoding names in sorted order.
func Names() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewReader wraps r so that it yields UTF-8. A UTF-8 byte order mark is
// stripped whatever the declared encoding.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

// NewWriter wraps w so that UTF-8 text written to it is encoded as name.
// Characters the target charset cannot represent fail the write. Close
// flushes the encoder but does not close w.
func NewWriter(w io.Writer, name string) (io.WriteCloser, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if IsUTF8(name) {
		return nopCloser{w}, nil
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}

// IsUTF8 reports whether name designates UTF-8.
func IsUTF8(name string) bool {
	n := normalize(name)
	return n == "utf-8" || n == "utf8"
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
