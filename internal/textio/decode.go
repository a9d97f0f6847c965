// Package textio opens input files as forgiving text streams and discovers
// them on disk.
package textio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when no encoding is configured.
const DefaultEncoding = "utf-8"

// Decoder returns a transformer that turns bytes in the named encoding into
// UTF-8. Invalid input never fails: bad bytes become U+FFFD. A leading BOM is
// honored and stripped for the UTF family.
func Decoder(name string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	}

	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return unicode.BOMOverride(enc.NewDecoder()), nil
}

// LookupEncoding resolves an IANA charset name such as "windows-1252" or
// "ISO-8859-1".
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("textio: unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("textio: encoding %q is not supported", name)
	}
	return enc, nil
}

// NewReader decodes r with the named encoding.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	t, err := Decoder(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, t), nil
}

type decodedFile struct {
	io.Reader
	f *os.File
}

func (d *decodedFile) Close() error { return d.f.Close() }

// Open opens path and returns a decoded reader over it. The caller closes it.
func Open(path, encodingName string) (io.ReadCloser, error) {
	t, err := Decoder(encodingName)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &decodedFile{Reader: transform.NewReader(f, t), f: f}, nil
}
