package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Fingerprint is the order-independent structural summary of one file.
//
// Two files share a group iff ColumnCount, Names and Delimiter are equal.
// DTypes is kept for diagnostics only and never feeds the hash.
type Fingerprint struct {
	ColumnCount int       `json:"column_count"`
	Names       []string  `json:"normalized_names_sorted"`
	Delimiter   Delimiter `json:"delimiter"`
	DTypes      []string  `json:"dtype_signature"`
}

// NewFingerprint builds the fingerprint of a header and returns it with its
// hash. A header with no columns fails with ErrSchemaUnreadable.
func NewFingerprint(header []string, d Delimiter, dtypes []string) (string, Fingerprint, error) {
	if len(header) == 0 {
		return "", Fingerprint{}, fmt.Errorf("fingerprint: no columns: %w", ErrSchemaUnreadable)
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = ComparisonKey(h)
	}
	slices.Sort(names)

	sig := slices.Clone(dtypes)
	slices.Sort(sig)

	fp := Fingerprint{
		ColumnCount: len(header),
		Names:       names,
		Delimiter:   d,
		DTypes:      sig,
	}
	return fp.Hash(), fp, nil
}

// Canonical is the exact string that is hashed. The names are spelled as a
// Python tuple of str, single-element trailing comma included.
//
//	3|('a', 'b', 'c')|,
//	1|('a',)|,
func (f Fingerprint) Canonical() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(f.ColumnCount))
	b.WriteString("|(")
	for i, n := range f.Names {
		if i > 0 {
			b.WriteString(", ")
		}
		writeStrRepr(&b, n)
	}
	if len(f.Names) == 1 {
		b.WriteByte(',')
	}
	b.WriteString(")|")
	b.WriteString(f.Delimiter.String())
	return b.String()
}

// writeStrRepr writes s the way Python's repr spells a str: single quotes
// unless s holds a single quote and no double quote, with backslash escapes
// for the quote, backslash and control characters.
func writeStrRepr(b *strings.Builder, s string) {
	q := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	b.WriteByte(q)
	for _, r := range s {
		switch {
		case r == rune(q) || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(q)
}

// Hash is the lowercase hex SHA-256 of Canonical.
func (f Fingerprint) Hash() string {
	sum := sha256.Sum256([]byte(f.Canonical()))
	return hex.EncodeToString(sum[:])
}

// Equal compares the hashed fields only.
func (f Fingerprint) Equal(o Fingerprint) bool {
	return f.ColumnCount == o.ColumnCount && f.Delimiter == o.Delimiter && slices.Equal(f.Names, o.Names)
}

// ShortHash returns the first n characters of a hash, or all of it.
func ShortHash(h string, n int) string {
	if n <= 0 || n >= len(h) {
		return h
	}
	return h[:n]
}
