package schema

import (
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// IdentKind selects the prefix and fallback used by Normalize.
type IdentKind int

const (
	Column IdentKind = iota
	Table
)

// MaxIdentLen is the identifier length ceiling of the target store.
const MaxIdentLen = 128

func (k IdentKind) prefix() string {
	if k == Table {
		return "tbl_"
	}
	return "col_"
}

func (k IdentKind) fallback() string {
	if k == Table {
		return "unknown_table"
	}
	return "unknown_column"
}

// Normalize maps a raw column or file name to a safe identifier.
//
// Steps, in order: non [A-Za-z0-9_] characters become '_', a leading digit
// gets a col_/tbl_ prefix, an empty result becomes unknown_column/unknown_table,
// the result is cut to MaxIdentLen, runs of '_' collapse and outer '_' are
// trimmed. A name that trims down to nothing gets the fallback again.
func Normalize(raw string, kind IdentKind) string {
	raw = strings.TrimSpace(raw)

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if isIdentRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	s := b.String()

	if s != "" && s[0] >= '0' && s[0] <= '9' {
		s = kind.prefix() + s
	}
	if s == "" {
		s = kind.fallback()
	}
	if len(s) > MaxIdentLen {
		s = s[:MaxIdentLen]
	}

	s = collapseUnderscores(s)
	s = strings.Trim(s, "_")
	if s == "" {
		s = kind.fallback()
	}
	return s
}

// TableNameForFile derives a table identifier from a file path's stem.
func TableNameForFile(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return Normalize(stem, Table)
}

// Deduplicate resolves collisions left to right. A repeated name gets _1, _2,
// ... until the candidate is not already taken. Output order matches input.
func Deduplicate(names []string) []string {
	return dedupe(names, func(s string) string { return s })
}

// DeduplicateFold is Deduplicate with case-insensitive collisions, for
// targets whose identifiers ignore case (SQL Server's default collation).
func DeduplicateFold(names []string) []string {
	return dedupe(names, strings.ToLower)
}

func dedupe(names []string, key func(string) string) []string {
	out := make([]string, len(names))
	taken := make(map[string]struct{}, len(names))
	for i, name := range names {
		candidate := name
		for n := 1; ; n++ {
			if _, dup := taken[key(candidate)]; !dup {
				break
			}
			candidate = withSuffix(name, n)
		}
		taken[key(candidate)] = struct{}{}
		out[i] = candidate
	}
	return out
}

// withSuffix appends _n, shortening the base so the result stays within
// MaxIdentLen.
func withSuffix(base string, n int) string {
	suffix := "_" + strconv.Itoa(n)
	if len(base)+len(suffix) > MaxIdentLen && len(suffix) < MaxIdentLen {
		cut := MaxIdentLen - len(suffix)
		for cut > 0 && !utf8.RuneStart(base[cut]) {
			cut--
		}
		base = base[:cut]
	}
	return base + suffix
}

// ComparisonKey is the loose normalization used only for schema equality:
// lowercase, trim, drop anything that is neither a word character nor
// whitespace, then turn whitespace runs into '_'.
func ComparisonKey(name string) string {
	s := strings.TrimSpace(strings.ToLower(name))

	var b strings.Builder
	b.Grow(len(s))
	inSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte('_')
				inSpace = true
			}
		case r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			inSpace = false
		}
	}
	return b.String()
}

func isIdentRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

func collapseUnderscores(s string) string {
	if !strings.Contains(s, "__") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	last := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			if last {
				continue
			}
			last = true
		} else {
			last = false
		}
		b.WriteByte(c)
	}
	return b.String()
}
