package schema

import (
	"bufio"
	"io"
	"strings"
)

// Delimiter is a field separator from a fixed candidate set.
type Delimiter rune

const (
	Comma     Delimiter = ','
	Tab       Delimiter = '\t'
	Pipe      Delimiter = '|'
	Semicolon Delimiter = ';'
	Colon     Delimiter = ':'
)

// Candidates lists the delimiters in tie-break order.
var Candidates = []Delimiter{Comma, Tab, Pipe, Semicolon, Colon}

// DefaultDetectLines bounds how many raw lines DetectReader reads.
const DefaultDetectLines = 5

// MaxDetectLineBytes bounds the bytes DetectReader reads per requested line,
// so input without line breaks is never read in full.
const MaxDetectLineBytes = 64 << 10

// consideredLines is how many non-empty lines take part in the vote.
const consideredLines = 2

// Rune returns the delimiter as a rune for encoding/csv.
func (d Delimiter) Rune() rune { return rune(d) }

// String returns the delimiter character itself.
func (d Delimiter) String() string { return string(rune(d)) }

// Escaped is the delimiter as written inside quoted report and SQL text.
// Tab is spelled as the two-character escape.
func (d Delimiter) Escaped() string {
	if d == Tab {
		return `\t`
	}
	return d.String()
}

// Name is a human readable name used in logs.
func (d Delimiter) Name() string {
	switch d {
	case Comma:
		return "comma"
	case Tab:
		return "tab"
	case Pipe:
		return "pipe"
	case Semicolon:
		return "semicolon"
	case Colon:
		return "colon"
	default:
		return "unknown"
	}
}

// ParseDelimiter accepts either the character or its name.
func ParseDelimiter(s string) (Delimiter, bool) {
	switch strings.ToLower(s) {
	case ",", "comma":
		return Comma, true
	case "\t", "tab", `\t`:
		return Tab, true
	case "|", "pipe":
		return Pipe, true
	case ";", "semicolon":
		return Semicolon, true
	case ":", "colon":
		return Colon, true
	}
	return Comma, false
}

// Detect picks the field separator for sample lines.
//
// Only the first two non-empty lines vote, and fewer than two means Comma. A
// candidate qualifies when it occurs in both voting lines. The qualifying
// candidate with the highest total count wins and ties go to the earlier entry
// in Candidates. With no qualifier the result is Comma.
func Detect(lines []string) Delimiter {
	voting := make([]string, 0, consideredLines)
	for _, l := range lines {
		l = strings.TrimRight(l, "\r\n")
		if strings.TrimSpace(l) == "" {
			continue
		}
		voting = append(voting, l)
		if len(voting) == consideredLines {
			break
		}
	}
	if len(voting) < consideredLines {
		return Comma
	}

	best, bestCount := Comma, 0
	for _, d := range Candidates {
		total := 0
		qualifies := true
		for _, l := range voting {
			n := strings.Count(l, d.String())
			if n == 0 {
				qualifies = false
				break
			}
			total += n
		}
		if qualifies && total > bestCount {
			best, bestCount = d, total
		}
	}
	return best
}

// DetectReader reads at most maxLines lines, and at most maxLines times
// MaxDetectLineBytes bytes, from r and runs Detect on them. Read errors end
// the sample early; they never surface.
func DetectReader(r io.Reader, maxLines int) Delimiter {
	if maxLines <= 0 {
		maxLines = DefaultDetectLines
	}
	br := bufio.NewReader(io.LimitReader(r, int64(maxLines)*MaxDetectLineBytes))
	lines := make([]string, 0, maxLines)
	for len(lines) < maxLines {
		line, err := br.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			break
		}
	}
	if len(lines) > 0 {
		lines[0] = strings.TrimPrefix(lines[0], "\uFEFF")
	}
	return Detect(lines)
}
