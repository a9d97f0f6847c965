// Package report writes the human-readable outputs of a run: the grouping
// summary (text and HTML), per-artifact metadata manifests and the upload
// report.
package report

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"schemagroup/internal/group"
	"schemagroup/internal/run"
	"schemagroup/internal/schema"
)

// TimeLayout is the timestamp format used in every report.
const TimeLayout = "2006-01-02 15:04:05"

// File names written next to the combined artifacts.
const (
	SummaryFile     = "schema_summary_report.txt"
	SummaryHTMLFile = "schema_summary_report.html"
	UploadFile      = "csv_upload_report.txt"
)

const (
	hashPrefix     = 12
	previewColumns = 5
)

// Summary is the run-level grouping report.
type Summary struct {
	RunID       string
	GeneratedAt time.Time
	SourceDir   string
	OutputDir   string
	Groups      []*group.Group
	// Artifacts are keyed by group hash. Groups below the minimum size have
	// none and are still listed.
	Artifacts map[string]*group.Artifact
	Failures  []run.Failure
}

// Entry is one group line in the report, in report order.
type Entry struct {
	Rank      int
	Hash      string
	Files     int
	Columns   int
	Delimiter string
	Preview   string
	Output    string
}

// Entries returns the groups ordered by member count, largest first. Ties
// keep discovery order.
func (s Summary) Entries() []Entry {
	groups := append([]*group.Group(nil), s.Groups...)
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Files) > len(groups[j].Files)
	})

	out := make([]Entry, len(groups))
	for i, g := range groups {
		e := Entry{
			Rank:      i + 1,
			Hash:      schema.ShortHash(g.Hash, hashPrefix),
			Files:     len(g.Files),
			Columns:   len(g.Schema.Header),
			Delimiter: g.Schema.Delimiter.Escaped(),
			Preview:   preview(g.Schema.Header),
		}
		if a, ok := s.Artifacts[g.Hash]; ok && a != nil {
			e.Output = filepath.Base(a.Path)
		}
		out[i] = e
	}
	return out
}

// Succeeded counts files that landed in a group.
func (s Summary) Succeeded() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Files)
	}
	return n
}

func preview(cols []string) string {
	if len(cols) <= previewColumns {
		return strings.Join(cols, ", ")
	}
	return fmt.Sprintf("%s ... (+%d more)", strings.Join(cols[:previewColumns], ", "), len(cols)-previewColumns)
}

// WriteTo renders the text report.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	b.WriteString("Schema Grouping Summary Report\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")
	fmt.Fprintf(&b, "Generated on: %s\n", s.GeneratedAt.Format(TimeLayout))
	if s.RunID != "" {
		fmt.Fprintf(&b, "Run ID: %s\n", s.RunID)
	}
	fmt.Fprintf(&b, "Source folder: %s\n", s.SourceDir)
	fmt.Fprintf(&b, "Output folder: %s\n\n", s.OutputDir)

	b.WriteString("Processing Summary:\n")
	fmt.Fprintf(&b, "  Total unique schemas found: %d\n", len(s.Groups))
	fmt.Fprintf(&b, "  Total files processed successfully: %d\n", s.Succeeded())
	fmt.Fprintf(&b, "  Total files failed: %d\n\n", len(s.Failures))

	b.WriteString("Schema Details:\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, e := range s.Entries() {
		fmt.Fprintf(&b, "\n%2d. Schema %s...\n", e.Rank, e.Hash)
		fmt.Fprintf(&b, "    Files: %d\n", e.Files)
		fmt.Fprintf(&b, "    Columns: %d\n", e.Columns)
		fmt.Fprintf(&b, "    Delimiter: '%s'\n", e.Delimiter)
		fmt.Fprintf(&b, "    Column names: %s\n", e.Preview)
		if e.Output != "" {
			fmt.Fprintf(&b, "    Output: %s\n", e.Output)
		}
	}

	if len(s.Failures) > 0 {
		b.WriteString("\nFailed Files:\n")
		b.WriteString(strings.Repeat("-", 30) + "\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "  %s: %s\n", filepath.Base(f.Path), f.Reason)
		}
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// WriteCombined prints the console list of created artifacts.
func WriteCombined(w io.Writer, arts []*group.Artifact) error {
	var b strings.Builder
	b.WriteString("\nProcessing completed!\n")
	fmt.Fprintf(&b, "Created %d combined files:\n", len(arts))
	for _, a := range arts {
		fmt.Fprintf(&b, "  - %s (Schema: %s...)\n", filepath.Base(a.Path), schema.ShortHash(a.Hash, hashPrefix))
	}
	_, err := io.WriteString(w, b.String())
	return err
}
