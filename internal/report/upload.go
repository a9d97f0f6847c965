package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"schemagroup/internal/run"
	"schemagroup/internal/upload"
)

// Upload is the upload run report.
type Upload struct {
	RunID       string
	GeneratedAt time.Time
	// Target names the destination, e.g. "host.database". Never a DSN.
	Target   string
	Total    int
	Results  []upload.Result
	Failures []run.Failure
}

// SuccessRate is the percentage of files uploaded, zero when none ran.
func (u Upload) SuccessRate() float64 {
	if u.Total == 0 {
		return 0
	}
	return float64(len(u.Results)) / float64(u.Total) * 100
}

// WriteTo renders the text report.
func (u Upload) WriteTo(w io.Writer) (int64, error) {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	b.WriteString("CSV Upload Report\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Generated on: %s\n", u.GeneratedAt.Format(TimeLayout))
	if u.RunID != "" {
		fmt.Fprintf(&b, "Run ID: %s\n", u.RunID)
	}
	fmt.Fprintf(&b, "Database: %s\n\n", u.Target)

	b.WriteString("Upload Summary:\n")
	fmt.Fprintf(&b, "  Total files processed: %d\n", u.Total)
	fmt.Fprintf(&b, "  Successful uploads: %d\n", len(u.Results))
	fmt.Fprintf(&b, "  Failed uploads: %d\n", len(u.Failures))
	fmt.Fprintf(&b, "  Success rate: %.1f%%\n\n", u.SuccessRate())

	if len(u.Results) > 0 {
		b.WriteString("Successful Uploads:\n")
		b.WriteString(strings.Repeat("-", 50) + "\n")
		for _, r := range u.Results {
			fmt.Fprintf(&b, "File: %s\n", filepath.Base(r.Path))
			fmt.Fprintf(&b, "  Table: %s\n", r.Table)
			b.WriteString(p.Sprintf("  Rows: %d\n", r.Rows))
			fmt.Fprintf(&b, "  Columns: %d\n", r.Columns)
			if r.Coerced > 0 {
				b.WriteString(p.Sprintf("  Values stored as NULL: %d\n", r.Coerced))
			}
			b.WriteByte('\n')
		}
	}

	if len(u.Failures) > 0 {
		b.WriteString("Failed Uploads:\n")
		b.WriteString(strings.Repeat("-", 50) + "\n")
		for _, f := range u.Failures {
			fmt.Fprintf(&b, "File: %s\n", filepath.Base(f.Path))
			fmt.Fprintf(&b, "  Error: %s\n\n", f.Reason)
		}
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// WriteConsole prints the short end-of-run summary.
func (u Upload) WriteConsole(w io.Writer, reportPath, logPath string) error {
	var b strings.Builder
	b.WriteString("\nUpload completed!\n")
	fmt.Fprintf(&b, "Successful: %d/%d files\n", len(u.Results), u.Total)
	fmt.Fprintf(&b, "Success rate: %.1f%%\n", u.SuccessRate())
	if len(u.Failures) > 0 {
		b.WriteString("\nFailed files:\n")
		for _, f := range u.Failures {
			fmt.Fprintf(&b, "  - %s: %s\n", filepath.Base(f.Path), f.Reason)
		}
	}
	fmt.Fprintf(&b, "\nCheck '%s' for detailed results\n", reportPath)
	fmt.Fprintf(&b, "Check '%s' for processing details\n", logPath)
	_, err := io.WriteString(w, b.String())
	return err
}
