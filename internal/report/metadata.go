package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"schemagroup/internal/group"
)

// MetadataPath is the manifest path for an artifact: the artifact path with
// its extension replaced by "_metadata.txt".
func MetadataPath(artifact string) string {
	return strings.TrimSuffix(artifact, filepath.Ext(artifact)) + "_metadata.txt"
}

// WriteMetadata writes the manifest next to a's file and returns its path.
func WriteMetadata(a *group.Artifact, g *group.Group, at time.Time) (string, error) {
	skipped := make(map[string]string, len(a.Skipped))
	for _, s := range a.Skipped {
		skipped[s.Path] = s.Reason
	}

	var b strings.Builder
	b.WriteString("Combined File Metadata\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	fmt.Fprintf(&b, "Generated on: %s\n", at.Format(TimeLayout))
	fmt.Fprintf(&b, "Schema Hash: %s\n", a.Hash)
	fmt.Fprintf(&b, "Output File: %s\n", filepath.Base(a.Path))
	fmt.Fprintf(&b, "Number of source files: %d\n", len(a.Sources))
	fmt.Fprintf(&b, "Delimiter: '%s'\n", g.Schema.Delimiter.Escaped())
	fmt.Fprintf(&b, "Number of columns: %d\n", len(g.Schema.Header))
	fmt.Fprintf(&b, "Number of rows: %d\n\n", a.Rows)

	b.WriteString("Columns:\n")
	for i, c := range g.Schema.Header {
		fmt.Fprintf(&b, "  %2d. %s\n", i+1, c)
	}

	b.WriteString("\nSource Files:\n")
	for i, p := range a.Sources {
		fmt.Fprintf(&b, "  %3d. %s", i+1, filepath.Base(p))
		if reason, ok := skipped[p]; ok {
			fmt.Fprintf(&b, " (skipped: %s)", reason)
		}
		b.WriteByte('\n')
	}

	path := MetadataPath(a.Path)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write metadata %s: %w", path, err)
	}
	return path, nil
}
