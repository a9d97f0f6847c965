// Package ddl renders probed file schemas as a T-SQL script: one CREATE TABLE
// per file followed by a commented BULK INSERT template.
package ddl

import (
	"fmt"
	"io"
	"strings"
	"time"

	"schemagroup/internal/probe"
	"schemagroup/internal/schema"
)

// TimeLayout is the timestamp format used in generated headers.
const TimeLayout = "2006-01-02 15:04:05"

const rule = 60

// Script is one generated DDL file.
type Script struct {
	SourceDir   string
	GeneratedAt time.Time
	Tables      []probe.FileSchema
}

// UniqueTables returns the table name per schema, deduplicated so two files
// with the same stem do not emit the same CREATE TABLE.
func (s Script) UniqueTables() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Table
	}
	return schema.DeduplicateFold(names)
}

// WriteTo writes the whole script.
func (s Script) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "-- Generated DDL Statements\n")
	fmt.Fprintf(&b, "-- Generated on: %s\n", s.GeneratedAt.Format(TimeLayout))
	fmt.Fprintf(&b, "-- Source folder: %s\n", s.SourceDir)
	fmt.Fprintf(&b, "-- %s\n\n", strings.Repeat("=", rule))

	for i, name := range s.UniqueTables() {
		writeTable(&b, name, s.Tables[i])
	}

	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Table renders a single table block under its own name.
func Table(fs probe.FileSchema) string {
	var b strings.Builder
	writeTable(&b, fs.Table, fs)
	return b.String()
}

func writeTable(b *strings.Builder, table string, fs probe.FileSchema) {
	delim := fs.Delimiter.Escaped()

	fmt.Fprintf(b, "-- Table DDL for file: %s\n", table)
	fmt.Fprintf(b, "-- Detected delimiter: '%s'\n", delim)
	fmt.Fprintf(b, "-- Sample rows analyzed: %d\n\n", fs.SampleRows)

	fmt.Fprintf(b, "CREATE TABLE %s (\n", Ident(table))
	for i, c := range fs.Columns {
		b.WriteString(columnDef(c, i < len(fs.Columns)-1))
		b.WriteByte('\n')
	}
	b.WriteString(");\n\n")

	b.WriteString("/*\n-- Sample BULK INSERT statement:\n")
	fmt.Fprintf(b, "BULK INSERT %s\n", Ident(table))
	fmt.Fprintf(b, "FROM 'C:\\path\\to\\your\\file\\%s.txt'\n", table)
	b.WriteString("WITH (\n")
	fmt.Fprintf(b, "    FIELDTERMINATOR = '%s',\n", delim)
	b.WriteString("    ROWTERMINATOR = '\\n',\n")
	b.WriteString("    FIRSTROW = 2,  -- Skip header row\n")
	b.WriteString("    CODEPAGE = '65001'  -- UTF-8\n")
	b.WriteString(");\n*/\n\n")
}

// columnDef renders one column line. The separating comma goes before the
// trailing comment so it is not commented out.
func columnDef(c probe.Column, more bool) string {
	null := "NOT NULL"
	if c.Nullable {
		null = "NULL"
	}
	def := fmt.Sprintf("    %s %s %s", Ident(c.Name), c.Type, null)
	if more {
		def += ","
	}
	if c.Original != c.Name {
		// Keep the comment on one line whatever the header held.
		def += " -- Original: " + strings.NewReplacer("\r", " ", "\n", " ").Replace(c.Original)
	}
	return def
}

// Ident brackets a T-SQL identifier, doubling any closing bracket.
func Ident(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// WriteSummary prints the per-table console summary.
func WriteSummary(w io.Writer, tables []probe.FileSchema) error {
	var b strings.Builder
	b.WriteString("\n" + strings.Repeat("=", rule) + "\n")
	b.WriteString("SCHEMA DETECTION SUMMARY\n")
	b.WriteString(strings.Repeat("=", rule) + "\n")
	for _, t := range tables {
		fmt.Fprintf(&b, "\nTable: %s\n", t.Table)
		fmt.Fprintf(&b, "Columns: %d\n", len(t.Columns))
		fmt.Fprintf(&b, "Delimiter: '%s'\n", t.Delimiter.Escaped())
		b.WriteString("Column Details:\n")
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "  - %s: %s\n", c.Name, c.Type)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
