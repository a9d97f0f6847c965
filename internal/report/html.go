package report

import (
	"html/template"
	"io"
	"path/filepath"
)

var summaryHTML = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Schema Grouping Summary Report</title>
</head>
<body>
<h1>Schema Grouping Summary Report</h1>
<dl class="run">
<dt>Generated on</dt><dd id="generated">{{.Generated}}</dd>
<dt>Run ID</dt><dd id="run-id">{{.RunID}}</dd>
<dt>Source folder</dt><dd id="source">{{.SourceDir}}</dd>
<dt>Output folder</dt><dd id="output">{{.OutputDir}}</dd>
</dl>
<ul class="totals">
<li id="schemas">{{len .Entries}}</li>
<li id="succeeded">{{.Succeeded}}</li>
<li id="failed">{{len .Failures}}</li>
</ul>
<table class="groups">
<thead><tr><th>#</th><th>Schema</th><th>Files</th><th>Columns</th><th>Delimiter</th><th>Column names</th><th>Output</th></tr></thead>
<tbody>
{{- range .Entries}}
<tr><td>{{.Rank}}</td><td class="hash">{{.Hash}}</td><td class="files">{{.Files}}</td><td>{{.Columns}}</td><td>{{.Delimiter}}</td><td class="columns">{{.Preview}}</td><td class="artifact">{{.Output}}</td></tr>
{{- end}}
</tbody>
</table>
{{- if .Failures}}
<table class="failures">
<thead><tr><th>File</th><th>Kind</th><th>Reason</th></tr></thead>
<tbody>
{{- range .Failures}}
<tr><td class="file">{{.File}}</td><td class="kind">{{.Kind}}</td><td class="reason">{{.Reason}}</td></tr>
{{- end}}
</tbody>
</table>
{{- end}}
</body>
</html>
`))

type htmlFailure struct {
	File   string
	Kind   string
	Reason string
}

type htmlView struct {
	Generated string
	RunID     string
	SourceDir string
	OutputDir string
	Entries   []Entry
	Succeeded int
	Failures  []htmlFailure
}

// WriteHTML renders the same content as WriteTo as a standalone page.
// All values are escaped.
func (s Summary) WriteHTML(w io.Writer) error {
	v := htmlView{
		Generated: s.GeneratedAt.Format(TimeLayout),
		RunID:     s.RunID,
		SourceDir: s.SourceDir,
		OutputDir: s.OutputDir,
		Entries:   s.Entries(),
		Succeeded: s.Succeeded(),
	}
	for _, f := range s.Failures {
		v.Failures = append(v.Failures, htmlFailure{File: filepath.Base(f.Path), Kind: f.Kind, Reason: f.Reason})
	}
	return summaryHTML.Execute(w, v)
}
