package group

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"schemagroup/internal/metrics"
	"schemagroup/internal/output"
	csvparser "schemagroup/internal/parser/csv"
	"schemagroup/internal/run"
	"schemagroup/internal/schema"
	"schemagroup/internal/textio"
)

// Columns appended to every combined row.
const (
	SourceFileColumn = "_source_file"
	SourcePathColumn = "_source_path"
)

// ErrNoReadableMembers is returned when no member of a group could be read
// in full; no artifact is written.
var ErrNoReadableMembers = errors.New("no group member could be read")

// CombineOptions control artifact production.
type CombineOptions struct {
	// MinFiles is the member count a group needs to be combined.
	MinFiles int
	// MaxFiles caps how many members are combined. Zero means all.
	MaxFiles   int
	Format     string
	OutputDir  string
	Encoding   string
	NullValues []string
}

// Skipped is a member left out of an artifact.
type Skipped struct {
	Path   string
	Reason string
}

// Artifact describes one written combined file.
type Artifact struct {
	Hash    string
	Path    string
	Format  string
	Columns []string
	// Sources are the members selected for combination (after MaxFiles).
	Sources []string
	// Combined are the sources whose rows are in the artifact.
	Combined []string
	Skipped  []Skipped
	Rows     int
}

// Eligible reports whether g has enough members to be combined.
func Eligible(g *Group, minFiles int) bool {
	return len(g.Files) >= max(minFiles, 1)
}

// ArtifactName is the base file name of a group's artifact.
func ArtifactName(hash string, files int, ext string) string {
	return fmt.Sprintf("schema_%s_%dfiles%s", schema.ShortHash(hash, 8), files, ext)
}

// Combine concatenates the full contents of g's members under the group's
// representative header, tagging each row with its source. Members that fail
// to read are skipped with a warning and the rest still combine.
func Combine(ctx context.Context, rc *run.Context, g *Group, opt CombineOptions) (*Artifact, error) {
	ext, err := output.Ext(opt.Format)
	if err != nil {
		return nil, err
	}

	sources := g.Files
	if opt.MaxFiles > 0 && len(sources) > opt.MaxFiles {
		sources = sources[:opt.MaxFiles]
	}

	header := g.Schema.Header
	columns := make([]string, 0, len(header)+2)
	columns = append(columns, header...)
	columns = append(columns, SourceFileColumn, SourcePathColumn)

	if err := os.MkdirAll(opt.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}

	art := &Artifact{
		Hash:    g.Hash,
		Path:    filepath.Join(opt.OutputDir, ArtifactName(g.Hash, len(sources), ext)),
		Format:  opt.Format,
		Columns: columns,
		Sources: sources,
	}

	log := rc.Log.With(zap.String("stage", "combine"), zap.String("hash", schema.ShortHash(g.Hash, 8)))
	log.Info("combining", zap.Int("files", len(sources)), zap.String("output", art.Path))

	var w output.Writer
	fail := func(err error) (*Artifact, error) {
		if w != nil {
			_ = w.Close()
			_ = os.Remove(art.Path)
		}
		return nil, err
	}

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		start := time.Now()
		rows, err := readMember(src, g.Schema.Delimiter, header, opt)
		rc.Metrics.File("combine", metrics.Status(err), time.Since(start))
		if err != nil {
			log.Warn("could not read file, skipping", zap.String("file", src), zap.Error(err))
			art.Skipped = append(art.Skipped, Skipped{Path: src, Reason: err.Error()})
			continue
		}

		if w == nil {
			w, err = output.Create(opt.Format, art.Path, columns)
			if err != nil {
				return nil, err
			}
		}
		for _, r := range rows {
			if err := w.WriteRow(r); err != nil {
				return fail(fmt.Errorf("write %s: %w", art.Path, err))
			}
		}
		art.Rows += len(rows)
		art.Combined = append(art.Combined, src)
		rc.Metrics.Rows("combined", len(rows))
	}

	if w == nil {
		return nil, fmt.Errorf("group %s: %w", schema.ShortHash(g.Hash, 8), ErrNoReadableMembers)
	}
	if err := w.Close(); err != nil {
		_ = os.Remove(art.Path)
		return nil, fmt.Errorf("close %s: %w", art.Path, err)
	}

	log.Info("created combined file",
		zap.String("output", art.Path),
		zap.Int("files", len(art.Combined)),
		zap.Int("rows", art.Rows),
	)
	return art, nil
}

// readMember reads one file in full and returns rows aligned to header, with
// the two source columns appended. Rows are buffered so a file that fails
// part way contributes nothing.
func readMember(path string, delim schema.Delimiter, header []string, opt CombineOptions) ([][]*string, error) {
	f, err := textio.Open(path, opt.Encoding)
	if err != nil {
		return nil, schema.NewFileError(path, schema.ErrUnreadableFile, err)
	}
	defer f.Close()

	cr, err := csvparser.NewReader(f, csvparser.Options{Comma: delim.Rune(), NullValues: opt.NullValues})
	if err != nil {
		return nil, schema.NewFileError(path, schema.ErrSchemaUnreadable, err)
	}

	pos, err := alignColumns(header, cr.Header())
	if err != nil {
		return nil, schema.NewFileError(path, schema.ErrSchemaUnreadable, err)
	}

	base := filepath.Base(path)
	n := len(header)
	var rows [][]*string
	for {
		row, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, schema.NewFileError(path, schema.ErrUnreadableFile, err)
		}
		out := make([]*string, n+2)
		for i, v := range row.V {
			out[pos[i]] = v
		}
		out[n] = &base
		out[n+1] = &path
		rows = append(rows, out)
	}
	return rows, nil
}

// alignColumns maps each position of fileHeader to a position in rep by
// comparison key. Repeated keys pair up in order of appearance.
func alignColumns(rep, fileHeader []string) ([]int, error) {
	if len(rep) != len(fileHeader) {
		return nil, fmt.Errorf("column count %d, group has %d", len(fileHeader), len(rep))
	}
	free := make(map[string][]int, len(rep))
	for j, h := range rep {
		k := schema.ComparisonKey(h)
		free[k] = append(free[k], j)
	}
	pos := make([]int, len(fileHeader))
	for i, h := range fileHeader {
		k := schema.ComparisonKey(h)
		slots := free[k]
		if len(slots) == 0 {
			return nil, fmt.Errorf("column %q is not in the group schema", h)
		}
		pos[i] = slots[0]
		free[k] = slots[1:]
	}
	return pos, nil
}
