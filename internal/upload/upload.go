// Package upload loads delimited files into database tables, one table per
// file.
//
// Each file is read in full, typed from a bounded sample, written into a
// freshly replaced table in chunks and then verified by a row count.
// Per-file failures are recorded on the run and never stop the batch.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"schemagroup/internal/metrics"
	csvparser "schemagroup/internal/parser/csv"
	"schemagroup/internal/probe"
	"schemagroup/internal/run"
	"schemagroup/internal/schema"
	"schemagroup/internal/storage"
	"schemagroup/internal/textio"
)

// DefaultChunkSize is the number of rows handed to one InsertRows call.
const DefaultChunkSize = 10000

// progressEvery is how often (in files) Run logs progress.
const progressEvery = 10

// Options control an upload run.
type Options struct {
	ChunkSize int
	// MaxFiles caps how many files Run uploads. Zero means all.
	MaxFiles    int
	Encoding    string
	NullValues  []string
	DetectLines int
	// NumericCleanup nulls stray text in mostly numeric columns before
	// typing them.
	NumericCleanup bool
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.DetectLines <= 0 {
		o.DetectLines = schema.DefaultDetectLines
	}
	return o
}

// Result describes one uploaded file.
type Result struct {
	Path    string
	Table   string
	Rows    int
	Columns int
	// Coerced counts values stored as NULL because they did not fit their
	// column, including those nulled by numeric cleanup.
	Coerced  int
	Duration time.Duration
}

// Uploader writes files through one repository. Table names are unique
// across everything a single Uploader writes.
type Uploader struct {
	rc   *run.Context
	repo storage.Repository
	opt  Options

	mu     sync.Mutex
	tables []string
}

// New returns an Uploader writing through repo.
func New(rc *run.Context, repo storage.Repository, opt Options) *Uploader {
	return &Uploader{rc: rc, repo: repo, opt: opt.withDefaults()}
}

// Run uploads paths in order. Failed files are recorded on the run context.
// It returns the successful results and the number of files attempted; only
// ctx cancellation returns an error.
func (u *Uploader) Run(ctx context.Context, paths []string) ([]Result, int, error) {
	if u.opt.MaxFiles > 0 && len(paths) > u.opt.MaxFiles {
		u.rc.Log.Info("file cap applied",
			zap.Int("found", len(paths)),
			zap.Int("max_files", u.opt.MaxFiles),
		)
		paths = paths[:u.opt.MaxFiles]
	}

	var results []Result
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return results, i, err
		}
		if i > 0 && i%progressEvery == 0 {
			u.rc.Log.Info("progress",
				zap.String("stage", "upload"),
				zap.Int("processed", i),
				zap.Int("total", len(paths)),
				zap.Int("succeeded", len(results)),
			)
		}

		res, err := u.File(ctx, p)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return results, i + 1, ctxErr
			}
			u.rc.Fail(p, err)
			continue
		}
		results = append(results, res)
	}

	u.rc.Log.Info("upload complete",
		zap.String("stage", "upload"),
		zap.Int("attempted", len(paths)),
		zap.Int("succeeded", len(results)),
	)
	return results, len(paths), nil
}

// File uploads one file into a table named after it. Errors are
// *schema.FileError.
func (u *Uploader) File(ctx context.Context, path string) (res Result, err error) {
	start := time.Now()
	defer func() {
		u.rc.Metrics.File("upload", metrics.Status(err), time.Since(start))
	}()

	delim, err := probe.DetectDelimiter(path, probe.Options{
		DetectLines: u.opt.DetectLines,
		Encoding:    u.opt.Encoding,
	})
	if err != nil {
		return Result{}, err
	}

	header, rows, err := u.readAll(path, delim)
	if err != nil {
		return Result{}, err
	}
	u.rc.Metrics.Rows("read", len(rows))

	table := u.claimTable(schema.TableNameForFile(path))
	log := u.rc.Log.With(zap.String("file", path), zap.String("table", table))
	log.Info("uploading",
		zap.String("delimiter", delim.Name()),
		zap.Int("rows", len(rows)),
		zap.Int("columns", len(header)),
	)

	spec, coerced := u.plan(table, header, rows)
	if err := u.repo.ReplaceTable(ctx, spec); err != nil {
		return Result{}, schema.NewFileError(path, schema.ErrDestinationWrite, fmt.Errorf("create table %s: %w", table, err))
	}

	n, err := u.insert(ctx, log, spec, rows)
	coerced += n
	if err != nil {
		return Result{}, schema.NewFileError(path, schema.ErrDestinationWrite, err)
	}

	got, err := u.repo.CountRows(ctx, table)
	if err != nil {
		return Result{}, schema.NewFileError(path, schema.ErrDestinationWrite, fmt.Errorf("verify %s: %w", table, err))
	}
	if got != int64(len(rows)) {
		return Result{}, schema.NewFileError(path, schema.ErrDestinationWrite,
			fmt.Errorf("row count mismatch: expected %d, got %d", len(rows), got))
	}

	if coerced > 0 {
		u.rc.Metrics.Rows("nulled", coerced)
		log.Warn("values stored as NULL", zap.Int("count", coerced))
	}
	res = Result{
		Path:     path,
		Table:    table,
		Rows:     len(rows),
		Columns:  len(spec.Columns),
		Coerced:  coerced,
		Duration: time.Since(start),
	}
	log.Info("uploaded", zap.Int("rows", res.Rows), zap.Duration("duration", res.Duration))
	return res, nil
}

// readAll reads every data row. Over-wide rows fail the file.
func (u *Uploader) readAll(path string, delim schema.Delimiter) ([]string, [][]*string, error) {
	rc, err := textio.Open(path, u.opt.Encoding)
	if err != nil {
		return nil, nil, schema.NewFileError(path, schema.ErrUnreadableFile, err)
	}
	defer rc.Close()

	cr, err := csvparser.NewReader(rc, csvparser.Options{
		Comma:      delim.Rune(),
		NullValues: u.opt.NullValues,
		TrimSpace:  true,
	})
	if errors.Is(err, csvparser.ErrNoHeader) {
		return nil, nil, schema.NewFileError(path, schema.ErrEmptySample, err)
	}
	if err != nil {
		return nil, nil, schema.NewFileError(path, schema.ErrUnreadableFile, err)
	}
	header := cr.Header()

	var rows [][]*string
	for {
		row, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, schema.NewFileError(path, schema.ErrUnreadableFile, err)
		}
		rows = append(rows, row.V)
	}
	if len(rows) == 0 {
		return nil, nil, schema.NewFileError(path, schema.ErrEmptySample, errors.New("file has a header but no data rows"))
	}
	return header, rows, nil
}

// claimTable returns name, suffixed if an earlier file already took it.
func (u *Uploader) claimTable(name string) string {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.tables = append(u.tables, name)
	out := schema.DeduplicateFold(u.tables)
	u.tables[len(u.tables)-1] = out[len(out)-1]
	return out[len(out)-1]
}

// plan builds the table for header and rows. Numeric cleanup, when enabled,
// mutates rows and its count is returned.
func (u *Uploader) plan(table string, header []string, rows [][]*string) (storage.TableSpec, int) {
	names := make([]string, 0, len(header)+1)
	names = append(names, storage.DefaultKeyColumn)
	for _, h := range header {
		names = append(names, schema.Normalize(h, schema.Column))
	}
	names = schema.DeduplicateFold(names)[1:]

	cleaned := 0
	cols := make([]storage.ColumnSpec, len(header))
	for j := range header {
		if u.opt.NumericCleanup {
			cleaned += numericCleanup(rows, j)
		}
		cols[j] = storage.ColumnSpec{
			Name:     names[j],
			Type:     columnType(rows, j),
			Nullable: true,
		}
	}
	return storage.TableSpec{Name: table, KeyColumn: storage.DefaultKeyColumn, Columns: cols}, cleaned
}

// columnType infers from the leading values and sizes text columns from the
// whole column.
func columnType(rows [][]*string, j int) schema.TypeTag {
	sample := make([]string, 0, schema.SampleCap)
	for _, r := range rows {
		if r[j] != nil {
			sample = append(sample, *r[j])
			if len(sample) == schema.SampleCap {
				break
			}
		}
	}
	t := schema.InferWith(schema.UploadPolicy, sample, nil)
	if t.Kind != schema.KindText {
		return t
	}
	maxLen := 0
	for _, r := range rows {
		if r[j] != nil {
			if n := len([]rune(*r[j])); n > maxLen {
				maxLen = n
			}
		}
	}
	return schema.TextFor(maxLen)
}

// insert converts and writes rows in chunks, returning how many values it
// stored as NULL.
func (u *Uploader) insert(ctx context.Context, log *zap.Logger, spec storage.TableSpec, rows [][]*string) (int, error) {
	cols := spec.ColumnNames()
	coerced := 0
	written := 0
	for start := 0; start < len(rows); start += u.opt.ChunkSize {
		end := min(start+u.opt.ChunkSize, len(rows))
		batch := make([][]any, 0, end-start)
		for _, r := range rows[start:end] {
			vals := make([]any, len(spec.Columns))
			for j, c := range spec.Columns {
				if r[j] == nil {
					continue
				}
				v, ok := Convert(c.Type, *r[j])
				if !ok {
					coerced++
					continue
				}
				vals[j] = v
			}
			batch = append(batch, vals)
		}

		n, err := u.repo.InsertRows(ctx, spec.Name, cols, batch)
		if err != nil {
			return coerced, fmt.Errorf("insert rows %d-%d into %s: %w", start+1, end, spec.Name, err)
		}
		written += int(n)
		u.rc.Metrics.Batch()
		u.rc.Metrics.Rows("written", int(n))
		log.Info(fmt.Sprintf("Uploaded %d/%d rows", end, len(rows)))
	}
	if written != len(rows) {
		log.Warn("insert reported fewer rows", zap.Int("written", written), zap.Int("expected", len(rows)))
	}
	return coerced, nil
}

// Describe is a one-line summary of r for console output.
func (r Result) Describe() string {
	return strings.Join([]string{r.Table, fmt.Sprintf("%d rows", r.Rows), fmt.Sprintf("%d columns", r.Columns)}, ", ")
}
