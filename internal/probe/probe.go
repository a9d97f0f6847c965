// Package probe analyzes one delimited file at a time.
//
// The probe package is responsible for:
//   - Detecting the delimiter from a short line prefix
//   - Reading a bounded sample of rows
//   - Building a column profile per header field (clean name, type, nullability)
//   - Fingerprinting the header for grouping
//
// Design constraints:
//   - Sampling is bounded by rows, independent of file size.
//   - Inference never fails a file; only I/O, empty input and unreadable
//     headers do, and those come back as *schema.FileError.
package probe

import (
	"errors"
	"fmt"
	"io"

	csvparser "schemagroup/internal/parser/csv"
	"schemagroup/internal/schema"
	"schemagroup/internal/textio"
)

// DefaultSampleRows is the row cap used when Options.SampleRows is zero.
const DefaultSampleRows = 100

// distinctCap bounds the per-column distinct set kept while sampling.
const distinctCap = 1000

// Options control how a file is sampled.
type Options struct {
	// DetectLines is the number of leading lines read for delimiter detection.
	// Zero means schema.DefaultDetectLines.
	DetectLines int

	// SampleRows is the number of data rows read after the header.
	SampleRows int

	// Encoding names the input text encoding; empty means UTF-8.
	Encoding string

	// NullValues overrides the tokens read as null.
	NullValues []string

	// Policy selects the date threshold. The zero value means
	// schema.DetectorPolicy.
	Policy schema.DatePolicy

	// Delimiter skips detection when non-zero.
	Delimiter schema.Delimiter
}

func (o Options) withDefaults() Options {
	if o.DetectLines <= 0 {
		o.DetectLines = schema.DefaultDetectLines
	}
	if o.SampleRows <= 0 {
		o.SampleRows = DefaultSampleRows
	}
	if o.Policy.Window <= 0 {
		o.Policy = schema.DetectorPolicy
	}
	return o
}

// Column is the profile of one header field.
type Column struct {
	// Original is the header text as read (BOM and surrounding space removed).
	Original string
	// Name is the emitted identifier, unique within the file.
	Name string
	// Type is inferred from the sampled non-null values.
	Type schema.TypeTag
	// Nullable is true when any sampled value was null.
	Nullable bool
	// MaxLen is the longest sampled value in runes.
	MaxLen int
	// Distinct counts distinct non-null sampled values, capped.
	Distinct int
	// DistinctCapped reports that Distinct stopped counting.
	DistinctCapped bool
}

// FileSchema is everything learned about one file from its sample.
type FileSchema struct {
	Path        string
	Table       string
	Delimiter   schema.Delimiter
	Header      []string
	Columns     []Column
	SampleRows  int
	SkippedRows int
	Hash        string
	Fingerprint schema.Fingerprint
}

// Names returns the emitted column names in file order.
func (fs FileSchema) Names() []string {
	out := make([]string, len(fs.Columns))
	for i, c := range fs.Columns {
		out[i] = c.Name
	}
	return out
}

// DetectDelimiter reads the first lines of path and picks its delimiter.
// Decode problems shrink the sample instead of failing.
func DetectDelimiter(path string, opt Options) (schema.Delimiter, error) {
	opt = opt.withDefaults()
	rc, err := textio.Open(path, opt.Encoding)
	if err != nil {
		return schema.Comma, schema.NewFileError(path, schema.ErrUnreadableFile, err)
	}
	defer rc.Close()
	return schema.DetectReader(rc, opt.DetectLines), nil
}

// File samples path and returns its schema. Errors are *schema.FileError
// carrying one of the schema error kinds.
func File(path string, opt Options) (FileSchema, error) {
	opt = opt.withDefaults()

	delim := opt.Delimiter
	if delim == 0 {
		d, err := DetectDelimiter(path, opt)
		if err != nil {
			return FileSchema{}, err
		}
		delim = d
	}

	rc, err := textio.Open(path, opt.Encoding)
	if err != nil {
		return FileSchema{}, schema.NewFileError(path, schema.ErrUnreadableFile, err)
	}
	defer rc.Close()

	fs, err := Reader(rc, delim, opt)
	if err != nil {
		var fe *schema.FileError
		if errors.As(err, &fe) {
			fe.Path = path
			return FileSchema{}, fe
		}
		return FileSchema{}, schema.NewFileError(path, nil, err)
	}
	fs.Path = path
	fs.Table = schema.TableNameForFile(path)
	return fs, nil
}

// Reader samples already-decoded text with a known delimiter.
func Reader(r io.Reader, delim schema.Delimiter, opt Options) (FileSchema, error) {
	opt = opt.withDefaults()

	cr, err := csvparser.NewReader(r, csvparser.Options{
		Comma:        delim.Rune(),
		NullValues:   opt.NullValues,
		TrimSpace:    true,
		SkipLongRows: true,
	})
	if errors.Is(err, csvparser.ErrNoHeader) {
		return FileSchema{}, schema.NewFileError("", schema.ErrEmptySample, err)
	}
	if err != nil {
		return FileSchema{}, schema.NewFileError("", schema.ErrSchemaUnreadable, err)
	}

	header := cr.Header()
	if len(header) == 0 {
		return FileSchema{}, schema.NewFileError("", schema.ErrSchemaUnreadable, errors.New("no columns"))
	}

	acc := make([]columnSample, len(header))
	for i := range acc {
		acc[i].distinct = make(map[string]struct{})
	}

	rows := 0
	for rows < opt.SampleRows {
		row, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return FileSchema{}, schema.NewFileError("", schema.ErrUnreadableFile, fmt.Errorf("sample: %w", err))
		}
		for i, v := range row.V {
			acc[i].add(v)
		}
		rows++
	}
	if rows == 0 {
		return FileSchema{}, schema.NewFileError("", schema.ErrEmptySample, errors.New("file has a header but no data rows"))
	}

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = schema.Normalize(h, schema.Column)
	}
	names = schema.DeduplicateFold(names)

	cols := make([]Column, len(header))
	dtypes := make([]string, len(header))
	for i, h := range header {
		typ := schema.InferWith(opt.Policy, acc[i].values, nil)
		cols[i] = Column{
			Original:       h,
			Name:           names[i],
			Type:           typ,
			Nullable:       acc[i].nulls > 0,
			MaxLen:         acc[i].maxLen,
			Distinct:       len(acc[i].distinct),
			DistinctCapped: acc[i].capped,
		}
		dtypes[i] = typ.Signature()
	}

	hash, fp, err := schema.NewFingerprint(header, delim, dtypes)
	if err != nil {
		return FileSchema{}, schema.NewFileError("", schema.ErrSchemaUnreadable, err)
	}

	return FileSchema{
		Delimiter:   delim,
		Header:      header,
		Columns:     cols,
		SampleRows:  rows,
		SkippedRows: cr.Skipped(),
		Hash:        hash,
		Fingerprint: fp,
	}, nil
}

type columnSample struct {
	values   []string
	nulls    int
	maxLen   int
	distinct map[string]struct{}
	capped   bool
}

func (c *columnSample) add(v *string) {
	if v == nil {
		c.nulls++
		return
	}
	c.values = append(c.values, *v)
	if n := len([]rune(*v)); n > c.maxLen {
		c.maxLen = n
	}
	if c.capped {
		return
	}
	if _, ok := c.distinct[*v]; !ok {
		if len(c.distinct) >= distinctCap {
			c.capped = true
			return
		}
		c.distinct[*v] = struct{}{}
	}
}
