// Package csv reads delimited text into header-aligned rows.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultNullValues are the tokens read as null.
var DefaultNullValues = []string{"", "NULL", "null", "N/A", "n/a", "None", "none"}

// ErrNoHeader is returned when the input has no header record at all.
var ErrNoHeader = errors.New("csv: no header record")

// Options controls how records are read.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// NullValues are matched after trimming. Nil means DefaultNullValues.
	NullValues []string

	// TrimSpace trims every header name and field.
	TrimSpace bool

	// SkipLongRows skips rows with more fields than the header instead of
	// failing with a *RowError. Skipped rows are counted by Reader.Skipped.
	SkipLongRows bool
}

// Row is one data record aligned to the header. A nil entry is a null.
type Row struct {
	Line int
	V    []*string
}

// RowError reports a record wider than the header.
type RowError struct {
	Line int
	Want int
	Got  int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: expected %d fields, got %d", e.Line, e.Want, e.Got)
}

// Reader yields rows after consuming the header.
type Reader struct {
	cr      *csv.Reader
	opt     Options
	header  []string
	nulls   map[string]struct{}
	skipped int
}

// NewReader reads the header from r. Input with no records at all returns
// ErrNoHeader; a malformed header returns the parse error.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	if opt.Comma == 0 {
		opt.Comma = ','
	}
	nv := opt.NullValues
	if nv == nil {
		nv = DefaultNullValues
	}
	nulls := make(map[string]struct{}, len(nv))
	for _, v := range nv {
		nulls[v] = struct{}{}
	}

	cr := csv.NewReader(r)
	cr.Comma = opt.Comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	header := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if opt.TrimSpace {
			h = strings.TrimSpace(h)
		}
		header[i] = h
	}

	return &Reader{cr: cr, opt: opt, header: header, nulls: nulls}, nil
}

// Header returns the header names in file order.
func (r *Reader) Header() []string { return r.header }

// Skipped is how many over-wide rows were dropped with SkipLongRows.
func (r *Reader) Skipped() int { return r.skipped }

// Next returns the next row, or io.EOF after the last one. Short rows are
// padded with nulls.
func (r *Reader) Next() (Row, error) {
	for {
		rec, err := r.cr.Read()
		if err != nil {
			return Row{}, err
		}
		line, _ := r.cr.FieldPos(0)

		if len(rec) > len(r.header) {
			if r.opt.SkipLongRows {
				r.skipped++
				continue
			}
			return Row{}, &RowError{Line: line, Want: len(r.header), Got: len(rec)}
		}

		row := Row{Line: line, V: make([]*string, len(r.header))}
		for i, v := range rec {
			if r.opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			if _, isNull := r.nulls[strings.TrimSpace(v)]; isNull {
				continue
			}
			v := v
			row.V[i] = &v
		}
		return row, nil
	}
}

// StreamRows calls fn for every row in src until EOF, ctx cancellation or the
// first error from the reader or fn.
func StreamRows(ctx context.Context, src io.Reader, opt Options, onHeader func([]string) error, fn func(Row) error) error {
	r, err := NewReader(src, opt)
	if err != nil {
		return err
	}
	if onHeader != nil {
		if err := onHeader(r.Header()); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// Deref returns the value or "" for null.
func Deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
