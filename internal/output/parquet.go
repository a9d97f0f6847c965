package output

import (
	"errors"
	"fmt"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"schemagroup/internal/schema"
)

func init() {
	Register("parquet", ".parquet", newParquetWriter)
}

// Every column is an optional UTF8 string; inferred types only describe the
// sample, not every row that gets combined.
const parquetColumnMeta = "name=%s, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"

type parquetWriter struct {
	path string
	fw   source.ParquetFile
	pw   *writer.CSVWriter
	n    int
}

// ParquetColumnNames are the field names used in the parquet schema: emitted
// identifiers, unique within the file ignoring case.
func ParquetColumnNames(columns []string) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = schema.Normalize(c, schema.Column)
	}
	return schema.DeduplicateFold(names)
}

func newParquetWriter(path string, columns []string) (Writer, error) {
	names := ParquetColumnNames(columns)
	meta := make([]string, len(names))
	for i, n := range names {
		meta[i] = fmt.Sprintf(parquetColumnMeta, n)
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	pw, err := writer.NewCSVWriter(meta, fw, 4)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("init parquet writer %s: %w", path, err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	return &parquetWriter{path: path, fw: fw, pw: pw, n: len(columns)}, nil
}

func (p *parquetWriter) WriteRow(values []*string) error {
	rec := make([]*string, p.n)
	copy(rec, values)
	if err := p.pw.WriteString(rec); err != nil {
		return fmt.Errorf("parquet write %s: %w", p.path, err)
	}
	return nil
}

func (p *parquetWriter) Close() error {
	var errs error
	if err := p.pw.WriteStop(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("stop writer %s: %w", p.path, err))
	}
	if err := p.fw.Close(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("close file %s: %w", p.path, err))
	}
	return errs
}
