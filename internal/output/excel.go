package output

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

func init() {
	Register("excel", ".xlsx", newExcelWriter)
}

// ErrSheetFull is returned once a row would pass the worksheet row limit.
var ErrSheetFull = errors.New("excel: worksheet row limit reached")

const excelSheet = "Sheet1"

type excelWriter struct {
	path string
	f    *excelize.File
	sw   *excelize.StreamWriter
	n    int
	next int // next 1-based row number
}

func newExcelWriter(path string, columns []string) (Writer, error) {
	f := excelize.NewFile()
	sw, err := f.NewStreamWriter(excelSheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("excel stream writer: %w", err)
	}

	hdr := make([]interface{}, len(columns))
	for i, c := range columns {
		hdr[i] = c
	}
	if err := sw.SetRow("A1", hdr); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("excel header: %w", err)
	}
	return &excelWriter{path: path, f: f, sw: sw, n: len(columns), next: 2}, nil
}

func (e *excelWriter) WriteRow(values []*string) error {
	if e.next > excelize.TotalRows {
		return fmt.Errorf("%s: %w (%d rows)", e.path, ErrSheetFull, excelize.TotalRows)
	}
	row := make([]interface{}, e.n)
	for i := 0; i < e.n && i < len(values); i++ {
		if values[i] != nil {
			row[i] = *values[i]
		}
	}
	cell, err := excelize.CoordinatesToCellName(1, e.next)
	if err != nil {
		return err
	}
	if err := e.sw.SetRow(cell, row); err != nil {
		return fmt.Errorf("excel row %d: %w", e.next, err)
	}
	e.next++
	return nil
}

func (e *excelWriter) Close() error {
	var errs error
	if err := e.sw.Flush(); err != nil {
		errs = errors.Join(errs, fmt.Errorf("excel flush: %w", err))
	}
	if errs == nil {
		if err := e.f.SaveAs(e.path); err != nil {
			errs = errors.Join(errs, fmt.Errorf("save %s: %w", e.path, err))
		}
	}
	if err := e.f.Close(); err != nil {
		errs = errors.Join(errs, err)
	}
	return errs
}
