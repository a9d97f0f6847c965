package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
)

func init() {
	Register("csv", ".csv", newCSVWriter)
}

type csvWriter struct {
	f   *os.File
	buf *bufio.Writer
	w   *csv.Writer
	row []string
}

func newCSVWriter(path string, columns []string) (Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	buf := bufio.NewWriterSize(f, 1<<20)
	w := csv.NewWriter(buf)
	if err := w.Write(columns); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &csvWriter{f: f, buf: buf, w: w, row: make([]string, len(columns))}, nil
}

func (c *csvWriter) WriteRow(values []*string) error {
	for i := range c.row {
		c.row[i] = ""
		if i < len(values) && values[i] != nil {
			c.row[i] = *values[i]
		}
	}
	return c.w.Write(c.row)
}

func (c *csvWriter) Close() error {
	c.w.Flush()
	err := c.w.Error()
	if ferr := c.buf.Flush(); err == nil {
		err = ferr
	}
	if cerr := c.f.Close(); err == nil {
		err = cerr
	}
	return err
}
