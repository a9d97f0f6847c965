// Package schema is the schema inference and fingerprinting engine shared by
// the probe, group and upload tools.
//
// It is responsible for:
//   - picking a field delimiter from a bounded line prefix
//   - normalizing column and table names into safe identifiers
//   - inferring a SQL column type from a bounded value sample
//   - fingerprinting a header so files with the same shape group together
//
// Everything here is pure. Callers own file I/O and hand in strings.
package schema

import (
	"errors"
	"fmt"
)

// Error kinds surfaced per file. Every per-file failure wraps exactly one of
// these so callers can classify it with errors.Is.
var (
	ErrUnreadableFile          = errors.New("unreadable file")
	ErrEmptySample             = errors.New("empty sample")
	ErrSchemaUnreadable        = errors.New("schema unreadable")
	ErrDestinationWrite        = errors.New("destination write failure")
	ErrUnsupportedOutputFormat = errors.New("unsupported output format")
)

// FileError attaches a path and an error kind to a per-file failure.
type FileError struct {
	Path string
	Kind error
	Err  error
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Path, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *FileError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewFileError builds a FileError. A nil kind defaults to ErrUnreadableFile.
func NewFileError(path string, kind, err error) *FileError {
	if kind == nil {
		kind = ErrUnreadableFile
	}
	return &FileError{Path: path, Kind: kind, Err: err}
}

// KindOf returns the report name of the error kind carried by err.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptySample):
		return "EmptySample"
	case errors.Is(err, ErrSchemaUnreadable):
		return "SchemaUnreadable"
	case errors.Is(err, ErrDestinationWrite):
		return "DestinationWriteFailure"
	case errors.Is(err, ErrUnsupportedOutputFormat):
		return "UnsupportedOutputFormat"
	default:
		return "UnreadableFile"
	}
}
