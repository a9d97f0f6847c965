// Package output writes combined artifacts in a selectable serialization.
//
// Formats register themselves under a name ("csv", "parquet", "excel") with
// the file extension they produce. Create with an unknown name fails with
// schema.ErrUnsupportedOutputFormat.
package output

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"schemagroup/internal/schema"
)

// Writer receives rows aligned to the columns it was created with.
// A nil value is written as the format's empty/null cell.
type Writer interface {
	WriteRow(values []*string) error
	Close() error
}

// Factory creates a Writer for path with the given header.
type Factory func(path string, columns []string) (Writer, error)

type format struct {
	ext     string
	factory Factory
}

var (
	formatsMu sync.RWMutex
	formats   = map[string]format{}
)

// Register adds a format under name.
//
// Panics:
//   - If name or ext is empty.
//   - If f is nil.
//   - If name is already registered.
func Register(name, ext string, f Factory) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	if name == "" || ext == "" {
		panic("output: Register called with empty name or extension")
	}
	if f == nil {
		panic("output: Register called with nil factory")
	}
	if _, exists := formats[name]; exists {
		panic(fmt.Sprintf("output: format already registered for name=%q", name))
	}
	formats[name] = format{ext: ext, factory: f}
}

func lookup(name string) (format, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	formatsMu.RLock()
	f, ok := formats[key]
	formatsMu.RUnlock()

	if !ok {
		return format{}, fmt.Errorf("output format %q: %w", name, schema.ErrUnsupportedOutputFormat)
	}
	return f, nil
}

// Ext returns the file extension (with dot) for a format.
func Ext(name string) (string, error) {
	f, err := lookup(name)
	if err != nil {
		return "", err
	}
	return f.ext, nil
}

// Create opens a Writer of the named format at path.
func Create(name, path string, columns []string) (Writer, error) {
	f, err := lookup(name)
	if err != nil {
		return nil, err
	}
	return f.factory(path, columns)
}

// Formats lists registered format names, sorted.
func Formats() []string {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	out := make([]string, 0, len(formats))
	for k := range formats {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
