package textio

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the delimited-text extensions scanned by default.
var DefaultExtensions = []string{".csv", ".tsv", ".txt", ".dat"}

// Discover lists regular files under dir whose extension is in exts
// (case-insensitive). Recursive walks subdirectories; otherwise only dir's
// own entries are listed. Entries come back in directory-walk order.
//
// Unreadable subdirectories are skipped. An unreadable dir is an error.
func Discover(dir string, exts []string, recursive bool) ([]string, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	want := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		want[e] = struct{}{}
	}
	match := func(name string) bool {
		_, ok := want[strings.ToLower(filepath.Ext(name))]
		return ok
	}

	if !recursive {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read dir: %w", err)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Name() < entries[j].Name()
		})
		var out []string
		for _, e := range entries {
			if e.Type().IsRegular() && match(e.Name()) {
				out = append(out, filepath.Join(dir, e.Name()))
			}
		}
		return out, nil
	}

	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && match(d.Name()) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk dir: %w", err)
	}
	return out, nil
}
