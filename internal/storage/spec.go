package storage

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"schemagroup/internal/schema"
)

// DefaultKeyColumn is the surrogate identity key every created table starts with.
const DefaultKeyColumn = "id"

// TableSpec describes a table to create. Lives here so upload and the
// backends can share it without import cycles.
type TableSpec struct {
	Name string
	// KeyColumn is the identity primary key. Empty means DefaultKeyColumn.
	KeyColumn string
	Columns   []ColumnSpec
}

// ColumnSpec is one data column.
type ColumnSpec struct {
	Name     string
	Type     schema.TypeTag
	Nullable bool
}

// Key returns the surrogate key column name.
func (t TableSpec) Key() string {
	if t.KeyColumn == "" {
		return DefaultKeyColumn
	}
	return t.KeyColumn
}

// ColumnNames returns the data column names in order.
func (t TableSpec) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Validate rejects specs no backend can create: an empty name, no columns,
// or a name repeated (ignoring case, key column included).
func (t TableSpec) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("table name is empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s: no columns", t.Name)
	}
	seen := map[string]bool{strings.ToLower(t.Key()): true}
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("table %s: empty column name", t.Name)
		}
		k := strings.ToLower(c.Name)
		if seen[k] {
			return fmt.Errorf("table %s: duplicate column %q", t.Name, c.Name)
		}
		seen[k] = true
	}
	return nil
}

// Decimal is an exact decimal value in plain notation, already rounded to its
// column's scale. Bound through database/sql it travels as text, which every
// backend converts to its numeric type without going through float64.
type Decimal string

// Value implements driver.Valuer.
func (d Decimal) Value() (driver.Value, error) { return string(d), nil }
