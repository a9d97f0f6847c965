package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"schemagroup/internal/schema"
	"schemagroup/internal/storage"
)

// maxParams is SQLite's historical SQLITE_MAX_VARIABLE_NUMBER. Newer builds
// allow more; staying at the old ceiling works everywhere.
const maxParams = 999

// Repo implements storage.Repository for SQLite.
//
// Key design points vs Postgres:
//   - SQLite has no native DATE/TIMESTAMP storage class. time.Time values are
//     stored as RFC3339Nano TEXT for reliable round-trip behavior.
//   - Declared types only set column affinity; they are chosen so numeric
//     columns get INTEGER/NUMERIC affinity.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("sqlite", New)
}

// New opens dsn with the pure-Go modernc driver.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// ReplaceTable drops and recreates the table in one transaction.
func (r *Repo) ReplaceTable(ctx context.Context, t storage.TableSpec) error {
	createSQL, err := buildCreateSQL(t)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+sqlIdent(t.Name)); err != nil {
		return fmt.Errorf("drop table %s: %w", t.Name, err)
	}
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}
	return tx.Commit()
}

// InsertRows inserts rows with multi-row INSERTs inside one transaction.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("InsertRows: columns is empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for _, part := range storage.Chunks(rows, storage.RowsPerStatement(len(columns), maxParams, 0)) {
		q, args := buildInsertSQL(table, columns, part)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

// CountRows returns the table's row count.
func (r *Repo) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+sqlIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func sqlIdent(id string) string {
	// SQLite supports "quoted identifiers"
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func buildCreateSQL(t storage.TableSpec) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	defs := make([]string, 0, len(t.Columns)+1)
	defs = append(defs, sqlIdent(t.Key())+" INTEGER PRIMARY KEY AUTOINCREMENT")
	for _, c := range t.Columns {
		def := sqlIdent(c.Name) + " " + columnType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", sqlIdent(t.Name), strings.Join(defs, ", ")), nil
}

func columnType(t schema.TypeTag) string {
	switch t.Kind {
	case schema.KindSmallInt, schema.KindBigInt, schema.KindBoolean:
		return "INTEGER"
	case schema.KindDecimal:
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

func buildInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	args := make([]any, 0, len(rows)*len(columns))
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(row)
		for _, v := range r[:len(columns)] {
			args = append(args, bindValue(v))
		}
	}
	return b.String(), args
}

// bindValue stores times as text; everything else binds as is.
func bindValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return formatSQLiteTime(t)
	}
	return v
}

// formatSQLiteTime formats a time as RFC3339Nano in UTC.
func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

var _ storage.Repository = (*Repo)(nil)
