package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"schemagroup/internal/schema"
	"schemagroup/internal/storage"
)

// SQL Server statement ceilings. The hard parameter limit is 2100; we stay
// comfortably below it. A VALUES list takes at most 1000 row constructors.
const (
	maxParams        = 2000
	maxRowsPerInsert = 1000
)

// Repo implements storage.Repository for Microsoft SQL Server.
//
// Each InsertRows call runs in one transaction and is split into multi-row
// INSERT ... VALUES statements sized by the parameter ceiling.
type Repo struct {
	db dbConn
}

// New opens a Repo using database/sql and the "sqlserver" driver.
//
// This method validates connectivity via PingContext.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}

	raw.SetMaxOpenConns(4)
	raw.SetMaxIdleConns(4)

	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Repo{db: &sqlDB{db: raw}}, nil
}

// Close releases database resources held by this repository.
func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

// ReplaceTable drops the table if present and creates it fresh.
func (r *Repo) ReplaceTable(ctx context.Context, t storage.TableSpec) error {
	createSQL, err := buildCreateSQL(t)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, buildDropSQL(t.Name)); err != nil {
		return fmt.Errorf("mssql: drop table %s: %w", t.Name, err)
	}
	if _, err := r.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("mssql: create table %s: %w", t.Name, err)
	}
	return nil
}

// InsertRows inserts rows in parameter-bounded chunks inside one transaction.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if table == "" {
		return 0, fmt.Errorf("InsertRows: table is empty")
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("InsertRows: columns is empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("InsertRows: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for _, part := range storage.Chunks(rows, storage.RowsPerStatement(len(columns), maxParams, maxRowsPerInsert)) {
		q, args := buildBulkInsertSQL(table, columns, part)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, fmt.Errorf("mssql: insert %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("InsertRows: commit: %w", err)
	}
	return total, nil
}

// CountRows returns the table's row count.
func (r *Repo) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT_BIG(*) FROM "+mssqlTableIdent(table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("mssql: count %s: %w", table, err)
	}
	return n, nil
}

// buildDropSQL drops a user table only when it exists.
func buildDropSQL(table string) string {
	ident := mssqlTableIdent(table)
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NOT NULL DROP TABLE %s;",
		strings.ReplaceAll(ident, "'", "''"), ident)
}

// buildCreateSQL builds CREATE TABLE with an INT identity primary key first.
func buildCreateSQL(t storage.TableSpec) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	defs := make([]string, 0, len(t.Columns)+1)
	defs = append(defs, mssqlIdent(t.Key())+" INT IDENTITY(1,1) PRIMARY KEY")
	for _, c := range t.Columns {
		defs = append(defs, mssqlColumnDef(c))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s);", mssqlTableIdent(t.Name), strings.Join(defs, ", ")), nil
}

// mssqlColumnDef builds a SQL Server column definition. The type spelling is
// schema.TypeTag's own, which targets SQL Server.
func mssqlColumnDef(c storage.ColumnSpec) string {
	null := " NOT NULL"
	if c.Nullable {
		null = " NULL"
	}
	return mssqlIdent(c.Name) + " " + columnType(c.Type) + null
}

func columnType(t schema.TypeTag) string {
	return t.String()
}

// buildBulkInsertSQL builds a single INSERT ... VALUES statement for all rows.
func buildBulkInsertSQL(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlTableIdent(table))
	b.WriteString(" (")

	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(fmt.Sprintf("@p%d", p))
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	return b.String(), args
}

// mssqlIdent returns a bracket-quoted identifier, escaping ']' as ']]'.
func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

// mssqlTableIdent returns a bracket-quoted identifier for schema-qualified names.
//
// Example:
//
//	"dbo.imports" -> [dbo].[imports]
func mssqlTableIdent(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = mssqlIdent(strings.TrimSpace(parts[i]))
	}
	return strings.Join(parts, ".")
}

// ---- database/sql seam types ----

// dbConn is a small interface over *sql.DB used to make this package testable.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) rowScanner
	BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error)
	Close() error
}

// txConn is a small interface over *sql.Tx.
type txConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

// rowScanner is a narrow adapter over *sql.Row.Scan.
type rowScanner interface {
	Scan(dest ...any) error
}

// sqlDB wraps *sql.DB to implement dbConn.
type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlDB) QueryRowContext(ctx context.Context, query string, args ...any) rowScanner {
	return s.db.QueryRowContext(ctx, query, args...)
}

func (s *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error) {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *sqlDB) Close() error { return s.db.Close() }

// compile-time sanity checks (no runtime cost).
var (
	_ dbConn             = (*sqlDB)(nil)
	_ txConn             = (*sql.Tx)(nil)
	_ storage.Repository = (*Repo)(nil)
)
