package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"schemagroup/internal/schema"
	"schemagroup/internal/storage"
)

/*
Repo implements storage.Repository for Postgres.

Rows are loaded with COPY (pgx CopyFrom), so there is no parameter ceiling to
chunk around; the caller's batch size is the only bound.
*/
type Repo struct {
	pool pool
}

// pool is the subset of *pgxpool.Pool used here.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Close()
}

// New creates a Postgres-backed Repo and pings it.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	p, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return &Repo{pool: p}, nil
}

// Close closes the connection pool.
func (r *Repo) Close() {
	r.pool.Close()
}

// ReplaceTable drops and recreates the table, creating its schema first
// when the name is qualified.
func (r *Repo) ReplaceTable(ctx context.Context, t storage.TableSpec) error {
	stmts, err := buildReplaceSQL(t)
	if err != nil {
		return err
	}
	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("postgres: replace table %s: %w", t.Name, err)
		}
	}
	return nil
}

// InsertRows streams rows with COPY.
func (r *Repo) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("InsertRows: columns is empty")
	}
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		return copyValues(rows[i])
	})
	n, err := r.pool.CopyFrom(ctx, tableIdentifier(table), columns, src)
	if err != nil {
		return n, fmt.Errorf("postgres: copy into %s: %w", table, err)
	}
	return n, nil
}

// copyValues maps values COPY cannot encode in binary. Decimals arrive as
// text and become pgtype.Numeric so no digits are lost.
func copyValues(row []any) ([]any, error) {
	out := make([]any, len(row))
	for j, v := range row {
		d, ok := v.(storage.Decimal)
		if !ok {
			out[j] = v
			continue
		}
		var n pgtype.Numeric
		if err := n.Scan(string(d)); err != nil {
			return nil, fmt.Errorf("decimal %q: %w", string(d), err)
		}
		out[j] = n
	}
	return out, nil
}

// CountRows returns the table's row count.
func (r *Repo) CountRows(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+tableIdentifier(table).Sanitize()).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count %s: %w", table, err)
	}
	return n, nil
}

// splitQualifiedName splits "schema.table".
//
// This helper is intentionally conservative: it only handles a single dot.
// If callers pass a more complex expression, we treat it as unqualified.
func splitQualifiedName(name string) (schema string, table string) {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ".")
	if len(parts) != 2 {
		return "", name
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

func tableIdentifier(name string) pgx.Identifier {
	if s, t := splitQualifiedName(name); s != "" {
		return pgx.Identifier{s, t}
	}
	return pgx.Identifier{strings.TrimSpace(name)}
}

func pgIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// buildReplaceSQL returns, in order: optional CREATE SCHEMA, DROP, CREATE.
func buildReplaceSQL(t storage.TableSpec) ([]string, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	var out []string
	if s, _ := splitQualifiedName(t.Name); s != "" {
		out = append(out, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s;`, pgIdent(s)))
	}

	ident := tableIdentifier(t.Name).Sanitize()
	out = append(out, fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, ident))

	defs := make([]string, 0, len(t.Columns)+1)
	defs = append(defs, pgIdent(t.Key())+" INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY")
	for _, c := range t.Columns {
		null := " NOT NULL"
		if c.Nullable {
			null = ""
		}
		defs = append(defs, pgIdent(c.Name)+" "+columnType(c.Type)+null)
	}
	out = append(out, fmt.Sprintf(`CREATE TABLE %s (%s);`, ident, strings.Join(defs, ", ")))
	return out, nil
}

// columnType spells a TypeTag in Postgres. Text lengths above the bounded
// ceiling, and unbounded text, become TEXT.
func columnType(t schema.TypeTag) string {
	switch t.Kind {
	case schema.KindSmallInt:
		return "INTEGER"
	case schema.KindBigInt:
		return "BIGINT"
	case schema.KindDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", t.Precision, t.Scale)
	case schema.KindBoolean:
		return "BOOLEAN"
	case schema.KindDate:
		return "DATE"
	case schema.KindDateTime:
		return "TIMESTAMP"
	default:
		if t.Length == 0 || t.Length > schema.TextMaxBounded {
			return "TEXT"
		}
		return fmt.Sprintf("VARCHAR(%d)", t.Length)
	}
}

var _ storage.Repository = (*Repo)(nil)
