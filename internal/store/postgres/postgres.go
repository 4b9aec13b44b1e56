// Package postgres implements the store backend for PostgreSQL using
// pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"nfa/internal/store"
)

type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	store.Register("postgres", New)
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureTables(ctx context.Context, tables []store.TableSpec) error {
	for _, t := range tables {
		if _, err := r.pool.Exec(ctx, createSQL(t)); err != nil {
			return fmt.Errorf("postgres: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// ReplaceRows truncates and bulk-loads inside one transaction. COPY is
// the fastest path pgx offers for full-table loads.
func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE "+sqlIdent(table)); err != nil {
		return fmt.Errorf("postgres: truncate %s: %w", table, err)
	}

	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("postgres: copy into %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

func createSQL(t store.TableSpec) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(sqlIdent(t.Name))
	b.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(pgType(c.Type))
	}
	b.WriteString(")")
	return b.String()
}

func pgType(t string) string {
	switch t {
	case "integer":
		return "BIGINT"
	case "numeric":
		return "NUMERIC"
	case "date":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

func sqlIdent(s string) string {
	return pgx.Identifier{s}.Sanitize()
}
