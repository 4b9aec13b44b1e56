// Package sqlite implements the store backend for SQLite via
// modernc.org/sqlite (no cgo).
//
// SQLite has no native date type; dates are stored as RFC 3339 strings
// for reliable round-trips and easy debugging.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"nfa/internal/store"
)

type Repo struct {
	db *sql.DB
}

func init() {
	store.Register("sqlite", New)
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// A single writer keeps snapshot replacement serial; SQLite locks
	// the whole database on write anyway.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureTables(ctx context.Context, tables []store.TableSpec) error {
	for _, t := range tables {
		if _, err := r.db.ExecContext(ctx, createSQL(t)); err != nil {
			return fmt.Errorf("sqlite: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// ReplaceRows deletes and reinserts inside one transaction so readers
// never observe a half-replaced table.
func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+sqlIdent(table)); err != nil {
		return fmt.Errorf("sqlite: clear %s: %w", table, err)
	}

	if len(rows) > 0 {
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
		b.WriteString(") VALUES (")
		b.WriteString(strings.TrimRight(strings.Repeat("?,", len(columns)), ","))
		b.WriteString(")")

		stmt, err := tx.PrepareContext(ctx, b.String())
		if err != nil {
			return fmt.Errorf("sqlite: prepare insert %s: %w", table, err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, bindRow(row)...); err != nil {
				return fmt.Errorf("sqlite: insert into %s: %w", table, err)
			}
		}
	}

	return tx.Commit()
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
		b.WriteString(sqliteType(c.Type))
	}
	b.WriteString(")")
	return b.String()
}

func sqliteType(t string) string {
	switch t {
	case "integer":
		return "INTEGER"
	case "numeric":
		return "NUMERIC"
	default:
		return "TEXT"
	}
}

func bindRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if ts, ok := v.(time.Time); ok {
			out[i] = ts.Format(time.RFC3339)
			continue
		}
		out[i] = v
	}
	return out
}

func sqlIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
