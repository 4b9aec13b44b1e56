// Package mssql implements the store backend for Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"nfa/internal/store"
)

type Repo struct {
	db *sql.DB
}

func init() {
	store.Register("mssql", New)
}

func New(ctx context.Context, cfg store.Config) (store.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(8)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

// EnsureTables creates tables that do not exist yet. SQL Server has no
// CREATE TABLE IF NOT EXISTS, so existence is checked via OBJECT_ID.
func (r *Repo) EnsureTables(ctx context.Context, tables []store.TableSpec) error {
	for _, t := range tables {
		q := fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL %s", t.Name, createSQL(t))
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("mssql: create table %s: %w", t.Name, err)
		}
	}
	return nil
}

func (r *Repo) ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+sqlIdent(table)); err != nil {
		return fmt.Errorf("mssql: clear %s: %w", table, err)
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
		for i := range columns {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", i+1)
		}
		b.WriteString(")")

		stmt, err := tx.PrepareContext(ctx, b.String())
		if err != nil {
			return fmt.Errorf("mssql: prepare insert %s: %w", table, err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return fmt.Errorf("mssql: insert into %s: %w", table, err)
			}
		}
	}

	return tx.Commit()
}

func createSQL(t store.TableSpec) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(sqlIdent(t.Name))
	b.WriteString(" (")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c.Name))
		b.WriteString(" ")
		b.WriteString(msType(c.Type))
	}
	b.WriteString(")")
	return b.String()
}

func msType(t string) string {
	switch t {
	case "integer":
		return "BIGINT"
	case "numeric":
		return "DECIMAL(18,2)"
	case "date":
		return "DATETIME2"
	default:
		return "NVARCHAR(MAX)"
	}
}

func sqlIdent(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}
