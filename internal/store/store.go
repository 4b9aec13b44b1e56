// Package store persists the analytical tables of a loaded archive so
// other tools (BI, ad-hoc SQL) can read what the question engine reads.
//
// Persistence is snapshot-shaped: loading an archive replaces the
// previous snapshot wholesale. Backends register themselves under a kind
// string from an init() in their own package; importing store/all pulls
// in every backend.
package store

import (
	"context"
	"fmt"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	Kind string // "sqlite", "postgres", "mssql"
	DSN  string
}

// ColumnSpec describes one column of a snapshot table. Type is one of
// "text", "integer", "numeric", "date"; each backend maps it to its own
// native type.
type ColumnSpec struct {
	Name string
	Type string
}

// TableSpec describes one snapshot table.
type TableSpec struct {
	Name    string
	Columns []ColumnSpec
}

// Store is the backend-agnostic persistence interface. Each backend
// implements the semantics in its own idiomatic way (Postgres TRUNCATE,
// SQLite DELETE, etc).
type Store interface {
	// Close releases backend resources. Call once at shutdown.
	Close()

	// EnsureTables creates tables if they do not exist. Idempotent;
	// safe to run on every load.
	EnsureTables(ctx context.Context, tables []TableSpec) error

	// ReplaceRows atomically replaces the full contents of a table.
	ReplaceRows(ctx context.Context, table string, columns []string, rows [][]any) error
}

type factory func(ctx context.Context, cfg Config) (Store, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Call from an init()
// function in the backend package.
//
// Panics on empty kind, nil factory, or duplicate registration: backend
// selection must never be ambiguous.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("store: Register called with empty kind")
	}
	if f == nil {
		panic("store: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("store: factory already registered for kind=%q", kind))
	}

	factories[kind] = f
}

// New constructs a Store using the registered backend factory.
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("store: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("store: unsupported kind=%q", cfg.Kind)
	}
	return f(ctx, cfg)
}
