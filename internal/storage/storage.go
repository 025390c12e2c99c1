// Package storage exports datasets to relational sinks.
//
// Backends register a constructor per kind at init time; callers open a
// Repository through New without importing driver packages. A kind nobody
// registered fails closed with ErrUnavailable.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnavailable is returned for a storage kind with no registered backend.
var ErrUnavailable = errors.New("storage: capability unavailable")

// Config selects and configures a backend.
type Config struct {
	Kind  string // "sqlite", "postgres", "mssql", "mysql"
	DSN   string
	Table string // optionally schema-qualified, e.g. "public.people"
}

// Repository is the minimal contract a sink implements.
type Repository interface {
	// CopyFrom bulk-inserts rows aligned to columns and reports how many
	// rows were written.
	CopyFrom(ctx context.Context, columns []string, rows [][]any) (int64, error)
	// Exec runs one statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	Close()
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Repository for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: storage kind %q", ErrUnavailable, cfg.Kind)
	}
	return f(ctx, cfg)
}

// Kinds lists the registered kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
