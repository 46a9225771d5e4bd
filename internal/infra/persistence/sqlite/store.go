// Package sqlite provides a feature request store persisted to an embedded
// SQLite file through the pure Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"featureboard/internal/infra/persistence/memory"
	"featureboard/internal/infra/persistence/sqljournal"
	"featureboard/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.Store = (*Store)(nil)

// DefaultPath is used when no path is configured.
const DefaultPath = "featureboard.db"

// Store serves reads from memory and writes every mutation to SQLite before
// it becomes visible.
type Store struct {
	*memory.Store
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite file at path and hydrates
// the in-memory state from it.
func NewStore(ctx context.Context, path string, engine *domain.RulesEngine, opts ...memory.Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// writers are already serialised by the memory store lock
	db.SetMaxOpenConns(1)

	journal := sqljournal.New(db, sqljournal.SQLite)
	if err := journal.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	records, err := journal.Load(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore(engine, append(opts, memory.WithJournal(journal))...)
	mem.ImportState(records)
	return &Store{Store: mem, db: db, path: path}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
