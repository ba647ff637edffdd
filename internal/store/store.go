package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/beaconctl/internal/governance"
)

//go:embed schema.sql
var schemaSQL string

// Store is the SQLite-backed governance.StateStore and EventSink.
// Uses WAL mode for concurrent read access; a single connection avoids
// SQLITE_BUSY between writers.
type Store struct {
	stateOps
	db *sql.DB
}

// Interface compliance, both for the root store and the tx view.
var (
	_ governance.StateStore = (*Store)(nil)
	_ governance.EventSink  = (*Store)(nil)
	_ governance.StateStore = (*txStore)(nil)
	_ governance.EventSink  = (*txStore)(nil)
)

// Open creates or opens a SQLite database at the given path, applying
// pragmas and the schema. Idempotent: safe against an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection keeps
	// writers from tripping over each other.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{stateOps: stateOps{q: db}, db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Atomically implements governance.StateStore. The view handed to fn writes
// through a transaction and doubles as an EventSink, so journal appends made
// during fn commit or roll back with the state.
func (s *Store) Atomically(ctx context.Context, fn func(governance.StateStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed.

	view := &txStore{stateOps{q: tx}}
	if err := fn(view); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// txStore is the transaction-backed StateStore view.
type txStore struct {
	stateOps
}

// Atomically on an already-transactional view just runs fn against the same
// view; the enclosing transaction provides the atomicity.
func (t *txStore) Atomically(_ context.Context, fn func(governance.StateStore) error) error {
	return fn(t)
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}
