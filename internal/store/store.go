// Package store implements the Persistent Store Gateway: typed accessors
// over a local SQLite database for credentials, configuration, tracklist
// snapshot, volume, cache index, and RFID bindings.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/chartzngrafs/streamtrack/internal/apperr"
)

// Store wraps a *sql.DB opened against a single SQLite file in WAL mode.
type Store struct {
	db   *sql.DB
	path string
	log  *logrus.Entry
}

// Open opens or creates the database at path, running forward schema
// migrations. If migrations detect a previously-applied script that is now
// missing, the store is rebuilt from scratch: handles are closed, the
// primary file and its -wal/-shm companions are deleted, and the database
// is re-initialised fresh (data loss is acceptable — all persisted state is
// derivable or re-authenticatable).
func Open(path string, log *logrus.Entry) (*Store, error) {
	s, err := openOnce(path, log)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, apperr.ErrStoreSchemaMismatch) {
		return nil, err
	}

	log.WithError(err).Warn("store schema mismatch detected, rebuilding database")
	if err := deleteDatabaseFiles(path); err != nil {
		return nil, fmt.Errorf("store: rebuilding after schema mismatch: %w", err)
	}
	return openOnce(path, log)
}

func openOnce(path string, log *logrus.Entry) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", path, err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enabling WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enabling foreign keys: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path, log: log}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RefreshDatabase closes the store's handle and deletes the database file
// and its WAL/SHM companions, for the "refresh" CLI subcommand.
func (s *Store) RefreshDatabase() error {
	path := s.path
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: closing before refresh: %w", err)
	}
	return deleteDatabaseFiles(path)
}

func deleteDatabaseFiles(path string) error {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(path + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("store: removing %s%s: %w", path, suffix, err)
		}
	}
	return nil
}
