package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/chartzngrafs/streamtrack/internal/apperr"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migration is one embedded schema script, identified by its file name so
// that an applied-but-now-missing script can be detected across upgrades.
type migration struct {
	name string
	sql  string
}

func loadMigrations() ([]migration, error) {
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("store: reading embedded migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	migrations := make([]migration, 0, len(names))
	for _, name := range names {
		b, err := migrationFS.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("store: reading migration %s: %w", name, err)
		}
		migrations = append(migrations, migration{name: name, sql: string(b)})
	}
	return migrations, nil
}

// applyMigrations ensures a schema_migrations bookkeeping table exists,
// verifies that every previously-applied migration name is still present
// in the current embedded set (if not, returns apperr.ErrStoreSchemaMismatch
// so the caller can rebuild the store from scratch), then applies any new
// migrations in order.
func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("store: creating schema_migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.Query(`SELECT name FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("store: reading applied migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("store: scanning applied migration: %w", err)
		}
		applied[name] = true
	}
	rows.Close()

	migrations, err := loadMigrations()
	if err != nil {
		return err
	}

	current := make(map[string]bool, len(migrations))
	for _, m := range migrations {
		current[m.name] = true
	}
	for name := range applied {
		if !current[name] {
			// A previously applied script is missing from the resolved
			// migration set: the store is considered incompatible.
			return fmt.Errorf("store: migration %q was previously applied but is missing: %w", name, apperr.ErrStoreSchemaMismatch)
		}
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		if _, err := db.Exec(m.sql); err != nil {
			return fmt.Errorf("store: applying migration %s: %w", m.name, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations(name) VALUES (?)`, m.name); err != nil {
			return fmt.Errorf("store: recording migration %s: %w", m.name, err)
		}
	}

	return nil
}
