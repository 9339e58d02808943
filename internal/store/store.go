package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration moves a track database from version-1 to version.
type migration struct {
	version int
	name    string
	apply   func(tx *sql.Tx) error
}

// migrations are applied in order to files whose user_version is lower.
//
//	0 - tracks only (schema.sql)
//	1 - tracks.dirty: rows written since the last successful remote write
//	2 - pending_deletions: local deletes waiting for the remote
var migrations = []migration{
	{version: 1, name: "track dirty flag", apply: addDirtyFlag},
	{version: 2, name: "pending deletions", apply: addPendingDeletions},
}

// schemaVersion is the user_version of a fully migrated file.
func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Store is the local, offline half of track sync.
type Store struct {
	db *sql.DB
}

// Open opens the track database at path, creating it if needed, and brings
// its schema up to date. ":memory:" gives a private in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open track store %s: %w", path, err)
	}

	// One connection: SQLite has a single writer, and an in-memory
	// database lives only as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := prepare(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open track store %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func prepare(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("base schema: %w", err)
	}
	return migrate(db)
}

// migrate runs every pending migration in its own transaction together
// with the user_version bump, so a failed step leaves the file at the
// previous version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if err := m.apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate to v%d: set user_version: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migrate to v%d: commit: %w", m.version, err)
		}
	}
	return nil
}

// addDirtyFlag adds tracks.dirty. Rows that predate it never reached the
// remote through this store, so they start dirty and go up on the next
// reconcile.
func addDirtyFlag(tx *sql.Tx) error {
	exists, err := hasColumn(tx, "tracks", "dirty")
	if err != nil || exists {
		return err
	}
	_, err = tx.Exec(`ALTER TABLE tracks ADD COLUMN dirty INTEGER NOT NULL DEFAULT 1`)
	return err
}

func addPendingDeletions(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS pending_deletions (
			track_id    TEXT PRIMARY KEY,
			deleted_at  INTEGER NOT NULL
		)
	`)
	return err
}

func hasColumn(tx *sql.Tx, table, column string) (bool, error) {
	var n int
	err := tx.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect %s: %w", table, err)
	}
	return n > 0, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
