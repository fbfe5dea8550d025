// Package storage persists check results in SQLite so unchanged files are not
// re-analyzed across runs.
package storage

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// SchemaVersion is bumped whenever the table layout changes. A database with
// a different version is rebuilt.
const SchemaVersion = "1"

const createResultsTable = `
CREATE TABLE IF NOT EXISTS results (
	cache_key   TEXT PRIMARY KEY,
	file_path   TEXT NOT NULL,
	result_json TEXT NOT NULL,
	checked_at  TEXT NOT NULL
)`

const createResultsPathIndex = `CREATE INDEX IF NOT EXISTS idx_results_file_path ON results(file_path)`

const createCacheMetadataTable = `
CREATE TABLE IF NOT EXISTS cache_metadata (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// CreateSchema creates the tables and bootstraps the schema version.
// Uses a transaction so schema creation succeeds or fails as a whole.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin schema transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	tables := []struct {
		name string
		ddl  string
	}{
		{"results", createResultsTable},
		{"results index", createResultsPathIndex},
		{"cache_metadata", createCacheMetadataTable},
	}
	for _, table := range tables {
		if _, err := tx.Exec(table.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", table.name, err)
		}
	}

	if err := setMetadata(tx, "schema_version", SchemaVersion); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema transaction: %w", err)
	}
	return nil
}

// dropSchema removes every table so CreateSchema can rebuild them.
func dropSchema(db *sql.DB) error {
	for _, table := range []string{"results", "cache_metadata"} {
		if _, err := db.Exec("DROP TABLE IF EXISTS " + table); err != nil {
			return fmt.Errorf("failed to drop %s: %w", table, err)
		}
	}
	return nil
}

// GetSchemaVersion retrieves the schema version from cache_metadata.
// Returns "0" if the table doesn't exist (new database).
func GetSchemaVersion(db *sql.DB) (string, error) {
	var tableExists int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='cache_metadata'").Scan(&tableExists)
	if err != nil {
		return "", fmt.Errorf("failed to check cache_metadata existence: %w", err)
	}
	if tableExists == 0 {
		return "0", nil // New database
	}

	version, err := getMetadata(db, "schema_version")
	if err != nil {
		return "", err
	}
	if version == "" {
		return "", fmt.Errorf("schema_version key not found in cache_metadata")
	}
	return version, nil
}

// getMetadata returns the value stored under key, or "" when absent.
func getMetadata(runner sq.BaseRunner, key string) (string, error) {
	var value string
	err := sq.Select("value").
		From("cache_metadata").
		Where(sq.Eq{"key": key}).
		RunWith(runner).
		QueryRow().
		Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read metadata %s: %w", key, err)
	}
	return value, nil
}

func setMetadata(runner sq.BaseRunner, key, value string) error {
	_, err := sq.Insert("cache_metadata").
		Columns("key", "value", "updated_at").
		Values(key, value, time.Now().UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(runner).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write metadata %s: %w", key, err)
	}
	return nil
}
