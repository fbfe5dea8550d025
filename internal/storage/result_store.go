package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mvp-joe/rendercheck/internal/checker"
)

// ResultStore is a persistent cache of file results keyed by content.
// Results are tied to a settings fingerprint: opening the store with a
// different fingerprint discards everything stored under the old one.
type ResultStore struct {
	db *sql.DB
}

// Open opens or creates the result store at path.
func Open(path, fingerprint string) (*ResultStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := NewResultStore(db, fingerprint)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewResultStore prepares db for use as a result store, creating or
// rebuilding the schema as needed. The store takes ownership of db.
func NewResultStore(db *sql.DB, fingerprint string) (*ResultStore, error) {
	// Checks write from many goroutines; one connection avoids SQLITE_BUSY
	// and keeps in-memory databases shared.
	db.SetMaxOpenConns(1)

	version, err := GetSchemaVersion(db)
	if err != nil {
		return nil, fmt.Errorf("failed to check schema version: %w", err)
	}
	if version != SchemaVersion {
		if version != "0" {
			if err := dropSchema(db); err != nil {
				return nil, err
			}
		}
		if err := CreateSchema(db); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	stored, err := getMetadata(db, "fingerprint")
	if err != nil {
		return nil, err
	}
	if stored != fingerprint {
		if _, err := sq.Delete("results").RunWith(db).Exec(); err != nil {
			return nil, fmt.Errorf("failed to clear stale results: %w", err)
		}
		if err := setMetadata(db, "fingerprint", fingerprint); err != nil {
			return nil, err
		}
	}

	return &ResultStore{db: db}, nil
}

// Get returns the result stored under key.
func (s *ResultStore) Get(key string) (checker.FileResult, bool, error) {
	var data string
	err := sq.Select("result_json").
		From("results").
		Where(sq.Eq{"cache_key": key}).
		RunWith(s.db).
		QueryRow().
		Scan(&data)
	if err == sql.ErrNoRows {
		return checker.FileResult{}, false, nil
	}
	if err != nil {
		return checker.FileResult{}, false, fmt.Errorf("failed to read result: %w", err)
	}

	var res checker.FileResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return checker.FileResult{}, false, fmt.Errorf("failed to decode result: %w", err)
	}
	return res, true, nil
}

// Put stores a result under key. Older results for the same file are
// replaced so the store holds at most one result per path.
func (s *ResultStore) Put(key string, res checker.FileResult) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Safe to call even after commit

	_, err = sq.Delete("results").
		Where(sq.Eq{"file_path": res.Path}).
		Where(sq.NotEq{"cache_key": key}).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to replace result for %s: %w", res.Path, err)
	}

	_, err = sq.Insert("results").
		Columns("cache_key", "file_path", "result_json", "checked_at").
		Values(key, res.Path, string(data), time.Now().UTC().Format(time.RFC3339)).
		Options("OR REPLACE").
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to write result for %s: %w", res.Path, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit result for %s: %w", res.Path, err)
	}
	return nil
}

// Prune removes results for files that are not in paths and returns how
// many were removed.
func (s *ResultStore) Prune(paths []string) (int64, error) {
	res, err := sq.Delete("results").
		Where(sq.NotEq{"file_path": paths}).
		RunWith(s.db).
		Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to prune results: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of stored results.
func (s *ResultStore) Count() (int, error) {
	var n int
	err := sq.Select("COUNT(*)").From("results").RunWith(s.db).QueryRow().Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *ResultStore) Close() error {
	return s.db.Close()
}
