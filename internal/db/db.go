// Package db provides the SQLite persistence layer for diagnostic sessions:
// session records, video analysis results, per-frame metrics, audio analysis
// results, and OBD snapshots.
package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB handle for the diagnostics database.
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the diagnostics database at the given path and
// applies the connection pragmas. Use ":memory:" for an ephemeral database
// in tests.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return &DB{sqlDB}, nil
}

// retryOnBusy retries a write a few times when SQLite reports the database
// is locked. WAL mode plus the busy timeout makes this rare, but concurrent
// writers (the HTTP API and the OBD recorder) can still collide.
func retryOnBusy(fn func() error) error {
	const attempts = 5
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(i+1) * 10 * time.Millisecond)
	}
	return err
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
