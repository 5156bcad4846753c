// Package runstore persists a history of parallel-operation runs to a
// local SQLite database, the way the teacher persisted download state —
// same upsert-by-id, same lazy single-connection handle.
package runstore

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

var (
	dbMu   sync.Mutex
	dbConn *sql.DB
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	operation TEXT NOT NULL,
	pool_size INTEGER NOT NULL,
	item_count INTEGER NOT NULL,
	work_unit INTEGER NOT NULL,
	duration_ns INTEGER NOT NULL,
	error TEXT,
	started_at INTEGER NOT NULL,
	finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Open opens (creating if necessary) the SQLite file at path and applies
// the schema. Safe to call more than once with the same path; later calls
// after a successful Open reuse the existing handle.
func Open(path string) error {
	dbMu.Lock()
	defer dbMu.Unlock()

	if dbConn != nil {
		return nil
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open run history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("migrate run history database: %w", err)
	}
	dbConn = db
	return nil
}

// Close releases the database handle opened by Open. Idempotent.
func Close() error {
	dbMu.Lock()
	defer dbMu.Unlock()
	if dbConn == nil {
		return nil
	}
	err := dbConn.Close()
	dbConn = nil
	return err
}

func getDB() *sql.DB {
	dbMu.Lock()
	defer dbMu.Unlock()
	return dbConn
}

func withTx(fn func(tx *sql.Tx) error) error {
	db := getDB()
	if db == nil {
		return fmt.Errorf("run history database is not open")
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
