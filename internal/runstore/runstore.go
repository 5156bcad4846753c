package runstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded invocation of a parallel operation (ForEach, AMap or
// Reduce, as recorded by `parallex run`).
type Run struct {
	ID         string
	Operation  string
	PoolSize   int
	ItemCount  int
	WorkUnit   int
	Duration   time.Duration
	Err        string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Save upserts r, generating an ID if one was not already assigned.
func Save(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (
				id, operation, pool_size, item_count, work_unit, duration_ns, error, started_at, finished_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				operation=excluded.operation,
				pool_size=excluded.pool_size,
				item_count=excluded.item_count,
				work_unit=excluded.work_unit,
				duration_ns=excluded.duration_ns,
				error=excluded.error,
				started_at=excluded.started_at,
				finished_at=excluded.finished_at
		`, r.ID, r.Operation, r.PoolSize, r.ItemCount, r.WorkUnit, r.Duration.Nanoseconds(),
			nullableString(r.Err), r.StartedAt.Unix(), r.FinishedAt.Unix())
		if err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		return nil
	})
}

// Get loads a single run by id.
func Get(id string) (*Run, error) {
	db := getDB()
	if db == nil {
		return nil, fmt.Errorf("run history database is not open")
	}

	var r Run
	var errStr sql.NullString
	var durationNS, startedAt, finishedAt int64

	row := db.QueryRow(`
		SELECT id, operation, pool_size, item_count, work_unit, duration_ns, error, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)
	if err := row.Scan(&r.ID, &r.Operation, &r.PoolSize, &r.ItemCount, &r.WorkUnit, &durationNS, &errStr, &startedAt, &finishedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load run: %w", err)
	}
	r.Duration = time.Duration(durationNS)
	r.StartedAt = time.Unix(startedAt, 0)
	r.FinishedAt = time.Unix(finishedAt, 0)
	if errStr.Valid {
		r.Err = errStr.String
	}
	return &r, nil
}

// List returns runs newest-first, optionally limited.
func List(limit int) ([]Run, error) {
	db := getDB()
	if db == nil {
		return nil, fmt.Errorf("run history database is not open")
	}

	query := `
		SELECT id, operation, pool_size, item_count, work_unit, duration_ns, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC
	`
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = db.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = db.Query(query)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var errStr sql.NullString
		var durationNS, startedAt, finishedAt int64
		if err := rows.Scan(&r.ID, &r.Operation, &r.PoolSize, &r.ItemCount, &r.WorkUnit, &durationNS, &errStr, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Duration = time.Duration(durationNS)
		r.StartedAt = time.Unix(startedAt, 0)
		r.FinishedAt = time.Unix(finishedAt, 0)
		if errStr.Valid {
			r.Err = errStr.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes a run by id.
func Delete(id string) error {
	db := getDB()
	if db == nil {
		return fmt.Errorf("run history database is not open")
	}
	_, err := db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
