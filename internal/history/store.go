package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one recorded command outcome. Multi-query commands record one row
// per query.
type Run struct {
	ID             string    `json:"id"`
	JobName        string    `json:"job_name"`
	QueryName      string    `json:"query_name,omitempty"`
	Command        string    `json:"command"`
	Status         string    `json:"status"`
	Message        string    `json:"message,omitempty"`
	BytesProcessed int64     `json:"bytes_processed,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store persists run history.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open history database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record inserts one run row. The ID and timestamp are assigned here.
func (s *Store) Record(ctx context.Context, run Run) error {
	run.ID = uuid.NewString()
	run.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, job_name, query_name, command, status, message, bytes_processed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.JobName, run.QueryName, run.Command, run.Status, run.Message, run.BytesProcessed, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first, optionally filtered by
// job name.
func (s *Store) List(ctx context.Context, jobName string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, job_name, query_name, command, status, message, bytes_processed, created_at
		FROM runs`
	args := []any{}
	if jobName != "" {
		query += ` WHERE job_name = ?`
		args = append(args, jobName)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.JobName, &r.QueryName, &r.Command, &r.Status, &r.Message, &r.BytesProcessed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
