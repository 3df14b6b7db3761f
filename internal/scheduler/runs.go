package scheduler

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Run is one recorded job execution.
type Run struct {
	ID         int64  `json:"id"`
	JobName    string `json:"job_name"`
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
	Status     string `json:"status"` // ok | error
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// RunRepository records job executions in cache.db so operators can see what
// the nightly jobs actually did.
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new job-run repository.
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "job_runs").Logger(),
	}
}

// Record stores one execution outcome.
func (r *RunRepository) Record(jobName string, startedAt time.Time, duration time.Duration, runErr error) error {
	status := "ok"
	errText := ""
	if runErr != nil {
		status = "error"
		errText = runErr.Error()
	}

	_, err := r.db.Exec(`
		INSERT INTO job_runs (job_name, started_at, duration_ms, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))`,
		jobName, startedAt.UTC().Format(time.RFC3339), duration.Milliseconds(), status, errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record job run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (r *RunRepository) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT id, job_name, started_at, duration_ms, status, error, created_at
		FROM job_runs
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query job runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.JobName, &run.StartedAt, &run.DurationMS,
			&run.Status, &run.Error, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job runs: %w", err)
	}
	return runs, nil
}

// LastRun returns the most recent run for a job, or nil when it never ran.
func (r *RunRepository) LastRun(jobName string) (*Run, error) {
	row := r.db.QueryRow(`
		SELECT id, job_name, started_at, duration_ms, status, error, created_at
		FROM job_runs
		WHERE job_name = ?
		ORDER BY id DESC
		LIMIT 1`, jobName)

	var run Run
	err := row.Scan(&run.ID, &run.JobName, &run.StartedAt, &run.DurationMS,
		&run.Status, &run.Error, &run.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last job run: %w", err)
	}
	return &run, nil
}

// DeleteOlderThan removes runs recorded before cutoff. Used by maintenance.
func (r *RunRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM job_runs WHERE created_at < ?`,
		cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("failed to delete old job runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted job runs: %w", err)
	}
	return n, nil
}
