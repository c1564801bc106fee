// Package store persists batch jobs and their trial summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/gyaneshwarpardhi/netsir/internal/epidemic"
	"github.com/gyaneshwarpardhi/netsir/internal/job"
)

// ErrNotFound is returned when a job id is unknown.
var ErrNotFound = errors.New("job not found")

// SQLiteStore implements job persistence on a single SQLite connection.
type SQLiteStore struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. An empty path opens a
// private in-memory database.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		dsn = path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite works best with a single writer; it also keeps :memory: on one connection.
	db.SetMaxOpenConns(1)

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// CreateJob inserts a new job row.
func (s *SQLiteStore) CreateJob(ctx context.Context, j *job.Job) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, experiment_id, trials, status, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		j.ID, j.ExperimentID, j.Trials, string(j.Status), j.SubmittedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", j.ID, err)
	}
	return nil
}

// SetStatus updates a job's status; terminal statuses also stamp finished_at.
func (s *SQLiteStore) SetStatus(ctx context.Context, id string, st job.Status, at time.Time) error {
	var finished any
	if st == job.StatusDone || st == job.StatusFailed {
		finished = at.UTC().Format(time.RFC3339Nano)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, finished_at = COALESCE(?, finished_at) WHERE id = ?`,
		string(st), finished, id)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddTrial records one trial summary for a job.
func (s *SQLiteStore) AddTrial(ctx context.Context, jobID string, t job.Trial) error {
	var errMsg any
	if t.Error != "" {
		errMsg = t.Error
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO trials
		 (job_id, trial, outcome, s, i, r, end_time, infections, recoveries, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		jobID, t.Trial, string(t.Outcome), t.S, t.I, t.R, t.EndTime, t.Infections, t.Recoveries, t.DurationMs, errMsg)
	if err != nil {
		return fmt.Errorf("failed to insert trial %d of job %s: %w", t.Trial, jobID, err)
	}
	return nil
}

// GetJob loads a job and its trials ordered by trial number.
func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*job.Job, error) {
	var (
		j         job.Job
		status    string
		submitted string
		finished  sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, experiment_id, trials, status, submitted_at, finished_at FROM jobs WHERE id = ?`, id).
		Scan(&j.ID, &j.ExperimentID, &j.Trials, &status, &submitted, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job %s: %w", id, err)
	}
	j.Status = job.Status(status)
	if j.SubmittedAt, err = time.Parse(time.RFC3339Nano, submitted); err != nil {
		return nil, fmt.Errorf("job %s: bad submitted_at: %w", id, err)
	}
	if finished.Valid {
		ft, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("job %s: bad finished_at: %w", id, err)
		}
		j.FinishedAt = &ft
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT trial, outcome, s, i, r, end_time, infections, recoveries, duration_ms, error
		 FROM trials WHERE job_id = ? ORDER BY trial`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query trials of job %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			t       job.Trial
			outcome sql.NullString
			errMsg  sql.NullString
		)
		if err := rows.Scan(&t.Trial, &outcome, &t.S, &t.I, &t.R, &t.EndTime,
			&t.Infections, &t.Recoveries, &t.DurationMs, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan trial of job %s: %w", id, err)
		}
		t.Outcome = epidemic.Outcome(outcome.String)
		t.Error = errMsg.String
		j.Results = append(j.Results, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &j, nil
}
