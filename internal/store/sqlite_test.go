package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/netsir/internal/epidemic"
	"github.com/gyaneshwarpardhi/netsir/internal/job"
)

func openTest(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_JobRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, "")

	submitted := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	j := &job.Job{ID: "job-1", ExperimentID: "max_degree", Trials: 2, Status: job.StatusQueued, SubmittedAt: submitted}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	trials := []job.Trial{
		{Trial: 1, Error: "seeding: unknown node"},
		{Trial: 0, Outcome: epidemic.OutcomeFinished, S: 3, R: 2, EndTime: 4.5, Infections: 1, Recoveries: 2},
	}
	for _, tr := range trials {
		if err := s.AddTrial(ctx, j.ID, tr); err != nil {
			t.Fatalf("AddTrial: %v", err)
		}
	}
	finished := submitted.Add(time.Minute)
	if err := s.SetStatus(ctx, j.ID, job.StatusDone, finished); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	got, err := s.GetJob(ctx, j.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != job.StatusDone || got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("status/finished = %s/%v", got.Status, got.FinishedAt)
	}
	if !got.SubmittedAt.Equal(submitted) {
		t.Errorf("submitted = %v, want %v", got.SubmittedAt, submitted)
	}
	if len(got.Results) != 2 || got.Results[0].Trial != 0 || got.Results[1].Trial != 1 {
		t.Fatalf("results not ordered by trial: %+v", got.Results)
	}
	if got.Results[0] != trials[1] {
		t.Errorf("trial 0 = %+v, want %+v", got.Results[0], trials[1])
	}
	if got.Results[1].Error == "" {
		t.Error("failed trial lost its error")
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := openTest(t, "")
	if _, err := s.GetJob(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJob: got %v, want ErrNotFound", err)
	}
	if err := s.SetStatus(ctx, "missing", job.StatusRunning, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetStatus: got %v, want ErrNotFound", err)
	}
}

func TestOpen_FileReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "results.db")
	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	j := &job.Job{ID: "persisted", ExperimentID: "e", Trials: 1, Status: job.StatusQueued, SubmittedAt: time.Now()}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2 := openTest(t, path)
	if _, err := s2.GetJob(ctx, "persisted"); err != nil {
		t.Errorf("job lost after reopen: %v", err)
	}
}
