package job

import (
	"time"

	"github.com/gyaneshwarpardhi/netsir/internal/epidemic"
)

// Status is the lifecycle state of a batch job.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Job is a batch of independent trials of one experiment.
type Job struct {
	ID           string     `json:"id"`
	ExperimentID string     `json:"experiment_id"`
	Trials       int        `json:"trials"`
	Status       Status     `json:"status"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Results      []Trial    `json:"results,omitempty"`
}

// Trial summarises one simulation run. A failed run keeps its error
// message and zero counts; it is never retried.
type Trial struct {
	Trial      int              `json:"trial"`
	Outcome    epidemic.Outcome `json:"outcome,omitempty"`
	S          int              `json:"s"`
	I          int              `json:"i"`
	R          int              `json:"r"`
	EndTime    float64          `json:"end_time"`
	Infections int              `json:"infections"`
	Recoveries int              `json:"recoveries"`
	DurationMs float64          `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// Summarize builds a Trial from a simulation result.
func Summarize(trial int, res *epidemic.Result) Trial {
	final := res.Timeline.Final()
	return Trial{
		Trial:      trial,
		Outcome:    res.Outcome,
		S:          final.S,
		I:          final.I,
		R:          final.R,
		EndTime:    final.T,
		Infections: res.Events.Infections,
		Recoveries: res.Events.Recoveries,
	}
}
