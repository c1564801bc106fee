package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/netsir/internal/config"
	"github.com/gyaneshwarpardhi/netsir/internal/epidemic"
	"github.com/gyaneshwarpardhi/netsir/internal/job"
	"github.com/gyaneshwarpardhi/netsir/internal/metrics"
	"github.com/gyaneshwarpardhi/netsir/internal/store"
)

var (
	// ErrUnknownExperiment is returned for ids absent from the current model.
	ErrUnknownExperiment = errors.New("unknown experiment")
	// ErrQueueFull is returned when a synchronous trial cannot be enqueued or
	// every batch slot is taken.
	ErrQueueFull = errors.New("trial queue full")
)

const shutdownReason = "engine shutting down"

// TrialResult is the outcome of a synchronous single trial.
type TrialResult struct {
	ExperimentID string           `json:"experiment_id"`
	Trial        int              `json:"trial"`
	DurationMs   float64          `json:"duration_ms"`
	Result       *epidemic.Result `json:"result"`
	Error        string           `json:"error,omitempty"`
}

// Engine runs independent simulation trials on a worker pool. Every trial
// owns its epidemic state and a random stream derived from the experiment
// seed and the trial number, so results do not depend on scheduling.
type Engine struct {
	model   atomic.Pointer[Model]
	store   *store.SQLiteStore
	pool    *workerPool[*trialWork]
	conf    *config.EngineConf
	logger  *slog.Logger
	ctx     context.Context
	batches sync.WaitGroup
	slots   chan struct{} // one token per batch being dispatched or run
	stop    sync.Once
}

type trialWork struct {
	expID   string
	trial   int
	rngSeed uint64
	sched   *epidemic.Scheduler
	batch   *batch            // nil for synchronous trials
	resultC chan *TrialResult // nil for batch trials
}

// batch tracks an asynchronous job until its last trial is stored.
type batch struct {
	id        string
	remaining atomic.Int64
	failed    atomic.Int64
	total     int64
}

// New creates an Engine using conf and starts the worker pool.
func New(ctx context.Context, m *Model, st *store.SQLiteStore, conf config.EngineConf, logger *slog.Logger) *Engine {
	maxBatches := conf.MaxBatches
	if maxBatches <= 0 {
		maxBatches = 1
	}
	e := &Engine{store: st, conf: &conf, logger: logger, ctx: ctx, slots: make(chan struct{}, maxBatches)}
	e.model.Store(m)
	e.pool = newWorkerPool[*trialWork](ctx, conf.TrialWorkers, conf.QueueDepth, e.processTrial)
	return e
}

// SwapModel atomically replaces the network and experiments (used on hot-reload).
// Trials already queued keep the scheduler they were submitted with.
func (e *Engine) SwapModel(m *Model) {
	e.model.Store(m)
}

// Conf returns the engine settings fixed at construction.
func (e *Engine) Conf() config.EngineConf {
	return *e.conf
}

// Model returns the current model.
func (e *Engine) Model() *Model {
	return e.model.Load()
}

// Experiments lists the experiments of the current model.
func (e *Engine) Experiments() []config.Experiment {
	return e.model.Load().Experiments()
}

// RunTrial runs trial number n of an experiment and waits for its full timeline.
func (e *Engine) RunTrial(ctx context.Context, expID string, n int) (*TrialResult, error) {
	ce, err := e.model.Load().experiment(expID)
	if err != nil {
		return nil, err
	}
	w := &trialWork{
		expID:   expID,
		trial:   n,
		rngSeed: ce.conf.RNGSeed,
		sched:   ce.sched,
		resultC: make(chan *TrialResult, 1),
	}
	if !e.pool.Submit(w) {
		metrics.TrialsDropped.Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.conf.QueueDepth)
	}
	metrics.TrialsEnqueued.Inc()

	timeout := time.Duration(e.conf.TrialTimeoutMs) * time.Millisecond
	select {
	case res := <-w.resultC:
		return res, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("trial timeout after %v", timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SubmitBatch creates a job running every configured trial of an experiment
// in the background and returns it immediately. At most conf.MaxBatches
// batches are in flight; beyond that ErrQueueFull is returned.
func (e *Engine) SubmitBatch(ctx context.Context, expID string) (*job.Job, error) {
	ce, err := e.model.Load().experiment(expID)
	if err != nil {
		return nil, err
	}
	if ce.conf.Trials > 0 {
		select {
		case e.slots <- struct{}{}:
		default:
			metrics.JobsRejected.Inc()
			return nil, fmt.Errorf("%w (%d batches in flight)", ErrQueueFull, cap(e.slots))
		}
	}
	j := &job.Job{
		ID:           uuid.New().String(),
		ExperimentID: expID,
		Trials:       ce.conf.Trials,
		Status:       job.StatusQueued,
		SubmittedAt:  time.Now(),
	}
	if err := e.store.CreateJob(ctx, j); err != nil {
		if j.Trials > 0 {
			<-e.slots
		}
		return nil, err
	}
	metrics.JobsSubmitted.Inc()

	b := &batch{id: j.ID, total: int64(j.Trials)}
	b.remaining.Store(int64(j.Trials))
	if j.Trials == 0 {
		e.setStatus(j.ID, job.StatusDone)
		j.Status = job.StatusDone
		return j, nil
	}
	e.setStatus(j.ID, job.StatusRunning)
	j.Status = job.StatusRunning

	e.batches.Add(1)
	go func() {
		defer e.batches.Done()
		e.dispatch(b, ce)
	}()
	e.logger.Info("batch submitted", "job_id", j.ID, "experiment", expID, "trials", j.Trials)
	return j, nil
}

// dispatch feeds a batch's trials to the pool, blocking while the queue is full.
// Trials that cannot be enqueued before shutdown are recorded as failed.
func (e *Engine) dispatch(b *batch, ce *compiledExperiment) {
	for n := 0; n < ce.conf.Trials; n++ {
		w := &trialWork{expID: ce.conf.ID, trial: n, rngSeed: ce.conf.RNGSeed, sched: ce.sched, batch: b}
		if e.pool.SubmitWait(e.ctx, w) {
			metrics.TrialsEnqueued.Inc()
			continue
		}
		for ; n < ce.conf.Trials; n++ {
			metrics.TrialsDropped.Inc()
			e.finishBatchTrial(b, job.Trial{Trial: n, Error: shutdownReason})
		}
		return
	}
}

// Job returns a job with the trial summaries stored so far.
func (e *Engine) Job(ctx context.Context, id string) (*job.Job, error) {
	return e.store.GetJob(ctx, id)
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

func (e *Engine) processTrial(ctx context.Context, w *trialWork) {
	res, dur, err := runOne(w)
	outcome := "error"
	if res != nil {
		outcome = string(res.Outcome)
		metrics.SimulationEvents.WithLabelValues("infection").Add(float64(res.Events.Infections))
		metrics.SimulationEvents.WithLabelValues("recovery").Add(float64(res.Events.Recoveries))
	}
	metrics.TrialsCompleted.WithLabelValues(w.expID, outcome).Inc()
	metrics.TrialDuration.Observe(dur)
	if err != nil {
		e.logger.Warn("trial failed", "experiment", w.expID, "trial", w.trial, "err", err)
	}

	if w.resultC != nil {
		tr := &TrialResult{ExperimentID: w.expID, Trial: w.trial, DurationMs: dur, Result: res}
		if err != nil {
			tr.Error = err.Error()
		}
		w.resultC <- tr
		return
	}

	summary := job.Trial{Trial: w.trial, DurationMs: dur}
	if res != nil {
		summary = job.Summarize(w.trial, res)
		summary.DurationMs = dur
	}
	if err != nil {
		summary.Error = err.Error()
	}
	e.finishBatchTrial(w.batch, summary)
}

// runOne executes a single simulation with its own random stream.
func runOne(w *trialWork) (*epidemic.Result, float64, error) {
	src := rand.New(rand.NewPCG(w.rngSeed, uint64(w.trial)))
	start := time.Now()
	res, err := w.sched.Run(src)
	return res, float64(time.Since(start).Microseconds()) / 1000, err
}

func (e *Engine) finishBatchTrial(b *batch, t job.Trial) {
	if err := e.store.AddTrial(context.Background(), b.id, t); err != nil {
		e.logger.Error("failed to store trial", "job_id", b.id, "trial", t.Trial, "err", err)
	}
	if t.Error != "" {
		b.failed.Add(1)
	}
	if b.remaining.Add(-1) == 0 {
		st := job.StatusDone
		if b.failed.Load() == b.total {
			st = job.StatusFailed
		}
		<-e.slots
		e.setStatus(b.id, st)
		e.logger.Info("batch finished", "job_id", b.id, "status", st, "failed_trials", b.failed.Load())
	}
}

func (e *Engine) setStatus(id string, st job.Status) {
	if err := e.store.SetStatus(context.Background(), id, st, time.Now()); err != nil {
		e.logger.Error("failed to update job status", "job_id", id, "status", st, "err", err)
	}
}

// Shutdown waits for batch dispatchers and drains the pool gracefully.
// Cancel the context passed to New first so blocked dispatchers return.
// Trials still queued when the workers stop are settled with a shutdown
// error, so every batch reaches a final status. Calling it twice is a no-op.
func (e *Engine) Shutdown() {
	e.stop.Do(func() {
		e.batches.Wait()
		for _, w := range e.pool.Drain() {
			e.abandon(w)
		}
	})
}

func (e *Engine) abandon(w *trialWork) {
	metrics.TrialsDropped.Inc()
	if w.resultC != nil {
		w.resultC <- &TrialResult{ExperimentID: w.expID, Trial: w.trial, Error: shutdownReason}
		return
	}
	e.finishBatchTrial(w.batch, job.Trial{Trial: w.trial, Error: shutdownReason})
}
