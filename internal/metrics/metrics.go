package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsir_jobs_submitted_total",
		Help: "Total number of trial batches accepted for processing.",
	})

	JobsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsir_jobs_rejected_total",
		Help: "Total number of batches refused because every batch slot was taken.",
	})

	TrialsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsir_trials_enqueued_total",
		Help: "Total number of trials placed on the worker queue.",
	})

	TrialsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netsir_trials_dropped_total",
		Help: "Total number of trials rejected by a full queue or abandoned at shutdown.",
	})

	TrialsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsir_trials_completed_total",
		Help: "Total number of simulation runs, labelled by experiment and outcome.",
	}, []string{"experiment_id", "outcome"})

	SimulationEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "netsir_simulation_events_total",
		Help: "Total number of infection and recovery events applied.",
	}, []string{"kind"})

	TrialDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "netsir_trial_duration_ms",
		Help:    "Wall-clock duration of a single simulation run in milliseconds.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100, 250, 1000, 5000},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netsir_queue_utilization_ratio",
		Help: "Current trial queue utilization (0–1).",
	})
)
