package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/netsir/internal/engine"
	"github.com/gyaneshwarpardhi/netsir/internal/metrics"
	"github.com/gyaneshwarpardhi/netsir/internal/store"
)

// Reloader re-reads configuration and network and swaps them into the engine.
type Reloader interface {
	Reload() (experiments int, err error)
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng      *engine.Engine
	reloader Reloader
	mux      *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(eng *engine.Engine, reloader Reloader) http.Handler {
	h := &Handler{eng: eng, reloader: reloader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/simulations", h.runSimulation)
	h.mux.HandleFunc("POST /v1/experiments/{id}/batches", h.submitBatch)
	h.mux.HandleFunc("GET /v1/jobs/{id}", h.getJob)
	h.mux.HandleFunc("GET /v1/experiments", h.listExperiments)
	h.mux.HandleFunc("POST /v1/experiments/reload", h.reload)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

type simulationRequest struct {
	ExperimentID string `json:"experiment_id"`
	Trial        int    `json:"trial"`
}

// POST /v1/simulations — run one trial synchronously and return its timeline.
func (h *Handler) runSimulation(w http.ResponseWriter, r *http.Request) {
	var req simulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if req.ExperimentID == "" {
		writeError(w, http.StatusBadRequest, "experiment_id is required")
		return
	}
	if req.Trial < 0 {
		writeError(w, http.StatusBadRequest, "trial must be >= 0")
		return
	}

	res, err := h.eng.RunTrial(r.Context(), req.ExperimentID, req.Trial)
	switch {
	case errors.Is(err, engine.ErrUnknownExperiment):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, engine.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	}
	if res.Error != "" {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// POST /v1/experiments/{id}/batches — run all trials of an experiment in the background
// (429 when every batch slot is taken).
func (h *Handler) submitBatch(w http.ResponseWriter, r *http.Request) {
	j, err := h.eng.SubmitBatch(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, engine.ErrUnknownExperiment):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, engine.ErrQueueFull):
		writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, j)
}

// GET /v1/jobs/{id} — job status and stored trial summaries.
func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.eng.Job(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// GET /v1/experiments — list enabled experiments and the loaded network size.
func (h *Handler) listExperiments(w http.ResponseWriter, r *http.Request) {
	m := h.eng.Model()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nodes":       m.Graph.NodeCount(),
		"edges":       m.Graph.EdgeCount(),
		"experiments": m.Experiments(),
	})
}

// POST /v1/experiments/reload — re-read config and network from disk.
func (h *Handler) reload(w http.ResponseWriter, r *http.Request) {
	n, err := h.reloader.Reload()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":          true,
		"experiments_count": n,
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz — 503 if the trial queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
