package main

import (
	"log/slog"
	"sync"

	"github.com/gyaneshwarpardhi/netsir/internal/config"
	"github.com/gyaneshwarpardhi/netsir/internal/engine"
)

// reloader rebuilds the model whenever the config changes, either from the
// file watcher or from the reload endpoint.
type reloader struct {
	loader *config.Loader
	eng    *engine.Engine
	logger *slog.Logger

	mu      sync.Mutex
	lastErr error
	lastN   int
}

func newReloader(l *config.Loader, eng *engine.Engine, logger *slog.Logger) *reloader {
	return &reloader{loader: l, eng: eng, logger: logger}
}

// apply receives configs the loader has already validated. Only the network
// and experiments are swapped; engine settings are fixed at startup.
func (r *reloader) apply(cfg *config.SimConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur := r.eng.Conf(); cfg.Engine != cur {
		r.logger.Warn("engine settings changed, restart the server to apply them",
			"running", cur, "configured", cfg.Engine)
	}
	m, err := engine.LoadModel(cfg, r.logger)
	if err != nil {
		r.logger.Warn("hot-reload skipped: model build failed", "err", err)
		r.lastErr = err
		return
	}
	r.eng.SwapModel(m)
	r.lastErr = nil
	r.lastN = len(m.Experiments())
	r.logger.Info("model hot-reloaded", "nodes", m.Graph.NodeCount(), "experiments", r.lastN)
}

// Reload implements api.Reloader.
func (r *reloader) Reload() (int, error) {
	if _, err := r.loader.Reload(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastN, r.lastErr
}
