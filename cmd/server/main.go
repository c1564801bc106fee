package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gyaneshwarpardhi/netsir/internal/api"
	"github.com/gyaneshwarpardhi/netsir/internal/config"
	"github.com/gyaneshwarpardhi/netsir/internal/engine"
	"github.com/gyaneshwarpardhi/netsir/internal/logging"
	"github.com/gyaneshwarpardhi/netsir/internal/store"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	cfgPath := flag.String("config", "configs/experiments.yaml", "Path to experiments YAML config")
	flag.Parse()

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Engine.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	// ── Load network and compile experiments ─────────────────────────────────
	model, err := engine.LoadModel(cfg, logger)
	if err != nil {
		slog.Error("failed to build model", "err", err)
		os.Exit(1)
	}
	slog.Info("model built", "nodes", model.Graph.NodeCount(), "experiments", len(model.Experiments()))

	// ── Results store ─────────────────────────────────────────────────────────
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.Store.Path)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	// ── Engine ────────────────────────────────────────────────────────────────
	eng := engine.New(ctx, model, st, cfg.Engine, logger)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	rl := newReloader(loader, eng, logger)
	loader.OnChange(rl.apply)
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.New(eng, rl),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.Engine.TrialTimeoutMs)*time.Millisecond + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel() // stop worker pool and batch dispatchers
	eng.Shutdown()
	slog.Info("goodbye")
}
