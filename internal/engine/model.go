package engine

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/gyaneshwarpardhi/netsir/internal/config"
	"github.com/gyaneshwarpardhi/netsir/internal/epidemic"
	"github.com/gyaneshwarpardhi/netsir/internal/network"
)

// Model is a loaded network together with the enabled experiments compiled
// against it. It is immutable once built; hot-reload builds a new Model and
// swaps it atomically.
type Model struct {
	Graph       *network.Graph
	Topology    *epidemic.Topology
	experiments map[string]*compiledExperiment
}

type compiledExperiment struct {
	conf  config.Experiment
	sched *epidemic.Scheduler
}

// Build compiles every enabled experiment of cfg against g. Seed labels are
// resolved here so no lookup happens while trials run.
func Build(cfg *config.SimConfig, g *network.Graph, logger *slog.Logger) (*Model, error) {
	topo, err := epidemic.NewTopology(g)
	if err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	m := &Model{Graph: g, Topology: topo, experiments: make(map[string]*compiledExperiment)}
	for _, ex := range cfg.Experiments {
		if !ex.Enabled {
			continue
		}
		seeds, err := g.Resolve(ex.Seeds)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", ex.ID, err)
		}
		sched, err := epidemic.NewScheduler(topo, epidemic.Params{
			Beta:    ex.Beta,
			Gamma:   ex.Gamma,
			MaxTime: ex.MaxTime,
			Seeds:   seeds,
		}, epidemic.WithLogger(logger.With("experiment", ex.ID)))
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", ex.ID, err)
		}
		m.experiments[ex.ID] = &compiledExperiment{conf: ex, sched: sched}
	}
	return m, nil
}

// LoadModel reads the network named by cfg and builds a Model from it.
func LoadModel(cfg *config.SimConfig, logger *slog.Logger) (*Model, error) {
	g, st, err := network.LoadEdgeList(cfg.Network.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("network loaded", "path", cfg.Network.Path,
		"nodes", st.Nodes, "edges", st.Edges, "self_loops", st.SelfLoops, "duplicates", st.Duplicates)
	return Build(cfg, g, logger)
}

// Experiments returns the compiled experiments sorted by id.
func (m *Model) Experiments() []config.Experiment {
	out := make([]config.Experiment, 0, len(m.experiments))
	for _, ce := range m.experiments {
		out = append(out, ce.conf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Model) experiment(id string) (*compiledExperiment, error) {
	ce, ok := m.experiments[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExperiment, id)
	}
	return ce, nil
}
