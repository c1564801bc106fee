// Package epidemic implements an exact continuous-time SIR simulation on a
// contact network using the Gillespie algorithm.
package epidemic

import (
	"fmt"
	"log/slog"
	"math"
)

// Source supplies the random draws of a run. *rand.Rand from math/rand/v2
// satisfies it; each concurrent run needs its own Source.
type Source interface {
	ExpFloat64() float64 // exponential with rate 1
	Float64() float64    // uniform in [0, 1)
	IntN(n int) int      // uniform in [0, n)
}

// Outcome describes why a run stopped.
type Outcome string

const (
	OutcomeRunning     Outcome = "running"
	OutcomeStalled     Outcome = "stalled"
	OutcomeTimeExpired Outcome = "time_expired"
	OutcomeFinished    Outcome = "finished"
)

// Params are the kinetic rates, horizon and initial infected set of a run.
type Params struct {
	Beta    float64 `json:"beta" yaml:"beta"`         // per S–I edge infection rate
	Gamma   float64 `json:"gamma" yaml:"gamma"`       // per infected node recovery rate
	MaxTime float64 `json:"max_time" yaml:"max_time"` // simulated time horizon
	Seeds   []int   `json:"seeds" yaml:"seeds"`
}

// Validate checks rates and seeds against a network of n nodes.
// Beta may be zero, which yields the pure-recovery process.
func (p Params) Validate(n int) error {
	switch {
	case !(p.Beta >= 0) || math.IsInf(p.Beta, 0):
		return fmt.Errorf("beta %v must be finite and non-negative: %w", p.Beta, ErrInvalidParameter)
	case !(p.Gamma > 0) || math.IsInf(p.Gamma, 0):
		return fmt.Errorf("gamma %v must be finite and positive: %w", p.Gamma, ErrInvalidParameter)
	case !(p.MaxTime > 0):
		return fmt.Errorf("max_time %v must be positive: %w", p.MaxTime, ErrInvalidParameter)
	case len(p.Seeds) == 0:
		return fmt.Errorf("seed set is empty: %w", ErrInvalidParameter)
	}
	seen := make(map[int]struct{}, len(p.Seeds))
	for _, s := range p.Seeds {
		if s < 0 || s >= n {
			return fmt.Errorf("seed %d: %w", s, ErrUnknownNode)
		}
		if _, dup := seen[s]; dup {
			return fmt.Errorf("seed %d listed twice: %w", s, ErrInvalidParameter)
		}
		seen[s] = struct{}{}
	}
	return nil
}

// EventCounts tallies the events applied during a run.
type EventCounts struct {
	Infections int `json:"infections"`
	Recoveries int `json:"recoveries"`
}

// Result is the outcome of one run.
type Result struct {
	Outcome  Outcome     `json:"outcome"`
	Timeline Timeline    `json:"timeline"`
	Events   EventCounts `json:"events"`
	Final    []Status    `json:"-"`
}

// Scheduler runs the Gillespie loop for one parameter set on one topology.
// A Scheduler holds no per-run state and may be shared; every Run call
// builds its own State and Index.
type Scheduler struct {
	topo   *Topology
	params Params
	logger *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger used for run diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// NewScheduler validates p against topo.
func NewScheduler(topo *Topology, p Params, opts ...Option) (*Scheduler, error) {
	if err := p.Validate(topo.NodeCount()); err != nil {
		return nil, err
	}
	s := &Scheduler{topo: topo, params: p, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Run seeds a fresh state and simulates until the infection dies out or the
// time horizon is passed. On ErrStalled the partial result is returned
// together with the error.
func (s *Scheduler) Run(src Source) (*Result, error) {
	st := NewState(s.topo)
	for _, seed := range s.params.Seeds {
		if err := st.Infect(seed); err != nil {
			return nil, fmt.Errorf("seeding: %w", err)
		}
	}
	idx := st.Index()

	res := &Result{Outcome: OutcomeRunning}
	res.Timeline = append(res.Timeline, Record{T: 0, S: st.Susceptible(), I: st.Infected(), R: st.Recovered()})

	now := 0.0
	for now < s.params.MaxTime && st.Infected() > 0 {
		infectionRate := idx.TotalInfectionRate(s.params.Beta)
		recoveryRate := s.params.Gamma * float64(st.Infected())
		total := infectionRate + recoveryRate
		if total == 0 {
			res.Outcome = OutcomeStalled
			res.Final = st.Snapshot()
			s.logger.Error("simulation stalled with infected nodes remaining",
				"t", now, "infected", st.Infected(), "si_edges", idx.SusceptibleInfectedEdges())
			return res, fmt.Errorf("t=%g infected=%d: %w", now, st.Infected(), ErrStalled)
		}

		now += src.ExpFloat64() / total

		if src.Float64()*total < infectionRate {
			infector := idx.PickInfector(src)
			target := idx.PickSusceptibleTarget(infector, src)
			if err := st.Infect(target); err != nil {
				return nil, fmt.Errorf("t=%g infection by %d: %w", now, infector, err)
			}
			res.Events.Infections++
		} else {
			node := idx.PickInfected(src)
			if err := st.Recover(node); err != nil {
				return nil, fmt.Errorf("t=%g recovery: %w", now, err)
			}
			res.Events.Recoveries++
		}

		res.Timeline = append(res.Timeline, Record{T: now, S: st.Susceptible(), I: st.Infected(), R: st.Recovered()})
	}

	if st.Infected() == 0 {
		res.Outcome = OutcomeFinished
	} else {
		res.Outcome = OutcomeTimeExpired
	}
	res.Final = st.Snapshot()
	s.logger.Debug("simulation done",
		"outcome", res.Outcome, "t", now,
		"infections", res.Events.Infections, "recoveries", res.Events.Recoveries)
	return res, nil
}
