package epidemic

import "fmt"

// State holds the compartment of every node of one run and keeps the
// infectious edge index in step with each transition.
type State struct {
	status []Status
	counts [3]int
	index  *Index
}

// NewState returns a state with every node of topo susceptible.
func NewState(topo *Topology) *State {
	status := make([]Status, topo.NodeCount())
	s := &State{status: status, index: newIndex(topo, status)}
	s.counts[Susceptible] = len(status)
	return s
}

// Infect moves node from Susceptible to Infected.
func (s *State) Infect(node int) error {
	if err := s.check(node, Susceptible, "infect"); err != nil {
		return err
	}
	s.move(node, Infected)
	s.index.OnInfect(node)
	return nil
}

// Recover moves node from Infected to Recovered.
func (s *State) Recover(node int) error {
	if err := s.check(node, Infected, "recover"); err != nil {
		return err
	}
	s.move(node, Recovered)
	s.index.OnRecover(node)
	return nil
}

func (s *State) check(node int, want Status, op string) error {
	if node < 0 || node >= len(s.status) {
		return fmt.Errorf("%s node %d: %w", op, node, ErrUnknownNode)
	}
	if got := s.status[node]; got != want {
		return fmt.Errorf("%s node %d: status is %s, want %s: %w", op, node, got, want, ErrInvalidTransition)
	}
	return nil
}

func (s *State) move(node int, to Status) {
	s.counts[s.status[node]]--
	s.status[node] = to
	s.counts[to]++
}

// Status returns the compartment of node.
func (s *State) Status(node int) Status { return s.status[node] }

// Susceptible returns the number of susceptible nodes.
func (s *State) Susceptible() int { return s.counts[Susceptible] }

// Infected returns the number of infected nodes.
func (s *State) Infected() int { return s.counts[Infected] }

// Recovered returns the number of recovered nodes.
func (s *State) Recovered() int { return s.counts[Recovered] }

// Index exposes the infectious edge index driven by this state.
func (s *State) Index() *Index { return s.index }

// Snapshot returns a copy of every node's status.
func (s *State) Snapshot() []Status {
	out := make([]Status, len(s.status))
	copy(out, s.status)
	return out
}
