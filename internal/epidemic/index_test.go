package epidemic

import (
	"errors"
	"math/rand/v2"
	"sort"
	"testing"
)

// adjGraph is a plain adjacency-list Graph for tests.
type adjGraph [][]int

func (g adjGraph) NodeCount() int           { return len(g) }
func (g adjGraph) Neighbors(node int) []int { return g[node] }

func undirected(n int, edges [][2]int) adjGraph {
	g := make(adjGraph, n)
	for _, e := range edges {
		g[e[0]] = append(g[e[0]], e[1])
		g[e[1]] = append(g[e[1]], e[0])
	}
	return g
}

func mustTopology(t *testing.T, g Graph) *Topology {
	t.Helper()
	topo, err := NewTopology(g)
	if err != nil {
		t.Fatalf("NewTopology: %v", err)
	}
	return topo
}

func sorted(xs []int) []int {
	out := append([]int(nil), xs...)
	sort.Ints(out)
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestIndex_PathGraph(t *testing.T) {
	topo := mustTopology(t, undirected(5, [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 4}}))
	st := NewState(topo)
	idx := st.Index()

	steps := []struct {
		name    string
		apply   func() error
		edges   int
		entries map[int][]int
	}{
		{"infect 0", func() error { return st.Infect(0) }, 1, map[int][]int{0: {1}}},
		{"infect 1", func() error { return st.Infect(1) }, 1, map[int][]int{0: {}, 1: {2}}},
		{"infect 3", func() error { return st.Infect(3) }, 3, map[int][]int{0: {}, 1: {2}, 3: {2, 4}}},
		{"infect 2", func() error { return st.Infect(2) }, 1, map[int][]int{0: {}, 1: {}, 2: {}, 3: {4}}},
		{"recover 3", func() error { return st.Recover(3) }, 0, map[int][]int{0: {}, 1: {}, 2: {}, 3: {}}},
		{"recover 0", func() error { return st.Recover(0) }, 0, map[int][]int{1: {}, 2: {}}},
	}
	for _, step := range steps {
		if err := step.apply(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if got := idx.SusceptibleInfectedEdges(); got != step.edges {
			t.Errorf("%s: S-I edges = %d, want %d", step.name, got, step.edges)
		}
		for node, want := range step.entries {
			if got := sorted(idx.SusceptibleNeighbors(node)); !equalInts(got, want) {
				t.Errorf("%s: entry(%d) = %v, want %v", step.name, node, got, want)
			}
		}
	}
	if got := idx.TotalInfectionRate(0.5); got != 0 {
		t.Errorf("TotalInfectionRate = %v, want 0", got)
	}
}

// TestIndex_MatchesRecount drives random transitions on a random graph and
// compares the incremental index with a recount from statuses.
func TestIndex_MatchesRecount(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	const n = 60
	var edges [][2]int
	for u := 0; u < n; u++ {
		for v := u + 1; v < n; v++ {
			if rng.Float64() < 0.12 {
				edges = append(edges, [2]int{u, v})
			}
		}
	}
	g := undirected(n, edges)
	topo := mustTopology(t, g)
	st := NewState(topo)
	idx := st.Index()

	for step := 0; step < 400; step++ {
		node := rng.IntN(n)
		switch st.Status(node) {
		case Susceptible:
			if err := st.Infect(node); err != nil {
				t.Fatalf("step %d: %v", step, err)
			}
		case Infected:
			if err := st.Recover(node); err != nil {
				t.Fatalf("step %d: %v", step, err)
			}
		default:
			continue
		}

		total := 0
		infected := 0
		for u := 0; u < n; u++ {
			var want []int
			if st.Status(u) == Infected {
				infected++
				for _, v := range g[u] {
					if st.Status(v) == Susceptible {
						want = append(want, v)
					}
				}
			}
			total += len(want)
			if got := sorted(idx.SusceptibleNeighbors(u)); !equalInts(got, sorted(want)) {
				t.Fatalf("step %d: entry(%d) = %v, want %v", step, u, got, sorted(want))
			}
			if idx.exposure(u) != len(want) {
				t.Fatalf("step %d: exposure(%d) = %d, want %d", step, u, idx.exposure(u), len(want))
			}
		}
		if idx.SusceptibleInfectedEdges() != total {
			t.Fatalf("step %d: S-I edges = %d, want %d", step, idx.SusceptibleInfectedEdges(), total)
		}
		if idx.InfectedCount() != infected || st.Infected() != infected {
			t.Fatalf("step %d: infected = %d/%d, want %d", step, idx.InfectedCount(), st.Infected(), infected)
		}
		if st.Susceptible()+st.Infected()+st.Recovered() != n {
			t.Fatalf("step %d: compartments do not sum to %d", step, n)
		}
	}
}

func TestFenwick_Find(t *testing.T) {
	f := newFenwick(5)
	for i, w := range []int{0, 2, 0, 3, 1} {
		f.add(i, w)
	}
	want := []int{1, 1, 3, 3, 3, 4}
	for k, w := range want {
		if got := f.find(k); got != w {
			t.Errorf("find(%d) = %d, want %d", k, got, w)
		}
	}
	f.add(3, -3)
	if got := f.find(2); got != 4 {
		t.Errorf("after removal find(2) = %d, want 4", got)
	}
}

// countingSource returns fixed draws and counts IntN calls per bound.
type countingSource struct{ next int }

func (c *countingSource) ExpFloat64() float64 { return 1 }
func (c *countingSource) Float64() float64    { return 0 }
func (c *countingSource) IntN(n int) int {
	v := c.next % n
	c.next++
	return v
}

func TestIndex_PickInfectorIsExposureWeighted(t *testing.T) {
	// Star centre 0 with four leaves, plus a separate edge 5-6.
	topo := mustTopology(t, undirected(7, [][2]int{{0, 1}, {0, 2}, {0, 3}, {0, 4}, {5, 6}}))
	st := NewState(topo)
	for _, n := range []int{0, 5} {
		if err := st.Infect(n); err != nil {
			t.Fatal(err)
		}
	}
	idx := st.Index()
	hits := map[int]int{}
	src := &countingSource{}
	for i := 0; i < idx.SusceptibleInfectedEdges(); i++ {
		hits[idx.PickInfector(src)]++
	}
	if hits[0] != 4 || hits[5] != 1 {
		t.Errorf("one pass over the weight range gave %v, want map[0:4 5:1]", hits)
	}
	if got := idx.PickSusceptibleTarget(5, src); got != 6 {
		t.Errorf("PickSusceptibleTarget(5) = %d, want 6", got)
	}
	if got := idx.PickSusceptibleTarget(1, src); got != -1 {
		t.Errorf("PickSusceptibleTarget on non-infected = %d, want -1", got)
	}
}

func TestState_InvalidTransitions(t *testing.T) {
	topo := mustTopology(t, undirected(3, [][2]int{{0, 1}}))
	st := NewState(topo)

	if err := st.Recover(0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("recover susceptible: got %v, want ErrInvalidTransition", err)
	}
	if err := st.Infect(0); err != nil {
		t.Fatalf("infect: %v", err)
	}
	if err := st.Infect(0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("infect twice: got %v, want ErrInvalidTransition", err)
	}
	if err := st.Recover(0); err != nil {
		t.Fatalf("recover: %v", err)
	}
	if err := st.Recover(0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("recover twice: got %v, want ErrInvalidTransition", err)
	}
	if err := st.Infect(0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reinfect recovered: got %v, want ErrInvalidTransition", err)
	}
	if err := st.Infect(9); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("infect out of range: got %v, want ErrUnknownNode", err)
	}
	if st.Susceptible() != 2 || st.Infected() != 0 || st.Recovered() != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/0/1", st.Susceptible(), st.Infected(), st.Recovered())
	}
}

func TestNewTopology_Rejects(t *testing.T) {
	cases := []struct {
		name string
		g    adjGraph
	}{
		{"self loop", adjGraph{{0}}},
		{"asymmetric", adjGraph{{1}, {}}},
		{"out of range", adjGraph{{3}}},
		{"duplicate", adjGraph{{1, 1}, {0, 0}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewTopology(tc.g); err == nil {
				t.Errorf("expected error for %v", tc.g)
			}
		})
	}

	topo := mustTopology(t, undirected(4, [][2]int{{0, 1}, {1, 2}}))
	if topo.NodeCount() != 4 || topo.EdgeCount() != 2 || topo.Degree(1) != 2 || topo.Degree(3) != 0 {
		t.Errorf("unexpected shape: nodes=%d edges=%d", topo.NodeCount(), topo.EdgeCount())
	}
}
