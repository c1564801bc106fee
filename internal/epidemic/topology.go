package epidemic

import "fmt"

// Graph is the read-only view of a contact network the simulator needs.
// Nodes are the dense indices 0..NodeCount()-1.
type Graph interface {
	NodeCount() int
	Neighbors(node int) []int
}

// Topology is a validated, immutable compressed adjacency layout of a Graph.
// Every undirected edge occupies two slots, one per endpoint, and each slot
// knows the position of its twin. A Topology is safe to share between
// concurrent runs.
type Topology struct {
	offsets []int // slots of node u are offsets[u]..offsets[u+1]-1
	targets []int // slot -> neighbor node
	mirror  []int // slot (u,v) -> slot (v,u)
}

// NewTopology validates g and lays it out for the simulator.
// It rejects self-loops, repeated neighbors, out-of-range indices and
// asymmetric adjacency.
func NewTopology(g Graph) (*Topology, error) {
	n := g.NodeCount()
	t := &Topology{offsets: make([]int, n+1)}
	for u := 0; u < n; u++ {
		t.offsets[u+1] = t.offsets[u] + len(g.Neighbors(u))
	}
	t.targets = make([]int, t.offsets[n])
	t.mirror = make([]int, t.offsets[n])

	slotOf := make(map[[2]int]int, t.offsets[n])
	for u := 0; u < n; u++ {
		for k, v := range g.Neighbors(u) {
			if v < 0 || v >= n {
				return nil, fmt.Errorf("topology: node %d neighbor %d: %w", u, v, ErrUnknownNode)
			}
			if v == u {
				return nil, fmt.Errorf("topology: self-loop on node %d", u)
			}
			key := [2]int{u, v}
			if _, dup := slotOf[key]; dup {
				return nil, fmt.Errorf("topology: duplicate edge %d-%d", u, v)
			}
			slot := t.offsets[u] + k
			slotOf[key] = slot
			t.targets[slot] = v
		}
	}
	for key, slot := range slotOf {
		twin, ok := slotOf[[2]int{key[1], key[0]}]
		if !ok {
			return nil, fmt.Errorf("topology: edge %d-%d has no reverse entry", key[0], key[1])
		}
		t.mirror[slot] = twin
	}
	return t, nil
}

// NodeCount returns the number of nodes.
func (t *Topology) NodeCount() int { return len(t.offsets) - 1 }

// EdgeCount returns the number of undirected edges.
func (t *Topology) EdgeCount() int { return len(t.targets) / 2 }

// Degree returns the number of neighbors of node.
func (t *Topology) Degree(node int) int { return t.offsets[node+1] - t.offsets[node] }

// Neighbors returns the neighbors of node. The slice must not be modified.
func (t *Topology) Neighbors(node int) []int {
	return t.targets[t.offsets[node]:t.offsets[node+1]]
}
