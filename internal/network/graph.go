// Package network loads contact networks and assigns every node a dense
// integer index used by the simulator.
package network

import (
	"fmt"

	"github.com/gyaneshwarpardhi/netsir/internal/epidemic"
)

// Graph is an undirected, loop-free contact network. Nodes carry the label
// they had in the source file and a dense index in first-seen order.
// It is immutable once built.
type Graph struct {
	labels []string
	index  map[string]int
	adj    [][]int
	edges  int
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.labels) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Neighbors returns the neighbor indices of node. The slice must not be modified.
func (g *Graph) Neighbors(node int) []int { return g.adj[node] }

// Label returns the source label of node.
func (g *Graph) Label(node int) string { return g.labels[node] }

// Index returns the dense index of label.
func (g *Graph) Index(label string) (int, bool) {
	i, ok := g.index[label]
	return i, ok
}

// Resolve maps labels to node indices.
func (g *Graph) Resolve(labels []string) ([]int, error) {
	out := make([]int, 0, len(labels))
	for _, l := range labels {
		i, ok := g.index[l]
		if !ok {
			return nil, fmt.Errorf("node %q: %w", l, epidemic.ErrUnknownNode)
		}
		out = append(out, i)
	}
	return out, nil
}

// Builder accumulates nodes and edges. Self-loops and repeated edges are
// dropped, matching how the networks are cleaned before simulation.
type Builder struct {
	g    *Graph
	seen map[[2]int]struct{}
	// SelfLoops counts dropped self-loop edges.
	SelfLoops int
	// Duplicates counts dropped repeated edges.
	Duplicates int
}

// NewBuilder allocates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		g:    &Graph{index: make(map[string]int)},
		seen: make(map[[2]int]struct{}),
	}
}

// AddNode registers label and returns its index. Adding a known label is a no-op.
func (b *Builder) AddNode(label string) int {
	if i, ok := b.g.index[label]; ok {
		return i
	}
	i := len(b.g.labels)
	b.g.labels = append(b.g.labels, label)
	b.g.index[label] = i
	b.g.adj = append(b.g.adj, nil)
	return i
}

// AddEdge records an undirected edge between two labels, adding them as nodes.
func (b *Builder) AddEdge(from, to string) {
	u, v := b.AddNode(from), b.AddNode(to)
	if u == v {
		b.SelfLoops++
		return
	}
	key := [2]int{min(u, v), max(u, v)}
	if _, dup := b.seen[key]; dup {
		b.Duplicates++
		return
	}
	b.seen[key] = struct{}{}
	b.g.adj[u] = append(b.g.adj[u], v)
	b.g.adj[v] = append(b.g.adj[v], u)
	b.g.edges++
}

// Graph returns the built network. The builder must not be used afterwards.
func (b *Builder) Graph() *Graph { return b.g }
