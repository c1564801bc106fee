package epidemic

// Index tracks, for every infected node, the set of its neighbors that are
// still susceptible. The number of susceptible–infected edges and the
// weighted choice of the next infector are both kept current incrementally,
// so a status change costs O(degree) and rate queries cost O(1).
//
// Index only reads node statuses; State owns them and must call OnInfect and
// OnRecover after every transition.
type Index struct {
	topo   *Topology
	status []Status

	entry   [][]int // infected node -> slots pointing at susceptible neighbors
	where   []int   // slot -> position in its owner's entry, -1 if absent
	weights fenwick // infected node -> len(entry)
	siEdges int

	infected []int // infected nodes in arbitrary order
	infPos   []int // node -> position in infected, -1 if not infected
}

func newIndex(topo *Topology, status []Status) *Index {
	n := topo.NodeCount()
	x := &Index{
		topo:    topo,
		status:  status,
		entry:   make([][]int, n),
		where:   make([]int, len(topo.targets)),
		weights: newFenwick(n),
		infPos:  make([]int, n),
	}
	for i := range x.where {
		x.where[i] = -1
	}
	for i := range x.infPos {
		x.infPos[i] = -1
	}
	return x
}

// OnInfect registers node as newly infected. Node is first dropped from the
// entries of its infected neighbors, then its own entry is created from the
// neighbors that are susceptible right now.
func (x *Index) OnInfect(node int) {
	t := x.topo
	for slot := t.offsets[node]; slot < t.offsets[node+1]; slot++ {
		if x.status[t.targets[slot]] == Infected {
			x.remove(t.targets[slot], t.mirror[slot])
		}
	}

	own := make([]int, 0, t.Degree(node))
	for slot := t.offsets[node]; slot < t.offsets[node+1]; slot++ {
		if x.status[t.targets[slot]] == Susceptible {
			x.where[slot] = len(own)
			own = append(own, slot)
		}
	}
	x.entry[node] = own
	x.weights.add(node, len(own))
	x.siEdges += len(own)

	x.infPos[node] = len(x.infected)
	x.infected = append(x.infected, node)
}

// OnRecover drops node's entry and removes node from every infected
// neighbor's entry.
func (x *Index) OnRecover(node int) {
	for _, slot := range x.entry[node] {
		x.where[slot] = -1
	}
	x.weights.add(node, -len(x.entry[node]))
	x.siEdges -= len(x.entry[node])
	x.entry[node] = nil

	t := x.topo
	for slot := t.offsets[node]; slot < t.offsets[node+1]; slot++ {
		if x.status[t.targets[slot]] == Infected {
			x.remove(t.targets[slot], t.mirror[slot])
		}
	}

	p := x.infPos[node]
	last := x.infected[len(x.infected)-1]
	x.infected[p] = last
	x.infPos[last] = p
	x.infected = x.infected[:len(x.infected)-1]
	x.infPos[node] = -1
}

// remove deletes slot from owner's entry if present.
func (x *Index) remove(owner, slot int) {
	p := x.where[slot]
	if p < 0 {
		return
	}
	e := x.entry[owner]
	last := e[len(e)-1]
	e[p] = last
	x.where[last] = p
	x.entry[owner] = e[:len(e)-1]
	x.where[slot] = -1
	x.weights.add(owner, -1)
	x.siEdges--
}

// SusceptibleInfectedEdges returns the number of edges joining an infected
// node to a susceptible one.
func (x *Index) SusceptibleInfectedEdges() int { return x.siEdges }

// TotalInfectionRate returns beta times the number of S–I edges.
func (x *Index) TotalInfectionRate(beta float64) float64 {
	return beta * float64(x.siEdges)
}

// exposure returns the number of susceptible neighbors of an infected node,
// or 0 for any other node.
func (x *Index) exposure(node int) int { return len(x.entry[node]) }

// SusceptibleNeighbors returns the current entry of node as node indices.
func (x *Index) SusceptibleNeighbors(node int) []int {
	out := make([]int, len(x.entry[node]))
	for i, slot := range x.entry[node] {
		out[i] = x.topo.targets[slot]
	}
	return out
}

// InfectedCount returns the number of infected nodes.
func (x *Index) InfectedCount() int { return len(x.infected) }

// PickInfector draws an infected node with probability proportional to its
// number of susceptible neighbors. It returns -1 when there are no S–I edges.
func (x *Index) PickInfector(src Source) int {
	if x.siEdges == 0 {
		return -1
	}
	return x.weights.find(src.IntN(x.siEdges))
}

// PickSusceptibleTarget draws a susceptible neighbor of infector uniformly.
// It returns -1 when infector has none.
func (x *Index) PickSusceptibleTarget(infector int, src Source) int {
	if infector < 0 {
		return -1
	}
	e := x.entry[infector]
	if len(e) == 0 {
		return -1
	}
	return x.topo.targets[e[src.IntN(len(e))]]
}

// PickInfected draws an infected node uniformly. Recovery is homogeneous, so
// the choice is never weighted. It returns -1 when nobody is infected.
func (x *Index) PickInfected(src Source) int {
	if len(x.infected) == 0 {
		return -1
	}
	return x.infected[src.IntN(len(x.infected))]
}

// fenwick is a binary indexed tree over non-negative integer weights.
type fenwick struct {
	tree []int
	top  int // highest power of two <= len(tree)-1
}

func newFenwick(n int) fenwick {
	top := 1
	for top*2 <= n {
		top *= 2
	}
	return fenwick{tree: make([]int, n+1), top: top}
}

func (f *fenwick) add(i, delta int) {
	if delta == 0 {
		return
	}
	for i++; i < len(f.tree); i += i & -i {
		f.tree[i] += delta
	}
}

// find returns the smallest index whose inclusive prefix sum exceeds k.
// k must lie in [0, total weight).
func (f *fenwick) find(k int) int {
	pos := 0
	for step := f.top; step > 0; step >>= 1 {
		if next := pos + step; next < len(f.tree) && f.tree[next] <= k {
			pos = next
			k -= f.tree[next]
		}
	}
	return pos
}
