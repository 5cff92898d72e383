// Package arch models the physical qubit topology a circuit is routed
// onto: a fixed node set with an undirected coupling relation, or an
// explicit all-to-all declaration with no constraints.
package arch

import (
	"fmt"
	"sort"

	"qknit/internal/circuit"
)

// Architecture is a fixed set of physical nodes plus the couplings that
// admit two-qubit operations. It is never mutated after construction.
type Architecture struct {
	nodes    []circuit.UnitID
	adj      map[circuit.UnitID][]circuit.UnitID
	allToAll bool
}

// New builds an architecture from explicit couplings. Node identities are
// derived from the endpoints and ordered by unit id.
func New(couplings [][2]circuit.UnitID) (*Architecture, error) {
	if len(couplings) == 0 {
		return nil, fmt.Errorf("arch: no couplings")
	}
	a := &Architecture{adj: make(map[circuit.UnitID][]circuit.UnitID)}
	seen := make(map[circuit.UnitID]struct{})
	for _, cp := range couplings {
		u, v := cp[0], cp[1]
		if u == v {
			return nil, fmt.Errorf("arch: self-coupling on %s", u)
		}
		for _, n := range []circuit.UnitID{u, v} {
			if _, ok := seen[n]; !ok {
				seen[n] = struct{}{}
				a.nodes = append(a.nodes, n)
			}
		}
		a.addEdge(u, v)
	}
	circuit.SortUnits(a.nodes)
	a.sortAdjacency()
	return a, nil
}

func (a *Architecture) addEdge(u, v circuit.UnitID) {
	for _, n := range a.adj[u] {
		if n == v {
			return
		}
	}
	a.adj[u] = append(a.adj[u], v)
	a.adj[v] = append(a.adj[v], u)
}

func (a *Architecture) sortAdjacency() {
	for _, ns := range a.adj {
		circuit.SortUnits(ns)
	}
}

// FullyConnected declares an unconstrained topology over n nodes. No
// couplings are materialised; every distinct pair is considered adjacent.
func FullyConnected(n int) *Architecture {
	a := &Architecture{allToAll: true, adj: make(map[circuit.UnitID][]circuit.UnitID)}
	for i := 0; i < n; i++ {
		a.nodes = append(a.nodes, circuit.Node(i))
	}
	return a
}

// Line builds a path topology node[0]-node[1]-...-node[n-1].
func Line(n int) *Architecture {
	couplings := make([][2]circuit.UnitID, 0, n-1)
	for i := 0; i+1 < n; i++ {
		couplings = append(couplings, [2]circuit.UnitID{circuit.Node(i), circuit.Node(i + 1)})
	}
	a, err := New(couplings)
	if err != nil {
		panic(fmt.Sprintf("arch: line(%d): %v", n, err))
	}
	return a
}

// Ring builds a cycle topology over n nodes.
func Ring(n int) *Architecture {
	couplings := make([][2]circuit.UnitID, 0, n)
	for i := 0; i < n; i++ {
		couplings = append(couplings, [2]circuit.UnitID{circuit.Node(i), circuit.Node((i + 1) % n)})
	}
	a, err := New(couplings)
	if err != nil {
		panic(fmt.Sprintf("arch: ring(%d): %v", n, err))
	}
	return a
}

// Grid builds a rows x cols lattice, numbering nodes row-major.
func Grid(rows, cols int) *Architecture {
	var couplings [][2]circuit.UnitID
	id := func(r, c int) circuit.UnitID { return circuit.Node(r*cols + c) }
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if c+1 < cols {
				couplings = append(couplings, [2]circuit.UnitID{id(r, c), id(r, c+1)})
			}
			if r+1 < rows {
				couplings = append(couplings, [2]circuit.UnitID{id(r, c), id(r+1, c)})
			}
		}
	}
	a, err := New(couplings)
	if err != nil {
		panic(fmt.Sprintf("arch: grid(%dx%d): %v", rows, cols, err))
	}
	return a
}

// Nodes returns the node set ordered by unit id.
func (a *Architecture) Nodes() []circuit.UnitID {
	out := make([]circuit.UnitID, len(a.nodes))
	copy(out, a.nodes)
	return out
}

// NumNodes returns the node count.
func (a *Architecture) NumNodes() int { return len(a.nodes) }

// HasNode reports whether u is a node of the architecture.
func (a *Architecture) HasNode(u circuit.UnitID) bool {
	for _, n := range a.nodes {
		if n == u {
			return true
		}
	}
	return false
}

// AllToAll reports whether the topology declares unconstrained
// connectivity.
func (a *Architecture) AllToAll() bool { return a.allToAll }

// Adjacent reports whether a two-qubit operation may act on u and v
// directly.
func (a *Architecture) Adjacent(u, v circuit.UnitID) bool {
	if u == v {
		return false
	}
	if a.allToAll {
		return a.HasNode(u) && a.HasNode(v)
	}
	for _, n := range a.adj[u] {
		if n == v {
			return true
		}
	}
	return false
}

// Neighbors returns u's coupled nodes in unit-id order.
func (a *Architecture) Neighbors(u circuit.UnitID) []circuit.UnitID {
	if a.allToAll {
		var out []circuit.UnitID
		for _, n := range a.nodes {
			if n != u {
				out = append(out, n)
			}
		}
		return out
	}
	ns := a.adj[u]
	out := make([]circuit.UnitID, len(ns))
	copy(out, ns)
	return out
}

// Couplings returns the undirected edge list, each edge once with its
// endpoints ordered, the list ordered by first then second endpoint.
func (a *Architecture) Couplings() [][2]circuit.UnitID {
	var out [][2]circuit.UnitID
	for _, u := range a.nodes {
		for _, v := range a.adj[u] {
			if u.Less(v) {
				out = append(out, [2]circuit.UnitID{u, v})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0].Less(out[j][0])
		}
		return out[i][1].Less(out[j][1])
	})
	return out
}

// Distance returns the coupling-graph distance between u and v, or -1
// when unreachable or unknown.
func (a *Architecture) Distance(u, v circuit.UnitID) int {
	if !a.HasNode(u) || !a.HasNode(v) {
		return -1
	}
	if u == v {
		return 0
	}
	if a.allToAll {
		return 1
	}
	dist := map[circuit.UnitID]int{u: 0}
	queue := []circuit.UnitID{u}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range a.adj[cur] {
			if _, ok := dist[n]; ok {
				continue
			}
			dist[n] = dist[cur] + 1
			if n == v {
				return dist[n]
			}
			queue = append(queue, n)
		}
	}
	return -1
}

// ShortestPath returns a minimal node path from u to v inclusive, or nil
// when unreachable. Ties break toward lower-ordered neighbors, so the
// result is deterministic.
func (a *Architecture) ShortestPath(u, v circuit.UnitID) []circuit.UnitID {
	if !a.HasNode(u) || !a.HasNode(v) {
		return nil
	}
	if u == v {
		return []circuit.UnitID{u}
	}
	if a.allToAll {
		return []circuit.UnitID{u, v}
	}
	prev := map[circuit.UnitID]circuit.UnitID{u: u}
	queue := []circuit.UnitID{u}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range a.adj[cur] {
			if _, ok := prev[n]; ok {
				continue
			}
			prev[n] = cur
			if n == v {
				var path []circuit.UnitID
				for at := v; ; at = prev[at] {
					path = append([]circuit.UnitID{at}, path...)
					if at == u {
						return path
					}
				}
			}
			queue = append(queue, n)
		}
	}
	return nil
}
