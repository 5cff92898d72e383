package arch_test

import (
	"testing"

	"qknit/internal/arch"
	"qknit/internal/circuit"
)

// TestLineShape verifies node count and adjacency of a path topology.
func TestLineShape(t *testing.T) {
	a := arch.Line(4)
	if a.NumNodes() != 4 {
		t.Fatalf("expected 4 nodes, got %d", a.NumNodes())
	}
	if !a.Adjacent(circuit.Node(1), circuit.Node(2)) {
		t.Errorf("node[1] and node[2] should be adjacent")
	}
	if a.Adjacent(circuit.Node(0), circuit.Node(2)) {
		t.Errorf("node[0] and node[2] should not be adjacent")
	}
	if a.AllToAll() {
		t.Errorf("line topology reported all-to-all")
	}
}

// TestRingDistance verifies BFS distances wrap around the cycle.
func TestRingDistance(t *testing.T) {
	a := arch.Ring(6)
	if d := a.Distance(circuit.Node(0), circuit.Node(5)); d != 1 {
		t.Errorf("ring distance 0-5 = %d, want 1", d)
	}
	if d := a.Distance(circuit.Node(0), circuit.Node(3)); d != 3 {
		t.Errorf("ring distance 0-3 = %d, want 3", d)
	}
}

// TestGridCouplings verifies lattice edges and node numbering.
func TestGridCouplings(t *testing.T) {
	a := arch.Grid(2, 3)
	if a.NumNodes() != 6 {
		t.Fatalf("expected 6 nodes, got %d", a.NumNodes())
	}
	if !a.Adjacent(circuit.Node(0), circuit.Node(3)) {
		t.Errorf("vertical neighbors 0-3 should be adjacent")
	}
	if a.Adjacent(circuit.Node(2), circuit.Node(3)) {
		t.Errorf("row wrap 2-3 should not be adjacent")
	}
	if got := len(a.Couplings()); got != 7 {
		t.Errorf("expected 7 couplings, got %d", got)
	}
}

// TestShortestPathDeterministic verifies the path and its tie-break order.
func TestShortestPathDeterministic(t *testing.T) {
	a := arch.Grid(2, 2)
	path := a.ShortestPath(circuit.Node(0), circuit.Node(3))
	if len(path) != 3 {
		t.Fatalf("expected path length 3, got %d (%v)", len(path), path)
	}
	if path[0] != circuit.Node(0) || path[2] != circuit.Node(3) {
		t.Errorf("path endpoints wrong: %v", path)
	}
	// Both node[1] and node[2] are valid midpoints; the lower id wins.
	if path[1] != circuit.Node(1) {
		t.Errorf("path midpoint = %v, want node[1]", path[1])
	}
}

// TestFullyConnected verifies the all-to-all marker and adjacency.
func TestFullyConnected(t *testing.T) {
	a := arch.FullyConnected(3)
	if !a.AllToAll() {
		t.Fatalf("expected all-to-all")
	}
	if !a.Adjacent(circuit.Node(0), circuit.Node(2)) {
		t.Errorf("all pairs should be adjacent")
	}
	if a.Adjacent(circuit.Node(0), circuit.Node(0)) {
		t.Errorf("a node is not adjacent to itself")
	}
	if d := a.Distance(circuit.Node(0), circuit.Node(2)); d != 1 {
		t.Errorf("distance = %d, want 1", d)
	}
}

// TestNewRejectsSelfCoupling verifies validation of explicit couplings.
func TestNewRejectsSelfCoupling(t *testing.T) {
	_, err := arch.New([][2]circuit.UnitID{{circuit.Node(0), circuit.Node(0)}})
	if err == nil {
		t.Errorf("self-coupling accepted, want error")
	}
}
