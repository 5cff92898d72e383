package knit

import (
	"qknit/internal/arch"
	"qknit/internal/circuit"
)

// Routing is a router's output: the rewritten circuit plus the initial
// and final node placements of every qubit the router placed. Keys are
// the pre-routing unit ids. A qubit absent from the maps was left
// unplaced and is treated as unassigned by the stitchers.
type Routing struct {
	Circuit *circuit.Circuit
	Initial map[circuit.UnitID]circuit.UnitID
	Final   map[circuit.UnitID]circuit.UnitID
}

// Router maps a circuit's qubits onto architecture nodes and rewrites
// the circuit so every two-qubit operation acts on coupled nodes, while
// preserving gate semantics. Forced placements are expressed by naming
// circuit qubits after nodes before the call. Routing against an
// all-to-all architecture is an error.
type Router interface {
	Route(c *circuit.Circuit, a *arch.Architecture) (Routing, error)
}

// SwapPlanner produces an ordered swap sequence that realises a
// node-to-node correspondence over an architecture: executing the pairs
// in order moves the data at every key node to its value node. The
// correspondence may cover any subset of nodes but must be injective.
type SwapPlanner interface {
	Plan(a *arch.Architecture, moves map[circuit.UnitID]circuit.UnitID) ([][2]circuit.UnitID, error)
}
