// Package route provides the default routing collaborators used by the
// stitching strategies: a deterministic swap-insertion router and a
// token-based swap network planner.
package route

import (
	"fmt"

	"qknit/internal/arch"
	"qknit/internal/circuit"
	"qknit/internal/knit"
)

// Greedy routes a circuit by swap insertion. Qubits named after
// architecture nodes keep their node; the remaining qubits that appear
// in at least one operation are placed on free nodes in node order,
// walking the register in order. Idle unpinned qubits stay unplaced.
//
// Two-qubit operations on non-adjacent nodes are preceded by swaps that
// move the first operand along a shortest path toward the second. A cx
// whose operands sit at distance exactly two is replaced by a bridge
// over the midpoint instead, leaving all placements where they are.
// Explicit swap operations in the input are absorbed into the placement
// map and emit no gates.
type Greedy struct{}

var _ knit.Router = Greedy{}

// Route implements knit.Router.
func (Greedy) Route(c *circuit.Circuit, a *arch.Architecture) (knit.Routing, error) {
	if a == nil {
		return knit.Routing{}, fmt.Errorf("route: no architecture")
	}
	if a.AllToAll() {
		return knit.Routing{}, fmt.Errorf("route: architecture is all-to-all, nothing to route")
	}

	active := make(map[circuit.UnitID]struct{})
	for _, op := range c.Ops() {
		for _, q := range op.Qubits {
			active[q] = struct{}{}
		}
	}

	// Pinned qubits first, then active ones onto free nodes in node
	// order.
	place := make(map[circuit.UnitID]circuit.UnitID)
	taken := make(map[circuit.UnitID]struct{})
	for _, q := range c.Qubits() {
		if circuit.Node(q.Index) != q {
			continue
		}
		if !a.HasNode(q) {
			return knit.Routing{}, fmt.Errorf("route: pinned qubit %s is not an architecture node", q)
		}
		place[q] = q
		taken[q] = struct{}{}
	}
	free := make([]circuit.UnitID, 0, a.NumNodes())
	for _, n := range a.Nodes() {
		if _, used := taken[n]; !used {
			free = append(free, n)
		}
	}
	for _, q := range c.Qubits() {
		if _, pinned := place[q]; pinned {
			continue
		}
		if _, isActive := active[q]; !isActive {
			continue
		}
		if len(free) == 0 {
			return knit.Routing{}, fmt.Errorf("route: circuit needs more than %d nodes", a.NumNodes())
		}
		place[q] = free[0]
		free = free[1:]
	}

	st := &routeState{
		arch: a,
		out:  circuit.New(),
		cur:  make(map[circuit.UnitID]circuit.UnitID, len(place)),
		inv:  make(map[circuit.UnitID]circuit.UnitID, len(place)),
	}
	initial := make(map[circuit.UnitID]circuit.UnitID, len(place))
	for _, q := range c.Qubits() {
		if n, placed := place[q]; placed {
			st.cur[q] = n
			st.inv[n] = q
			initial[q] = n
			st.ensureNode(n)
		} else if err := st.out.AddQubit(q); err != nil {
			return knit.Routing{}, fmt.Errorf("route: %w", err)
		}
	}
	for _, b := range c.Bits() {
		if err := st.out.AddBit(b); err != nil {
			return knit.Routing{}, fmt.Errorf("route: %w", err)
		}
	}

	for _, op := range c.Ops() {
		if err := st.emit(op); err != nil {
			return knit.Routing{}, err
		}
	}

	final := make(map[circuit.UnitID]circuit.UnitID, len(st.cur))
	for q, n := range st.cur {
		final[q] = n
	}
	return knit.Routing{Circuit: st.out, Initial: initial, Final: final}, nil
}

// routeState tracks the evolving wire-to-node assignment while ops are
// rewritten.
type routeState struct {
	arch *arch.Architecture
	out  *circuit.Circuit
	cur  map[circuit.UnitID]circuit.UnitID
	inv  map[circuit.UnitID]circuit.UnitID
}

// ensureNode adds n to the output register the first time an operation
// or placement touches it.
func (st *routeState) ensureNode(n circuit.UnitID) {
	if !st.out.HasQubit(n) {
		_ = st.out.AddQubit(n)
	}
}

// swap exchanges the wires at nodes x and y and records the gate.
func (st *routeState) swap(x, y circuit.UnitID) error {
	st.ensureNode(x)
	st.ensureNode(y)
	if err := st.out.AddGate(circuit.OpSwap, x, y); err != nil {
		return fmt.Errorf("route: %w", err)
	}
	wx, okx := st.inv[x]
	wy, oky := st.inv[y]
	if oky {
		st.cur[wy] = x
		st.inv[x] = wy
	} else {
		delete(st.inv, x)
	}
	if okx {
		st.cur[wx] = y
		st.inv[y] = wx
	} else {
		delete(st.inv, y)
	}
	return nil
}

func (st *routeState) emit(op circuit.Op) error {
	switch {
	case op.Kind == circuit.OpSwap:
		w1, w2 := op.Qubits[0], op.Qubits[1]
		st.cur[w1], st.cur[w2] = st.cur[w2], st.cur[w1]
		st.inv[st.cur[w1]] = w1
		st.inv[st.cur[w2]] = w2
		return nil
	case op.Kind == circuit.OpBridge:
		// A long-range cx in the input; route its four-cx expansion.
		ctrl, mid, tgt := op.Qubits[0], op.Qubits[1], op.Qubits[2]
		for _, pair := range [][2]circuit.UnitID{{mid, tgt}, {ctrl, mid}, {mid, tgt}, {ctrl, mid}} {
			if err := st.emitTwoQubit(circuit.Op{Kind: circuit.OpCX, Qubits: pair[:]}); err != nil {
				return err
			}
		}
		return nil
	case op.Kind.IsTwoQubit():
		return st.emitTwoQubit(op)
	default:
		mapped := circuit.Op{
			Kind:   op.Kind,
			Qubits: make([]circuit.UnitID, len(op.Qubits)),
			Bits:   op.Bits,
			Params: op.Params,
		}
		for i, q := range op.Qubits {
			mapped.Qubits[i] = st.cur[q]
		}
		if err := st.out.AddOp(mapped); err != nil {
			return fmt.Errorf("route: %w", err)
		}
		return nil
	}
}

func (st *routeState) emitTwoQubit(op circuit.Op) error {
	for {
		n1, n2 := st.cur[op.Qubits[0]], st.cur[op.Qubits[1]]
		path := st.arch.ShortestPath(n1, n2)
		switch {
		case path == nil:
			return fmt.Errorf("route: nodes %s and %s are disconnected", n1, n2)
		case len(path) == 2:
			if err := st.out.AddGate(op.Kind, n1, n2); err != nil {
				return fmt.Errorf("route: %w", err)
			}
			return nil
		case len(path) == 3 && op.Kind == circuit.OpCX:
			st.ensureNode(path[1])
			if err := st.out.AddGate(circuit.OpBridge, n1, path[1], n2); err != nil {
				return fmt.Errorf("route: %w", err)
			}
			return nil
		default:
			if err := st.swap(n1, path[1]); err != nil {
				return err
			}
		}
	}
}
