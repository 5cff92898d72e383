package knit

import (
	"fmt"

	"qknit/internal/arch"
	"qknit/internal/circuit"
)

// strayWire is a declared wire the router left unplaced, together with
// every role addressing it. Wires and roles are processed in unit-id
// order.
type strayWire struct {
	wire     circuit.UnitID
	inRoles  []Role
	outRoles []Role
}

// routeSegment invokes the router on a resolved segment and performs the
// bookkeeping both routed strategies share: resolving declared roles to
// physical nodes, seeding and growing the liveness set, composing the
// swap permutation, assigning unplaced wires to unused nodes, and
// padding the register to the full node set.
func routeSegment(p int, res resolved, a *arch.Architecture, router Router) (resolved, error) {
	routing, err := router.Route(res.circ, a)
	if err != nil {
		return resolved{}, fmt.Errorf("knit: segment %d: %w: %w", p, ErrUnroutable, err)
	}
	rc := routing.Circuit

	out := resolved{
		circ:    rc,
		inputs:  make(map[Role]circuit.UnitID, len(res.inputs)),
		outputs: make(map[Role]circuit.UnitID, len(res.outputs)),
	}
	live := make(map[circuit.UnitID]struct{})
	strays := make(map[circuit.UnitID]*strayWire)
	strayFor := func(wire circuit.UnitID) *strayWire {
		s, ok := strays[wire]
		if !ok {
			s = &strayWire{wire: wire}
			strays[wire] = s
		}
		return s
	}

	for _, k := range sortedUnitKeys(res.inputs) {
		wire := res.inputs[k]
		if n, placed := routing.Initial[wire]; placed && a.HasNode(n) {
			out.inputs[k] = n
			live[n] = struct{}{}
		} else {
			s := strayFor(wire)
			s.inRoles = append(s.inRoles, k)
		}
	}
	for _, k := range sortedUnitKeys(res.outputs) {
		wire := res.outputs[k]
		if n, placed := routing.Initial[wire]; placed && a.HasNode(n) {
			live[n] = struct{}{}
			fn, ok := routing.Final[wire]
			if !ok {
				return resolved{}, fmt.Errorf("knit: segment %d: role %s wire %s has no final placement", p, k, wire)
			}
			out.outputs[k] = fn
		} else {
			s := strayFor(wire)
			s.outRoles = append(s.outRoles, k)
		}
	}

	live = GrowLiveness(live, rc.Ops())
	nodes := a.Nodes()
	perm := SwapPermutation(nodes, rc.Ops())

	var pool []circuit.UnitID
	for _, n := range nodes {
		if _, isLive := live[n]; !isLive {
			pool = append(pool, n)
		}
	}
	taken := make(map[circuit.UnitID]struct{})

	assignWire := func(wire circuit.UnitID) (origin, landing circuit.UnitID, err error) {
		for _, temp := range pool {
			if _, used := taken[temp]; used {
				continue
			}
			k := originOf(perm, nodes, temp)
			if rc.HasQubit(k) {
				continue
			}
			if err := rc.RenameUnits(map[circuit.UnitID]circuit.UnitID{wire: k}); err != nil {
				return circuit.UnitID{}, circuit.UnitID{}, fmt.Errorf("knit: segment %d: %w", p, err)
			}
			taken[temp] = struct{}{}
			return k, temp, nil
		}
		return circuit.UnitID{}, circuit.UnitID{}, fmt.Errorf("knit: segment %d: wire %s: %w", p, wire, ErrNodePoolExhausted)
	}

	strayWires := make([]circuit.UnitID, 0, len(strays))
	for wire := range strays {
		strayWires = append(strayWires, wire)
	}
	circuit.SortUnits(strayWires)
	for _, wire := range strayWires {
		s := strays[wire]
		origin, landing, err := assignWire(wire)
		if err != nil {
			return resolved{}, err
		}
		for _, k := range s.inRoles {
			out.inputs[k] = origin
		}
		for _, k := range s.outRoles {
			out.outputs[k] = landing
		}
	}

	// Undeclared wires the router never placed would otherwise survive as
	// non-node register entries; fold them onto leftover nodes too.
	for _, wire := range rc.Qubits() {
		if a.HasNode(wire) {
			continue
		}
		if _, _, err := assignWire(wire); err != nil {
			return resolved{}, err
		}
	}

	for _, n := range nodes {
		if !rc.HasQubit(n) {
			if err := rc.AddQubit(n); err != nil {
				return resolved{}, fmt.Errorf("knit: segment %d: padding register: %w", p, err)
			}
		}
	}
	return out, nil
}

// sortedUnitKeys returns m's keys in unit-id order.
func sortedUnitKeys(m map[Role]circuit.UnitID) []Role {
	out := make([]Role, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	circuit.SortUnits(out)
	return out
}
