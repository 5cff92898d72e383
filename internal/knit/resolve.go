package knit

import (
	"fmt"

	"qknit/internal/arch"
	"qknit/internal/circuit"
)

// resolved carries one segment mid-stitch: its working circuit copy and
// role maps resolved to concrete register units.
type resolved struct {
	circ    *circuit.Circuit
	inputs  map[Role]circuit.UnitID
	outputs map[Role]circuit.UnitID
}

// sortedRoles returns m's keys in unit-id order, so every scan over a
// role map is deterministic.
func sortedRoles(m IOMap) []Role {
	out := make([]Role, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	circuit.SortUnits(out)
	return out
}

// declaredUnit resolves a declared location against the current
// register. Locations are validated before any strategy runs, so both
// forms are safe to dereference here.
func declaredUnit(c *circuit.Circuit, loc Location) circuit.UnitID {
	if loc.Kind == LocIndex {
		return c.QubitAt(loc.Index)
	}
	return loc.Unit
}

// resolveAfterRename resolves both role maps against the post-rename
// register: positional locations read the register directly, unit
// locations are passed through the rename that was just applied.
func resolveAfterRename(circ *circuit.Circuit, seg Segment, rename map[circuit.UnitID]circuit.UnitID) resolved {
	after := func(u circuit.UnitID) circuit.UnitID {
		if to, ok := rename[u]; ok {
			return to
		}
		return u
	}
	res := resolved{
		circ:    circ,
		inputs:  make(map[Role]circuit.UnitID, len(seg.Inputs)),
		outputs: make(map[Role]circuit.UnitID, len(seg.Outputs)),
	}
	for _, k := range sortedRoles(seg.Inputs) {
		if loc := seg.Inputs[k]; loc.Kind == LocIndex {
			res.inputs[k] = circ.QubitAt(loc.Index)
		} else {
			res.inputs[k] = after(loc.Unit)
		}
	}
	for _, k := range sortedRoles(seg.Outputs) {
		if loc := seg.Outputs[k]; loc.Kind == LocIndex {
			res.outputs[k] = circ.QubitAt(loc.Index)
		} else {
			res.outputs[k] = after(loc.Unit)
		}
	}
	return res
}

// resolveFirst prepares the first segment of a routed stitch: roles named
// after architecture nodes are pinned by renaming their declared qubit to
// that node, every other declared location resolves to its register unit.
func resolveFirst(seg Segment, a *arch.Architecture) (resolved, error) {
	circ := seg.Circuit.Copy()
	rename := make(map[circuit.UnitID]circuit.UnitID)
	for _, k := range sortedRoles(seg.Inputs) {
		if !a.HasNode(k) {
			continue
		}
		if u := declaredUnit(circ, seg.Inputs[k]); u != k {
			rename[u] = k
		}
	}
	if err := circ.RenameUnits(rename); err != nil {
		return resolved{}, fmt.Errorf("knit: pinning node-named roles: %w", err)
	}
	return resolveAfterRename(circ, seg, rename), nil
}

// resolveIndependent prepares a non-first segment of a separate stitch:
// declared locations resolve to register units with no pinning; the swap
// network spliced in later reconciles the seam.
func resolveIndependent(seg Segment) resolved {
	return resolveAfterRename(seg.Circuit.Copy(), seg, nil)
}

// resolveForced prepares a non-first segment of a sequential stitch:
// every declared input qubit is renamed onto the node where the previous
// segment produced that role, and a declared output sharing its role's
// input location inherits the previous output node outright.
func resolveForced(p int, seg Segment, prevOut map[Role]circuit.UnitID) (resolved, error) {
	circ := seg.Circuit.Copy()
	rename := make(map[circuit.UnitID]circuit.UnitID)
	inherited := make(map[Role]circuit.UnitID)
	for _, k := range sortedRoles(seg.Inputs) {
		prev, ok := prevOut[k]
		if !ok {
			return resolved{}, fmt.Errorf("knit: segment %d: %w: input role %s has no previous output", p, ErrRoleMismatch, k)
		}
		if out, declared := seg.Outputs[k]; declared && out == seg.Inputs[k] {
			inherited[k] = prev
		}
		if u := declaredUnit(circ, seg.Inputs[k]); u != prev {
			rename[u] = prev
		}
	}
	if err := circ.RenameUnits(rename); err != nil {
		return resolved{}, fmt.Errorf("knit: segment %d: forcing inputs onto previous outputs: %w", p, err)
	}
	res := resolveAfterRename(circ, seg, rename)
	for k, n := range inherited {
		res.outputs[k] = n
	}
	return res, nil
}

// renumberBits renames seg's classical bits to c[base..base+n), where
// base is the combined register's current size, keeping relative order.
func renumberBits(combined, seg *circuit.Circuit) error {
	bmap := make(map[circuit.UnitID]circuit.UnitID)
	base := combined.NumBits()
	for i, b := range seg.Bits() {
		bmap[b] = circuit.Bit(base + i)
	}
	if err := seg.RenameUnits(bmap); err != nil {
		return fmt.Errorf("knit: renumbering bits: %w", err)
	}
	return nil
}

// nodeRegister returns a fresh circuit whose qubit register is exactly
// the architecture's nodes, in node order.
func nodeRegister(a *arch.Architecture) *circuit.Circuit {
	c := circuit.New()
	for _, n := range a.Nodes() {
		_ = c.AddQubit(n)
	}
	return c
}
