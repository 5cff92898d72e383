package knit

import (
	"fmt"

	"qknit/internal/arch"
	"qknit/internal/circuit"
)

// Unrouted stitches segments by logical concatenation under assumed
// full connectivity. Each segment's declared input wires are renamed
// onto the previous segment's resolved output units; the remaining
// wires (ancillas) reuse combined-register slots no live role occupies,
// growing the register only when every slot is taken.
//
// The architecture may be nil or all-to-all; a constrained one is
// rejected. Router and Planner options are ignored.
func Unrouted(segments []Segment, a *arch.Architecture, opts Options) (Result, error) {
	if err := validateSegments(segments); err != nil {
		return Result{}, err
	}
	if a != nil && !a.AllToAll() {
		return Result{}, fmt.Errorf("knit: unrouted stitching: %w", ErrConstrainedArch)
	}

	combined := circuit.New()
	var firstIn, prevOut map[Role]circuit.UnitID
	for p, seg := range segments {
		opts.report(p, PhaseAppend)
		circ := seg.Circuit.Copy()

		if p == 0 {
			firstIn = make(map[Role]circuit.UnitID, len(seg.Inputs))
			for _, k := range sortedRoles(seg.Inputs) {
				firstIn[k] = declaredUnit(circ, seg.Inputs[k])
			}
			prevOut = make(map[Role]circuit.UnitID, len(seg.Outputs))
			for _, k := range sortedRoles(seg.Outputs) {
				prevOut[k] = declaredUnit(circ, seg.Outputs[k])
			}
			if err := renumberBits(combined, circ); err != nil {
				return Result{}, err
			}
			combined.Append(circ)
			continue
		}

		qmap := make(map[circuit.UnitID]circuit.UnitID, circ.NumQubits())
		for _, k := range sortedRoles(seg.Inputs) {
			src, ok := prevOut[k]
			if !ok {
				return Result{}, fmt.Errorf("knit: segment %d: %w: input role %s has no previous output", p, ErrRoleMismatch, k)
			}
			qmap[declaredUnit(circ, seg.Inputs[k])] = src
		}

		// Pair spare combined slots with the segment's ancilla wires.
		// Both lists are consumed from the tail.
		inUse := valueSet(qmap)
		var prevAnc, currAnc []circuit.UnitID
		for _, u := range combined.Qubits() {
			if _, used := inUse[u]; !used {
				prevAnc = append(prevAnc, u)
			}
		}
		for _, u := range circ.Qubits() {
			if _, mapped := qmap[u]; !mapped {
				currAnc = append(currAnc, u)
			}
		}
		for len(prevAnc) > 0 && len(currAnc) > 0 {
			c := currAnc[len(currAnc)-1]
			currAnc = currAnc[:len(currAnc)-1]
			s := prevAnc[len(prevAnc)-1]
			prevAnc = prevAnc[:len(prevAnc)-1]
			qmap[c] = s
		}

		// More ancillas than spare slots: the leftovers keep fresh names
		// drawn from the segment's own register, growing the combined
		// register on append.
		if len(currAnc) > 0 {
			inUse = valueSet(qmap)
			var pool []circuit.UnitID
			for _, u := range circ.Qubits() {
				if _, used := inUse[u]; !used {
					pool = append(pool, u)
				}
			}
			for _, u := range circ.Qubits() {
				if _, mapped := qmap[u]; mapped {
					continue
				}
				qmap[u] = pool[len(pool)-1]
				pool = pool[:len(pool)-1]
			}
		}

		outU := make(map[Role]circuit.UnitID, len(seg.Outputs))
		for _, k := range sortedRoles(seg.Outputs) {
			outU[k] = qmap[declaredUnit(circ, seg.Outputs[k])]
		}
		if err := circ.RenameUnits(qmap); err != nil {
			return Result{}, fmt.Errorf("knit: segment %d: mapping onto combined register: %w", p, err)
		}
		if err := renumberBits(combined, circ); err != nil {
			return Result{}, err
		}
		combined.Append(circ)
		prevOut = outU
	}
	return Result{Circuit: combined, Inputs: firstIn, Outputs: prevOut}, nil
}

// valueSet returns the set of m's values.
func valueSet(m map[circuit.UnitID]circuit.UnitID) map[circuit.UnitID]struct{} {
	s := make(map[circuit.UnitID]struct{}, len(m))
	for _, v := range m {
		s[v] = struct{}{}
	}
	return s
}
