package knit

import (
	"qknit/internal/circuit"
)

// GrowLiveness expands seed across ops in sequence order and returns the
// resulting live-node set. A two-qubit gate with any live operand marks
// all of its operands live. A swap with exactly one live operand moves
// liveness across, because the data travels while the wires stay. A
// bridge links only its end wires; the middle wire merely transits.
// The returned set shares no storage with seed.
func GrowLiveness(seed map[circuit.UnitID]struct{}, ops []circuit.Op) map[circuit.UnitID]struct{} {
	live := make(map[circuit.UnitID]struct{}, len(seed))
	for u := range seed {
		live[u] = struct{}{}
	}
	for _, op := range ops {
		switch {
		case op.Kind.IsTwoQubit():
			any := false
			for _, q := range op.Qubits {
				if _, ok := live[q]; ok {
					any = true
					break
				}
			}
			if any {
				for _, q := range op.Qubits {
					live[q] = struct{}{}
				}
			}
		case op.Kind == circuit.OpSwap:
			q0, q1 := op.Qubits[0], op.Qubits[1]
			_, l0 := live[q0]
			_, l1 := live[q1]
			if l0 && !l1 {
				delete(live, q0)
				live[q1] = struct{}{}
			} else if l1 && !l0 {
				delete(live, q1)
				live[q0] = struct{}{}
			}
		case op.Kind == circuit.OpBridge:
			e0, e2 := op.Qubits[0], op.Qubits[2]
			_, l0 := live[e0]
			_, l2 := live[e2]
			if l0 || l2 {
				live[e0] = struct{}{}
				live[e2] = struct{}{}
			}
		}
	}
	return live
}

// SwapPermutation composes the transposition of every swap in ops, in
// sequence order, into a total permutation over nodes: data starting on
// node n ends on the node the result maps n to. Swaps whose operands are
// not both in nodes are ignored. The result is always a bijection, even
// for overlapping swap chains.
func SwapPermutation(nodes []circuit.UnitID, ops []circuit.Op) map[circuit.UnitID]circuit.UnitID {
	perm := make(map[circuit.UnitID]circuit.UnitID, len(nodes))
	for _, n := range nodes {
		perm[n] = n
	}
	for _, op := range ops {
		if op.Kind != circuit.OpSwap {
			continue
		}
		q0, q1 := op.Qubits[0], op.Qubits[1]
		if _, ok := perm[q0]; !ok {
			continue
		}
		if _, ok := perm[q1]; !ok {
			continue
		}
		for k, v := range perm {
			if v == q0 {
				perm[k] = q1
			} else if v == q1 {
				perm[k] = q0
			}
		}
	}
	return perm
}

// originOf inverts perm at target: the node whose data ends on target.
// The scan follows node order, so the answer is deterministic.
func originOf(perm map[circuit.UnitID]circuit.UnitID, nodes []circuit.UnitID, target circuit.UnitID) circuit.UnitID {
	for _, n := range nodes {
		if perm[n] == target {
			return n
		}
	}
	return target
}
