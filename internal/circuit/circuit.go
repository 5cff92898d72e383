// Package circuit provides the in-memory quantum circuit model shared by
// the routing and knitting layers: registers of named units, a closed set
// of operation kinds, and the rename/append primitives knitting relies on.
package circuit

import (
	"fmt"
	"slices"
)

// Circuit is an ordered register of qubits and classical bits plus the
// sequence of operations applied to them. Units are identified by name,
// not position; positions matter only where a caller indexes the register.
type Circuit struct {
	qubits []UnitID
	bits   []UnitID
	ops    []Op
}

// New returns an empty circuit.
func New() *Circuit {
	return &Circuit{}
}

// NewWithRegisters returns a circuit with qubits q[0..nq) and bits c[0..nb).
func NewWithRegisters(nq, nb int) *Circuit {
	c := New()
	for i := 0; i < nq; i++ {
		c.qubits = append(c.qubits, Qubit(i))
	}
	for i := 0; i < nb; i++ {
		c.bits = append(c.bits, Bit(i))
	}
	return c
}

// NumQubits returns the qubit register size.
func (c *Circuit) NumQubits() int { return len(c.qubits) }

// NumBits returns the classical register size.
func (c *Circuit) NumBits() int { return len(c.bits) }

// NumOps returns the number of operations.
func (c *Circuit) NumOps() int { return len(c.ops) }

// Qubits returns a copy of the qubit register in order.
func (c *Circuit) Qubits() []UnitID { return slices.Clone(c.qubits) }

// Bits returns a copy of the classical register in order.
func (c *Circuit) Bits() []UnitID { return slices.Clone(c.bits) }

// QubitAt returns the qubit at position i.
func (c *Circuit) QubitAt(i int) UnitID { return c.qubits[i] }

// BitAt returns the bit at position i.
func (c *Circuit) BitAt(i int) UnitID { return c.bits[i] }

// QubitIndex returns the position of u in the qubit register, or -1.
func (c *Circuit) QubitIndex(u UnitID) int {
	return slices.Index(c.qubits, u)
}

// HasQubit reports whether u is in the qubit register.
func (c *Circuit) HasQubit(u UnitID) bool { return c.QubitIndex(u) >= 0 }

// HasBit reports whether u is in the classical register.
func (c *Circuit) HasBit(u UnitID) bool { return slices.Index(c.bits, u) >= 0 }

// AddQubit appends u to the qubit register.
func (c *Circuit) AddQubit(u UnitID) error {
	if c.HasQubit(u) {
		return fmt.Errorf("circuit: duplicate qubit %s", u)
	}
	c.qubits = append(c.qubits, u)
	return nil
}

// AddBit appends u to the classical register.
func (c *Circuit) AddBit(u UnitID) error {
	if c.HasBit(u) {
		return fmt.Errorf("circuit: duplicate bit %s", u)
	}
	c.bits = append(c.bits, u)
	return nil
}

// AddOp validates operands against the registers and appends op.
func (c *Circuit) AddOp(op Op) error {
	if n := op.Kind.QubitArity(); n >= 0 && len(op.Qubits) != n {
		return fmt.Errorf("circuit: %s expects %d qubit operand(s), got %d", op.Kind, n, len(op.Qubits))
	}
	if n := op.Kind.ParamArity(); len(op.Params) != n {
		return fmt.Errorf("circuit: %s expects %d parameter(s), got %d", op.Kind, n, len(op.Params))
	}
	for _, q := range op.Qubits {
		if !c.HasQubit(q) {
			return fmt.Errorf("circuit: %s operand %s is not in the qubit register", op.Kind, q)
		}
	}
	for _, b := range op.Bits {
		if !c.HasBit(b) {
			return fmt.Errorf("circuit: %s operand %s is not in the classical register", op.Kind, b)
		}
	}
	c.ops = append(c.ops, op)
	return nil
}

// AddGate appends a parameterless gate over the given qubits.
func (c *Circuit) AddGate(k OpKind, qubits ...UnitID) error {
	return c.AddOp(Op{Kind: k, Qubits: qubits})
}

// AddRotation appends a single-qubit rotation with the given angle.
func (c *Circuit) AddRotation(k OpKind, angle float64, q UnitID) error {
	return c.AddOp(Op{Kind: k, Qubits: []UnitID{q}, Params: []float64{angle}})
}

// AddMeasure appends a measurement of q into bit b.
func (c *Circuit) AddMeasure(q, b UnitID) error {
	return c.AddOp(Op{Kind: OpMeasure, Qubits: []UnitID{q}, Bits: []UnitID{b}})
}

// Ops returns a copy of the operation sequence.
func (c *Circuit) Ops() []Op {
	out := make([]Op, len(c.ops))
	for i, op := range c.ops {
		out[i] = copyOp(op)
	}
	return out
}

// OpsOf returns the operations of kind k, in sequence order.
func (c *Circuit) OpsOf(k OpKind) []Op {
	var out []Op
	for _, op := range c.ops {
		if op.Kind == k {
			out = append(out, copyOp(op))
		}
	}
	return out
}

func copyOp(op Op) Op {
	return Op{
		Kind:   op.Kind,
		Qubits: slices.Clone(op.Qubits),
		Bits:   slices.Clone(op.Bits),
		Params: slices.Clone(op.Params),
	}
}

// RenameUnits renames register entries and operation operands according
// to m. Qubits and bits share one map; a rename that collides with a
// unit not itself renamed away is an error and leaves c unchanged.
func (c *Circuit) RenameUnits(m map[UnitID]UnitID) error {
	if len(m) == 0 {
		return nil
	}
	renamed := func(u UnitID) UnitID {
		if to, ok := m[u]; ok {
			return to
		}
		return u
	}
	newQubits := make([]UnitID, len(c.qubits))
	seen := make(map[UnitID]struct{}, len(c.qubits))
	for i, q := range c.qubits {
		nq := renamed(q)
		if _, dup := seen[nq]; dup {
			return fmt.Errorf("circuit: rename collides on qubit %s", nq)
		}
		seen[nq] = struct{}{}
		newQubits[i] = nq
	}
	newBits := make([]UnitID, len(c.bits))
	seenBits := make(map[UnitID]struct{}, len(c.bits))
	for i, b := range c.bits {
		nb := renamed(b)
		if _, dup := seenBits[nb]; dup {
			return fmt.Errorf("circuit: rename collides on bit %s", nb)
		}
		seenBits[nb] = struct{}{}
		newBits[i] = nb
	}
	c.qubits = newQubits
	c.bits = newBits
	for i := range c.ops {
		for j, q := range c.ops[i].Qubits {
			c.ops[i].Qubits[j] = renamed(q)
		}
		for j, b := range c.ops[i].Bits {
			c.ops[i].Bits[j] = renamed(b)
		}
	}
	return nil
}

// Append unions other's registers into c (new units keep their order and
// are added after existing ones) and appends copies of other's operations.
// Operands match by unit name, so no positional offsetting is involved.
func (c *Circuit) Append(other *Circuit) {
	for _, q := range other.qubits {
		if !c.HasQubit(q) {
			c.qubits = append(c.qubits, q)
		}
	}
	for _, b := range other.bits {
		if !c.HasBit(b) {
			c.bits = append(c.bits, b)
		}
	}
	for _, op := range other.ops {
		c.ops = append(c.ops, copyOp(op))
	}
}

// Copy returns a deep copy of c.
func (c *Circuit) Copy() *Circuit {
	out := &Circuit{
		qubits: slices.Clone(c.qubits),
		bits:   slices.Clone(c.bits),
		ops:    make([]Op, len(c.ops)),
	}
	for i, op := range c.ops {
		out.ops[i] = copyOp(op)
	}
	return out
}

// Depth returns the length of the longest dependency chain through the
// operation sequence, counting barriers and measurements as layers.
func (c *Circuit) Depth() int {
	frontier := make(map[UnitID]int, len(c.qubits)+len(c.bits))
	depth := 0
	for _, op := range c.ops {
		layer := 0
		for _, q := range op.Qubits {
			if frontier[q] > layer {
				layer = frontier[q]
			}
		}
		for _, b := range op.Bits {
			if frontier[b] > layer {
				layer = frontier[b]
			}
		}
		layer++
		for _, q := range op.Qubits {
			frontier[q] = layer
		}
		for _, b := range op.Bits {
			frontier[b] = layer
		}
		if layer > depth {
			depth = layer
		}
	}
	return depth
}
