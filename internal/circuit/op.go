package circuit

// OpKind enumerates the gate kinds understood by the toolchain.
type OpKind uint8

const (
	// OpH represents a Hadamard gate.
	OpH OpKind = iota
	// OpX represents a Pauli-X gate.
	OpX
	// OpY represents a Pauli-Y gate.
	OpY
	// OpZ represents a Pauli-Z gate.
	OpZ
	// OpS represents an S phase gate.
	OpS
	// OpT represents a T phase gate.
	OpT
	// OpRx represents a parameterised X rotation.
	OpRx
	// OpRy represents a parameterised Y rotation.
	OpRy
	// OpRz represents a parameterised Z rotation.
	OpRz
	// OpCX represents a controlled-X gate.
	OpCX
	// OpCZ represents a controlled-Z gate.
	OpCZ
	// OpSwap represents a physical exchange of two wires.
	OpSwap
	// OpBridge represents a controlled-X between its first and third
	// operand, mediated by the middle wire.
	OpBridge
	// OpMeasure represents a measurement into a classical bit.
	OpMeasure
	// OpBarrier represents a scheduling barrier.
	OpBarrier
)

var opKindNames = [...]string{
	OpH:       "h",
	OpX:       "x",
	OpY:       "y",
	OpZ:       "z",
	OpS:       "s",
	OpT:       "t",
	OpRx:      "rx",
	OpRy:      "ry",
	OpRz:      "rz",
	OpCX:      "cx",
	OpCZ:      "cz",
	OpSwap:    "swap",
	OpBridge:  "bridge",
	OpMeasure: "measure",
	OpBarrier: "barrier",
}

// String returns the lowercase mnemonic of the kind.
func (k OpKind) String() string {
	if int(k) < len(opKindNames) {
		return opKindNames[k]
	}
	return "unknown"
}

// QubitArity returns the number of qubit operands the kind requires,
// or -1 for variadic kinds.
func (k OpKind) QubitArity() int {
	switch k {
	case OpH, OpX, OpY, OpZ, OpS, OpT, OpRx, OpRy, OpRz, OpMeasure:
		return 1
	case OpCX, OpCZ, OpSwap:
		return 2
	case OpBridge:
		return 3
	case OpBarrier:
		return -1
	default:
		return -1
	}
}

// ParamArity returns the number of angle parameters the kind requires.
func (k OpKind) ParamArity() int {
	switch k {
	case OpRx, OpRy, OpRz:
		return 1
	default:
		return 0
	}
}

// IsTwoQubit reports whether the kind is an entangling two-qubit gate.
// Swap is excluded: it permutes wires rather than entangling them.
func (k OpKind) IsTwoQubit() bool {
	return k == OpCX || k == OpCZ
}

// Op is a single operation over qubit and classical-bit operands.
type Op struct {
	Kind   OpKind
	Qubits []UnitID
	Bits   []UnitID
	Params []float64
}
