// Package qasm loads and saves circuits as an OpenQASM 2.0 subset:
// qreg/creg declarations, the supported gate set, measure and barrier.
// Parsing is line-oriented; anything the subset does not cover is a
// parse error with its line number.
package qasm

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"qknit/internal/circuit"
)

var gateKinds = map[string]circuit.OpKind{
	"h":      circuit.OpH,
	"x":      circuit.OpX,
	"y":      circuit.OpY,
	"z":      circuit.OpZ,
	"s":      circuit.OpS,
	"t":      circuit.OpT,
	"rx":     circuit.OpRx,
	"ry":     circuit.OpRy,
	"rz":     circuit.OpRz,
	"cx":     circuit.OpCX,
	"cz":     circuit.OpCZ,
	"swap":   circuit.OpSwap,
	"bridge": circuit.OpBridge,
}

// bridgeDef is emitted once per file when a circuit contains bridges.
// The expansion implements cx a,c with the middle wire b left unchanged.
const bridgeDef = "gate bridge a,b,c { cx b,c; cx a,b; cx b,c; cx a,b; }"

// ParseFile reads and parses one QASM file.
func ParseFile(path string) (*circuit.Circuit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("qasm: %w", err)
	}
	c, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse builds a circuit from QASM source.
func Parse(src string) (*circuit.Circuit, error) {
	c := circuit.New()
	inGateDef := false
	for i, raw := range strings.Split(src, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if inGateDef {
			if strings.Contains(line, "}") {
				inGateDef = false
			}
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") || strings.HasPrefix(line, "include") {
			continue
		}
		if strings.HasPrefix(line, "gate ") {
			if !strings.Contains(line, "}") {
				inGateDef = true
			}
			continue
		}
		if err := parseLine(c, line); err != nil {
			return nil, fmt.Errorf("qasm: line %d: %w", lineNo, err)
		}
	}
	return c, nil
}

func parseLine(c *circuit.Circuit, line string) error {
	stmt := strings.TrimSuffix(line, ";")
	if stmt == line {
		return fmt.Errorf("missing semicolon in %q", line)
	}
	stmt = strings.TrimSpace(stmt)

	if rest, ok := strings.CutPrefix(stmt, "qreg "); ok {
		return parseRegister(rest, c.AddQubit)
	}
	if rest, ok := strings.CutPrefix(stmt, "creg "); ok {
		return parseRegister(rest, c.AddBit)
	}
	if rest, ok := strings.CutPrefix(stmt, "measure "); ok {
		return parseMeasure(c, rest)
	}
	if rest, ok := strings.CutPrefix(stmt, "barrier"); ok {
		return parseBarrier(c, strings.TrimSpace(rest))
	}
	return parseGate(c, stmt)
}

// parseRegister handles the body of a qreg or creg declaration,
// appending one unit per index through add.
func parseRegister(body string, add func(circuit.UnitID) error) error {
	name, sizeStr, ok := splitIndexed(strings.TrimSpace(body))
	if !ok {
		return fmt.Errorf("malformed register declaration %q", body)
	}
	wide, err := strconv.ParseInt(sizeStr, 10, 64)
	if err != nil || wide <= 0 {
		return fmt.Errorf("bad register size %q", sizeStr)
	}
	size, err := safecast.Conv[int](wide)
	if err != nil {
		return fmt.Errorf("register size %s overflows: %w", sizeStr, err)
	}
	for i := 0; i < size; i++ {
		if err := add(circuit.UnitID{Reg: name, Index: i}); err != nil {
			return err
		}
	}
	return nil
}

func parseMeasure(c *circuit.Circuit, body string) error {
	src, dst, ok := strings.Cut(body, "->")
	if !ok {
		return fmt.Errorf("malformed measure %q", body)
	}
	q, err := parseOperand(strings.TrimSpace(src))
	if err != nil {
		return err
	}
	b, err := parseOperand(strings.TrimSpace(dst))
	if err != nil {
		return err
	}
	return c.AddMeasure(q, b)
}

// parseBarrier accepts indexed operands and bare register names, the
// latter standing for every unit of that register.
func parseBarrier(c *circuit.Circuit, body string) error {
	var qubits []circuit.UnitID
	for _, field := range splitOperands(body) {
		if _, _, indexed := splitIndexed(field); indexed {
			u, err := parseOperand(field)
			if err != nil {
				return err
			}
			qubits = append(qubits, u)
			continue
		}
		expanded := false
		for _, u := range c.Qubits() {
			if u.Reg == field {
				qubits = append(qubits, u)
				expanded = true
			}
		}
		if !expanded {
			return fmt.Errorf("barrier references unknown register %q", field)
		}
	}
	return c.AddOp(circuit.Op{Kind: circuit.OpBarrier, Qubits: qubits})
}

func parseGate(c *circuit.Circuit, stmt string) error {
	name := stmt
	var paramsPart, operandsPart string
	if i := strings.IndexAny(stmt, " ("); i >= 0 {
		name, paramsPart = stmt[:i], stmt[i:]
	}
	if rest, ok := strings.CutPrefix(strings.TrimSpace(paramsPart), "("); ok {
		inside, after, closed := strings.Cut(rest, ")")
		if !closed {
			return fmt.Errorf("unterminated parameter list in %q", stmt)
		}
		paramsPart, operandsPart = inside, after
	} else {
		paramsPart, operandsPart = "", paramsPart
	}

	kind, known := gateKinds[name]
	if !known {
		return fmt.Errorf("unknown gate %q", name)
	}

	op := circuit.Op{Kind: kind}
	for _, field := range splitOperands(operandsPart) {
		u, err := parseOperand(field)
		if err != nil {
			return err
		}
		op.Qubits = append(op.Qubits, u)
	}
	for _, field := range splitOperands(paramsPart) {
		v, ok := parseParam(field)
		if !ok {
			return fmt.Errorf("bad parameter %q", field)
		}
		op.Params = append(op.Params, v)
	}
	return c.AddOp(op)
}

// parseOperand reads one name[index] reference.
func parseOperand(s string) (circuit.UnitID, error) {
	name, idxStr, ok := splitIndexed(s)
	if !ok {
		return circuit.UnitID{}, fmt.Errorf("malformed operand %q", s)
	}
	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return circuit.UnitID{}, fmt.Errorf("bad operand index %q", s)
	}
	return circuit.UnitID{Reg: name, Index: idx}, nil
}

// splitIndexed splits "name[123]" into its parts.
func splitIndexed(s string) (name, index string, ok bool) {
	open := strings.IndexByte(s, '[')
	if open <= 0 || !strings.HasSuffix(s, "]") {
		return "", "", false
	}
	return s[:open], s[open+1 : len(s)-1], true
}

// splitOperands splits a comma list, dropping empty fields.
func splitOperands(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Emit renders a circuit back to QASM. Register units are grouped by
// register name in first-appearance order and sized to the highest index
// in use, so positional declarations survive a round trip.
func Emit(c *circuit.Circuit) string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n")
	if len(c.OpsOf(circuit.OpBridge)) > 0 {
		sb.WriteString(bridgeDef)
		sb.WriteByte('\n')
	}
	for _, r := range registersOf(c.Qubits()) {
		fmt.Fprintf(&sb, "qreg %s[%d];\n", r.name, r.size)
	}
	for _, r := range registersOf(c.Bits()) {
		fmt.Fprintf(&sb, "creg %s[%d];\n", r.name, r.size)
	}
	for _, op := range c.Ops() {
		if op.Kind == circuit.OpMeasure {
			fmt.Fprintf(&sb, "measure %s -> %s;\n", op.Qubits[0], op.Bits[0])
			continue
		}
		sb.WriteString(op.Kind.String())
		if len(op.Params) > 0 {
			sb.WriteByte('(')
			for i, p := range op.Params {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
			}
			sb.WriteByte(')')
		}
		for i, q := range op.Qubits {
			if i == 0 {
				sb.WriteByte(' ')
			} else {
				sb.WriteByte(',')
			}
			sb.WriteString(q.String())
		}
		sb.WriteString(";\n")
	}
	return sb.String()
}

// WriteFile saves a circuit as QASM.
func WriteFile(path string, c *circuit.Circuit) error {
	if err := os.WriteFile(path, []byte(Emit(c)), 0o644); err != nil {
		return fmt.Errorf("qasm: %w", err)
	}
	return nil
}

type register struct {
	name string
	size int
}

func registersOf(units []circuit.UnitID) []register {
	var order []string
	sizes := make(map[string]int)
	for _, u := range units {
		if _, seen := sizes[u.Reg]; !seen {
			order = append(order, u.Reg)
		}
		if u.Index+1 > sizes[u.Reg] {
			sizes[u.Reg] = u.Index + 1
		}
	}
	out := make([]register, 0, len(order))
	for _, name := range order {
		out = append(out, register{name: name, size: sizes[name]})
	}
	return out
}
