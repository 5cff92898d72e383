// Package render draws ASCII circuit diagrams: one lane per qubit,
// operations laid out left to right in dependency layers, box-drawing
// connectors for multi-qubit gates.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"qknit/internal/circuit"
)

// Options controls diagram styling. The zero value renders plain text,
// which is what tests and non-TTY output use.
type Options struct {
	// Color styles gate symbols with lipgloss when set.
	Color bool
}

var gateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

// cell is one lane slot in one column: either empty (bare wire), a gate
// symbol, or a connector crossing the lane.
type cell struct {
	text   string
	symbol bool
}

// Diagram renders c as a multi-line diagram. Qubits keep their register
// order; measurements are listed below the lanes. The output is
// deterministic for a given circuit.
func Diagram(c *circuit.Circuit, opts Options) string {
	qubits := c.Qubits()
	if len(qubits) == 0 {
		return ""
	}
	lane := make(map[circuit.UnitID]int, len(qubits))
	for i, q := range qubits {
		lane[q] = i
	}

	var (
		columns  [][]cell
		busy     = make([]int, len(qubits))
		measures []string
	)
	place := func(texts map[int]string) {
		lo, hi := len(qubits), -1
		for l := range texts {
			if l < lo {
				lo = l
			}
			if l > hi {
				hi = l
			}
		}
		col := 0
		for l := lo; l <= hi; l++ {
			if busy[l] > col {
				col = busy[l]
			}
		}
		for len(columns) <= col {
			columns = append(columns, make([]cell, len(qubits)))
		}
		for l := lo; l <= hi; l++ {
			text, occupied := texts[l]
			if !occupied {
				text = "│"
			}
			columns[col][l] = cell{text: text, symbol: true}
			busy[l] = col + 1
		}
	}

	for _, op := range c.Ops() {
		texts := make(map[int]string, len(op.Qubits))
		switch op.Kind {
		case circuit.OpCX:
			texts[lane[op.Qubits[0]]] = "●"
			texts[lane[op.Qubits[1]]] = "⊕"
		case circuit.OpCZ:
			texts[lane[op.Qubits[0]]] = "●"
			texts[lane[op.Qubits[1]]] = "●"
		case circuit.OpSwap:
			texts[lane[op.Qubits[0]]] = "×"
			texts[lane[op.Qubits[1]]] = "×"
		case circuit.OpBridge:
			texts[lane[op.Qubits[0]]] = "●"
			texts[lane[op.Qubits[1]]] = "│"
			texts[lane[op.Qubits[2]]] = "⊕"
		case circuit.OpBarrier:
			for _, q := range op.Qubits {
				texts[lane[q]] = "░"
			}
			if len(texts) == 0 {
				continue
			}
		case circuit.OpMeasure:
			texts[lane[op.Qubits[0]]] = "[M]"
			measures = append(measures, fmt.Sprintf("%s -> %s", op.Qubits[0], op.Bits[0]))
		default:
			texts[lane[op.Qubits[0]]] = "[" + op.Kind.String() + "]"
		}
		place(texts)
	}

	labelWidth := 0
	for _, q := range qubits {
		if w := runewidth.StringWidth(q.String()); w > labelWidth {
			labelWidth = w
		}
	}
	colWidths := make([]int, len(columns))
	for i, col := range columns {
		w := 1
		for _, cl := range col {
			if cw := runewidth.StringWidth(cl.text); cw > w {
				w = cw
			}
		}
		colWidths[i] = w + 2
	}

	var b strings.Builder
	for l, q := range qubits {
		label := q.String()
		b.WriteString(label)
		b.WriteString(strings.Repeat(" ", labelWidth-runewidth.StringWidth(label)))
		b.WriteString(": ")
		for i, col := range columns {
			cl := col[l]
			if !cl.symbol {
				b.WriteString(strings.Repeat("─", colWidths[i]))
				continue
			}
			b.WriteString(padWire(cl.text, colWidths[i], opts.Color))
		}
		b.WriteString("─")
		b.WriteString("\n")
	}
	for _, m := range measures {
		b.WriteString("measure ")
		b.WriteString(m)
		b.WriteString("\n")
	}
	return b.String()
}

// padWire centres text within width, filling with wire dashes on both
// sides. Styling is applied to the symbol only, after padding, so
// escape sequences never skew the width math.
func padWire(text string, width int, color bool) string {
	w := runewidth.StringWidth(text)
	left := (width - w) / 2
	right := width - w - left
	if color {
		text = gateStyle.Render(text)
	}
	return strings.Repeat("─", left) + text + strings.Repeat("─", right)
}
