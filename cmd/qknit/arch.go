package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"qknit/internal/arch"
)

var archCmd = &cobra.Command{
	Use:   "arch <line|ring|grid|full> <n | rows cols>",
	Short: "Print a topology's nodes and couplings",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildArchArg(args)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if a.AllToAll() {
			fmt.Fprintf(out, "%s: %d nodes, all-to-all\n", args[0], a.NumNodes())
		} else {
			fmt.Fprintf(out, "%s: %d nodes, %d couplings\n", args[0], a.NumNodes(), len(a.Couplings()))
		}
		for _, n := range a.Nodes() {
			fmt.Fprintf(out, "  %s\n", n)
		}
		for _, cp := range a.Couplings() {
			fmt.Fprintf(out, "  %s -- %s\n", cp[0], cp[1])
		}
		return nil
	},
}

func buildArchArg(args []string) (*arch.Architecture, error) {
	kind := args[0]
	dims := make([]int, 0, 2)
	for _, s := range args[1:] {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("bad dimension %q", s)
		}
		dims = append(dims, v)
	}
	switch kind {
	case "line", "ring", "full":
		if len(dims) != 1 {
			return nil, fmt.Errorf("%s takes exactly one size argument", kind)
		}
		if kind != "full" && dims[0] < 2 {
			return nil, fmt.Errorf("%s needs at least 2 nodes", kind)
		}
		switch kind {
		case "line":
			return arch.Line(dims[0]), nil
		case "ring":
			return arch.Ring(dims[0]), nil
		default:
			return arch.FullyConnected(dims[0]), nil
		}
	case "grid":
		if len(dims) != 2 {
			return nil, fmt.Errorf("grid takes rows and cols")
		}
		return arch.Grid(dims[0], dims[1]), nil
	default:
		return nil, fmt.Errorf("unknown architecture kind %q (expected line|ring|grid|full)", kind)
	}
}
