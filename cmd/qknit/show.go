package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"qknit/internal/qasm"
	"qknit/internal/render"
)

var showCmd = &cobra.Command{
	Use:   "show <circuit.qasm>",
	Short: "Render a circuit as an ASCII diagram",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		circ, err := qasm.ParseFile(args[0])
		if err != nil {
			return err
		}
		quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
		if err != nil {
			return err
		}
		colorValue, err := cmd.Root().PersistentFlags().GetString("color")
		if err != nil {
			return err
		}
		useColor := colorValue == "on" || (colorValue == "auto" && isTerminal(os.Stdout))

		out := cmd.OutOrStdout()
		if !quiet {
			fmt.Fprintf(out, "%s: %d qubits, %d bits, %d ops, depth %d\n\n",
				args[0], circ.NumQubits(), circ.NumBits(), circ.NumOps(), circ.Depth())
		}
		fmt.Fprint(out, render.Diagram(circ, render.Options{Color: useColor}))
		return nil
	},
}
