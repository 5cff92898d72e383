package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize an example knit plan",
	Long: `Initialize a knit project by creating an example plan (knit.toml) and
two segment circuits under segments/. If [path] is omitted, the current
directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 0 || args[0] == "." {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = wd
	} else {
		arg := args[0]
		if !filepath.IsAbs(arg) {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target = filepath.Join(wd, arg)
		} else {
			target = arg
		}
	}

	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	planPath := filepath.Join(target, "knit.toml")
	if _, err := os.Stat(planPath); err == nil {
		return fmt.Errorf("plan already initialized: %s exists", planPath)
	}
	segDir := filepath.Join(target, "segments")
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %q: %w", segDir, err)
	}

	if err := os.WriteFile(planPath, []byte(examplePlan), 0o600); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	files := map[string]string{
		"prep.qasm":     examplePrep,
		"entangle.qasm": exampleEntangle,
	}
	for name, content := range files {
		p := filepath.Join(segDir, name)
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			return fmt.Errorf("failed to write %q: %w", p, err)
		}
	}

	rel := target
	if wd, err := os.Getwd(); err == nil {
		if r, err2 := filepath.Rel(wd, target); err2 == nil {
			rel = r
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized knit plan in %s\n", rel)
	fmt.Fprintln(cmd.OutOrStdout(), "  - knit.toml")
	fmt.Fprintln(cmd.OutOrStdout(), "  - segments/prep.qasm")
	fmt.Fprintln(cmd.OutOrStdout(), "  - segments/entangle.qasm")
	return nil
}

const examplePlan = `# qknit plan
strategy = "separate"

[architecture]
kind = "line"
nodes = 3

[[segment]]
file = "segments/prep.qasm"
[segment.inputs]
a = 0
b = 1
[segment.outputs]
a = 0
b = 1

[[segment]]
file = "segments/entangle.qasm"
[segment.inputs]
a = 0
b = 1
[segment.outputs]
a = 0
b = 1
`

const examplePrep = `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
h q[0];
x q[1];
`

const exampleEntangle = `OPENQASM 2.0;
include "qelib1.inc";
qreg q[2];
creg c[2];
cx q[0],q[1];
measure q[0] -> c[0];
measure q[1] -> c[1];
`
