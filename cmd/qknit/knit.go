package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"qknit/internal/circuit"
	"qknit/internal/driver"
	"qknit/internal/knit"
	"qknit/internal/knitpipeline"
)

var knitCmd = &cobra.Command{
	Use:   "knit [flags] <plan.toml>",
	Short: "Stitch a plan's segments into one circuit",
	Long: `Knit loads a TOML plan, routes every segment onto the plan's
architecture with the selected strategy, and stitches the results into
one combined circuit.`,
	Args: cobra.ExactArgs(1),
	RunE: knitExecution,
}

func init() {
	knitCmd.Flags().StringP("output", "o", "", "write the combined circuit to the given QASM file")
	knitCmd.Flags().String("strategy", "", "override the plan's strategy (separate|sequential|unrouted)")
	knitCmd.Flags().String("ui", "auto", "interactive progress display (auto|on|off)")
	knitCmd.Flags().Bool("no-cache", false, "disable the routed-segment disk cache")
	knitCmd.Flags().Int("jobs", 0, "segment load parallelism (0 uses GOMAXPROCS)")
}

func knitExecution(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	strategy, err := cmd.Flags().GetString("strategy")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer traceCleanup()
	profCleanup, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer profCleanup()

	req := driver.Request{
		PlanPath: args[0],
		Strategy: strategy,
		Output:   output,
		NoCache:  noCache,
		Jobs:     jobs,
	}

	var report *driver.Report
	if shouldUseTUI(uiModeValue) && !quiet {
		report, err = runKnitWithUI(cmd.Context(), "knit "+args[0], req)
	} else {
		if !quiet {
			req.Progress = &printSink{out: cmd.OutOrStdout()}
		}
		report, err = driver.Knit(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if !quiet {
		printKnitSummary(cmd.OutOrStdout(), report)
	}
	if showTimings {
		fmt.Fprint(cmd.OutOrStdout(), report.Timings.Summary())
	}
	return nil
}

// printSink writes one line per terminal pipeline event. OnEvent may be
// called from segment-load goroutines, so writes are serialised.
type printSink struct {
	mu  sync.Mutex
	out io.Writer
}

var (
	statusDoneColor   = color.New(color.FgGreen)
	statusCachedColor = color.New(color.FgCyan)
	statusFailedColor = color.New(color.FgRed, color.Bold)
)

func (s *printSink) OnEvent(ev knitpipeline.Event) {
	if ev.Status == knitpipeline.StatusStarted {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	subject := "plan"
	if ev.Segment >= 0 {
		subject = fmt.Sprintf("segment %d", ev.Segment)
	}
	switch ev.Status {
	case knitpipeline.StatusFailed:
		fmt.Fprintf(s.out, "%s: %s %s: %v\n", subject, ev.Stage, statusFailedColor.Sprint("failed"), ev.Err)
	case knitpipeline.StatusCached:
		fmt.Fprintf(s.out, "%s: %s %s (%.1f ms)\n", subject, ev.Stage, statusCachedColor.Sprint("cached"), toMillis(ev.Elapsed))
	default:
		fmt.Fprintf(s.out, "%s: %s %s (%.1f ms)\n", subject, ev.Stage, statusDoneColor.Sprint("done"), toMillis(ev.Elapsed))
	}
}

// printKnitSummary reports the stitched circuit and its end-to-end role
// maps in role order.
func printKnitSummary(out io.Writer, report *driver.Report) {
	fmt.Fprintf(out, "stitched %d segment(s) via %s: %d qubits, %d bits, %d ops, depth %d\n",
		report.Segments, report.Strategy,
		report.Circuit.NumQubits(), report.Circuit.NumBits(),
		report.Circuit.NumOps(), report.Circuit.Depth())
	if report.CacheHits > 0 {
		fmt.Fprintf(out, "route cache: %d hit(s)\n", report.CacheHits)
	}
	for _, role := range sortedRoleKeys(report.Inputs) {
		fmt.Fprintf(out, "  in  %s at %s\n", role, report.Inputs[role])
	}
	for _, role := range sortedRoleKeys(report.Outputs) {
		fmt.Fprintf(out, "  out %s at %s\n", role, report.Outputs[role])
	}
}

func sortedRoleKeys(m map[knit.Role]circuit.UnitID) []knit.Role {
	out := make([]knit.Role, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	circuit.SortUnits(out)
	return out
}
