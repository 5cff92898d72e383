package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"qknit/internal/driver"
	"qknit/internal/knitpipeline"
	"qknit/internal/plan"
	"qknit/internal/ui"
)

type knitOutcome struct {
	report *driver.Report
	err    error
}

// runKnitWithUI drives one knit run behind the Bubble Tea progress
// model. The plan is read up front only to label the segment rows; the
// driver re-reads it as part of the run.
func runKnitWithUI(ctx context.Context, title string, req driver.Request) (*driver.Report, error) {
	p, err := plan.Load(req.PlanPath)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(p.Segments))
	for i, spec := range p.Segments {
		labels[i] = spec.File
	}

	events := make(chan knitpipeline.Event, 256)
	outcomeCh := make(chan knitOutcome, 1)

	go func() {
		reqCopy := req
		reqCopy.Progress = knitpipeline.ChannelSink{Ch: events}
		report, err := driver.Knit(ctx, reqCopy)
		outcomeCh <- knitOutcome{report: report, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, labels, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
