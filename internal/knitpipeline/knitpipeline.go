// Package knitpipeline carries progress events and stage timings
// between the knit driver and its front ends.
package knitpipeline

import (
	"fmt"
	"strings"
	"time"
)

// Stage describes a high-level step in processing one segment.
type Stage string

const (
	// StageLoad is reading and parsing a segment's QASM file.
	StageLoad Stage = "load"
	// StageRoute is routing a segment onto the architecture.
	StageRoute Stage = "route"
	// StageSwaps is planning the swap network ahead of a segment.
	StageSwaps Stage = "swaps"
	// StageAppend is splicing a segment onto the combined circuit.
	StageAppend Stage = "append"
	// StageWrite is emitting the combined circuit.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusStarted indicates the stage began working.
	StatusStarted Status = "started"
	// StatusCached indicates the stage was satisfied from the disk cache.
	StatusCached Status = "cached"
	// StatusDone indicates the stage finished.
	StatusDone Status = "done"
	// StatusFailed indicates the stage encountered an error.
	StatusFailed Status = "failed"
)

// Event reports progress for one segment, or for the overall job when
// Segment is negative.
type Event struct {
	Segment int
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe
// for concurrent use; segment loads emit from multiple goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) OnEvent(Event) {}

// Timings holds accumulated stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Add accumulates a duration into the given stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] += dur
}

// Set stores a duration for the given stage, replacing any prior value.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}

// stageOrder fixes the presentation order of the summary.
var stageOrder = []Stage{StageLoad, StageRoute, StageSwaps, StageAppend, StageWrite}

var stageVerbs = map[Stage]string{
	StageLoad:   "loaded",
	StageRoute:  "routed",
	StageSwaps:  "swapped",
	StageAppend: "appended",
	StageWrite:  "wrote",
}

// Summary renders the recorded stages in pipeline order, one line each.
func (t Timings) Summary() string {
	var b strings.Builder
	for _, stage := range stageOrder {
		if !t.Has(stage) {
			continue
		}
		fmt.Fprintf(&b, "%s %.1f ms\n", stageVerbs[stage], toMillis(t.Duration(stage)))
	}
	return b.String()
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
