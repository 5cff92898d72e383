package driver

import (
	"fmt"
	"time"

	"qknit/internal/knit"
	"qknit/internal/knitpipeline"
	"qknit/internal/trace"
)

// progressAdapter turns the stitcher's phase callbacks into pipeline
// events, stage timings, and trace spans. The stitcher reports each
// phase as it begins; the adapter closes the phase in flight at the
// next callback and once more when the run finishes.
type progressAdapter struct {
	sink    knitpipeline.ProgressSink
	cached  *CachedRouter
	timings *knitpipeline.Timings
	tracer  trace.Tracer
	parent  uint64

	pending   bool
	segment   int
	stage     knitpipeline.Stage
	started   time.Time
	stageSpan *trace.Span

	segIndex int
	segSpan  *trace.Span
	hits     uint64
}

func newProgressAdapter(sink knitpipeline.ProgressSink, cached *CachedRouter, timings *knitpipeline.Timings, tracer trace.Tracer, parent uint64) *progressAdapter {
	return &progressAdapter{
		sink:     sink,
		cached:   cached,
		timings:  timings,
		tracer:   tracer,
		parent:   parent,
		segIndex: -1,
	}
}

func stageOf(p knit.Phase) knitpipeline.Stage {
	switch p {
	case knit.PhaseRoute:
		return knitpipeline.StageRoute
	case knit.PhaseSwaps:
		return knitpipeline.StageSwaps
	default:
		return knitpipeline.StageAppend
	}
}

// onPhase is the knit.ProgressFunc wired into the stitch options.
func (p *progressAdapter) onPhase(segment int, phase knit.Phase) {
	p.closePending(nil)
	if segment != p.segIndex {
		p.segSpan.End("")
		p.segSpan = trace.Begin(p.tracer, trace.ScopeSegment, fmt.Sprintf("segment:%d", segment), p.parent)
		p.segIndex = segment
	}
	stage := stageOf(phase)
	p.stageSpan = trace.Begin(p.tracer, trace.ScopeStage, string(stage), p.segSpan.ID())
	p.pending = true
	p.segment = segment
	p.stage = stage
	p.started = time.Now()
	p.sink.OnEvent(knitpipeline.Event{Segment: segment, Stage: stage, Status: knitpipeline.StatusStarted})
}

// closePending emits the terminal event for the phase in flight. A
// route phase that advanced the cache hit counter reports cached
// instead of done.
func (p *progressAdapter) closePending(err error) {
	if !p.pending {
		return
	}
	p.pending = false
	elapsed := time.Since(p.started)
	p.timings.Add(p.stage, elapsed)

	status := knitpipeline.StatusDone
	if err != nil {
		status = knitpipeline.StatusFailed
	} else if p.stage == knitpipeline.StageRoute && p.cached != nil {
		if hits := p.cached.Hits(); hits > p.hits {
			p.hits = hits
			status = knitpipeline.StatusCached
		}
	}
	p.stageSpan.End(string(status))
	p.stageSpan = nil
	p.sink.OnEvent(knitpipeline.Event{
		Segment: p.segment,
		Stage:   p.stage,
		Status:  status,
		Err:     err,
		Elapsed: elapsed,
	})
}

// finish closes the last phase and the open segment span.
func (p *progressAdapter) finish(err error) {
	p.closePending(err)
	p.segSpan.End("")
	p.segSpan = nil
}
