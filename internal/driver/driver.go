// Package driver orchestrates knit runs: plan loading, concurrent
// segment parsing, stitching, the routed-segment cache, and reporting.
package driver

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"qknit/internal/circuit"
	"qknit/internal/knit"
	"qknit/internal/knitpipeline"
	"qknit/internal/observ"
	"qknit/internal/plan"
	"qknit/internal/qasm"
	"qknit/internal/route"
	"qknit/internal/trace"
)

// CacheApp is the cache namespace under the user cache dir.
const CacheApp = "qknit"

// Request configures one knit run.
type Request struct {
	// PlanPath locates the TOML manifest.
	PlanPath string
	// Strategy optionally overrides the plan's strategy.
	Strategy string
	// Output optionally names a QASM file for the combined circuit.
	Output string
	// NoCache disables the routed-segment disk cache.
	NoCache bool
	// Jobs bounds segment-load parallelism (<= 0 uses GOMAXPROCS).
	Jobs int
	// Progress receives pipeline events. May be nil.
	Progress knitpipeline.ProgressSink
}

// Report summarises a finished knit run.
type Report struct {
	Plan     *plan.Plan
	Strategy knit.Strategy
	Segments int

	Circuit *circuit.Circuit
	Inputs  map[knit.Role]circuit.UnitID
	Outputs map[knit.Role]circuit.UnitID

	CacheHits uint64
	Timings   knitpipeline.Timings
	Phases    observ.Report
}

// Knit runs one full plan: load, stitch, optionally write, report.
func Knit(ctx context.Context, req Request) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if req.PlanPath == "" {
		return nil, fmt.Errorf("driver: missing plan path")
	}
	sink := req.Progress
	if sink == nil {
		sink = knitpipeline.NopSink{}
	}
	tracer := trace.FromContext(ctx)
	span := trace.Begin(tracer, trace.ScopeDriver, "knit", 0)
	timer := observ.NewTimer()
	var timings knitpipeline.Timings

	idx := timer.Begin("load_plan")
	p, err := plan.Load(req.PlanPath)
	if err != nil {
		span.End(err.Error())
		return nil, err
	}
	strategy := p.Strategy
	if req.Strategy != "" {
		if strategy, err = knit.ParseStrategy(req.Strategy); err != nil {
			span.End(err.Error())
			return nil, fmt.Errorf("driver: %w", err)
		}
	}
	timer.End(idx, strategy.String())

	idx = timer.Begin("build_arch")
	a, err := p.Arch.Build()
	if err != nil {
		span.End(err.Error())
		return nil, err
	}
	note := "none"
	if a != nil {
		note = fmt.Sprintf("%d nodes", a.NumNodes())
	}
	timer.End(idx, note)

	idx = timer.Begin("load_segments")
	segments, err := loadSegments(ctx, p, req.Jobs, sink, &timings, tracer, span.ID())
	if err != nil {
		span.End(err.Error())
		return nil, err
	}
	timer.End(idx, fmt.Sprintf("%d segments", len(segments)))

	router, cached := buildRouter(strategy, req.NoCache, tracer, span.ID())
	adapter := newProgressAdapter(sink, cached, &timings, tracer, span.ID())

	idx = timer.Begin("stitch")
	res, err := knit.Stitch(strategy, segments, a, knit.Options{
		Router:   router,
		Planner:  route.Tokens{},
		Progress: adapter.onPhase,
	})
	adapter.finish(err)
	if err != nil {
		span.End(err.Error())
		return nil, err
	}
	timer.End(idx, strategy.String())

	if req.Output != "" {
		idx = timer.Begin("write_output")
		start := time.Now()
		sink.OnEvent(knitpipeline.Event{Segment: -1, Stage: knitpipeline.StageWrite, Status: knitpipeline.StatusStarted})
		if err := qasm.WriteFile(req.Output, res.Circuit); err != nil {
			sink.OnEvent(knitpipeline.Event{
				Segment: -1,
				Stage:   knitpipeline.StageWrite,
				Status:  knitpipeline.StatusFailed,
				Err:     err,
				Elapsed: time.Since(start),
			})
			span.End(err.Error())
			return nil, err
		}
		elapsed := time.Since(start)
		timings.Add(knitpipeline.StageWrite, elapsed)
		sink.OnEvent(knitpipeline.Event{
			Segment: -1,
			Stage:   knitpipeline.StageWrite,
			Status:  knitpipeline.StatusDone,
			Elapsed: elapsed,
		})
		timer.End(idx, req.Output)
	}

	report := &Report{
		Plan:     p,
		Strategy: strategy,
		Segments: len(segments),
		Circuit:  res.Circuit,
		Inputs:   res.Inputs,
		Outputs:  res.Outputs,
		Timings:  timings,
		Phases:   timer.Report(),
	}
	if cached != nil {
		report.CacheHits = cached.Hits()
	}
	span.End(fmt.Sprintf("%d segments, %d ops", report.Segments, res.Circuit.NumOps()))
	return report, nil
}

// loadSegments parses every segment file concurrently. Slots are filled
// by index, so the stitch order matches the plan order.
func loadSegments(ctx context.Context, p *plan.Plan, jobs int, sink knitpipeline.ProgressSink, timings *knitpipeline.Timings, tracer trace.Tracer, parent uint64) ([]knit.Segment, error) {
	start := time.Now()
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	segments := make([]knit.Segment, len(p.Segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(p.Segments)))
	for i, spec := range p.Segments {
		i, spec := i, spec
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			begun := time.Now()
			sink.OnEvent(knitpipeline.Event{Segment: i, Stage: knitpipeline.StageLoad, Status: knitpipeline.StatusStarted})
			circ, err := qasm.ParseFile(spec.File)
			if err != nil {
				sink.OnEvent(knitpipeline.Event{
					Segment: i,
					Stage:   knitpipeline.StageLoad,
					Status:  knitpipeline.StatusFailed,
					Err:     err,
					Elapsed: time.Since(begun),
				})
				return fmt.Errorf("driver: segment %d: %w", i, err)
			}
			segments[i] = knit.Segment{Circuit: circ, Inputs: spec.Inputs, Outputs: spec.Outputs}
			sink.OnEvent(knitpipeline.Event{
				Segment: i,
				Stage:   knitpipeline.StageLoad,
				Status:  knitpipeline.StatusDone,
				Elapsed: time.Since(begun),
			})
			trace.Point(tracer, trace.ScopeSegment, fmt.Sprintf("segment:%d", i), "loaded "+spec.File, parent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	timings.Add(knitpipeline.StageLoad, time.Since(start))
	return segments, nil
}

// buildRouter assembles the router stack: greedy routing wrapped in the
// disk cache unless caching is off or the strategy routes nothing. A
// cache that fails to open downgrades to uncached routing.
func buildRouter(strategy knit.Strategy, noCache bool, tracer trace.Tracer, parent uint64) (knit.Router, *CachedRouter) {
	inner := route.Greedy{}
	if noCache || strategy == knit.StrategyUnrouted {
		return inner, nil
	}
	cache, err := OpenDiskCache(CacheApp)
	if err != nil {
		trace.Point(tracer, trace.ScopeDriver, "cache", err.Error(), parent)
		return inner, nil
	}
	cached := &CachedRouter{Inner: inner, Cache: cache}
	return cached, cached
}
