// Package trace provides a tracing subsystem for the knitting pipeline.
//
// Tracing records driver, stage, and segment boundaries to help diagnose
// slow routing runs and hangs.
//
// # Usage
//
// Enable tracing via command-line flags:
//
//	qknit knit --trace=- --trace-level=phase plan.toml
//
// # Architecture
//
// The package provides several tracer implementations:
//
//   - nop tracer: zero-overhead when disabled (trace.Nop)
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer for crash dumps
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
// Tracing verbosity is controlled by levels:
//
//   - LevelOff: no tracing
//   - LevelError: only crash dumps
//   - LevelPhase: driver and stage boundaries
//   - LevelDetail: per-segment events
//   - LevelDebug: everything
//
// # Scopes
//
// Events are categorized by scope:
//
//   - ScopeDriver: top-level knit runs
//   - ScopeStage: pipeline stages (load, route, swaps, append, write)
//   - ScopeSegment: per-segment processing
//
// # Context Propagation
//
// Tracers travel through the pipeline via context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeStage, "route", parentID)
//	defer span.End("")
package trace
