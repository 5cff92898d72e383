// Package knit stitches independently produced circuit segments into one
// combined circuit over a shared architecture, preserving the logical
// identity of each segment's declared input and output qubits across the
// seams.
//
// Three strategies are provided. Separate routes every segment on its own
// and splices a swap network between consecutive segments. Sequential
// forces each segment's inputs onto the previous segment's output nodes
// before routing, so the router absorbs the movement. Unrouted ignores
// connectivity and concatenates segments over a shared register, reusing
// spare slots for ancillas.
//
// A stitching call owns all of its intermediate state. Segment circuits
// are copied before processing, the combined circuit is built fresh per
// call, and nothing is shared between calls.
package knit

import (
	"fmt"

	"qknit/internal/arch"
	"qknit/internal/circuit"
)

// Role identifies a logical qubit shared across segments. A role whose
// unit id names an architecture node is pre-pinned to that node by the
// routed strategies.
type Role = circuit.UnitID

// IOMap maps roles to their declared locations inside one segment.
type IOMap map[Role]Location

// Segment is one independently produced circuit plus its declared role
// maps. Stitching works on a copy of the circuit; the original is left
// untouched.
type Segment struct {
	Circuit *circuit.Circuit
	Inputs  IOMap
	Outputs IOMap
}

// Result is a stitched circuit plus the end-to-end role maps: the first
// segment's resolved inputs and the last segment's resolved outputs. In
// the routed strategies the map values are architecture nodes; in the
// unrouted strategy they are units of the combined register.
type Result struct {
	Circuit *circuit.Circuit
	Inputs  map[Role]circuit.UnitID
	Outputs map[Role]circuit.UnitID
}

// Strategy selects a stitching algorithm.
type Strategy uint8

const (
	// StrategySeparate routes segments independently and splices swap
	// networks between them.
	StrategySeparate Strategy = iota
	// StrategySequential forces each segment's inputs onto the previous
	// segment's output nodes before routing.
	StrategySequential
	// StrategyUnrouted concatenates segments assuming full connectivity.
	StrategyUnrouted
)

// String returns the strategy name used in plans and on the CLI.
func (s Strategy) String() string {
	switch s {
	case StrategySeparate:
		return "separate"
	case StrategySequential:
		return "sequential"
	case StrategyUnrouted:
		return "unrouted"
	default:
		return "unknown"
	}
}

// ParseStrategy resolves a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "separate":
		return StrategySeparate, nil
	case "sequential":
		return StrategySequential, nil
	case "unrouted":
		return StrategyUnrouted, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Phase labels the steps of processing one segment, for progress
// reporting.
type Phase string

const (
	// PhaseRoute covers routing and role resolution of one segment.
	PhaseRoute Phase = "route"
	// PhaseSwaps covers planning and splicing an inter-segment swap
	// network.
	PhaseSwaps Phase = "swaps"
	// PhaseAppend covers bit renumbering and concatenation.
	PhaseAppend Phase = "append"
)

// ProgressFunc observes per-segment stitching phases. Calls are
// synchronous and strictly ordered.
type ProgressFunc func(segment int, phase Phase)

// Options configures a stitching call. Router is required by the routed
// strategies, Planner by the separate strategy. Progress may be nil.
type Options struct {
	Router   Router
	Planner  SwapPlanner
	Progress ProgressFunc
}

func (o Options) report(segment int, phase Phase) {
	if o.Progress != nil {
		o.Progress(segment, phase)
	}
}

// Stitch runs the selected strategy over segments in list order.
func Stitch(strategy Strategy, segments []Segment, a *arch.Architecture, opts Options) (Result, error) {
	switch strategy {
	case StrategySeparate:
		return Separate(segments, a, opts)
	case StrategySequential:
		return Sequential(segments, a, opts)
	case StrategyUnrouted:
		return Unrouted(segments, a, opts)
	default:
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownStrategy, strategy)
	}
}

// validateSegments rejects structurally broken input before any strategy
// touches it: nil circuits, out-of-range or duplicate declared locations.
func validateSegments(segments []Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("knit: %w", ErrNoSegments)
	}
	for p, seg := range segments {
		if seg.Circuit == nil {
			return fmt.Errorf("knit: segment %d has no circuit", p)
		}
		for name, m := range map[string]IOMap{"input": seg.Inputs, "output": seg.Outputs} {
			seen := make(map[Location]Role, len(m))
			for _, k := range sortedRoles(m) {
				loc := m[k]
				if loc.Kind == LocIndex && (loc.Index < 0 || loc.Index >= seg.Circuit.NumQubits()) {
					return fmt.Errorf("knit: segment %d %s role %s: index %d out of range (register size %d)",
						p, name, k, loc.Index, seg.Circuit.NumQubits())
				}
				if loc.Kind == LocUnit && !seg.Circuit.HasQubit(loc.Unit) {
					return fmt.Errorf("knit: segment %d %s role %s: unit %s is not in the register",
						p, name, k, loc.Unit)
				}
				if prev, dup := seen[loc]; dup {
					return fmt.Errorf("knit: segment %d %s roles %s and %s share location %s",
						p, name, prev, k, loc)
				}
				seen[loc] = k
			}
		}
	}
	return nil
}
