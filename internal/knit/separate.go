package knit

import (
	"fmt"

	"qknit/internal/arch"
	"qknit/internal/circuit"
)

// Separate stitches segments by routing each one independently and
// splicing a swap network between consecutive segments. The network
// moves every shared role from its resolved output node in segment p-1
// to its resolved input node in segment p, so each segment sees its
// declared placement regardless of how the previous one ended.
//
// Requires a constrained architecture, a Router and a SwapPlanner.
func Separate(segments []Segment, a *arch.Architecture, opts Options) (Result, error) {
	if err := validateSegments(segments); err != nil {
		return Result{}, err
	}
	if a == nil || a.AllToAll() {
		return Result{}, fmt.Errorf("knit: separate stitching: %w", ErrUnconstrainedArch)
	}
	if opts.Router == nil {
		return Result{}, fmt.Errorf("knit: separate stitching requires a router")
	}
	if opts.Planner == nil {
		return Result{}, fmt.Errorf("knit: separate stitching requires a swap planner")
	}

	combined := nodeRegister(a)
	var firstIn, prevOut map[Role]circuit.UnitID
	for p, seg := range segments {
		opts.report(p, PhaseRoute)
		var res resolved
		var err error
		if p == 0 {
			res, err = resolveFirst(seg, a)
			if err != nil {
				return Result{}, err
			}
		} else {
			res = resolveIndependent(seg)
		}
		res, err = routeSegment(p, res, a, opts.Router)
		if err != nil {
			return Result{}, err
		}

		if p == 0 {
			firstIn = res.inputs
		} else {
			opts.report(p, PhaseSwaps)
			moves := make(map[circuit.UnitID]circuit.UnitID, len(res.inputs))
			for _, k := range sortedUnitKeys(res.inputs) {
				src, ok := prevOut[k]
				if !ok {
					return Result{}, fmt.Errorf("knit: segment %d: %w: input role %s has no previous output", p, ErrRoleMismatch, k)
				}
				moves[src] = res.inputs[k]
			}
			swaps, err := opts.Planner.Plan(a, moves)
			if err != nil {
				return Result{}, fmt.Errorf("knit: segment %d: planning swap network: %w", p, err)
			}
			for _, pair := range swaps {
				if err := combined.AddGate(circuit.OpSwap, pair[0], pair[1]); err != nil {
					return Result{}, fmt.Errorf("knit: segment %d: splicing swap network: %w", p, err)
				}
			}
		}

		opts.report(p, PhaseAppend)
		if err := renumberBits(combined, res.circ); err != nil {
			return Result{}, err
		}
		combined.Append(res.circ)
		prevOut = res.outputs
	}
	return Result{Circuit: combined, Inputs: firstIn, Outputs: prevOut}, nil
}
