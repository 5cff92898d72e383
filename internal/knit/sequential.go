package knit

import (
	"fmt"

	"qknit/internal/arch"
	"qknit/internal/circuit"
)

// Sequential stitches segments by renaming each segment's declared
// input wires onto the previous segment's resolved output nodes before
// routing it. The router then starts every segment exactly where the
// previous one left its data, so no inter-segment swap network is
// needed.
//
// Requires a constrained architecture and a Router.
func Sequential(segments []Segment, a *arch.Architecture, opts Options) (Result, error) {
	if err := validateSegments(segments); err != nil {
		return Result{}, err
	}
	if a == nil || a.AllToAll() {
		return Result{}, fmt.Errorf("knit: sequential stitching: %w", ErrUnconstrainedArch)
	}
	if opts.Router == nil {
		return Result{}, fmt.Errorf("knit: sequential stitching requires a router")
	}

	combined := nodeRegister(a)
	var firstIn, prevOut map[Role]circuit.UnitID
	for p, seg := range segments {
		opts.report(p, PhaseRoute)
		var res resolved
		var err error
		if p == 0 {
			res, err = resolveFirst(seg, a)
		} else {
			res, err = resolveForced(p, seg, prevOut)
		}
		if err != nil {
			return Result{}, err
		}
		res, err = routeSegment(p, res, a, opts.Router)
		if err != nil {
			return Result{}, err
		}
		if p == 0 {
			firstIn = res.inputs
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
