package knit

import "errors"

var (
	// ErrUnknownStrategy reports a strategy name or value outside the
	// known set.
	ErrUnknownStrategy = errors.New("unknown stitching strategy")
	// ErrNoSegments reports an empty segment list.
	ErrNoSegments = errors.New("no segments")
	// ErrUnconstrainedArch reports a constrained-routing strategy invoked
	// against an all-to-all architecture.
	ErrUnconstrainedArch = errors.New("architecture declares all-to-all connectivity")
	// ErrConstrainedArch reports the unrouted strategy invoked against an
	// architecture with real connectivity constraints.
	ErrConstrainedArch = errors.New("architecture imposes connectivity constraints")
	// ErrUnroutable marks a segment the router could not place.
	ErrUnroutable = errors.New("unroutable segment")
	// ErrNodePoolExhausted reports that no free node or register slot
	// remains for an unassigned or ancilla qubit.
	ErrNodePoolExhausted = errors.New("node pool exhausted")
	// ErrRoleMismatch reports a segment input role with no source in the
	// previous segment's outputs.
	ErrRoleMismatch = errors.New("role mismatch between segments")
)
