package knit

import (
	"strconv"

	"qknit/internal/circuit"
)

// LocationKind enumerates the two ways a role addresses a qubit inside a
// segment.
type LocationKind uint8

const (
	// LocIndex addresses a positional slot in the segment's qubit
	// register.
	LocIndex LocationKind = iota
	// LocUnit addresses a concrete register unit, typically an
	// architecture node.
	LocUnit
)

// Location is a tagged variant addressing either a register position or
// a concrete unit.
type Location struct {
	Kind  LocationKind
	Index int
	Unit  circuit.UnitID
}

// AtIndex returns a positional location.
func AtIndex(i int) Location { return Location{Kind: LocIndex, Index: i} }

// AtUnit returns a unit location.
func AtUnit(u circuit.UnitID) Location { return Location{Kind: LocUnit, Unit: u} }

// String renders the location the way plans declare it: a bare index or
// a unit id.
func (l Location) String() string {
	if l.Kind == LocIndex {
		return strconv.Itoa(l.Index)
	}
	return l.Unit.String()
}
