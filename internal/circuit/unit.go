package circuit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// UnitID identifies a qubit, classical bit, or architecture node by
// register name and index within that register.
type UnitID struct {
	Reg   string
	Index int
}

// Qubit returns the unit q[i] of the default qubit register.
func Qubit(i int) UnitID { return UnitID{Reg: "q", Index: i} }

// Bit returns the unit c[i] of the default classical register.
func Bit(i int) UnitID { return UnitID{Reg: "c", Index: i} }

// Node returns the unit node[i] used for physical architecture nodes.
func Node(i int) UnitID { return UnitID{Reg: "node", Index: i} }

// String renders the unit as name[index].
func (u UnitID) String() string {
	return u.Reg + "[" + strconv.Itoa(u.Index) + "]"
}

// Less orders units by register name, then index.
func (u UnitID) Less(v UnitID) bool {
	if u.Reg != v.Reg {
		return u.Reg < v.Reg
	}
	return u.Index < v.Index
}

// ParseUnitID parses the name[index] form produced by String.
func ParseUnitID(s string) (UnitID, error) {
	open := strings.IndexByte(s, '[')
	if open <= 0 || !strings.HasSuffix(s, "]") {
		return UnitID{}, fmt.Errorf("circuit: malformed unit id %q", s)
	}
	idx, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil {
		return UnitID{}, fmt.Errorf("circuit: malformed unit index in %q", s)
	}
	if idx < 0 {
		return UnitID{}, fmt.Errorf("circuit: negative unit index in %q", s)
	}
	return UnitID{Reg: s[:open], Index: idx}, nil
}

// SortUnits orders units in place by register name, then index.
func SortUnits(units []UnitID) {
	sort.Slice(units, func(i, j int) bool { return units[i].Less(units[j]) })
}
