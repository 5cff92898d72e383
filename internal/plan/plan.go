// Package plan loads knit manifests: TOML files naming the stitching
// strategy, the target architecture, and the ordered circuit segments
// with their input and output role maps.
//
//	strategy = "separate"
//
//	[architecture]
//	kind  = "line"
//	nodes = 4
//
//	[[segment]]
//	file = "prep.qasm"
//	[segment.inputs]
//	a = 0
//	[segment.outputs]
//	a = 0
//
// Role map values are either a wire index into the segment's register
// (TOML integer) or a pinned unit name such as "node[1]" (TOML string).
package plan

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"

	"fortio.org/safecast"

	"qknit/internal/arch"
	"qknit/internal/circuit"
	"qknit/internal/knit"
)

var (
	// ErrNoStrategy reports a manifest without a strategy key.
	ErrNoStrategy = errors.New("missing strategy")
	// ErrNoSegments reports a manifest without [[segment]] tables.
	ErrNoSegments = errors.New("no [[segment]] tables")
	// ErrNoArchitecture reports a routed plan without an [architecture] table.
	ErrNoArchitecture = errors.New("missing [architecture]")
	// ErrUnknownArchKind reports an unsupported [architecture] kind value.
	ErrUnknownArchKind = errors.New("unknown architecture kind")
)

// Plan is a validated knit manifest.
type Plan struct {
	// Path is the manifest location as given to Load.
	Path string
	// Strategy selects how segments are stitched together.
	Strategy knit.Strategy
	// Arch describes the coupling topology, nil when the manifest has no
	// [architecture] table (allowed for unrouted plans only).
	Arch *ArchSpec
	// Segments lists the work in stitch order.
	Segments []SegmentSpec
	// Digest is the SHA-256 of the manifest bytes, for cache keying.
	Digest [sha256.Size]byte
}

// ArchSpec is the declarative shape of a coupling topology.
type ArchSpec struct {
	Kind  string
	Nodes int
	Rows  int
	Cols  int
	Pairs [][2]int
}

// SegmentSpec names one circuit file plus the role maps tying its
// boundary qubits to the rest of the plan.
type SegmentSpec struct {
	// File is the QASM path, resolved relative to the manifest directory.
	File    string
	Inputs  knit.IOMap
	Outputs knit.IOMap
}

type rawPlan struct {
	Strategy     string       `toml:"strategy"`
	Architecture *rawArch     `toml:"architecture"`
	Segments     []rawSegment `toml:"segment"`
}

type rawArch struct {
	Kind  string  `toml:"kind"`
	Nodes int     `toml:"nodes"`
	Rows  int     `toml:"rows"`
	Cols  int     `toml:"cols"`
	Pairs [][]int `toml:"pairs"`
}

type rawSegment struct {
	File    string         `toml:"file"`
	Inputs  map[string]any `toml:"inputs"`
	Outputs map[string]any `toml:"outputs"`
}

// Load reads and validates the manifest at path. Unknown keys, malformed
// role maps, and missing segment files are all reported here rather than
// surfacing later as stitch failures.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	var raw rawPlan
	meta, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if !meta.IsDefined("strategy") {
		return nil, fmt.Errorf("%s: %w", path, ErrNoStrategy)
	}
	strategy, err := knit.ParseStrategy(raw.Strategy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	p := &Plan{Path: path, Strategy: strategy, Digest: sha256.Sum256(data)}
	if raw.Architecture != nil {
		spec, err := archSpec(raw.Architecture)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		p.Arch = spec
	} else if strategy != knit.StrategyUnrouted {
		return nil, fmt.Errorf("%s: %w", path, ErrNoArchitecture)
	}

	if len(raw.Segments) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSegments)
	}
	dir := filepath.Dir(path)
	for i, rs := range raw.Segments {
		seg, err := segmentSpec(dir, rs)
		if err != nil {
			return nil, fmt.Errorf("%s: segment %d: %w", path, i, err)
		}
		p.Segments = append(p.Segments, seg)
	}
	return p, nil
}

// Build materialises the declared topology. A nil spec builds nothing,
// matching the unrouted strategies that run without an architecture.
func (s *ArchSpec) Build() (*arch.Architecture, error) {
	if s == nil {
		return nil, nil
	}
	switch s.Kind {
	case "line":
		return arch.Line(s.Nodes), nil
	case "ring":
		return arch.Ring(s.Nodes), nil
	case "grid":
		return arch.Grid(s.Rows, s.Cols), nil
	case "full":
		return arch.FullyConnected(s.Nodes), nil
	case "couplings":
		pairs := make([][2]circuit.UnitID, len(s.Pairs))
		for i, p := range s.Pairs {
			pairs[i] = [2]circuit.UnitID{circuit.Node(p[0]), circuit.Node(p[1])}
		}
		return arch.New(pairs)
	}
	return nil, fmt.Errorf("plan: %w %q", ErrUnknownArchKind, s.Kind)
}

func archSpec(raw *rawArch) (*ArchSpec, error) {
	spec := &ArchSpec{Kind: raw.Kind, Nodes: raw.Nodes, Rows: raw.Rows, Cols: raw.Cols}
	switch raw.Kind {
	case "line", "full":
		if raw.Nodes < 2 {
			return nil, fmt.Errorf("architecture kind %q needs nodes >= 2, got %d", raw.Kind, raw.Nodes)
		}
	case "ring":
		if raw.Nodes < 3 {
			return nil, fmt.Errorf("architecture ring needs nodes >= 3, got %d", raw.Nodes)
		}
	case "grid":
		if raw.Rows < 1 || raw.Cols < 1 || raw.Rows*raw.Cols < 2 {
			return nil, fmt.Errorf("architecture grid needs at least two nodes, got %dx%d", raw.Rows, raw.Cols)
		}
	case "couplings":
		if len(raw.Pairs) == 0 {
			return nil, errors.New("architecture kind \"couplings\" needs at least one pair")
		}
		for _, pair := range raw.Pairs {
			if len(pair) != 2 {
				return nil, fmt.Errorf("coupling %v is not a pair", pair)
			}
			if pair[0] < 0 || pair[1] < 0 {
				return nil, fmt.Errorf("coupling %v has a negative node index", pair)
			}
			if pair[0] == pair[1] {
				return nil, fmt.Errorf("coupling %v joins a node to itself", pair)
			}
			spec.Pairs = append(spec.Pairs, [2]int{pair[0], pair[1]})
		}
	case "":
		return nil, errors.New("architecture table needs a kind")
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownArchKind, raw.Kind)
	}
	return spec, nil
}

func segmentSpec(dir string, raw rawSegment) (SegmentSpec, error) {
	if raw.File == "" {
		return SegmentSpec{}, errors.New("missing file")
	}
	file := raw.File
	if !filepath.IsAbs(file) {
		file = filepath.Join(dir, filepath.FromSlash(raw.File))
	}
	if _, err := os.Stat(file); err != nil {
		return SegmentSpec{}, fmt.Errorf("segment file: %w", err)
	}
	inputs, err := ioMap("input", raw.Inputs)
	if err != nil {
		return SegmentSpec{}, err
	}
	outputs, err := ioMap("output", raw.Outputs)
	if err != nil {
		return SegmentSpec{}, err
	}
	if len(inputs) == 0 && len(outputs) == 0 {
		return SegmentSpec{}, errors.New("declares no roles")
	}
	return SegmentSpec{File: file, Inputs: inputs, Outputs: outputs}, nil
}

func ioMap(kind string, raw map[string]any) (knit.IOMap, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	m := make(knit.IOMap, len(raw))
	for key, val := range raw {
		role, err := parseUnit(key)
		if err != nil {
			return nil, fmt.Errorf("%s role: %w", kind, err)
		}
		// "a" and "a[0]" name the same role; the TOML layer cannot
		// catch that duplication.
		if _, ok := m[role]; ok {
			return nil, fmt.Errorf("%s role %s declared twice", kind, role)
		}
		loc, err := parseLocation(val)
		if err != nil {
			return nil, fmt.Errorf("%s role %s: %w", kind, role, err)
		}
		m[role] = loc
	}
	return m, nil
}

func parseLocation(val any) (knit.Location, error) {
	switch v := val.(type) {
	case int64:
		i, err := safecast.Conv[int](v)
		if err != nil {
			return knit.Location{}, fmt.Errorf("wire index %d overflows: %w", v, err)
		}
		if i < 0 {
			return knit.Location{}, fmt.Errorf("negative wire index %d", i)
		}
		return knit.AtIndex(i), nil
	case string:
		u, err := parseUnit(v)
		if err != nil {
			return knit.Location{}, err
		}
		return knit.AtUnit(u), nil
	default:
		return knit.Location{}, fmt.Errorf("location %v must be a wire index or a unit name", val)
	}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseUnit accepts either the full name[index] form or a bare register
// name, which is shorthand for index 0.
func parseUnit(s string) (circuit.UnitID, error) {
	if strings.ContainsRune(s, '[') {
		return circuit.ParseUnitID(s)
	}
	if !identPattern.MatchString(s) {
		return circuit.UnitID{}, fmt.Errorf("plan: malformed unit name %q", s)
	}
	return circuit.UnitID{Reg: s, Index: 0}, nil
}
