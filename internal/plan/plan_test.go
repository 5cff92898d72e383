package plan_test

import (
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qknit/internal/circuit"
	"qknit/internal/knit"
	"qknit/internal/plan"
)

// writePlan materialises a manifest plus its segment files in a fresh
// temp dir and returns the manifest path.
func writePlan(t *testing.T, manifest string, segments map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range segments {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("failed to write segment %s: %v", name, err)
		}
	}
	path := filepath.Join(dir, "knit.toml")
	if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

const tinyQASM = "OPENQASM 2.0;\nqreg q[1];\nh q[0];\n"

func TestLoadParsesFullManifest(t *testing.T) {
	manifest := `
strategy = "separate"

[architecture]
kind  = "line"
nodes = 4

[[segment]]
file = "prep.qasm"
[segment.inputs]
a = 0
[segment.outputs]
a = "node[1]"

[[segment]]
file = "meas.qasm"
[segment.inputs]
a = 0
[segment.outputs]
a = 0
`
	path := writePlan(t, manifest, map[string]string{
		"prep.qasm": tinyQASM,
		"meas.qasm": tinyQASM,
	})

	p, err := plan.Load(path)
	if err != nil {
		t.Fatalf("failed to load plan: %v", err)
	}
	if p.Strategy != knit.StrategySeparate {
		t.Errorf("expected separate strategy, got %s", p.Strategy)
	}
	if p.Arch == nil || p.Arch.Kind != "line" || p.Arch.Nodes != 4 {
		t.Fatalf("expected line architecture over 4 nodes, got %+v", p.Arch)
	}
	if len(p.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(p.Segments))
	}
	if want := filepath.Join(filepath.Dir(path), "prep.qasm"); p.Segments[0].File != want {
		t.Errorf("expected segment file %s, got %s", want, p.Segments[0].File)
	}

	a := knit.Role{Reg: "a", Index: 0}
	if got := p.Segments[0].Inputs[a]; got != knit.AtIndex(0) {
		t.Errorf("expected input role a at wire 0, got %+v", got)
	}
	if got := p.Segments[0].Outputs[a]; got != knit.AtUnit(circuit.Node(1)) {
		t.Errorf("expected output role a pinned to node[1], got %+v", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to reread manifest: %v", err)
	}
	if p.Digest != sha256.Sum256(data) {
		t.Errorf("expected digest of manifest bytes, got %x", p.Digest)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	manifest := `
strategy = "unrouted"
routung  = "greedy"

[[segment]]
file = "s.qasm"
[segment.inputs]
a = 0
`
	path := writePlan(t, manifest, map[string]string{"s.qasm": tinyQASM})
	if _, err := plan.Load(path); err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Errorf("expected unknown key error, got %v", err)
	}
}

func TestLoadRequiresStrategy(t *testing.T) {
	path := writePlan(t, "[[segment]]\nfile = \"s.qasm\"\n", map[string]string{"s.qasm": tinyQASM})
	if _, err := plan.Load(path); !errors.Is(err, plan.ErrNoStrategy) {
		t.Errorf("expected ErrNoStrategy, got %v", err)
	}
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	path := writePlan(t, "strategy = \"zigzag\"\n", nil)
	if _, err := plan.Load(path); !errors.Is(err, knit.ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestLoadRequiresArchitectureForRoutedPlans(t *testing.T) {
	manifest := `
strategy = "sequential"

[[segment]]
file = "s.qasm"
[segment.inputs]
a = 0
`
	path := writePlan(t, manifest, map[string]string{"s.qasm": tinyQASM})
	if _, err := plan.Load(path); !errors.Is(err, plan.ErrNoArchitecture) {
		t.Errorf("expected ErrNoArchitecture, got %v", err)
	}

	unrouted := strings.Replace(manifest, "sequential", "unrouted", 1)
	path = writePlan(t, unrouted, map[string]string{"s.qasm": tinyQASM})
	p, err := plan.Load(path)
	if err != nil {
		t.Fatalf("failed to load unrouted plan without architecture: %v", err)
	}
	if p.Arch != nil {
		t.Errorf("expected nil architecture spec, got %+v", p.Arch)
	}
}

func TestLoadRequiresSegments(t *testing.T) {
	manifest := "strategy = \"separate\"\n\n[architecture]\nkind = \"line\"\nnodes = 2\n"
	path := writePlan(t, manifest, nil)
	if _, err := plan.Load(path); !errors.Is(err, plan.ErrNoSegments) {
		t.Errorf("expected ErrNoSegments, got %v", err)
	}
}

func TestLoadRejectsMissingSegmentFile(t *testing.T) {
	manifest := `
strategy = "unrouted"

[[segment]]
file = "missing.qasm"
[segment.inputs]
a = 0
`
	path := writePlan(t, manifest, nil)
	_, err := plan.Load(path)
	if err == nil || !strings.Contains(err.Error(), "segment 0") {
		t.Errorf("expected segment 0 file error, got %v", err)
	}
}

func TestLoadRejectsBadArchitectureShapes(t *testing.T) {
	cases := []struct {
		name string
		arch string
	}{
		{"short ring", "kind = \"ring\"\nnodes = 2"},
		{"single cell grid", "kind = \"grid\"\nrows = 1\ncols = 1"},
		{"self coupling", "kind = \"couplings\"\npairs = [[1, 1]]"},
		{"empty couplings", "kind = \"couplings\"\npairs = []"},
		{"missing kind", "nodes = 3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			manifest := "strategy = \"separate\"\n\n[architecture]\n" + tc.arch + `

[[segment]]
file = "s.qasm"
[segment.inputs]
a = 0
`
			path := writePlan(t, manifest, map[string]string{"s.qasm": tinyQASM})
			if _, err := plan.Load(path); err == nil {
				t.Error("expected architecture shape error, got nil")
			}
		})
	}

	manifest := `
strategy = "separate"

[architecture]
kind  = "torus"
nodes = 4

[[segment]]
file = "s.qasm"
[segment.inputs]
a = 0
`
	path := writePlan(t, manifest, map[string]string{"s.qasm": tinyQASM})
	if _, err := plan.Load(path); !errors.Is(err, plan.ErrUnknownArchKind) {
		t.Errorf("expected ErrUnknownArchKind, got %v", err)
	}
}

func TestLoadRejectsDuplicateRole(t *testing.T) {
	manifest := `
strategy = "unrouted"

[[segment]]
file = "s.qasm"
[segment.inputs]
"a"    = 0
"a[0]" = 1
`
	path := writePlan(t, manifest, map[string]string{"s.qasm": tinyQASM})
	if _, err := plan.Load(path); err == nil || !strings.Contains(err.Error(), "declared twice") {
		t.Errorf("expected duplicate role error, got %v", err)
	}
}

func TestLoadRejectsBadLocations(t *testing.T) {
	cases := []struct {
		name    string
		value   string
		message string
	}{
		{"negative index", "-1", "negative wire index"},
		{"boolean", "true", "must be a wire index"},
		{"malformed unit", "\"no good\"", "malformed unit name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			manifest := `
strategy = "unrouted"

[[segment]]
file = "s.qasm"
[segment.inputs]
a = ` + tc.value + "\n"
			path := writePlan(t, manifest, map[string]string{"s.qasm": tinyQASM})
			_, err := plan.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.message) {
				t.Errorf("expected %q error, got %v", tc.message, err)
			}
		})
	}
}

func TestLoadRequiresRoles(t *testing.T) {
	manifest := "strategy = \"unrouted\"\n\n[[segment]]\nfile = \"s.qasm\"\n"
	path := writePlan(t, manifest, map[string]string{"s.qasm": tinyQASM})
	if _, err := plan.Load(path); err == nil || !strings.Contains(err.Error(), "no roles") {
		t.Errorf("expected missing roles error, got %v", err)
	}
}

func TestArchSpecBuildsTopologies(t *testing.T) {
	cases := []struct {
		name     string
		spec     *plan.ArchSpec
		nodes    int
		adjacent [2]int
		distant  [2]int
	}{
		{"line", &plan.ArchSpec{Kind: "line", Nodes: 4}, 4, [2]int{0, 1}, [2]int{0, 2}},
		{"ring", &plan.ArchSpec{Kind: "ring", Nodes: 4}, 4, [2]int{0, 3}, [2]int{0, 2}},
		{"grid", &plan.ArchSpec{Kind: "grid", Rows: 2, Cols: 3}, 6, [2]int{0, 3}, [2]int{0, 4}},
		{"couplings", &plan.ArchSpec{Kind: "couplings", Pairs: [][2]int{{0, 2}, {2, 5}}}, 3, [2]int{0, 2}, [2]int{0, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := tc.spec.Build()
			if err != nil {
				t.Fatalf("failed to build %s: %v", tc.name, err)
			}
			if a.NumNodes() != tc.nodes {
				t.Errorf("expected %d nodes, got %d", tc.nodes, a.NumNodes())
			}
			if !a.Adjacent(circuit.Node(tc.adjacent[0]), circuit.Node(tc.adjacent[1])) {
				t.Errorf("expected node[%d] adjacent to node[%d]", tc.adjacent[0], tc.adjacent[1])
			}
			if a.Adjacent(circuit.Node(tc.distant[0]), circuit.Node(tc.distant[1])) {
				t.Errorf("expected node[%d] not adjacent to node[%d]", tc.distant[0], tc.distant[1])
			}
		})
	}

	full, err := (&plan.ArchSpec{Kind: "full", Nodes: 3}).Build()
	if err != nil {
		t.Fatalf("failed to build full topology: %v", err)
	}
	if !full.AllToAll() {
		t.Error("expected all-to-all topology")
	}

	var none *plan.ArchSpec
	a, err := none.Build()
	if err != nil || a != nil {
		t.Errorf("expected nil spec to build nothing, got %v, %v", a, err)
	}
}
