package knit_test

import (
	"errors"
	"testing"

	"qknit/internal/arch"
	"qknit/internal/circuit"
	"qknit/internal/knit"
	"qknit/internal/route"
)

func role(name string) knit.Role { return knit.Role{Reg: name, Index: 0} }

func routedOpts() knit.Options {
	return knit.Options{Router: route.Greedy{}, Planner: route.Tokens{}}
}

// identitySegment is a single-qubit segment carrying one role in and
// out at register index 0, with one gate so the qubit is active.
func identitySegment(t *testing.T, name string) knit.Segment {
	t.Helper()
	c := circuit.NewWithRegisters(1, 0)
	if err := c.AddGate(circuit.OpH, circuit.Qubit(0)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	r := role(name)
	return knit.Segment{
		Circuit: c,
		Inputs:  knit.IOMap{r: knit.AtIndex(0)},
		Outputs: knit.IOMap{r: knit.AtIndex(0)},
	}
}

func assertFullNodeRegister(t *testing.T, c *circuit.Circuit, a *arch.Architecture) {
	t.Helper()
	if c.NumQubits() != a.NumNodes() {
		t.Errorf("expected %d register qubits, got %d", a.NumNodes(), c.NumQubits())
	}
	for _, n := range a.Nodes() {
		if !c.HasQubit(n) {
			t.Errorf("node %s missing from the combined register", n)
		}
	}
}

func TestSeparateStitchesIdentitySegments(t *testing.T) {
	a := arch.Line(2)
	segments := []knit.Segment{identitySegment(t, "a"), identitySegment(t, "a")}

	res, err := knit.Stitch(knit.StrategySeparate, segments, a, routedOpts())
	if err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	assertFullNodeRegister(t, res.Circuit, a)
	if got := res.Circuit.NumOps(); got != 2 {
		t.Errorf("expected both gates and no swaps, got %d ops", got)
	}
	if res.Inputs[role("a")] != circuit.Node(0) {
		t.Errorf("expected role a to enter on node[0], got %s", res.Inputs[role("a")])
	}
	if res.Outputs[role("a")] != circuit.Node(0) {
		t.Errorf("expected role a to leave on node[0], got %s", res.Outputs[role("a")])
	}
}

func TestSeparateInsertsSwapNetwork(t *testing.T) {
	a := arch.Line(2)
	first := identitySegment(t, "a")

	// The second segment pins its wire to node[1], so the seam must move
	// role a from node[0] to node[1].
	c := circuit.New()
	if err := c.AddQubit(circuit.Node(1)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	if err := c.AddGate(circuit.OpH, circuit.Node(1)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	second := knit.Segment{
		Circuit: c,
		Inputs:  knit.IOMap{role("a"): knit.AtIndex(0)},
		Outputs: knit.IOMap{role("a"): knit.AtIndex(0)},
	}

	res, err := knit.Stitch(knit.StrategySeparate, []knit.Segment{first, second}, a, routedOpts())
	if err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	swaps := res.Circuit.OpsOf(circuit.OpSwap)
	if len(swaps) != 1 {
		t.Fatalf("expected one seam swap, got %d", len(swaps))
	}
	if res.Outputs[role("a")] != circuit.Node(1) {
		t.Errorf("expected role a to leave on node[1], got %s", res.Outputs[role("a")])
	}
}

func TestSeparatePinsFirstSegmentNodeRoles(t *testing.T) {
	a := arch.Line(2)
	seg := identitySegment(t, "a")
	seg.Inputs = knit.IOMap{circuit.Node(1): knit.AtIndex(0)}
	seg.Outputs = knit.IOMap{circuit.Node(1): knit.AtIndex(0)}

	res, err := knit.Stitch(knit.StrategySeparate, []knit.Segment{seg}, a, routedOpts())
	if err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	if res.Inputs[circuit.Node(1)] != circuit.Node(1) {
		t.Errorf("node-named role should be pinned to its node, got %s", res.Inputs[circuit.Node(1)])
	}
	gates := res.Circuit.OpsOf(circuit.OpH)
	if len(gates) != 1 || gates[0].Qubits[0] != circuit.Node(1) {
		t.Errorf("pinned wire should carry the gate on node[1], got %v", gates)
	}
}

func TestSeparateAssignsIdleDeclaredWire(t *testing.T) {
	a := arch.Line(2)
	c := circuit.NewWithRegisters(2, 0)
	if err := c.AddGate(circuit.OpH, circuit.Qubit(0)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	seg := knit.Segment{
		Circuit: c,
		Inputs:  knit.IOMap{role("a"): knit.AtIndex(0)},
		Outputs: knit.IOMap{role("a"): knit.AtIndex(0), role("anc"): knit.AtIndex(1)},
	}

	res, err := knit.Stitch(knit.StrategySeparate, []knit.Segment{seg}, a, routedOpts())
	if err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	if res.Outputs[role("anc")] != circuit.Node(1) {
		t.Errorf("idle declared wire should land on the free node, got %s", res.Outputs[role("anc")])
	}
	assertFullNodeRegister(t, res.Circuit, a)
}

func TestSeparateFailsWhenPoolExhausted(t *testing.T) {
	a := arch.Line(2)
	c := circuit.NewWithRegisters(3, 0)
	if err := c.AddGate(circuit.OpCX, circuit.Qubit(0), circuit.Qubit(1)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	seg := knit.Segment{
		Circuit: c,
		Inputs:  knit.IOMap{role("a"): knit.AtIndex(0), role("b"): knit.AtIndex(1)},
		Outputs: knit.IOMap{role("a"): knit.AtIndex(0), role("b"): knit.AtIndex(1), role("c"): knit.AtIndex(2)},
	}

	_, err := knit.Stitch(knit.StrategySeparate, []knit.Segment{seg}, a, routedOpts())
	if !errors.Is(err, knit.ErrNodePoolExhausted) {
		t.Fatalf("expected ErrNodePoolExhausted, got %v", err)
	}
}

func TestSequentialChainsThreeSegments(t *testing.T) {
	a := arch.Line(3)
	segment := func() knit.Segment {
		c := circuit.NewWithRegisters(2, 0)
		if err := c.AddGate(circuit.OpCX, circuit.Qubit(0), circuit.Qubit(1)); err != nil {
			t.Fatalf("failed to build segment: %v", err)
		}
		return knit.Segment{
			Circuit: c,
			Inputs:  knit.IOMap{role("a"): knit.AtIndex(0), role("b"): knit.AtIndex(1)},
			Outputs: knit.IOMap{role("a"): knit.AtIndex(0), role("b"): knit.AtIndex(1)},
		}
	}
	segments := []knit.Segment{segment(), segment(), segment()}

	res, err := knit.Stitch(knit.StrategySequential, segments, a, routedOpts())
	if err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	assertFullNodeRegister(t, res.Circuit, a)
	if got := len(res.Circuit.OpsOf(circuit.OpSwap)); got != 0 {
		t.Errorf("sequential stitching should need no seam swaps, got %d", got)
	}
	if got := len(res.Circuit.OpsOf(circuit.OpCX)); got != 3 {
		t.Errorf("expected 3 cx gates, got %d", got)
	}
	for _, r := range []knit.Role{role("a"), role("b")} {
		if res.Inputs[r] != res.Outputs[r] {
			t.Errorf("role %s drifted: in %s, out %s", r, res.Inputs[r], res.Outputs[r])
		}
	}
}

func TestUnroutedReusesAncillaSlot(t *testing.T) {
	first := circuit.NewWithRegisters(2, 0)
	if err := first.AddGate(circuit.OpCX, circuit.Qubit(0), circuit.Qubit(1)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	second := circuit.NewWithRegisters(1, 0)
	if err := second.AddGate(circuit.OpH, circuit.Qubit(0)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	segments := []knit.Segment{
		{
			Circuit: first,
			Inputs:  knit.IOMap{role("x"): knit.AtIndex(0)},
			Outputs: knit.IOMap{role("x"): knit.AtIndex(0), role("anc"): knit.AtIndex(1)},
		},
		{
			Circuit: second,
			Inputs:  knit.IOMap{role("x"): knit.AtIndex(0)},
			Outputs: knit.IOMap{role("x"): knit.AtIndex(0)},
		},
	}

	res, err := knit.Stitch(knit.StrategyUnrouted, segments, nil, knit.Options{})
	if err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	if got := res.Circuit.NumQubits(); got != 2 {
		t.Errorf("expected the register to stay at 2 qubits, got %d", got)
	}
	if len(res.Outputs) != 1 || res.Outputs[role("x")] != circuit.Qubit(0) {
		t.Errorf("expected outputs {x: q[0]}, got %v", res.Outputs)
	}
}

func TestUnroutedGrowsRegisterWhenSlotsRunOut(t *testing.T) {
	first := circuit.NewWithRegisters(1, 0)
	if err := first.AddGate(circuit.OpH, circuit.Qubit(0)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	second := circuit.NewWithRegisters(2, 0)
	if err := second.AddGate(circuit.OpCX, circuit.Qubit(0), circuit.Qubit(1)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}
	segments := []knit.Segment{
		{
			Circuit: first,
			Inputs:  knit.IOMap{role("x"): knit.AtIndex(0)},
			Outputs: knit.IOMap{role("x"): knit.AtIndex(0)},
		},
		{
			Circuit: second,
			Inputs:  knit.IOMap{role("x"): knit.AtIndex(0)},
			Outputs: knit.IOMap{role("x"): knit.AtIndex(0), role("anc"): knit.AtIndex(1)},
		},
	}

	res, err := knit.Stitch(knit.StrategyUnrouted, segments, nil, knit.Options{})
	if err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	if got := res.Circuit.NumQubits(); got != 2 {
		t.Errorf("expected the register to grow to 2 qubits, got %d", got)
	}
	if res.Outputs[role("anc")] != circuit.Qubit(1) {
		t.Errorf("expected the new ancilla on q[1], got %s", res.Outputs[role("anc")])
	}
}

func TestRoundTripIdentityAllStrategies(t *testing.T) {
	cases := []struct {
		strategy knit.Strategy
		arch     *arch.Architecture
		opts     knit.Options
	}{
		{knit.StrategySeparate, arch.Line(2), routedOpts()},
		{knit.StrategySequential, arch.Line(2), routedOpts()},
		{knit.StrategyUnrouted, nil, knit.Options{}},
	}
	for _, tc := range cases {
		t.Run(tc.strategy.String(), func(t *testing.T) {
			segments := []knit.Segment{identitySegment(t, "a"), identitySegment(t, "a")}
			res, err := knit.Stitch(tc.strategy, segments, tc.arch, tc.opts)
			if err != nil {
				t.Fatalf("stitch failed: %v", err)
			}
			if len(res.Inputs) != len(res.Outputs) {
				t.Fatalf("map sizes differ: %d inputs, %d outputs", len(res.Inputs), len(res.Outputs))
			}
			for r, in := range res.Inputs {
				if out, ok := res.Outputs[r]; !ok || out != in {
					t.Errorf("role %s: expected %s in and out, got out %s", r, in, out)
				}
			}
		})
	}
}

func TestStitchRenumbersBits(t *testing.T) {
	segment := func() knit.Segment {
		c := circuit.NewWithRegisters(1, 1)
		if err := c.AddMeasure(circuit.Qubit(0), circuit.Bit(0)); err != nil {
			t.Fatalf("failed to build segment: %v", err)
		}
		r := role("a")
		return knit.Segment{
			Circuit: c,
			Inputs:  knit.IOMap{r: knit.AtIndex(0)},
			Outputs: knit.IOMap{r: knit.AtIndex(0)},
		}
	}
	segments := []knit.Segment{segment(), segment()}

	res, err := knit.Stitch(knit.StrategySeparate, segments, arch.Line(2), routedOpts())
	if err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	if res.Circuit.NumBits() != 2 {
		t.Fatalf("expected 2 bits, got %d", res.Circuit.NumBits())
	}
	for i := 0; i < 2; i++ {
		if res.Circuit.BitAt(i) != circuit.Bit(i) {
			t.Errorf("bit %d: expected %s, got %s", i, circuit.Bit(i), res.Circuit.BitAt(i))
		}
	}
	measures := res.Circuit.OpsOf(circuit.OpMeasure)
	if len(measures) != 2 {
		t.Fatalf("expected 2 measurements, got %d", len(measures))
	}
	if measures[1].Bits[0] != circuit.Bit(1) {
		t.Errorf("second measurement should target c[1], got %s", measures[1].Bits[0])
	}
}

func TestStitchReportsProgress(t *testing.T) {
	type step struct {
		segment int
		phase   knit.Phase
	}
	var got []step
	opts := routedOpts()
	opts.Progress = func(segment int, phase knit.Phase) {
		got = append(got, step{segment, phase})
	}
	segments := []knit.Segment{identitySegment(t, "a"), identitySegment(t, "a")}

	if _, err := knit.Stitch(knit.StrategySeparate, segments, arch.Line(2), opts); err != nil {
		t.Fatalf("stitch failed: %v", err)
	}
	want := []step{
		{0, knit.PhaseRoute},
		{0, knit.PhaseAppend},
		{1, knit.PhaseRoute},
		{1, knit.PhaseSwaps},
		{1, knit.PhaseAppend},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d progress events, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestStitchRejectsEmptySegments(t *testing.T) {
	_, err := knit.Stitch(knit.StrategySeparate, nil, arch.Line(2), routedOpts())
	if !errors.Is(err, knit.ErrNoSegments) {
		t.Fatalf("expected ErrNoSegments, got %v", err)
	}
}

func TestSeparateRejectsAllToAll(t *testing.T) {
	segments := []knit.Segment{identitySegment(t, "a")}
	_, err := knit.Stitch(knit.StrategySeparate, segments, arch.FullyConnected(2), routedOpts())
	if !errors.Is(err, knit.ErrUnconstrainedArch) {
		t.Fatalf("expected ErrUnconstrainedArch, got %v", err)
	}
	_, err = knit.Stitch(knit.StrategySequential, segments, nil, routedOpts())
	if !errors.Is(err, knit.ErrUnconstrainedArch) {
		t.Fatalf("expected ErrUnconstrainedArch for nil architecture, got %v", err)
	}
}

func TestUnroutedRejectsConstrainedArch(t *testing.T) {
	segments := []knit.Segment{identitySegment(t, "a")}
	_, err := knit.Stitch(knit.StrategyUnrouted, segments, arch.Line(2), knit.Options{})
	if !errors.Is(err, knit.ErrConstrainedArch) {
		t.Fatalf("expected ErrConstrainedArch, got %v", err)
	}
}

func TestStitchRejectsRoleMismatch(t *testing.T) {
	for _, strategy := range []knit.Strategy{knit.StrategySeparate, knit.StrategySequential, knit.StrategyUnrouted} {
		t.Run(strategy.String(), func(t *testing.T) {
			segments := []knit.Segment{identitySegment(t, "a"), identitySegment(t, "b")}
			var a *arch.Architecture
			opts := knit.Options{}
			if strategy != knit.StrategyUnrouted {
				a = arch.Line(2)
				opts = routedOpts()
			}
			_, err := knit.Stitch(strategy, segments, a, opts)
			if !errors.Is(err, knit.ErrRoleMismatch) {
				t.Fatalf("expected ErrRoleMismatch, got %v", err)
			}
		})
	}
}

func TestStitchRejectsUnknownStrategy(t *testing.T) {
	segments := []knit.Segment{identitySegment(t, "a")}
	_, err := knit.Stitch(knit.Strategy(99), segments, arch.Line(2), routedOpts())
	if !errors.Is(err, knit.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestStitchValidatesDeclaredLocations(t *testing.T) {
	c := circuit.NewWithRegisters(1, 0)
	if err := c.AddGate(circuit.OpH, circuit.Qubit(0)); err != nil {
		t.Fatalf("failed to build segment: %v", err)
	}

	shared := knit.Segment{
		Circuit: c,
		Inputs:  knit.IOMap{role("a"): knit.AtIndex(0), role("b"): knit.AtIndex(0)},
		Outputs: knit.IOMap{role("a"): knit.AtIndex(0)},
	}
	if _, err := knit.Stitch(knit.StrategyUnrouted, []knit.Segment{shared}, nil, knit.Options{}); err == nil {
		t.Errorf("expected an error for roles sharing a location")
	}

	outOfRange := knit.Segment{
		Circuit: c,
		Inputs:  knit.IOMap{role("a"): knit.AtIndex(3)},
		Outputs: knit.IOMap{role("a"): knit.AtIndex(0)},
	}
	if _, err := knit.Stitch(knit.StrategyUnrouted, []knit.Segment{outOfRange}, nil, knit.Options{}); err == nil {
		t.Errorf("expected an error for an out-of-range index")
	}

	missing := knit.Segment{
		Circuit: c,
		Inputs:  knit.IOMap{role("a"): knit.AtUnit(circuit.Qubit(7))},
		Outputs: knit.IOMap{role("a"): knit.AtIndex(0)},
	}
	if _, err := knit.Stitch(knit.StrategyUnrouted, []knit.Segment{missing}, nil, knit.Options{}); err == nil {
		t.Errorf("expected an error for a unit outside the register")
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []knit.Strategy{knit.StrategySeparate, knit.StrategySequential, knit.StrategyUnrouted} {
		parsed, err := knit.ParseStrategy(s.String())
		if err != nil {
			t.Fatalf("failed to parse %q: %v", s.String(), err)
		}
		if parsed != s {
			t.Errorf("expected %v, got %v", s, parsed)
		}
	}
	if _, err := knit.ParseStrategy("zigzag"); !errors.Is(err, knit.ErrUnknownStrategy) {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}
