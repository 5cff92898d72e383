package driver

import (
	"maps"
	"os"
	"path/filepath"
	"testing"

	"qknit/internal/arch"
	"qknit/internal/circuit"
	"qknit/internal/knit"
	"qknit/internal/route"
)

func gateOnWire(t *testing.T, k circuit.OpKind) *circuit.Circuit {
	t.Helper()
	c := circuit.New()
	if err := c.AddQubit(circuit.Qubit(0)); err != nil {
		t.Fatalf("failed to add qubit: %v", err)
	}
	if err := c.AddGate(k, circuit.Qubit(0)); err != nil {
		t.Fatalf("failed to add gate: %v", err)
	}
	return c
}

// routedTriple routes a small mixed circuit so the payload covers
// multi-qubit ops, parameters, and classical bits.
func routedTriple(t *testing.T) (knit.Routing, *circuit.Circuit, *arch.Architecture) {
	t.Helper()
	a := arch.Line(3)
	c := circuit.New()
	for i := 0; i < 3; i++ {
		if err := c.AddQubit(circuit.Qubit(i)); err != nil {
			t.Fatalf("failed to add qubit: %v", err)
		}
	}
	if err := c.AddBit(circuit.Bit(0)); err != nil {
		t.Fatalf("failed to add bit: %v", err)
	}
	if err := c.AddGate(circuit.OpCX, circuit.Qubit(0), circuit.Qubit(2)); err != nil {
		t.Fatalf("failed to add gate: %v", err)
	}
	if err := c.AddRotation(circuit.OpRz, 0.25, circuit.Qubit(1)); err != nil {
		t.Fatalf("failed to add rotation: %v", err)
	}
	if err := c.AddMeasure(circuit.Qubit(0), circuit.Bit(0)); err != nil {
		t.Fatalf("failed to add measure: %v", err)
	}
	r, err := route.Greedy{}.Route(c, a)
	if err != nil {
		t.Fatalf("failed to route: %v", err)
	}
	return r, c, a
}

func TestRoutePayloadRoundTrip(t *testing.T) {
	r, _, _ := routedTriple(t)

	decoded, err := decodeRouting(encodeRouting(r))
	if err != nil {
		t.Fatalf("failed to decode the payload: %v", err)
	}
	if got, want := decoded.Circuit.NumOps(), r.Circuit.NumOps(); got != want {
		t.Fatalf("expected %d ops, got %d", want, got)
	}
	wantOps := r.Circuit.Ops()
	for i, op := range decoded.Circuit.Ops() {
		w := wantOps[i]
		if op.Kind != w.Kind || len(op.Qubits) != len(w.Qubits) || len(op.Bits) != len(w.Bits) || len(op.Params) != len(w.Params) {
			t.Errorf("op %d: expected %v, got %v", i, w, op)
		}
	}
	if !maps.Equal(decoded.Initial, r.Initial) {
		t.Errorf("expected initial map %v, got %v", r.Initial, decoded.Initial)
	}
	if !maps.Equal(decoded.Final, r.Final) {
		t.Errorf("expected final map %v, got %v", r.Final, decoded.Final)
	}
}

func TestRouteKeySeparatesInputs(t *testing.T) {
	a := arch.Line(2)
	h := gateOnWire(t, circuit.OpH)
	x := gateOnWire(t, circuit.OpX)

	if RouteKey(h, a) != RouteKey(h, a) {
		t.Error("expected a stable key for identical inputs")
	}
	if RouteKey(h, a) == RouteKey(x, a) {
		t.Error("expected distinct keys for distinct circuits")
	}
	if RouteKey(h, a) == RouteKey(h, arch.Line(3)) {
		t.Error("expected distinct keys for distinct architectures")
	}
	if RouteKey(h, a) == RouteKey(h, nil) {
		t.Error("expected distinct keys with and without an architecture")
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cache, err := OpenDiskCache("qknit-test")
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	r, c, a := routedTriple(t)
	key := RouteKey(c, a)

	var missed RoutePayload
	if ok, err := cache.Get(key, &missed); err != nil || ok {
		t.Fatalf("expected a clean miss, got ok=%v err=%v", ok, err)
	}
	if err := cache.Put(key, encodeRouting(r)); err != nil {
		t.Fatalf("failed to put: %v", err)
	}
	var hit RoutePayload
	ok, err := cache.Get(key, &hit)
	if err != nil || !ok {
		t.Fatalf("expected a hit, got ok=%v err=%v", ok, err)
	}
	if hit.Schema != routeCacheSchema || len(hit.Ops) != r.Circuit.NumOps() {
		t.Errorf("expected %d cached ops at schema %d, got %d at %d", r.Circuit.NumOps(), routeCacheSchema, len(hit.Ops), hit.Schema)
	}
}

func TestDiskCacheIgnoresStaleSchemas(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cache, err := OpenDiskCache("qknit-test")
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	key := Digest{1}
	if err := cache.Put(key, &RoutePayload{Schema: routeCacheSchema + 1}); err != nil {
		t.Fatalf("failed to put: %v", err)
	}
	var out RoutePayload
	if ok, err := cache.Get(key, &out); err != nil || ok {
		t.Errorf("expected a schema mismatch to read as a miss, got ok=%v err=%v", ok, err)
	}
}

func TestCachedRouterFallsBackOnCorruptEntries(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	cache, err := OpenDiskCache("qknit-test")
	if err != nil {
		t.Fatalf("failed to open cache: %v", err)
	}
	a := arch.Line(2)
	c := gateOnWire(t, circuit.OpH)
	key := RouteKey(c, a)
	p := cache.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("failed to prepare the cache dir: %v", err)
	}
	if err := os.WriteFile(p, []byte("junk"), 0o644); err != nil {
		t.Fatalf("failed to corrupt the entry: %v", err)
	}

	router := &CachedRouter{Inner: route.Greedy{}, Cache: cache}
	r, err := router.Route(c, a)
	if err != nil {
		t.Fatalf("failed to route past the corrupt entry: %v", err)
	}
	if router.Hits() != 0 || router.Misses() != 1 {
		t.Errorf("expected a miss, got %d hits and %d misses", router.Hits(), router.Misses())
	}
	if r.Circuit.NumOps() != 1 {
		t.Errorf("expected the routed gate, got %d ops", r.Circuit.NumOps())
	}

	// The rewrite after the miss repairs the entry.
	if _, err := router.Route(c, a); err != nil {
		t.Fatalf("failed to route again: %v", err)
	}
	if router.Hits() != 1 {
		t.Errorf("expected the repaired entry to hit, got %d hits", router.Hits())
	}
}
