package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/vmihailenco/msgpack/v5"

	"qknit/internal/arch"
	"qknit/internal/circuit"
	"qknit/internal/knit"
)

// routeCacheSchema is bumped whenever the payload layout changes; stale
// entries are treated as misses.
const routeCacheSchema uint16 = 1

// Digest is a SHA-256 content fingerprint.
type Digest [sha256.Size]byte

// DiskCache stores routed segments on disk, keyed by routing-input
// digest. Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenDiskCache initializes a disk cache under the user cache dir
// (honours XDG_CACHE_HOME on Linux).
func OpenDiskCache(app string) (*DiskCache, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "segments", hex.EncodeToString(key[:])+".mp")
}

// Put serializes a payload and writes it atomically (temp file plus
// rename).
func (c *DiskCache) Put(key Digest, payload *RoutePayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return fmt.Errorf("driver: encoding cached segment: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("driver: %w", err)
	}
	if err := os.Rename(f.Name(), p); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("driver: %w", err)
	}
	return nil
}

// Get reads a payload. It returns false on a miss or on a schema
// mismatch.
func (c *DiskCache) Get(key Digest, out *RoutePayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("driver: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, fmt.Errorf("driver: decoding cached segment: %w", err)
	}
	if out.Schema != routeCacheSchema {
		return false, nil
	}
	return true, nil
}

// RoutePayload is the serialised form of one routed segment.
type RoutePayload struct {
	Schema uint16
	Qubits []CachedUnit
	Bits   []CachedUnit
	Ops    []CachedOp
	// Initial and Final are keyed by the pre-routing unit's string form.
	Initial map[string]CachedUnit
	Final   map[string]CachedUnit
}

// CachedUnit is the serialised form of a circuit.UnitID.
type CachedUnit struct {
	Reg   string
	Index int
}

// CachedOp is the serialised form of a circuit.Op.
type CachedOp struct {
	Kind   uint8
	Qubits []CachedUnit
	Bits   []CachedUnit
	Params []float64
}

func toCachedUnit(u circuit.UnitID) CachedUnit {
	return CachedUnit{Reg: u.Reg, Index: u.Index}
}

func (u CachedUnit) unit() circuit.UnitID {
	return circuit.UnitID{Reg: u.Reg, Index: u.Index}
}

func encodeRouting(r knit.Routing) *RoutePayload {
	payload := &RoutePayload{
		Schema:  routeCacheSchema,
		Initial: make(map[string]CachedUnit, len(r.Initial)),
		Final:   make(map[string]CachedUnit, len(r.Final)),
	}
	for _, q := range r.Circuit.Qubits() {
		payload.Qubits = append(payload.Qubits, toCachedUnit(q))
	}
	for _, b := range r.Circuit.Bits() {
		payload.Bits = append(payload.Bits, toCachedUnit(b))
	}
	for _, op := range r.Circuit.Ops() {
		c := CachedOp{Kind: uint8(op.Kind), Params: op.Params}
		for _, q := range op.Qubits {
			c.Qubits = append(c.Qubits, toCachedUnit(q))
		}
		for _, b := range op.Bits {
			c.Bits = append(c.Bits, toCachedUnit(b))
		}
		payload.Ops = append(payload.Ops, c)
	}
	for k, v := range r.Initial {
		payload.Initial[k.String()] = toCachedUnit(v)
	}
	for k, v := range r.Final {
		payload.Final[k.String()] = toCachedUnit(v)
	}
	return payload
}

func decodeRouting(payload *RoutePayload) (knit.Routing, error) {
	c := circuit.New()
	for _, q := range payload.Qubits {
		if err := c.AddQubit(q.unit()); err != nil {
			return knit.Routing{}, fmt.Errorf("driver: cached segment: %w", err)
		}
	}
	for _, b := range payload.Bits {
		if err := c.AddBit(b.unit()); err != nil {
			return knit.Routing{}, fmt.Errorf("driver: cached segment: %w", err)
		}
	}
	for _, op := range payload.Ops {
		dec := circuit.Op{Kind: circuit.OpKind(op.Kind), Params: op.Params}
		for _, q := range op.Qubits {
			dec.Qubits = append(dec.Qubits, q.unit())
		}
		for _, b := range op.Bits {
			dec.Bits = append(dec.Bits, b.unit())
		}
		if err := c.AddOp(dec); err != nil {
			return knit.Routing{}, fmt.Errorf("driver: cached segment: %w", err)
		}
	}

	routing := knit.Routing{
		Circuit: c,
		Initial: make(map[circuit.UnitID]circuit.UnitID, len(payload.Initial)),
		Final:   make(map[circuit.UnitID]circuit.UnitID, len(payload.Final)),
	}
	for k, v := range payload.Initial {
		u, err := circuit.ParseUnitID(k)
		if err != nil {
			return knit.Routing{}, fmt.Errorf("driver: cached segment: %w", err)
		}
		routing.Initial[u] = v.unit()
	}
	for k, v := range payload.Final {
		u, err := circuit.ParseUnitID(k)
		if err != nil {
			return knit.Routing{}, fmt.Errorf("driver: cached segment: %w", err)
		}
		routing.Final[u] = v.unit()
	}
	return routing, nil
}

// RouteKey fingerprints one routing input: the exact circuit handed to
// the router plus the architecture it must respect. Role resolution has
// already renamed the circuit's wires at this point, so the strategy's
// influence on the input is captured by the circuit itself.
func RouteKey(c *circuit.Circuit, a *arch.Architecture) Digest {
	h := sha256.New()
	for _, q := range c.Qubits() {
		writeKeyPart(h, "q", q.String())
	}
	for _, b := range c.Bits() {
		writeKeyPart(h, "c", b.String())
	}
	for _, op := range c.Ops() {
		fmt.Fprintf(h, "op %s", op.Kind)
		for _, q := range op.Qubits {
			fmt.Fprintf(h, " %s", q)
		}
		for _, b := range op.Bits {
			fmt.Fprintf(h, " %s", b)
		}
		for _, p := range op.Params {
			fmt.Fprintf(h, " %s", strconv.FormatFloat(p, 'g', -1, 64))
		}
		fmt.Fprint(h, "\n")
	}
	if a != nil {
		if a.AllToAll() {
			fmt.Fprintf(h, "arch full %d\n", a.NumNodes())
		}
		for _, n := range a.Nodes() {
			writeKeyPart(h, "node", n.String())
		}
		for _, cp := range a.Couplings() {
			fmt.Fprintf(h, "edge %s %s\n", cp[0], cp[1])
		}
	}
	var d Digest
	h.Sum(d[:0])
	return d
}

func writeKeyPart(h io.Writer, kind, value string) {
	fmt.Fprintf(h, "%s %s\n", kind, value)
}

// CachedRouter memoises an inner router's results in a disk cache. Any
// cache failure falls back to the inner router; a knit run never fails
// on cache problems.
type CachedRouter struct {
	Inner knit.Router
	Cache *DiskCache

	hits   atomic.Uint64
	misses atomic.Uint64
}

var _ knit.Router = (*CachedRouter)(nil)

// Route serves the routing from the cache when possible, delegating to
// the inner router otherwise.
func (r *CachedRouter) Route(c *circuit.Circuit, a *arch.Architecture) (knit.Routing, error) {
	key := RouteKey(c, a)

	var payload RoutePayload
	if ok, err := r.Cache.Get(key, &payload); err == nil && ok {
		if routing, decErr := decodeRouting(&payload); decErr == nil {
			r.hits.Add(1)
			return routing, nil
		}
	}

	routing, err := r.Inner.Route(c, a)
	if err != nil {
		return knit.Routing{}, err
	}
	r.misses.Add(1)
	_ = r.Cache.Put(key, encodeRouting(routing))
	return routing, nil
}

// Hits reports how many routings were served from the cache.
func (r *CachedRouter) Hits() uint64 { return r.hits.Load() }

// Misses reports how many routings required the inner router.
func (r *CachedRouter) Misses() uint64 { return r.misses.Load() }
