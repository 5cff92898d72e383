package route

import (
	"fmt"

	"qknit/internal/arch"
	"qknit/internal/circuit"
	"qknit/internal/knit"
)

// Tokens plans swap networks by token routing. Every node of a
// connected component carries a token; the requested moves name where
// some of the tokens must end up, and the remainder are paired off so
// the correspondence becomes a full permutation. Nodes are then fixed
// one at a time, lowest first among those whose removal keeps the
// component connected, walking each node's token home along a shortest
// path through the unfixed region.
//
// The resulting network is correct but not minimal.
type Tokens struct{}

var _ knit.SwapPlanner = Tokens{}

// Plan implements knit.SwapPlanner.
func (Tokens) Plan(a *arch.Architecture, moves map[circuit.UnitID]circuit.UnitID) ([][2]circuit.UnitID, error) {
	if a == nil {
		return nil, fmt.Errorf("route: no architecture")
	}
	srcs := make([]circuit.UnitID, 0, len(moves))
	for src := range moves {
		srcs = append(srcs, src)
	}
	circuit.SortUnits(srcs)
	claimed := make(map[circuit.UnitID]circuit.UnitID, len(moves))
	for _, src := range srcs {
		dst := moves[src]
		if !a.HasNode(src) {
			return nil, fmt.Errorf("route: move source %s is not an architecture node", src)
		}
		if !a.HasNode(dst) {
			return nil, fmt.Errorf("route: move target %s is not an architecture node", dst)
		}
		if prev, dup := claimed[dst]; dup {
			return nil, fmt.Errorf("route: moves from %s and %s collide on node %s", prev, src, dst)
		}
		claimed[dst] = src
		if a.Distance(src, dst) < 0 {
			return nil, fmt.Errorf("route: no path from %s to %s", src, dst)
		}
	}

	var swaps [][2]circuit.UnitID
	visited := make(map[circuit.UnitID]struct{})
	for _, n := range a.Nodes() {
		if _, seen := visited[n]; seen {
			continue
		}
		comp := component(a, n)
		for _, m := range comp {
			visited[m] = struct{}{}
		}
		touched := false
		for _, m := range comp {
			if _, ok := moves[m]; ok {
				touched = true
				break
			}
		}
		if touched {
			swaps = append(swaps, planComponent(a, comp, moves)...)
		}
	}
	return swaps, nil
}

// planComponent realises the moves restricted to one connected
// component. comp is ordered by unit id and every move endpoint lies
// inside it.
func planComponent(a *arch.Architecture, comp []circuit.UnitID, moves map[circuit.UnitID]circuit.UnitID) [][2]circuit.UnitID {
	// A token is named after the node it must reach. at and pos stay
	// inverse to each other throughout.
	at := make(map[circuit.UnitID]circuit.UnitID, len(comp))
	pos := make(map[circuit.UnitID]circuit.UnitID, len(comp))
	dstUsed := make(map[circuit.UnitID]struct{}, len(comp))
	for _, n := range comp {
		if dst, ok := moves[n]; ok {
			at[n] = dst
			pos[dst] = n
			dstUsed[dst] = struct{}{}
		}
	}
	var freeSrc, freeDst []circuit.UnitID
	for _, n := range comp {
		if _, ok := moves[n]; !ok {
			freeSrc = append(freeSrc, n)
		}
		if _, ok := dstUsed[n]; !ok {
			freeDst = append(freeDst, n)
		}
	}
	for i := range freeSrc {
		at[freeSrc[i]] = freeDst[i]
		pos[freeDst[i]] = freeSrc[i]
	}

	remaining := make(map[circuit.UnitID]struct{}, len(comp))
	for _, n := range comp {
		remaining[n] = struct{}{}
	}
	var out [][2]circuit.UnitID
	for len(remaining) > 1 {
		v := removable(a, comp, remaining)
		if at[v] != v {
			path := restrictedPath(a, pos[v], v, remaining)
			for i := 0; i+1 < len(path); i++ {
				x, y := path[i], path[i+1]
				tx, ty := at[x], at[y]
				at[x], at[y] = ty, tx
				pos[tx], pos[ty] = y, x
				out = append(out, [2]circuit.UnitID{x, y})
			}
		}
		delete(remaining, v)
	}
	return out
}

// component returns the connected component containing start, ordered
// by unit id.
func component(a *arch.Architecture, start circuit.UnitID) []circuit.UnitID {
	seen := map[circuit.UnitID]struct{}{start: {}}
	queue := []circuit.UnitID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range a.Neighbors(cur) {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			queue = append(queue, n)
		}
	}
	out := make([]circuit.UnitID, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	circuit.SortUnits(out)
	return out
}

// removable picks the lowest node in remaining whose removal keeps the
// rest of remaining connected. Such a node always exists while the
// region is connected.
func removable(a *arch.Architecture, comp []circuit.UnitID, remaining map[circuit.UnitID]struct{}) circuit.UnitID {
	var fallback circuit.UnitID
	haveFallback := false
	for _, v := range comp {
		if _, in := remaining[v]; !in {
			continue
		}
		if !haveFallback {
			fallback = v
			haveFallback = true
		}
		if connectedWithout(a, remaining, v) {
			return v
		}
	}
	return fallback
}

// connectedWithout reports whether remaining minus v stays connected.
func connectedWithout(a *arch.Architecture, remaining map[circuit.UnitID]struct{}, v circuit.UnitID) bool {
	if len(remaining) <= 2 {
		return true
	}
	var start circuit.UnitID
	found := false
	for n := range remaining {
		if n != v {
			start = n
			found = true
			break
		}
	}
	if !found {
		return true
	}
	seen := map[circuit.UnitID]struct{}{start: {}}
	queue := []circuit.UnitID{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range a.Neighbors(cur) {
			if n == v {
				continue
			}
			if _, in := remaining[n]; !in {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			queue = append(queue, n)
		}
	}
	return len(seen) == len(remaining)-1
}

// restrictedPath returns a shortest path from u to v through remaining
// nodes only, endpoints inclusive. Ties break toward lower-ordered
// neighbors.
func restrictedPath(a *arch.Architecture, u, v circuit.UnitID, remaining map[circuit.UnitID]struct{}) []circuit.UnitID {
	if u == v {
		return []circuit.UnitID{u}
	}
	prev := map[circuit.UnitID]circuit.UnitID{u: u}
	queue := []circuit.UnitID{u}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range a.Neighbors(cur) {
			if _, in := remaining[n]; !in {
				continue
			}
			if _, ok := prev[n]; ok {
				continue
			}
			prev[n] = cur
			if n == v {
				var path []circuit.UnitID
				for at := v; ; at = prev[at] {
					path = append([]circuit.UnitID{at}, path...)
					if at == u {
						return path
					}
				}
			}
			queue = append(queue, n)
		}
	}
	return nil
}
