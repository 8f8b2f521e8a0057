package core

// derivative_registry.go — the derivative DAG (spec.md §4.4). Entries
// reference already-sealed ancestors by (block_index, entry_index); the
// registry enforces that every parent is sealed before the child is
// admitted and that no set of edges introduces a cycle. Modeled on the
// teacher's access_control.go cache-table shape, generalized from a flat
// role set to an adjacency map keyed by Location.

import "sync"

// DerivativeRegistry tracks parent/child edges between sealed entries.
type DerivativeRegistry struct {
	mu       sync.Mutex
	sealed   map[Location]struct{}
	children map[Location][]Location // parent -> children
	parents  map[Location][]Location // child -> parents
}

// NewDerivativeRegistry returns an empty registry.
func NewDerivativeRegistry() *DerivativeRegistry {
	return &DerivativeRegistry{
		sealed:   make(map[Location]struct{}),
		children: make(map[Location][]Location),
		parents:  make(map[Location][]Location),
	}
}

// IsSealed reports whether loc refers to an already-committed entry.
func (d *DerivativeRegistry) IsSealed(loc Location) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sealed[loc]
	return ok
}

// CheckParents validates, without mutating state, that every parent ref in
// refs points at a sealed entry (spec.md §4.9 gate 6). It does not check
// for cycles: a cycle cannot exist against already-sealed ancestors since
// the child's own location is not yet assigned.
func (d *DerivativeRegistry) CheckParents(refs []ParentRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range refs {
		loc := Location{BlockIndex: r.BlockIndex, EntryIndex: r.EntryIndex}
		if _, ok := d.sealed[loc]; !ok {
			return ErrParentNotSealed
		}
	}
	return nil
}

// AddEdges commits the parent/child edges for a newly sealed entry at loc.
// Mine calls it after the owning block has been persisted (spec.md §4.9
// gate 11, §4.10); NewChainState calls it for the genesis entry before the
// first snapshot is saved. A cycle check runs defensively: since parents must already be
// sealed and loc is new, a true cycle is structurally impossible, but the
// check guards against a future relaxation of that invariant.
func (d *DerivativeRegistry) AddEdges(loc Location, refs []ParentRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	parents := make([]Location, 0, len(refs))
	for _, r := range refs {
		p := Location{BlockIndex: r.BlockIndex, EntryIndex: r.EntryIndex}
		if _, ok := d.sealed[p]; !ok {
			return ErrParentNotSealed
		}
		parents = append(parents, p)
	}
	if d.reachesAny(parents, loc) {
		return ErrParentCycle
	}

	d.sealed[loc] = struct{}{}
	d.parents[loc] = parents
	for _, p := range parents {
		d.children[p] = append(d.children[p], loc)
	}
	return nil
}

// reachesAny reports whether target is reachable by walking backward
// (toward ancestors) from any location in from.
func (d *DerivativeRegistry) reachesAny(from []Location, target Location) bool {
	visited := make(map[Location]struct{})
	stack := append([]Location{}, from...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if _, ok := visited[cur]; ok {
			continue
		}
		visited[cur] = struct{}{}
		stack = append(stack, d.parents[cur]...)
	}
	return false
}

// DescendantsOf returns every entry location transitively derived from loc,
// in breadth-first discovery order (spec.md §4.4 "descendants_of").
func (d *DerivativeRegistry) DescendantsOf(loc Location) []Location {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []Location
	visited := map[Location]struct{}{loc: {}}
	queue := append([]Location{}, d.children[loc]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, ok := visited[cur]; ok {
			continue
		}
		visited[cur] = struct{}{}
		out = append(out, cur)
		queue = append(queue, d.children[cur]...)
	}
	return out
}

// DerivativeSnapshot is the persisted form of the registry (spec.md §6).
type DerivativeSnapshot struct {
	Sealed []Location             `json:"sealed"`
	Edges  map[string][]Location  `json:"edges"` // child location string -> parents
}

// Snapshot returns a copy of the registry's state for persistence.
func (d *DerivativeRegistry) Snapshot() DerivativeSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	sealed := make([]Location, 0, len(d.sealed))
	for loc := range d.sealed {
		sealed = append(sealed, loc)
	}
	edges := make(map[string][]Location, len(d.parents))
	for child, parents := range d.parents {
		edges[child.String()] = append([]Location{}, parents...)
	}
	return DerivativeSnapshot{Sealed: sealed, Edges: edges}
}

// Restore rebuilds the registry from a snapshot loaded at startup.
func (d *DerivativeRegistry) Restore(s DerivativeSnapshot, locOf func(string) (Location, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.sealed = make(map[Location]struct{}, len(s.Sealed))
	for _, loc := range s.Sealed {
		d.sealed[loc] = struct{}{}
	}
	d.parents = make(map[Location][]Location)
	d.children = make(map[Location][]Location)
	for childStr, parents := range s.Edges {
		child, err := locOf(childStr)
		if err != nil {
			return err
		}
		d.parents[child] = append([]Location{}, parents...)
		for _, p := range parents {
			d.children[p] = append(d.children[p], child)
		}
	}
	return nil
}
