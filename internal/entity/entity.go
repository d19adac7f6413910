// Package entity defines the immutable scene entity: an identity plus an
// opaque component-state object, with a per-instance memoization cache used
// by renderer and geometry collaborators.
package entity

import (
	"sync"

	"github.com/google/uuid"

	"github.com/halfgrid/scenecore/internal/value"
)

// Entity is a single scene element (shape, module, wire, page).
//
// Entities are created fresh on every edit and never mutated in place: an
// old instance stays valid and immutable for as long as any snapshot or
// undo entry references it. That discipline is what makes the cache safe -
// a cached value can never go stale because the entity it was computed
// from can never change.
type Entity struct {
	id    string
	state value.Object

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	lineage []*Entity // non-nil only for derived (lineage-dependent) values
	value   any
}

// New creates an entity with the given id and component state.
// The state object is owned by the entity after the call; callers that
// keep mutating a state map must pass value.Clone of it.
func New(id string, state value.Object) *Entity {
	if state == nil {
		state = value.Object{}
	}
	return &Entity{id: id, state: state}
}

// NewID returns a fresh time-sortable UUIDv7 entity id.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids created
// later sort later. This keeps trie traversal order roughly chronological
// for freshly created scenes, which is convenient when eyeballing dumps.
//
// Panics if UUID generation fails (should never happen in practice).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ID returns the entity's identifier.
func (e *Entity) ID() string {
	return e.id
}

// State returns the entity's component state. Callers must treat the
// returned object as read-only; edits go through the scene reducer.
func (e *Entity) State() value.Object {
	return e.state
}

// ParentRef returns the id of the entity's parent, read from
// state.parent.ref, or "" if the entity has no parent component.
func (e *Entity) ParentRef() (string, bool) {
	parent, ok := e.state["parent"].(value.Object)
	if !ok {
		return "", false
	}
	ref, ok := parent["ref"].(value.String)
	if !ok {
		return "", false
	}
	return string(ref), true
}

// Order returns the entity's sibling-order key (state.order, default 0).
// Hierarchy sibling lists are kept non-decreasing by this key.
func (e *Entity) Order() float64 {
	order, ok := e.state["order"].(value.Number)
	if !ok {
		return 0
	}
	return float64(order)
}

// CachedValue returns the memoized value for name, computing it with fn on
// first use. The slot is single-assignment: fn runs at most once per entity
// instance per name.
//
// Safe for concurrent readers holding the same snapshot.
func (e *Entity) CachedValue(name string, fn func() any) any {
	e.mu.Lock()
	defer e.mu.Unlock()

	if entry, ok := e.cache[name]; ok && entry.lineage == nil {
		return entry.value
	}
	v := fn()
	if e.cache == nil {
		e.cache = make(map[string]cacheEntry)
	}
	e.cache[name] = cacheEntry{value: v}
	return v
}

// DerivedValue returns the memoized value for name computed against the
// given lineage (root-first ancestor chain ending in this entity's
// instance). Unlike CachedValue, the slot is keyed by the exact lineage
// instances: if any ancestor is replaced by an edit, the lineage passed in
// will contain a different pointer and the value is recomputed.
//
// Renderer and geometry code uses this for world transforms, where a
// parent edit must invalidate descendants even though the descendants'
// own entity instances are unchanged.
func DerivedValue(lineage []*Entity, name string, fn func() any) any {
	if len(lineage) == 0 {
		return fn()
	}
	e := lineage[len(lineage)-1]

	e.mu.Lock()
	defer e.mu.Unlock()

	if entry, ok := e.cache[name]; ok && sameLineage(entry.lineage, lineage) {
		return entry.value
	}
	v := fn()
	if e.cache == nil {
		e.cache = make(map[string]cacheEntry)
	}
	e.cache[name] = cacheEntry{lineage: append([]*Entity(nil), lineage...), value: v}
	return v
}

// sameLineage compares lineages by instance identity, not by id: a
// re-created ancestor with the same id still invalidates the slot.
func sameLineage(a, b []*Entity) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
