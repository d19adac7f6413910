// Package idtree implements the persistent trie that holds the live entity
// set of a scene snapshot.
//
// The tree is immutable: every mutating operation returns a new root and
// rebuilds only the nodes on the path to the affected leaf, sharing every
// untouched subtree with the previous root. Old roots stay valid for as
// long as snapshots or undo entries reference them, so derived caches keyed
// by entity instance never observe a change.
//
// Routing uses a parity bit taken from the id string, indexed from the end
// inward as depth increases. Leaves split once they exceed ExpandSize
// entries; two sibling leaves merge back once their combined size drops
// below CollapseSize. The gap between the two thresholds bounds structural
// churn when a scene oscillates around a boundary.
package idtree

import (
	"slices"

	"github.com/halfgrid/scenecore/internal/entity"
	"github.com/halfgrid/scenecore/internal/value"
)

const (
	// ExpandSize is the maximum number of entities a leaf may hold.
	// An insert that pushes a leaf past this splits it into an internal
	// node with two leaf children.
	ExpandSize = 16

	// CollapseSize is the combined-size floor for sibling leaves. A
	// removal that brings two sibling leaves under this total merges
	// them back into one leaf.
	CollapseSize = 8
)

// Node is either a leaf holding entities directly or an internal node
// routing by parity bit. The zero-entity tree is NewLeaf().
type Node interface {
	// Get returns the entity with the given id, or nil if absent.
	Get(id string, depth int) *entity.Entity

	// Add inserts an entity, returning the new root. The entity must not
	// already be present; use Edit when it may be.
	Add(e *entity.Entity, depth int) Node

	// Edit deep-merges partial state into the entity's state, returning
	// the new root plus the old and new entity instances. If the id is
	// absent the entity is created fresh and old is nil.
	Edit(id string, state value.Object, depth int) (node Node, old, edited *entity.Entity)

	// Remove deletes the entity with the given id, returning the new
	// root and the removed entity (nil if absent).
	Remove(id string, depth int) (Node, *entity.Entity)

	// Visit calls fn for every entity, in deterministic order (even
	// subtree first, leaf entries by ascending id). Returning false
	// stops the traversal.
	Visit(fn func(*entity.Entity) bool) bool

	// Size returns the number of entities in the subtree.
	Size() int
}

// isEven selects the routing bit for an id at a trie depth. Bits are read
// from the end of the id inward, spreading entropy across fixed-length
// identifiers (UUIDs differ most in their trailing characters).
//
// Ids shorter than the current depth are deliberately routed even: the
// selector is total and deterministic, at the cost of unbalanced subtrees
// when many unusually short ids collide.
func isEven(id string, depth int) bool {
	i := len(id) - depth - 1
	if i < 0 {
		return true
	}
	return id[i]&1 == 0
}

// Leaf holds up to ExpandSize entities in an id-keyed map.
type Leaf struct {
	entities map[string]*entity.Entity
}

// NewLeaf returns an empty tree.
func NewLeaf() *Leaf {
	return &Leaf{entities: map[string]*entity.Entity{}}
}

func newLeafWith(entities map[string]*entity.Entity) *Leaf {
	return &Leaf{entities: entities}
}

// clonedEntities copies the leaf map with room for one more entry.
func (l *Leaf) clonedEntities() map[string]*entity.Entity {
	cloned := make(map[string]*entity.Entity, len(l.entities)+1)
	for id, e := range l.entities {
		cloned[id] = e
	}
	return cloned
}

func (l *Leaf) Get(id string, depth int) *entity.Entity {
	return l.entities[id]
}

func (l *Leaf) Add(e *entity.Entity, depth int) Node {
	entities := l.clonedEntities()
	entities[e.ID()] = e
	if len(entities) <= ExpandSize {
		return newLeafWith(entities)
	}
	// Split: partition by the parity bit at this depth.
	even := make(map[string]*entity.Entity)
	odd := make(map[string]*entity.Entity)
	for id, ent := range entities {
		if isEven(id, depth) {
			even[id] = ent
		} else {
			odd[id] = ent
		}
	}
	return &Internal{even: newLeafWith(even), odd: newLeafWith(odd), size: len(entities)}
}

func (l *Leaf) Edit(id string, state value.Object, depth int) (Node, *entity.Entity, *entity.Entity) {
	old := l.entities[id]
	var merged value.Object
	if old != nil {
		merged = value.Merge(old.State(), state)
	} else {
		merged = value.Merge(value.Object{}, state)
	}
	edited := entity.New(id, merged)
	if old != nil {
		// In-place replacement never changes the leaf's size, so no
		// split check is needed.
		entities := l.clonedEntities()
		entities[id] = edited
		return newLeafWith(entities), old, edited
	}
	return l.Add(edited, depth), nil, edited
}

func (l *Leaf) Remove(id string, depth int) (Node, *entity.Entity) {
	removed, ok := l.entities[id]
	if !ok {
		return l, nil
	}
	entities := make(map[string]*entity.Entity, len(l.entities)-1)
	for entityID, e := range l.entities {
		if entityID != id {
			entities[entityID] = e
		}
	}
	return newLeafWith(entities), removed
}

func (l *Leaf) Visit(fn func(*entity.Entity) bool) bool {
	ids := make([]string, 0, len(l.entities))
	for id := range l.entities {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if !fn(l.entities[id]) {
			return false
		}
	}
	return true
}

func (l *Leaf) Size() int {
	return len(l.entities)
}

// Internal routes to its even or odd child by the parity bit at its depth.
type Internal struct {
	even Node
	odd  Node
	size int
}

// child returns the subtree responsible for id at this node's depth.
func (n *Internal) child(id string, depth int) Node {
	if isEven(id, depth) {
		return n.even
	}
	return n.odd
}

// withChild rebuilds this node around a replaced child, collapsing two
// sibling leaves back into one once their combined size drops below
// CollapseSize.
func (n *Internal) withChild(id string, depth int, replacement Node) Node {
	even, odd := n.even, n.odd
	if isEven(id, depth) {
		even = replacement
	} else {
		odd = replacement
	}
	size := even.Size() + odd.Size()
	evenLeaf, evenIsLeaf := even.(*Leaf)
	oddLeaf, oddIsLeaf := odd.(*Leaf)
	if evenIsLeaf && oddIsLeaf && size < CollapseSize {
		merged := make(map[string]*entity.Entity, size)
		for entityID, e := range evenLeaf.entities {
			merged[entityID] = e
		}
		for entityID, e := range oddLeaf.entities {
			merged[entityID] = e
		}
		return newLeafWith(merged)
	}
	return &Internal{even: even, odd: odd, size: size}
}

func (n *Internal) Get(id string, depth int) *entity.Entity {
	return n.child(id, depth).Get(id, depth+1)
}

func (n *Internal) Add(e *entity.Entity, depth int) Node {
	child := n.child(e.ID(), depth)
	return n.withChild(e.ID(), depth, child.Add(e, depth+1))
}

func (n *Internal) Edit(id string, state value.Object, depth int) (Node, *entity.Entity, *entity.Entity) {
	child, old, edited := n.child(id, depth).Edit(id, state, depth+1)
	return n.withChild(id, depth, child), old, edited
}

func (n *Internal) Remove(id string, depth int) (Node, *entity.Entity) {
	child, removed := n.child(id, depth).Remove(id, depth+1)
	if removed == nil {
		// Nothing changed below; keep this subtree's identity too.
		return n, nil
	}
	return n.withChild(id, depth, child), removed
}

func (n *Internal) Visit(fn func(*entity.Entity) bool) bool {
	return n.even.Visit(fn) && n.odd.Visit(fn)
}

func (n *Internal) Size() int {
	return n.size
}
