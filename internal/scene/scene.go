// Package scene implements the persistent entity store underlying the
// editor: an immutable snapshot composing the id trie with the entity
// hierarchy, an edit engine with exact reverse-edit and edit-composition
// algorithms, and an action reducer with gesture-coalesced undo/redo.
//
// Every snapshot is immutable for its lifetime. Mutation is modeled as
// "return a new snapshot": arbitrarily many readers may hold old snapshots
// concurrently with zero races, and any derived cache keyed by entity
// instance stays valid because an edit never reuses an old instance.
package scene

import (
	"fmt"
	"slices"

	"github.com/halfgrid/scenecore/internal/entity"
	"github.com/halfgrid/scenecore/internal/hierarchy"
	"github.com/halfgrid/scenecore/internal/idtree"
	"github.com/halfgrid/scenecore/internal/value"
)

// EditMap describes one edit batch: entity id to nil (remove the entity)
// or a partial component state to deep-merge into it. Unknown ids are
// created fresh.
type EditMap map[string]value.Object

// Scene is one immutable snapshot of the entity store.
type Scene struct {
	tree idtree.Node
	hier *hierarchy.Node
}

// NewScene returns an empty scene.
func NewScene() *Scene {
	return &Scene{tree: idtree.NewLeaf(), hier: hierarchy.NewRoot()}
}

// ResourceType returns the registry discriminant for scenes.
func (s *Scene) ResourceType() string {
	return ResourceTypeScene
}

// Get returns the entity with the given id, or nil if absent.
func (s *Scene) Get(id string) *entity.Entity {
	return s.tree.Get(id, 0)
}

// Visit calls fn for every entity in the scene in deterministic order.
// Returning false stops the traversal. A bounds-filtered variant for
// render culling lives in the renderer's spatial index, not here.
func (s *Scene) Visit(fn func(*entity.Entity) bool) {
	s.tree.Visit(fn)
}

// Count returns the number of entities in the scene.
func (s *Scene) Count() int {
	return s.tree.Size()
}

// Hierarchy returns the read-only parentage tree for this snapshot.
func (s *Scene) Hierarchy() *hierarchy.Node {
	return s.hier
}

// Lineage returns the root-first ancestor chain of e resolved against this
// snapshot, or nil if a parent reference dangles.
func (s *Scene) Lineage(e *entity.Entity) []*entity.Entity {
	return hierarchy.Lineage(s.tree, e)
}

// pendingAdd tracks an entity that must be (re-)inserted into the
// hierarchy after the trie edit, carrying any child nodes captured from
// the node it replaces.
type pendingAdd struct {
	e        *entity.Entity
	children []*hierarchy.Node
}

// ApplyEdit applies an edit batch and returns the new snapshot.
//
// Hierarchy bookkeeping follows a strict order: removals are resolved with
// lineages from the PRE-edit trie (the hierarchy still holds the old
// entity instances), the trie is rewritten, then additions are resolved
// with lineages from the POST-edit trie. Resolving both sides against one
// tree corrupts the hierarchy when a batch reparents an entity.
func (s *Scene) ApplyEdit(m EditMap) *Scene {
	type removal struct {
		id      string
		lineage []*entity.Entity
	}

	ids := sortedIDs(m)

	// Collect removals against the old trie. Edited entities are removed
	// too: their node wraps an instance that is about to be replaced.
	removals := make([]removal, 0, len(m))
	for _, id := range ids {
		old := s.tree.Get(id, 0)
		if old == nil {
			continue
		}
		if lineage := hierarchy.Lineage(s.tree, old); lineage != nil {
			removals = append(removals, removal{id: id, lineage: lineage})
		}
	}
	// Deepest first, so an edited child's node is detached before its
	// edited parent's subtree is captured.
	sortByLen(removals, func(r removal) int { return len(r.lineage) }, true)

	hier := s.hier
	captured := make(map[string][]*hierarchy.Node, len(removals))
	for _, r := range removals {
		var removed *hierarchy.Node
		hier, removed = hier.Remove(r.lineage, 0)
		if removed != nil && m[r.id] != nil {
			captured[r.id] = removed.Children()
		}
	}

	// Rewrite the trie.
	tree := s.tree
	adds := make([]pendingAdd, 0, len(m))
	for _, id := range ids {
		partial := m[id]
		if partial == nil {
			tree, _ = tree.Remove(id, 0)
			continue
		}
		var edited *entity.Entity
		tree, _, edited = tree.Edit(id, partial, 0)
		adds = append(adds, pendingAdd{e: edited, children: captured[id]})
	}

	// Re-insert edited and created entities with lineages from the new
	// trie, parents before children so re-created ancestors are present
	// when their edited descendants are attached.
	type addition struct {
		pendingAdd
		lineage []*entity.Entity
	}
	additions := make([]addition, 0, len(adds))
	for _, a := range adds {
		lineage := hierarchy.Lineage(tree, a.e)
		if lineage == nil {
			// Dangling parent reference: the entity exists in the trie
			// but is unreachable through the hierarchy.
			continue
		}
		additions = append(additions, addition{pendingAdd: a, lineage: lineage})
	}
	sortByLen(additions, func(a addition) int { return len(a.lineage) }, false)
	for _, a := range additions {
		hier = hier.Add(a.lineage, 0, a.children)
	}

	return &Scene{tree: tree, hier: hier}
}

// CreateReverseEdit computes, against this snapshot, the edit that undoes
// m. Removals reverse to the entity's entire current state so undo
// recreates it; creations reverse to nil so undo deletes them; partial
// edits reverse key-by-key to the old values.
func (s *Scene) CreateReverseEdit(m EditMap) EditMap {
	reverse := make(EditMap, len(m))
	for id, partial := range m {
		current := s.tree.Get(id, 0)
		if current == nil {
			reverse[id] = nil
			continue
		}
		if partial == nil {
			reverse[id] = value.Clone(current.State()).(value.Object)
			continue
		}
		reverse[id] = value.Reverse(current.State(), partial)
	}
	return reverse
}

// ComposeEdits combines two edit maps so that applying the result equals
// applying first and then second. Entity-level composition mirrors the
// key-level rule: a nil (removal) in second wins, a non-nil in second wins
// over a removal in first (delete-then-recreate surfaces the later state),
// and two partial states compose recursively.
func ComposeEdits(first, second EditMap) EditMap {
	composed := make(EditMap, len(first)+len(second))
	for id, partial := range first {
		composed[id] = partial
	}
	for id, secondPartial := range second {
		firstPartial, present := composed[id]
		if !present || firstPartial == nil || secondPartial == nil {
			composed[id] = secondPartial
			continue
		}
		composed[id] = value.Compose(firstPartial, secondPartial)
	}
	return composed
}

// TransformSimplifier rewrites a transform component to its minimal form.
// Returning nil, Null, or an empty object drops the component from the
// serialized blob. The geometry module registers the real implementation;
// this package only owes it the call.
type TransformSimplifier func(value.Value) value.Value

var simplifyTransform TransformSimplifier

// SetTransformSimplifier registers the transform simplification hook used
// during serialization. Passing nil disables simplification.
func SetTransformSimplifier(fn TransformSimplifier) {
	simplifyTransform = fn
}

// Serialize returns the scene as {"entities": {id: componentState}}.
// Entity states carrying a transform component are passed through the
// registered simplifier first.
func (s *Scene) Serialize() value.Object {
	entities := value.Object{}
	s.tree.Visit(func(e *entity.Entity) bool {
		entities[e.ID()] = serializeState(e.State())
		return true
	})
	return value.Object{"entities": entities}
}

func serializeState(state value.Object) value.Object {
	transform, ok := state["transform"]
	if !ok || simplifyTransform == nil {
		return state
	}
	simplified := simplifyTransform(transform)
	out := make(value.Object, len(state))
	for k, v := range state {
		out[k] = v
	}
	if emptyTransform(simplified) {
		delete(out, "transform")
	} else {
		out["transform"] = simplified
	}
	return out
}

func emptyTransform(v value.Value) bool {
	if value.IsNull(v) {
		return true
	}
	obj, ok := v.(value.Object)
	return ok && len(obj) == 0
}

// NewSceneFromJSON deserializes a scene from its serialized form. Entities
// with dangling parent references are kept in the trie but omitted from
// the hierarchy, matching edit-time behavior.
func NewSceneFromJSON(json value.Object) (*Scene, error) {
	entitiesValue, ok := json["entities"]
	if !ok {
		return NewScene(), nil
	}
	entitiesObject, ok := entitiesValue.(value.Object)
	if !ok {
		return nil, fmt.Errorf("scene json: entities is %T, want object", entitiesValue)
	}

	var tree idtree.Node = idtree.NewLeaf()
	all := make([]*entity.Entity, 0, len(entitiesObject))
	for _, id := range entitiesObject.SortedKeys() {
		state, ok := entitiesObject[id].(value.Object)
		if !ok {
			return nil, fmt.Errorf("scene json: entity %q state is %T, want object", id, entitiesObject[id])
		}
		e := entity.New(id, value.Clone(state).(value.Object))
		tree = tree.Add(e, 0)
		all = append(all, e)
	}

	type placement struct {
		e       *entity.Entity
		lineage []*entity.Entity
	}
	placements := make([]placement, 0, len(all))
	for _, e := range all {
		if lineage := hierarchy.Lineage(tree, e); lineage != nil {
			placements = append(placements, placement{e: e, lineage: lineage})
		}
	}
	sortByLen(placements, func(p placement) int { return len(p.lineage) }, false)

	hier := hierarchy.NewRoot()
	for _, p := range placements {
		hier = hier.Add(p.lineage, 0, nil)
	}
	return &Scene{tree: tree, hier: hier}, nil
}

// sortedIDs returns the edit map's ids in ascending order so batch
// processing is deterministic regardless of map iteration order.
func sortedIDs(m EditMap) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// sortByLen stable-sorts items by a length key, descending when desc is
// set. Stability preserves the id-sorted order among equal-depth entries,
// keeping the hierarchy's tie-order rule deterministic.
func sortByLen[T any](items []T, length func(T) int, desc bool) {
	// Insertion sort: batches are small and stability is required.
	for i := 1; i < len(items); i++ {
		for j := i; j > 0; j-- {
			a, b := length(items[j-1]), length(items[j])
			if (desc && a < b) || (!desc && a > b) {
				items[j-1], items[j] = items[j], items[j-1]
			} else {
				break
			}
		}
	}
}
