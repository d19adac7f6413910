// Package hierarchy maintains the parent/child tree that mirrors entity
// parent references, ordered by each entity's sibling-order key. The UI
// iterates it for page tabs and nested module listings.
//
// Like the id trie, hierarchy nodes are immutable: mutations return new
// roots and rebuild only the path to the affected node. Nodes are matched
// by entity INSTANCE identity, not id - an edit replaces the entity
// instance, so the stale node must be removed with the old instance's
// lineage and re-added with the new one.
package hierarchy

import (
	"github.com/halfgrid/scenecore/internal/entity"
)

// Node is one level of the hierarchy. The root's Entity is nil (virtual);
// every other node wraps exactly one live entity instance.
type Node struct {
	entity   *entity.Entity
	children []*Node
}

// NewRoot returns an empty hierarchy.
func NewRoot() *Node {
	return &Node{}
}

func newNode(e *entity.Entity, children []*Node) *Node {
	return &Node{entity: e, children: children}
}

// Entity returns the entity this node wraps, nil for the root.
func (n *Node) Entity() *entity.Entity {
	return n.entity
}

// Children returns the node's ordered child list. Read-only.
func (n *Node) Children() []*Node {
	return n.children
}

// Find returns the descendant node wrapping the exact entity instance at
// the end of lineage, or nil if the lineage does not match the tree.
func (n *Node) Find(lineage []*entity.Entity, depth int) *Node {
	if depth == len(lineage) {
		return n
	}
	for _, child := range n.children {
		if child.entity == lineage[depth] {
			return child.Find(lineage, depth+1)
		}
	}
	return nil
}

// Add inserts a node for the final entity of lineage, optionally carrying
// an existing child list (used when an edited entity's node is re-created
// and must keep its unedited children). Returns the new root.
//
// The new sibling is placed before the first sibling whose order key is
// strictly greater, so equal-order siblings keep insertion order.
//
// If the lineage cannot be matched (a parent node is missing) the tree is
// returned unchanged; the caller sees the same root pointer.
func (n *Node) Add(lineage []*entity.Entity, depth int, children []*Node) *Node {
	if depth == len(lineage)-1 {
		added := newNode(lineage[depth], children)
		order := lineage[depth].Order()
		at := len(n.children)
		for i, sibling := range n.children {
			if sibling.entity.Order() > order {
				at = i
				break
			}
		}
		siblings := make([]*Node, 0, len(n.children)+1)
		siblings = append(siblings, n.children[:at]...)
		siblings = append(siblings, added)
		siblings = append(siblings, n.children[at:]...)
		return newNode(n.entity, siblings)
	}
	for i, child := range n.children {
		if child.entity == lineage[depth] {
			replaced := child.Add(lineage, depth+1, children)
			if replaced == child {
				return n
			}
			siblings := make([]*Node, len(n.children))
			copy(siblings, n.children)
			siblings[i] = replaced
			return newNode(n.entity, siblings)
		}
	}
	return n
}

// Remove deletes the node whose entity instance matches the end of
// lineage, returning the new root and the removed node (with its subtree
// intact). A lineage that does not match returns the same root and nil.
func (n *Node) Remove(lineage []*entity.Entity, depth int) (*Node, *Node) {
	if depth >= len(lineage) {
		return n, nil
	}
	for i, child := range n.children {
		if child.entity != lineage[depth] {
			continue
		}
		if depth == len(lineage)-1 {
			siblings := make([]*Node, 0, len(n.children)-1)
			siblings = append(siblings, n.children[:i]...)
			siblings = append(siblings, n.children[i+1:]...)
			return newNode(n.entity, siblings), child
		}
		replaced, removed := child.Remove(lineage, depth+1)
		if removed == nil {
			return n, nil
		}
		siblings := make([]*Node, len(n.children))
		copy(siblings, n.children)
		siblings[i] = replaced
		return newNode(n.entity, siblings), removed
	}
	return n, nil
}

// Walk visits the subtree depth-first in sibling order, skipping the
// virtual root's nil entity. Returning false stops the traversal.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n.entity != nil && !fn(n) {
		return false
	}
	for _, child := range n.children {
		if !child.Walk(fn) {
			return false
		}
	}
	return true
}

// Lookup is the entity source Lineage resolves parent references against.
// Implemented by idtree roots and scene snapshots.
type Lookup interface {
	Get(id string, depth int) *entity.Entity
}

// Lineage returns the root-first ancestor chain of e, resolving
// state.parent.ref links against the given tree. A broken link (dangling
// parent reference) yields nil, signalling an invalid lineage; cycles are
// treated the same way.
func Lineage(tree Lookup, e *entity.Entity) []*entity.Entity {
	lineage := []*entity.Entity{e}
	seen := map[string]bool{e.ID(): true}
	for {
		ref, ok := lineage[0].ParentRef()
		if !ok {
			return lineage
		}
		parent := tree.Get(ref, 0)
		if parent == nil || seen[ref] {
			return nil
		}
		seen[ref] = true
		lineage = append([]*entity.Entity{parent}, lineage...)
	}
}
