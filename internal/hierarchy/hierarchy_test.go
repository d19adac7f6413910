package hierarchy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfgrid/scenecore/internal/entity"
	"github.com/halfgrid/scenecore/internal/value"
)

// mapLookup is a trivial Lookup over a fixed entity set.
type mapLookup map[string]*entity.Entity

func (m mapLookup) Get(id string, depth int) *entity.Entity {
	return m[id]
}

func childIDs(n *Node) []string {
	out := make([]string, 0, len(n.Children()))
	for _, c := range n.Children() {
		out = append(out, c.Entity().ID())
	}
	return out
}

func TestAddKeepsSiblingsOrdered(t *testing.T) {
	a := entity.New("a", value.Object{"order": value.Number(3)})
	b := entity.New("b", value.Object{"order": value.Number(1)})
	c := entity.New("c", value.Object{"order": value.Number(2)})

	root := NewRoot()
	root = root.Add([]*entity.Entity{a}, 0, nil)
	root = root.Add([]*entity.Entity{b}, 0, nil)
	root = root.Add([]*entity.Entity{c}, 0, nil)

	assert.Equal(t, []string{"b", "c", "a"}, childIDs(root))
}

func TestAddEqualOrderKeepsInsertionOrder(t *testing.T) {
	root := NewRoot()
	for _, id := range []string{"first", "second", "third"} {
		root = root.Add([]*entity.Entity{entity.New(id, value.Object{})}, 0, nil)
	}
	assert.Equal(t, []string{"first", "second", "third"}, childIDs(root))
}

func TestAddNested(t *testing.T) {
	p := entity.New("p", value.Object{})
	c := entity.New("c", value.Object{"parent": value.Ref("p")})

	root := NewRoot()
	root = root.Add([]*entity.Entity{p}, 0, nil)
	root = root.Add([]*entity.Entity{p, c}, 0, nil)

	require.Equal(t, []string{"p"}, childIDs(root))
	assert.Equal(t, []string{"c"}, childIDs(root.Children()[0]))
}

func TestAddUnmatchedLineageIsIdentityNoOp(t *testing.T) {
	root := NewRoot()
	stranger := entity.New("stranger", value.Object{})
	child := entity.New("child", value.Object{})

	after := root.Add([]*entity.Entity{stranger, child}, 0, nil)
	assert.Same(t, root, after)
}

func TestRemove(t *testing.T) {
	p := entity.New("p", value.Object{})
	c := entity.New("c", value.Object{"parent": value.Ref("p")})

	root := NewRoot()
	root = root.Add([]*entity.Entity{p}, 0, nil)
	root = root.Add([]*entity.Entity{p, c}, 0, nil)

	root, removed := root.Remove([]*entity.Entity{p, c}, 0)
	require.NotNil(t, removed)
	assert.Same(t, c, removed.Entity())
	assert.Empty(t, childIDs(root.Children()[0]))

	// Removing again is an identity no-op.
	after, removed := root.Remove([]*entity.Entity{p, c}, 0)
	assert.Nil(t, removed)
	assert.Same(t, root, after)
}

func TestRemoveMatchesByInstanceNotID(t *testing.T) {
	original := entity.New("x", value.Object{})
	root := NewRoot().Add([]*entity.Entity{original}, 0, nil)

	// A different instance with the same id does not match.
	impostor := entity.New("x", value.Object{})
	after, removed := root.Remove([]*entity.Entity{impostor}, 0)
	assert.Nil(t, removed)
	assert.Same(t, root, after)
}

func TestRemoveKeepsSubtree(t *testing.T) {
	p := entity.New("p", value.Object{})
	c := entity.New("c", value.Object{"parent": value.Ref("p")})

	root := NewRoot()
	root = root.Add([]*entity.Entity{p}, 0, nil)
	root = root.Add([]*entity.Entity{p, c}, 0, nil)

	_, removed := root.Remove([]*entity.Entity{p}, 0)
	require.NotNil(t, removed)
	// The removed node carries its children, so an edit can graft them
	// onto the replacement node.
	assert.Equal(t, []string{"c"}, childIDs(removed))
}

func TestFind(t *testing.T) {
	p := entity.New("p", value.Object{})
	c := entity.New("c", value.Object{"parent": value.Ref("p")})

	root := NewRoot()
	root = root.Add([]*entity.Entity{p}, 0, nil)
	root = root.Add([]*entity.Entity{p, c}, 0, nil)

	node := root.Find([]*entity.Entity{p, c}, 0)
	require.NotNil(t, node)
	assert.Same(t, c, node.Entity())

	assert.Nil(t, root.Find([]*entity.Entity{c}, 0))
}

func TestLineage(t *testing.T) {
	p := entity.New("p", value.Object{})
	c := entity.New("c", value.Object{"parent": value.Ref("p")})
	g := entity.New("g", value.Object{"parent": value.Ref("c")})
	tree := mapLookup{"p": p, "c": c, "g": g}

	assert.Equal(t, []*entity.Entity{p}, Lineage(tree, p))
	assert.Equal(t, []*entity.Entity{p, c, g}, Lineage(tree, g))
}

func TestLineageBrokenLink(t *testing.T) {
	orphan := entity.New("o", value.Object{"parent": value.Ref("ghost")})
	assert.Nil(t, Lineage(mapLookup{"o": orphan}, orphan))
}

func TestLineageCycle(t *testing.T) {
	a := entity.New("a", value.Object{"parent": value.Ref("b")})
	b := entity.New("b", value.Object{"parent": value.Ref("a")})
	assert.Nil(t, Lineage(mapLookup{"a": a, "b": b}, a))
}

func TestWalk(t *testing.T) {
	p := entity.New("p", value.Object{})
	c := entity.New("c", value.Object{"parent": value.Ref("p")})
	q := entity.New("q", value.Object{"order": value.Number(1)})

	root := NewRoot()
	root = root.Add([]*entity.Entity{p}, 0, nil)
	root = root.Add([]*entity.Entity{p, c}, 0, nil)
	root = root.Add([]*entity.Entity{q}, 0, nil)

	var order []string
	root.Walk(func(n *Node) bool {
		order = append(order, n.Entity().ID())
		return true
	})
	assert.Equal(t, []string{"p", "c", "q"}, order)
}
