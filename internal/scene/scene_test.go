package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halfgrid/scenecore/internal/entity"
	"github.com/halfgrid/scenecore/internal/testutil"
	"github.com/halfgrid/scenecore/internal/value"
)

func mustSerialize(t *testing.T, s *Scene) string {
	t.Helper()
	data, err := value.MarshalDeterministic(s.Serialize())
	require.NoError(t, err)
	return string(data)
}

func TestApplyEditCreatesMergesRemoves(t *testing.T) {
	s := NewScene()

	s = s.ApplyEdit(EditMap{
		"a": value.Object{"x": value.Number(1)},
		"b": value.Object{"y": value.Number(2)},
	})
	assert.Equal(t, 2, s.Count())
	assert.True(t, value.Equal(value.Object{"x": value.Number(1)}, s.Get("a").State()))

	s = s.ApplyEdit(EditMap{
		"a": value.Object{"z": value.Number(3)},
		"b": nil,
	})
	assert.Nil(t, s.Get("b"))
	assert.True(t, value.Equal(value.Object{
		"x": value.Number(1),
		"z": value.Number(3),
	}, s.Get("a").State()))
}

func TestApplyEditReplacesInstances(t *testing.T) {
	s := NewScene()
	s = s.ApplyEdit(EditMap{"a": value.Object{"x": value.Number(1)}})
	before := s.Get("a")

	s2 := s.ApplyEdit(EditMap{"a": value.Object{"x": value.Number(2)}})
	after := s2.Get("a")

	assert.NotSame(t, before, after)
	// The old snapshot still sees the old instance and state.
	assert.Same(t, before, s.Get("a"))
	assert.True(t, value.Equal(value.Object{"x": value.Number(1)}, before.State()))
}

func TestReverseEditRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		setup EditMap
		edit  EditMap
	}{
		{
			"modify",
			EditMap{"a": value.Object{"x": value.Number(1)}},
			EditMap{"a": value.Object{"x": value.Number(2)}},
		},
		{
			"create",
			EditMap{"a": value.Object{"x": value.Number(1)}},
			EditMap{"b": value.Object{"y": value.Number(2)}},
		},
		{
			"remove",
			EditMap{"a": value.Object{"x": value.Number(1), "t": value.Object{"r": value.Number(4)}}},
			EditMap{"a": nil},
		},
		{
			"nested and key deletion",
			EditMap{"a": value.Object{
				"keep": value.Number(1),
				"drop": value.Number(2),
				"t":    value.Object{"x": value.Number(0)},
			}},
			EditMap{"a": value.Object{
				"drop": value.Null{},
				"t":    value.Object{"x": value.Number(9)},
				"new":  value.String("created"),
			}},
		},
		{
			"mixed batch",
			EditMap{
				"a": value.Object{"x": value.Number(1)},
				"b": value.Object{"y": value.Number(2)},
			},
			EditMap{
				"a": nil,
				"b": value.Object{"y": value.Number(9)},
				"c": value.Object{"z": value.Number(3)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := NewScene().ApplyEdit(tt.setup)
			reverse := base.CreateReverseEdit(tt.edit)
			restored := base.ApplyEdit(tt.edit).ApplyEdit(reverse)
			assert.Equal(t, mustSerialize(t, base), mustSerialize(t, restored))
		})
	}
}

func TestApplyEditHierarchy(t *testing.T) {
	s := NewScene().ApplyEdit(EditMap{
		"p": value.Object{"order": value.Number(1)},
		"q": value.Object{"order": value.Number(2)},
		"c": value.Object{"parent": value.Ref("p")},
	})

	root := s.Hierarchy()
	require.Len(t, root.Children(), 2)
	assert.Equal(t, "p", root.Children()[0].Entity().ID())
	assert.Equal(t, "q", root.Children()[1].Entity().ID())
	require.Len(t, root.Children()[0].Children(), 1)
	assert.Equal(t, "c", root.Children()[0].Children()[0].Entity().ID())
}

func TestApplyEditReparentInOneBatch(t *testing.T) {
	s := NewScene().ApplyEdit(EditMap{
		"p": value.Object{"order": value.Number(1)},
		"q": value.Object{"order": value.Number(2)},
		"c": value.Object{"parent": value.Ref("p")},
	})

	// Move c beneath q while also touching q itself, in one batch.
	s = s.ApplyEdit(EditMap{
		"c": value.Object{"parent": value.Ref("q")},
		"q": value.Object{"label": value.String("target")},
	})

	root := s.Hierarchy()
	require.Len(t, root.Children(), 2)
	p, q := root.Children()[0], root.Children()[1]
	assert.Empty(t, p.Children())
	require.Len(t, q.Children(), 1)
	assert.Equal(t, "c", q.Children()[0].Entity().ID())
	// The hierarchy node wraps the NEW q instance.
	assert.Same(t, s.Get("q"), q.Entity())
}

func TestApplyEditParentEditKeepsChildren(t *testing.T) {
	s := NewScene().ApplyEdit(EditMap{
		"p": value.Object{},
		"c": value.Object{"parent": value.Ref("p")},
	})

	// Editing the parent alone must not orphan the child's node.
	s = s.ApplyEdit(EditMap{"p": value.Object{"x": value.Number(1)}})

	root := s.Hierarchy()
	require.Len(t, root.Children(), 1)
	p := root.Children()[0]
	assert.Same(t, s.Get("p"), p.Entity())
	require.Len(t, p.Children(), 1)
	assert.Equal(t, "c", p.Children()[0].Entity().ID())
}

func TestApplyEditRemoveParentDropsSubtreeFromHierarchy(t *testing.T) {
	s := NewScene().ApplyEdit(EditMap{
		"p": value.Object{},
		"c": value.Object{"parent": value.Ref("p")},
	})

	s = s.ApplyEdit(EditMap{"p": nil})

	assert.Nil(t, s.Get("p"))
	// The child entity survives in the trie but its lineage is broken,
	// so it is absent from the hierarchy.
	assert.NotNil(t, s.Get("c"))
	assert.Empty(t, s.Hierarchy().Children())
	assert.Nil(t, s.Lineage(s.Get("c")))
}

func TestApplyEditSiblingOrder(t *testing.T) {
	s := NewScene().ApplyEdit(EditMap{
		"late":  value.Object{"order": value.Number(10)},
		"early": value.Object{"order": value.Number(-1)},
		"mid":   value.Object{"order": value.Number(5)},
	})

	var seen []string
	for _, child := range s.Hierarchy().Children() {
		seen = append(seen, child.Entity().ID())
	}
	assert.Equal(t, []string{"early", "mid", "late"}, seen)

	// Reordering is just an edit of the order component.
	s = s.ApplyEdit(EditMap{"late": value.Object{"order": value.Number(0)}})
	seen = seen[:0]
	for _, child := range s.Hierarchy().Children() {
		seen = append(seen, child.Entity().ID())
	}
	assert.Equal(t, []string{"early", "late", "mid"}, seen)
}

func TestSerializeEmpty(t *testing.T) {
	assert.Equal(t, `{"entities":{}}`, mustSerialize(t, NewScene()))
}

func TestSerializeTransformHook(t *testing.T) {
	SetTransformSimplifier(func(v value.Value) value.Value {
		obj, ok := v.(value.Object)
		if !ok {
			return v
		}
		// Identity transforms simplify away entirely.
		if value.Equal(obj["rotation"], value.Number(0)) {
			return value.Object{}
		}
		return value.Object{"rotation": obj["rotation"]}
	})
	defer SetTransformSimplifier(nil)

	s := NewScene().ApplyEdit(EditMap{
		"identity": value.Object{
			"x":         value.Number(1),
			"transform": value.Object{"rotation": value.Number(0)},
		},
		"rotated": value.Object{
			"transform": value.Object{"rotation": value.Number(90), "junk": value.Bool(true)},
		},
	})

	assert.Equal(t,
		`{"entities":{"identity":{"x":1},"rotated":{"transform":{"rotation":90}}}}`,
		mustSerialize(t, s))

	// The hook only affects serialization, never the stored state.
	assert.True(t, value.Equal(
		value.Object{"rotation": value.Number(0)},
		s.Get("identity").State()["transform"]))
}

func TestNewSceneFromJSONRoundTrip(t *testing.T) {
	s := NewScene().ApplyEdit(EditMap{
		"p": value.Object{"order": value.Number(1)},
		"c": value.Object{"parent": value.Ref("p")},
	})

	loaded, err := NewSceneFromJSON(s.Serialize())
	require.NoError(t, err)

	assert.Equal(t, mustSerialize(t, s), mustSerialize(t, loaded))
	root := loaded.Hierarchy()
	require.Len(t, root.Children(), 1)
	assert.Equal(t, "p", root.Children()[0].Entity().ID())
	require.Len(t, root.Children()[0].Children(), 1)
	assert.Equal(t, "c", root.Children()[0].Children()[0].Entity().ID())
}

func TestNewSceneFromJSONErrors(t *testing.T) {
	_, err := NewSceneFromJSON(value.Object{"entities": value.Number(1)})
	assert.Error(t, err)

	_, err = NewSceneFromJSON(value.Object{
		"entities": value.Object{"a": value.String("not-an-object")},
	})
	assert.Error(t, err)

	empty, err := NewSceneFromJSON(value.Object{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count())
}

func TestComposeEditsEntityLevel(t *testing.T) {
	first := EditMap{
		"a": value.Object{"x": value.Number(1)},
		"b": nil,
		"c": value.Object{"y": value.Number(2)},
	}
	second := EditMap{
		"a": nil,                                // set then delete: deletion wins
		"b": value.Object{"z": value.Number(3)}, // delete then recreate: later state wins
		"c": value.Object{"y": value.Number(9)}, // both partial: compose
		"d": value.Object{"w": value.Number(4)}, // only in second
	}

	composed := ComposeEdits(first, second)

	assert.Nil(t, composed["a"])
	assert.True(t, value.Equal(value.Object{"z": value.Number(3)}, composed["b"]))
	assert.True(t, value.Equal(value.Object{"y": value.Number(9)}, composed["c"]))
	assert.True(t, value.Equal(value.Object{"w": value.Number(4)}, composed["d"]))
}

func TestApplyEditBulk(t *testing.T) {
	ids := testutil.NewSequentialIDs("ent")
	edit := EditMap{}
	for _, id := range ids.Batch(40) {
		edit[id] = value.Object{"order": value.Number(1)}
	}

	s := NewScene().ApplyEdit(edit)
	assert.Equal(t, 40, s.Count())
	assert.Len(t, s.Hierarchy().Children(), 40)

	// Partial removal leaves the survivors untouched.
	trim := EditMap{}
	for id := range edit {
		if id > "ent-0020" {
			trim[id] = nil
		}
	}
	s = s.ApplyEdit(trim)
	assert.Equal(t, 20, s.Count())
	assert.NotNil(t, s.Get("ent-0001"))
	assert.Nil(t, s.Get("ent-0040"))
}

func TestVisitAndCount(t *testing.T) {
	s := NewScene().ApplyEdit(EditMap{
		"a": value.Object{},
		"b": value.Object{},
	})

	var seen []string
	s.Visit(func(e *entity.Entity) bool {
		seen = append(seen, e.ID())
		return true
	})
	assert.Len(t, seen, 2)
	assert.Equal(t, 2, s.Count())
}
