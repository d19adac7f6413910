package harness

import (
	"fmt"
	"strings"

	"github.com/halfgrid/scenecore/internal/scene"
	"github.com/halfgrid/scenecore/internal/value"
)

// evaluate checks one assertion against the final store, returning a
// failure message or "" on success.
func evaluate(store *scene.Store, a Assertion) string {
	switch a.Type {
	case "entity_state":
		return evaluateEntityState(store, a)
	case "entity_absent":
		return evaluateEntityAbsent(store, a)
	case "children":
		return evaluateChildren(store, a)
	case "undo_depth":
		if store.UndoDepth() != a.Count {
			return fmt.Sprintf("undo depth = %d, want %d", store.UndoDepth(), a.Count)
		}
		return ""
	case "redo_depth":
		if store.RedoDepth() != a.Count {
			return fmt.Sprintf("redo depth = %d, want %d", store.RedoDepth(), a.Count)
		}
		return ""
	default:
		return fmt.Sprintf("unknown assertion type %q", a.Type)
	}
}

func evaluateEntityState(store *scene.Store, a Assertion) string {
	sc := store.Scene()
	if sc == nil {
		return "store holds no scene"
	}
	e := sc.Get(a.Id)
	if e == nil {
		return fmt.Sprintf("entity %q absent", a.Id)
	}
	want, err := convertObject(a.State)
	if err != nil {
		return fmt.Sprintf("bad expected state: %v", err)
	}
	if !value.Equal(e.State(), want) {
		got, _ := value.MarshalDeterministic(e.State())
		expected, _ := value.MarshalDeterministic(want)
		return fmt.Sprintf("entity %q state = %s, want %s", a.Id, got, expected)
	}
	return ""
}

func evaluateEntityAbsent(store *scene.Store, a Assertion) string {
	sc := store.Scene()
	if sc == nil {
		return "store holds no scene"
	}
	if sc.Get(a.Id) != nil {
		return fmt.Sprintf("entity %q present, want absent", a.Id)
	}
	return ""
}

// evaluateChildren checks the ordered child ids beneath the node for a.Id
// (the virtual root when a.Id is empty).
func evaluateChildren(store *scene.Store, a Assertion) string {
	sc := store.Scene()
	if sc == nil {
		return "store holds no scene"
	}
	node := sc.Hierarchy()
	if a.Id != "" {
		e := sc.Get(a.Id)
		if e == nil {
			return fmt.Sprintf("entity %q absent", a.Id)
		}
		lineage := sc.Lineage(e)
		if lineage == nil {
			return fmt.Sprintf("entity %q has a broken lineage", a.Id)
		}
		node = node.Find(lineage, 0)
		if node == nil {
			return fmt.Sprintf("entity %q missing from hierarchy", a.Id)
		}
	}

	got := make([]string, 0, len(node.Children()))
	for _, child := range node.Children() {
		got = append(got, child.Entity().ID())
	}
	if !equalStrings(got, a.Children) {
		return fmt.Sprintf("children of %q = [%s], want [%s]",
			a.Id, strings.Join(got, " "), strings.Join(a.Children, " "))
	}
	return ""
}

func equalStrings(a, b []string) bool {
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
