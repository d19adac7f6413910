package scene

import (
	"log/slog"

	"github.com/halfgrid/scenecore/internal/value"
)

// Action type discriminants accepted by the store reducer. The action bus
// is shared with many optional, feature-specific reducers, so unknown
// types are deliberately ignored rather than rejected.
const (
	ActionEditEntities = "editEntities"
	ActionUndo         = "undo"
	ActionRedo         = "redo"
	ActionSetResource  = "setResource"
	// ActionSetEnvironment is the legacy alias for setResource, kept for
	// documents saved by older clients.
	ActionSetEnvironment = "setEnvironment"
	ActionClearResource  = "clearResource"
)

// Action is the tagged union dispatched to the reducer. Only the fields
// relevant to the Type are populated.
type Action struct {
	Type string

	// EditNumber is the logical gesture id for editEntities actions.
	// Many fine-grained edits sharing one edit number coalesce into a
	// single undo step.
	EditNumber int64

	// Map is the edit batch for editEntities actions.
	Map EditMap

	// ResourceType and JSON describe a setResource action.
	ResourceType string
	JSON         value.Object
}

// EditEntities builds an editEntities action.
func EditEntities(editNumber int64, m EditMap) Action {
	return Action{Type: ActionEditEntities, EditNumber: editNumber, Map: m}
}

// Undo builds an undo action.
func Undo() Action {
	return Action{Type: ActionUndo}
}

// Redo builds a redo action.
func Redo() Action {
	return Action{Type: ActionRedo}
}

// SetResource builds a setResource action.
func SetResource(resourceType string, json value.Object) Action {
	return Action{Type: ActionSetResource, ResourceType: resourceType, JSON: json}
}

// ClearResource builds a clearResource action.
func ClearResource() Action {
	return Action{Type: ActionClearResource}
}

// Store is the versioned facade over the current resource and its undo
// and redo stacks. A Store value is an immutable snapshot: Reduce returns
// a new Store, and returns the SAME pointer for actions that change
// nothing, so consumers may detect change by identity comparison.
type Store struct {
	resource Resource
	undo     []Action
	redo     []Action
}

// NewStore returns a store holding no resource.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWithScene returns a store holding an empty scene, the usual
// starting point for a fresh document.
func NewStoreWithScene() *Store {
	return &Store{resource: NewScene()}
}

// Resource returns the current resource, nil after clearResource.
func (s *Store) Resource() Resource {
	return s.resource
}

// Scene returns the current resource as a scene, or nil if the store
// holds no scene.
func (s *Store) Scene() *Scene {
	sc, _ := s.resource.(*Scene)
	return sc
}

// CanUndo reports whether an undo action may be dispatched. Callers must
// pre-check before dispatching; undo on an empty stack is a contract
// violation, not a no-op.
func (s *Store) CanUndo() bool {
	return len(s.undo) > 0
}

// CanRedo reports whether a redo action may be dispatched.
func (s *Store) CanRedo() bool {
	return len(s.redo) > 0
}

// UndoDepth returns the number of undo steps available.
func (s *Store) UndoDepth() int {
	return len(s.undo)
}

// RedoDepth returns the number of redo steps available.
func (s *Store) RedoDepth() int {
	return len(s.redo)
}

// Reduce dispatches an action against the store, returning the resulting
// snapshot. Unknown action types return the same snapshot reference.
//
// Failure semantics per the error taxonomy: undo/redo on an empty stack
// returns an InvariantError, setResource with an unregistered discriminant
// returns a ConfigurationError. Everything else that cannot be applied
// (no current scene, edits to nonexistent nested keys) is silently
// ignored.
func (s *Store) Reduce(action Action) (*Store, error) {
	switch action.Type {
	case ActionEditEntities:
		return s.reduceEdit(action)

	case ActionUndo:
		if len(s.undo) == 0 {
			return s, &InvariantError{Op: "undo", Message: "empty undo stack"}
		}
		return s.replay(action.Type, s.undo, s.redo)

	case ActionRedo:
		if len(s.redo) == 0 {
			return s, &InvariantError{Op: "redo", Message: "empty redo stack"}
		}
		return s.replay(action.Type, s.redo, s.undo)

	case ActionSetResource, ActionSetEnvironment:
		resource, err := NewResource(action.ResourceType, action.JSON)
		if err != nil {
			return s, err
		}
		slog.Debug("resource set", "resourceType", action.ResourceType)
		return &Store{resource: resource}, nil

	case ActionClearResource:
		return &Store{}, nil

	default:
		// Unrecognized actions belong to other reducers on the shared
		// bus; return the identical snapshot for cheap change detection.
		return s, nil
	}
}

// reduceEdit applies a forward edit: the reverse edit is computed against
// the current snapshot, the forward edit produces the new snapshot, and
// the reverse is pushed onto (or merged into) the undo stack. A fresh
// forward edit invalidates the redo stack.
func (s *Store) reduceEdit(action Action) (*Store, error) {
	current := s.Scene()
	if current == nil {
		return s, nil
	}
	reverse := Action{
		Type:       ActionEditEntities,
		EditNumber: action.EditNumber,
		Map:        current.CreateReverseEdit(action.Map),
	}
	next := current.ApplyEdit(action.Map)
	slog.Debug("entities edited",
		"editNumber", action.EditNumber,
		"entities", len(action.Map),
		"count", next.Count(),
	)
	return &Store{
		resource: next,
		undo:     pushReverse(s.undo, reverse),
	}, nil
}

// replay pops the top of from, applies it as a forward edit, and pushes
// its reverse onto to. Undo and redo are the same operation with the
// stacks swapped.
func (s *Store) replay(op string, from, to []Action) (*Store, error) {
	top := from[len(from)-1]
	current := s.Scene()
	if current == nil {
		return s, &InvariantError{Op: op, Message: "no scene to replay against"}
	}
	reverse := Action{
		Type:       ActionEditEntities,
		EditNumber: top.EditNumber,
		Map:        current.CreateReverseEdit(top.Map),
	}
	next := current.ApplyEdit(top.Map)
	slog.Debug("history replayed", "op", op, "editNumber", top.EditNumber)

	store := &Store{resource: next}
	popped := from[:len(from)-1:len(from)-1]
	pushed := append(to[:len(to):len(to)], reverse)
	if op == ActionUndo {
		store.undo, store.redo = popped, pushed
	} else {
		store.undo, store.redo = pushed, popped
	}
	return store, nil
}

// pushReverse appends a reverse edit to the undo stack, or merges it into
// the top entry when both carry the same edit number. Merging composes the
// NEW reverse before the existing one: undoing the pair must roll back the
// later forward edit first.
func pushReverse(undo []Action, reverse Action) []Action {
	if n := len(undo); n > 0 && undo[n-1].EditNumber == reverse.EditNumber {
		merged := Action{
			Type:       ActionEditEntities,
			EditNumber: reverse.EditNumber,
			Map:        ComposeEdits(reverse.Map, undo[n-1].Map),
		}
		stack := make([]Action, n)
		copy(stack, undo[:n-1])
		stack[n-1] = merged
		return stack
	}
	return append(undo[:len(undo):len(undo)], reverse)
}
