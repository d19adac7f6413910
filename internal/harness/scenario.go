package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/halfgrid/scenecore/internal/scene"
	"github.com/halfgrid/scenecore/internal/value"
)

// Scenario defines a conformance test scenario: a sequence of store
// actions followed by assertions on the resulting snapshot.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden snapshot files are
	// keyed by it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps contains the actions to dispatch, in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final snapshot and history depth.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one dispatched action. Exactly one field should be set.
type Step struct {
	// Edit dispatches an editEntities action.
	Edit *EditStep `yaml:"edit,omitempty"`

	// Undo dispatches an undo action.
	Undo bool `yaml:"undo,omitempty"`

	// Redo dispatches a redo action.
	Redo bool `yaml:"redo,omitempty"`

	// Set dispatches a setResource action.
	Set *SetStep `yaml:"set,omitempty"`

	// Clear dispatches a clearResource action.
	Clear bool `yaml:"clear,omitempty"`
}

// EditStep describes an editEntities action. A null map entry removes the
// entity, mirroring the action's wire form.
type EditStep struct {
	EditNumber int64          `yaml:"editNumber"`
	Map        map[string]any `yaml:"map"`
}

// SetStep describes a setResource action.
type SetStep struct {
	ResourceType string         `yaml:"resourceType"`
	JSON         map[string]any `yaml:"json"`
}

// Assertion validates the final store state.
type Assertion struct {
	// Type selects the assertion:
	//   - "entity_state": entity Id exists and its state deep-equals State
	//   - "entity_absent": no entity with Id exists
	//   - "children": the hierarchy node for Id (or the root if Id is
	//     empty) has exactly Children, in order
	//   - "undo_depth" / "redo_depth": the stack holds Count entries
	Type string `yaml:"type"`

	Id       string         `yaml:"id,omitempty"`
	State    map[string]any `yaml:"state,omitempty"`
	Children []string       `yaml:"children,omitempty"`
	Count    int            `yaml:"count,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("scenario %s: missing name", path)
	}
	return &s, nil
}

// action converts a step to the store action it dispatches.
func (st Step) action() (scene.Action, error) {
	switch {
	case st.Edit != nil:
		m, err := convertEditMap(st.Edit.Map)
		if err != nil {
			return scene.Action{}, err
		}
		return scene.EditEntities(st.Edit.EditNumber, m), nil
	case st.Undo:
		return scene.Undo(), nil
	case st.Redo:
		return scene.Redo(), nil
	case st.Set != nil:
		json, err := convertObject(st.Set.JSON)
		if err != nil {
			return scene.Action{}, err
		}
		return scene.SetResource(st.Set.ResourceType, json), nil
	case st.Clear:
		return scene.ClearResource(), nil
	default:
		return scene.Action{}, fmt.Errorf("step sets no action")
	}
}

// convertEditMap converts the untyped YAML form of an edit map. A null
// entry becomes a nil partial state (entity removal).
func convertEditMap(raw map[string]any) (scene.EditMap, error) {
	m := make(scene.EditMap, len(raw))
	for id, partial := range raw {
		if partial == nil {
			m[id] = nil
			continue
		}
		obj, err := convertObject(partial)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", id, err)
		}
		m[id] = obj
	}
	return m, nil
}

func convertObject(raw any) (value.Object, error) {
	v, err := value.FromGo(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(value.Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	return obj, nil
}
