// Package harness provides a conformance testing framework for the entity
// store: scenarios defined in YAML drive the action reducer, and the final
// snapshot's deterministic serialization is compared against golden files.
//
// Because snapshots serialize deterministically (sorted keys, stable
// number formatting), a golden file pins the exact observable outcome of a
// scenario - any behavioral drift in the edit engine, undo coalescing, or
// hierarchy maintenance shows up as a byte diff.
package harness

import (
	"fmt"
	"log/slog"

	"github.com/halfgrid/scenecore/internal/scene"
	"github.com/halfgrid/scenecore/internal/value"
)

// Result captures a scenario execution.
type Result struct {
	Scenario *Scenario
	Store    *scene.Store
	Failures []string
}

// Passed reports whether every assertion held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Harness executes scenarios against a fresh store each run.
type Harness struct {
	logger *slog.Logger
}

// New creates a harness. A nil logger uses the default.
func New(logger *slog.Logger) *Harness {
	if logger == nil {
		logger = slog.Default()
	}
	return &Harness{logger: logger}
}

// Run executes a scenario and evaluates its assertions.
//
// Each scenario starts from a store holding an empty scene, dispatches its
// steps in order, and then checks assertions against the final snapshot.
// Step errors abort the run: scenarios that exercise the fatal error paths
// (empty-stack undo, unknown resource type) belong in package tests, not
// golden scenarios.
func (h *Harness) Run(s *Scenario) (*Result, error) {
	store := scene.NewStoreWithScene()

	for i, step := range s.Steps {
		action, err := step.action()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: step %d: %w", s.Name, i, err)
		}
		store, err = store.Reduce(action)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: step %d (%s): %w", s.Name, i, action.Type, err)
		}
		h.logger.Debug("step dispatched", "scenario", s.Name, "step", i, "type", action.Type)
	}

	result := &Result{Scenario: s, Store: store}
	for i, assertion := range s.Assertions {
		if failure := evaluate(store, assertion); failure != "" {
			result.Failures = append(result.Failures, fmt.Sprintf("assertion %d (%s): %s", i, assertion.Type, failure))
		}
	}
	return result, nil
}

// Snapshot returns the deterministic serialization of the result's scene,
// the bytes golden files are compared against. A store holding no scene
// snapshots as null.
func (r *Result) Snapshot() ([]byte, error) {
	sc := r.Store.Scene()
	if sc == nil {
		return value.MarshalDeterministic(value.Null{})
	}
	return value.MarshalDeterministic(sc.Serialize())
}
