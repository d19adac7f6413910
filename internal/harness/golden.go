package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden executes a scenario and compares the final snapshot's
// deterministic serialization against a golden file stored in
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Assertion failures and golden mismatches both fail the test.
func RunWithGolden(t *testing.T, h *Harness, s *Scenario) *Result {
	t.Helper()

	result, err := h.Run(s)
	if err != nil {
		t.Fatalf("scenario %s: %v", s.Name, err)
	}
	for _, failure := range result.Failures {
		t.Errorf("scenario %s: %s", s.Name, failure)
	}

	snapshot, err := result.Snapshot()
	if err != nil {
		t.Fatalf("scenario %s: snapshot: %v", s.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, s.Name, snapshot)
	return result
}
