package scenario

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/beaconctl/internal/canon"
)

// snapshot flattens a Result into the canonical-serializable form stored in
// golden files: step outcomes plus the full event trace. Wall times appear as
// unix nanoseconds so the snapshot is locale- and zone-independent.
func snapshot(res *Result) map[string]any {
	steps := make([]any, len(res.Steps))
	for i, st := range res.Steps {
		entry := map[string]any{
			"op":      st.Op,
			"outcome": st.Outcome,
		}
		if st.Message != "" {
			entry["message"] = st.Message
		}
		steps[i] = entry
	}
	events := make([]any, len(res.Events))
	for i, ev := range res.Events {
		events[i] = map[string]any{
			"id":      ev.ID,
			"seq":     ev.Seq,
			"at":      ev.At.UnixNano(),
			"kind":    string(ev.Kind),
			"payload": ev.Payload,
		}
	}
	return map[string]any{
		"scenario": res.Scenario.Name,
		"steps":    steps,
		"events":   events,
	}
}

// AssertGolden compares a result's trace snapshot against the golden file
// named after the scenario, under testdata/golden. Regenerate with:
//
//	go test ./internal/scenario -update
func AssertGolden(t *testing.T, res *Result) {
	t.Helper()

	data, err := canon.MarshalCanonical(snapshot(res))
	if err != nil {
		t.Fatalf("serialize trace snapshot: %v", err)
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, res.Scenario.Name, data)
}
