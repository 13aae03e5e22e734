package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
)

// TraceSnapshot captures the decision trace of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Limits       ScenarioLimits
	Trace        []TraceEvent
	Stats        engine.Stats
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// Elapsed time is left out so snapshots do not depend on the clock.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"row":     event.Row,
			"outcome": event.Outcome,
		}
		if event.Subject != "" {
			eventMap["subject"] = event.Subject
		}
		if event.Detail != "" {
			eventMap["detail"] = event.Detail
		}
		if event.Outcome == engine.Admit.String() {
			eventMap["aux"] = event.Aux
		}
		traceList[i] = eventMap
	}

	st := s.Stats
	return map[string]any{
		"scenario_name": s.ScenarioName,
		"limits": map[string]any{
			"max_pair_duplicates": s.Limits.MaxPairDuplicates,
			"max_value_frequency": s.Limits.MaxValueFrequency,
		},
		"stats": map[string]any{
			"processed":        st.Processed,
			"admitted":         st.Admitted,
			"rejected_exact":   st.RejectedExact,
			"rejected_pair":    st.RejectedPair,
			"rejected_value":   st.RejectedValue,
			"distinct_triples": st.DistinctTriples,
		},
		"trace": traceList,
	}
}

// MarshalTrace renders the canonical JSON snapshot of result.
func MarshalTrace(name string, limits ScenarioLimits, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: name,
		Limits:       limits,
		Trace:        result.Trace,
		Stats:        result.Stats,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass, and an error if the
// scenario could not be executed. Test failure (via goldie) occurs if the
// trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := assertGolden(t, scenario.Name, scenario.Limits, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) error {
	t.Helper()
	return assertGolden(t, scenario.Name, scenario.Limits, result)
}

func assertGolden(t *testing.T, name string, limits ScenarioLimits, result *Result) error {
	t.Helper()

	traceJSON, err := MarshalTrace(name, limits, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
