package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/strand/internal/trace"
)

// RunWithGolden executes a scenario and compares the canonical trace
// snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files are the source of truth for expected trace behavior; byte
// stability comes from deterministic perform tokens and canonical JSON.
func RunWithGolden[S any, I any, A comparable, ID comparable](t *testing.T, sc *Scenario, b Binding[S, I, A, ID]) (*Result, error) {
	t.Helper()

	result, err := Run(sc, b)
	if err != nil {
		return nil, err
	}

	data, err := snapshotJSON(sc.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)

	return result, nil
}

// snapshotJSON encodes a run's trace as a canonical JSON document.
func snapshotJSON(name string, result *Result) ([]byte, error) {
	events := make(trace.Array, len(result.Trace))
	for i, e := range result.Trace {
		events[i] = e.Object()
	}

	return trace.MarshalCanonical(trace.Object{
		"scenario_name": trace.String(name),
		"trace":         events,
	})
}
