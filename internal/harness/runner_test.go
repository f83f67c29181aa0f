package harness_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strand/internal/demo"
	"github.com/roach88/strand/internal/harness"
	"github.com/roach88/strand/internal/trace"
)

func TestRun_CounterScenarioPasses(t *testing.T) {
	sc, err := harness.ParseScenario([]byte(validScenarioYAML))
	require.NoError(t, err)

	res, err := harness.Run(sc, demo.Binding())
	require.NoError(t, err)

	assert.True(t, res.Pass, "errors: %v", res.Errors)
	assert.Empty(t, res.Errors)

	// Five actions plus the final state snapshot.
	require.Len(t, res.Trace, 6)
	assert.Equal(t, trace.KindAction, res.Trace[0].Kind)
	assert.Equal(t, "increment", res.Trace[0].Name)
	assert.Equal(t, "flow-1", res.Trace[0].Token)
	assert.Equal(t, "flow-1", res.Trace[1].Token, "cascade keeps the step token")
	assert.Equal(t, "flow-2", res.Trace[2].Token)

	last := res.Trace[5]
	assert.Equal(t, trace.KindState, last.Kind)
	assert.Equal(t, trace.Object{"count": trace.Int(1), "loaded": trace.Bool(false)}, last.Detail)
}

func TestRun_SendAndWaitIdle(t *testing.T) {
	sc := &harness.Scenario{
		Name: "load_flow",
		Steps: []harness.Step{
			{Send: "+"},
			{Perform: "load"},
			{WaitIdle: true},
		},
		Expect: harness.Expect{
			Actions: []string{"increment", "incrementCompleted", "load", "loadCompleted"},
			State:   map[string]any{"count": 1, "loaded": true},
		},
	}

	res, err := harness.Run(sc, demo.Binding())
	require.NoError(t, err)
	assert.True(t, res.Pass, "errors: %v", res.Errors)
}

func TestRun_ExpectationFailureIsNotAnError(t *testing.T) {
	sc := &harness.Scenario{
		Name:  "wrong_expect",
		Steps: []harness.Step{{Perform: "decrement"}},
		Expect: harness.Expect{
			Actions: []string{"increment"},
			State:   map[string]any{"count": 5, "missing": true},
		},
	}

	res, err := harness.Run(sc, demo.Binding())
	require.NoError(t, err, "a failed expectation is a Result, not an error")

	assert.False(t, res.Pass)
	assert.Len(t, res.Errors, 3, "action order, count value, missing field: %v", res.Errors)
}

func TestRun_UnknownActionIsAnError(t *testing.T) {
	sc := &harness.Scenario{
		Name:  "bad_action",
		Steps: []harness.Step{{Perform: "teleport"}},
	}

	_, err := harness.Run(sc, demo.Binding())
	assert.ErrorContains(t, err, "unknown action")
}

func TestRun_DefaultTokenPrefix(t *testing.T) {
	sc := &harness.Scenario{
		Name:  "default_token",
		Steps: []harness.Step{{Perform: "decrement"}},
	}

	res, err := harness.Run(sc, demo.Binding())
	require.NoError(t, err)
	require.NotEmpty(t, res.Trace)
	assert.Equal(t, "flow-1", res.Trace[0].Token)
}
