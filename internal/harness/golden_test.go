package harness_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strand/internal/demo"
	"github.com/roach88/strand/internal/harness"
)

func loadTestScenario(t *testing.T, name string) *harness.Scenario {
	t.Helper()
	path := filepath.Join("testdata", "scenarios", name+".yaml")

	require.NoError(t, harness.ValidateScenarioFile(path))
	sc, err := harness.LoadScenario(path)
	require.NoError(t, err)
	return sc
}

func TestGolden_CounterBasic(t *testing.T) {
	sc := loadTestScenario(t, "counter_basic")

	res, err := harness.RunWithGolden(t, sc, demo.Binding())
	require.NoError(t, err)
	assert.True(t, res.Pass, "errors: %v", res.Errors)
}

func TestGolden_CounterLoad(t *testing.T) {
	sc := loadTestScenario(t, "counter_load")

	res, err := harness.RunWithGolden(t, sc, demo.Binding())
	require.NoError(t, err)
	assert.True(t, res.Pass, "errors: %v", res.Errors)
}
