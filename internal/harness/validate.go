package harness

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// scenarioSchema is the CUE definition a scenario document must satisfy.
// The definition is closed, so unknown fields are rejected at the schema
// level as well as by the strict YAML decoder.
const scenarioSchema = `
#Step: {
	perform?:   string & !=""
	send?:      string & !=""
	wait_idle?: bool
}

#Expect: {
	actions?: [...string]
	state?: {...}
}

#Scenario: {
	name:         string & !=""
	description?: string
	token?:       string & !=""
	steps: [#Step, ...#Step]
	expect?: #Expect
}
`

// ValidateScenarioFile checks a scenario YAML document against the CUE
// schema. This catches structural mistakes (wrong types, misplaced fields)
// with better positions than the Go-side decode errors.
func ValidateScenarioFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ValidateScenarioBytes(data)
}

// ValidateScenarioBytes checks raw scenario YAML against the CUE schema.
func ValidateScenarioBytes(data []byte) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(scenarioSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("internal schema error: %w", err)
	}

	doc := ctx.Encode(raw)
	if err := doc.Err(); err != nil {
		return fmt.Errorf("failed to encode scenario: %w", err)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("scenario does not match schema: %w", err)
	}

	return nil
}
