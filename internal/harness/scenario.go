package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test: a sequence of inputs fed to a fresh
// model, and expectations on the recorded trace and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description,omitempty"`

	// Token is the perform-token prefix for deterministic traces.
	// Defaults to "flow".
	Token string `yaml:"token,omitempty"`

	// Steps is the ordered list of inputs.
	Steps []Step `yaml:"steps"`

	// Expect validates the trace and final state after the run.
	Expect Expect `yaml:"expect,omitempty"`
}

// Step is one scenario input. Exactly one field should be set.
type Step struct {
	// Perform names an action to feed directly to the reducer loop.
	Perform string `yaml:"perform,omitempty"`

	// Send is a raw input routed through the model's transform.
	Send string `yaml:"send,omitempty"`

	// WaitIdle pauses the scenario until all pending effects settle.
	WaitIdle bool `yaml:"wait_idle,omitempty"`
}

// Expect validates the outcome of a scenario run.
type Expect struct {
	// Actions is the exact sequence of action names the run must reduce.
	Actions []string `yaml:"actions,omitempty"`

	// State is a subset match against the encoded final state: only the
	// listed fields are compared.
	State map[string]any `yaml:"state,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field validation, which
// catches typos like "step:" for "steps:".
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i, step := range s.Steps {
		set := 0
		if step.Perform != "" {
			set++
		}
		if step.Send != "" {
			set++
		}
		if step.WaitIdle {
			set++
		}
		if set != 1 {
			return fmt.Errorf("step %d: exactly one of perform, send, wait_idle must be set", i+1)
		}
	}
	return nil
}
