package event

import (
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
)

// Scenario is a scripted sequence of events replayed against a fresh
// scene, typically loaded from a YAML file:
//
//	dims: 2
//	groups: ["enemy_.*", "enemy_boss"]
//	events:
//	  - {op: enter, name: enemy_boss, id: /level/boss, point: [1, 0]}
//	  - {op: query, point: [0, 0], group: 1, k: 1}
type Scenario struct {
	// Dims is the number of coordinates per point. Required.
	Dims int `json:"dims" yaml:"dims"`

	// Capacity is the leaf bucket size of each group's tree (optional).
	Capacity int `json:"capacity,omitempty" yaml:"capacity,omitempty"`

	// Groups is the initial pattern list.
	Groups []string `json:"groups,omitempty" yaml:"groups,omitempty"`

	// Events are applied in order.
	Events []Event `json:"events,omitempty" yaml:"events,omitempty"`
}

// Validate checks the scenario header and every event.
func (s *Scenario) Validate() error {
	if s.Dims <= 0 {
		return fmt.Errorf("%w: scenario dims must be positive, got %d", ErrInvalid, s.Dims)
	}
	for i := range s.Events {
		if err := s.Events[i].Validate(); err != nil {
			return fmt.Errorf("events[%d]: %w", i, err)
		}
	}
	return nil
}

// ParseScenario decodes and validates a YAML (or JSON) scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("event: parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ReadScenario reads a scenario from r.
func ReadScenario(r io.Reader) (*Scenario, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("event: read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ScenarioSchema returns the JSON schema of a scenario file.
func ScenarioSchema() (*jsonschema.Schema, error) {
	return jsonschema.For[Scenario](nil)
}
