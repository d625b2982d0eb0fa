package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultNow is the frozen clock reading when a scenario omits now.
const DefaultNow = "2025-06-01T12:00:00Z"

// Scenario defines a reconciliation scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Dataset is the YAML dataset seeded before the steps run.
	// Relative paths are resolved against the scenario file.
	Dataset string `yaml:"dataset"`

	// Now is the RFC 3339 instant the clock is frozen at.
	Now string `yaml:"now,omitempty"`

	// Steps run in order against one reconciler.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final cache, statistics and audit trail.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one reconciler call. Exactly one field must be set.
type Step struct {
	// Reconcile runs a batch over these order ids.
	Reconcile []string `yaml:"reconcile,omitempty"`

	// ReconcileAll runs a full scan including ghost invoices.
	ReconcileAll bool `yaml:"reconcile_all,omitempty"`
}

// Assertion validates the scenario outcome.
type Assertion struct {
	// Type specifies the assertion type:
	// - "result": check the cached result of OrderID
	// - "statistics": check the statistics projection
	// - "audit_count": count audit entries
	// - "audit_order": check event types appear in order
	Type string `yaml:"type"`

	// OrderID selects the result (result) or transaction (audit_*).
	OrderID string `yaml:"order_id,omitempty"`

	// Violations is the exact list of violated rule ids (result).
	Violations []string `yaml:"violations,omitempty"`

	// Expect contains expected JSON field values (result, statistics).
	// Subset match: only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// EventType filters audit_count. Empty counts every event.
	EventType string `yaml:"event_type,omitempty"`

	// Count is the expected number of entries (audit_count).
	Count int `yaml:"count,omitempty"`

	// Events is the expected event type order (audit_order).
	Events []string `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertResult     = "result"
	AssertStatistics = "statistics"
	AssertAuditCount = "audit_count"
	AssertAuditOrder = "audit_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Dataset != "" && !filepath.IsAbs(scenario.Dataset) {
		scenario.Dataset = filepath.Join(filepath.Dir(path), scenario.Dataset)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// start returns the frozen clock reading.
func (s *Scenario) start() (time.Time, error) {
	now := s.Now
	if now == "" {
		now = DefaultNow
	}
	t, err := time.Parse(time.RFC3339, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("now: %w", err)
	}
	return t.UTC(), nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	if _, err := os.Stat(s.Dataset); os.IsNotExist(err) {
		return fmt.Errorf("dataset file not found: %s", s.Dataset)
	}

	if _, err := s.start(); err != nil {
		return err
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, step := range s.Steps {
		hasBatch := len(step.Reconcile) > 0
		if hasBatch == step.ReconcileAll {
			return fmt.Errorf("steps[%d]: exactly one of reconcile or reconcile_all is required", i)
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertResult:
		if a.OrderID == "" {
			return fmt.Errorf("assertions[%d]: order_id is required for result", index)
		}
		if len(a.Expect) == 0 && a.Violations == nil {
			return fmt.Errorf("assertions[%d]: expect or violations is required for result", index)
		}
	case AssertStatistics:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for statistics", index)
		}
	case AssertAuditCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for audit_count", index)
		}
	case AssertAuditOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for audit_order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
