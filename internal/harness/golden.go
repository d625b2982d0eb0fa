package harness

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/recon/internal/audit"
	"github.com/roach88/recon/internal/engine"
)

// Snapshot is the golden form of a scenario run: one line per cached result
// and one line per audit entry.
type Snapshot struct {
	Scenario string   `json:"scenario"`
	Results  []string `json:"results"`
	Trail    []string `json:"trail"`
}

// NewSnapshot builds the snapshot of result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		Scenario: name,
		Results:  make([]string, 0, len(result.Results)),
		Trail:    make([]string, 0, len(result.Trail)),
	}
	for _, res := range result.Results {
		s.Results = append(s.Results, resultLine(res))
	}
	for _, e := range result.Trail {
		s.Trail = append(s.Trail, trailLine(e))
	}
	return s
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func resultLine(res engine.Result) string {
	return fmt.Sprintf("%s score=%d %s [%s]",
		res.OrderID, res.RiskScore, res.Classification, strings.Join(res.RuleIDs(), ","))
}

func trailLine(e audit.Entry) string {
	parts := []string{e.CorrelationID, e.TransactionID, string(e.EventType)}
	if e.RuleID != "" {
		parts = append(parts, e.RuleID)
	}
	if e.RiskScore != nil {
		parts = append(parts, fmt.Sprintf("score=%d", *e.RiskScore))
	}
	if e.RiskClassification != "" {
		parts = append(parts, e.RiskClassification)
	}
	if e.Decision != "" {
		parts = append(parts, string(e.Decision))
	}
	return strings.Join(parts, " ")
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
