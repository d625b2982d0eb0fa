package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_SettlementDrift(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/settlement_drift.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Results, 2)
	assert.Len(t, result.Trail, 30)
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/settlement_drift.yaml")
	require.NoError(t, err)
	s.Assertions = []Assertion{
		{Type: AssertResult, OrderID: "ORD-3", Expect: map[string]any{"risk_classification": "safe"}},
	}

	result, err := Run(s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "risk_classification = monitor, want safe")
}

func TestRun_IsDeterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/discount_without_invoice.yaml")
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	a, err := NewSnapshot(s.Name, first).Marshal()
	require.NoError(t, err)
	b, err := NewSnapshot(s.Name, second).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, first.Trail, second.Trail)
}
