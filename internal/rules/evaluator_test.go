package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alwaysFails(id string, sev Severity) Rule {
	return NewRule(id, "Always "+id, CategoryPricing, sev, func(*Context) (*Violation, error) {
		return &Violation{Message: id + " failed"}, nil
	})
}

func TestEvaluator_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(alwaysFails("B-1", SeverityHigh)))
	require.NoError(t, r.Register(alwaysFails("A-1", SeverityLow)))
	require.NoError(t, r.Register(NewRule("C-1", "Passes", CategoryPricing, SeverityCritical,
		func(*Context) (*Violation, error) { return nil, nil })))

	out := NewEvaluator(r).Evaluate(cleanContext())

	require.Len(t, out.Violations, 2)
	assert.Equal(t, "B-1", out.Violations[0].RuleID)
	assert.Equal(t, 20, out.Violations[0].Weight)
	assert.Equal(t, "A-1", out.Violations[1].RuleID)
	assert.Equal(t, 5, out.Violations[1].Weight)
	assert.Empty(t, out.Skipped)
}

func TestEvaluator_PanickingRuleIsSkipped(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(alwaysFails("X-1", SeverityCritical)))
	require.NoError(t, r.Register(NewRule("BOOM", "Panics", CategoryPricing, SeverityCritical,
		func(c *Context) (*Violation, error) {
			var m map[string]int
			m["boom"]++ // nil map write
			return nil, nil
		})))
	require.NoError(t, r.Register(alwaysFails("X-2", SeverityCritical)))

	out := NewEvaluator(r).Evaluate(cleanContext())

	require.Len(t, out.Violations, 2, "rules after the panic still run")
	assert.Equal(t, "X-1", out.Violations[0].RuleID)
	assert.Equal(t, "X-2", out.Violations[1].RuleID)
	assert.Equal(t, []string{"BOOM"}, out.Skipped)
	for _, v := range out.Violations {
		assert.NotEqual(t, "BOOM", v.RuleID)
	}
}

func TestEvaluator_ErroringRuleIsSkipped(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewRule("ERR", "Errors", CategoryPricing, SeverityHigh,
		func(*Context) (*Violation, error) {
			return &Violation{Message: "ignored"}, errors.New("data unavailable")
		})))
	require.NoError(t, r.Register(alwaysFails("X-1", SeverityMedium)))

	out := NewEvaluator(r).Evaluate(cleanContext())

	require.Len(t, out.Violations, 1)
	assert.Equal(t, "X-1", out.Violations[0].RuleID)
	assert.Equal(t, []string{"ERR"}, out.Skipped)
}

func TestEvaluator_EmptyRegistry(t *testing.T) {
	out := NewEvaluator(NewRegistry()).Evaluate(cleanContext())
	assert.Empty(t, out.Violations)
	assert.Empty(t, out.Skipped)
}
