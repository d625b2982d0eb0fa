package rules

import "fmt"

// Outcome is the result of running the catalogue against one context.
type Outcome struct {
	// Violations in registration order.
	Violations []Violation

	// Skipped holds the ids of rules that errored or panicked. They count as
	// neither passed nor failed.
	Skipped []string
}

// Evaluator runs every registered rule against a context.
type Evaluator struct {
	registry *Registry
}

// NewEvaluator creates an evaluator over registry.
func NewEvaluator(registry *Registry) *Evaluator {
	return &Evaluator{registry: registry}
}

// Evaluate runs the rules sequentially in registration order.
//
// A rule that returns an error or panics is skipped and evaluation continues
// with the next rule.
func (e *Evaluator) Evaluate(c *Context) Outcome {
	var out Outcome
	for _, rule := range e.registry.rules {
		v, err := evaluateIsolated(rule, c)
		if err != nil {
			out.Skipped = append(out.Skipped, rule.ID)
			continue
		}
		if v != nil {
			out.Violations = append(out.Violations, *v)
		}
	}
	return out
}

func evaluateIsolated(rule Rule, c *Context) (v *Violation, err error) {
	defer func() {
		if r := recover(); r != nil {
			v = nil
			err = fmt.Errorf("rule %s panicked: %v", rule.ID, r)
		}
	}()
	return rule.Evaluate(c)
}
