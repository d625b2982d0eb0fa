package rules

// CheckFunc inspects a context. It returns a violation with at least Message
// set when the rule fails, and nil when it passes. Identity fields of the
// returned violation are filled in by Rule.Evaluate.
//
// An error means the rule could not be evaluated at all.
type CheckFunc func(c *Context) (*Violation, error)

// Rule is one entry of the catalogue.
type Rule struct {
	ID       string
	Name     string
	Category Category
	Severity Severity
	check    CheckFunc
}

// NewRule builds a rule from its identity and check.
func NewRule(id, name string, category Category, severity Severity, check CheckFunc) Rule {
	return Rule{
		ID:       id,
		Name:     name,
		Category: category,
		Severity: severity,
		check:    check,
	}
}

// Weight is derived from the severity tier.
func (r Rule) Weight() int {
	return r.Severity.Weight()
}

// Evaluate runs the check against c.
func (r Rule) Evaluate(c *Context) (*Violation, error) {
	if r.check == nil {
		return nil, nil
	}
	v, err := r.check(c)
	if err != nil || v == nil {
		return nil, err
	}
	out := *v
	out.RuleID = r.ID
	out.RuleName = r.Name
	out.Severity = r.Severity
	out.Weight = r.Weight()
	return &out, nil
}
