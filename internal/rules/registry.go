package rules

import (
	"errors"
	"fmt"
)

// ErrDuplicateRule is returned when a rule id is registered twice.
var ErrDuplicateRule = errors.New("duplicate rule id")

// Registry is an ordered rule catalogue. Rules keep their registration order.
//
// Thread-safety: a Registry is read-only once built. Register must not be
// called concurrently with any other method.
type Registry struct {
	rules []Rule
	index map[string]int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// DefaultRegistry returns the twelve-rule catalogue in its canonical order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, rule := range []Rule{
		DiscountThreshold(),
		MarginProtection(),
		PriceConsistency(),
		BulkPriceValidation(),
		OrderInvoiceMapping(),
		AmountMatching(),
		DuplicateInvoice(),
		PaymentCompleteness(),
		StaleInvoice(),
		GhostInvoice(),
		StatusSynchronization(),
		LedgerBalance(),
	} {
		if err := r.Register(rule); err != nil {
			panic(err)
		}
	}
	return r
}

// Register appends rule. Returns ErrDuplicateRule (wrapped) if the id is taken.
func (r *Registry) Register(rule Rule) error {
	if rule.ID == "" {
		return fmt.Errorf("register rule %q: empty id", rule.Name)
	}
	if _, ok := r.index[rule.ID]; ok {
		return fmt.Errorf("register rule %s: %w", rule.ID, ErrDuplicateRule)
	}
	r.index[rule.ID] = len(r.rules)
	r.rules = append(r.rules, rule)
	return nil
}

// All returns every rule in registration order.
func (r *Registry) All() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Get looks up a rule by id.
func (r *Registry) Get(id string) (Rule, bool) {
	i, ok := r.index[id]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

// ByCategory returns the rules of one category in registration order.
func (r *Registry) ByCategory(c Category) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Category == c {
			out = append(out, rule)
		}
	}
	return out
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}
