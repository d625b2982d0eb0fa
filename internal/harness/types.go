package harness

import (
	"github.com/roach88/recon/internal/audit"
	"github.com/roach88/recon/internal/engine"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: true if every assertion matched.
	Pass bool `json:"pass"`

	// Results is the final result cache, sorted by order id.
	Results []engine.Result `json:"results"`

	// Statistics is the cache projection after the last step.
	Statistics engine.Statistics `json:"statistics"`

	// Trail is every audit entry written, in stored order.
	Trail []audit.Entry `json:"trail"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Results: []engine.Result{},
		Trail:   []audit.Entry{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// find returns the cached result for orderID.
func (r *Result) find(orderID string) (engine.Result, bool) {
	for _, res := range r.Results {
		if res.OrderID == orderID {
			return res, true
		}
	}
	return engine.Result{}, false
}
