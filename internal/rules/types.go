package rules

import (
	"time"

	"github.com/roach88/recon/internal/records"
)

// Severity is the impact tier of a rule.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Weight returns the risk weight of the tier: 30, 20, 10 or 5.
// Unknown tiers weigh nothing.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 30
	case SeverityHigh:
		return 20
	case SeverityMedium:
		return 10
	case SeverityLow:
		return 5
	default:
		return 0
	}
}

// IsFailure reports whether violations of this tier count as failures
// rather than warnings.
func (s Severity) IsFailure() bool {
	return s == SeverityCritical || s == SeverityHigh
}

// Category groups rules by what they compare.
type Category string

const (
	CategoryPricing      Category = "pricing"
	CategoryOrderInvoice Category = "order_invoice"
	CategoryCrossSystem  Category = "cross_system"
)

// Context is everything the rules see for one order.
//
// Invoice is the primary invoice: the first invoice found referencing the
// order, or nil. Payments and LedgerEntries belong to the primary invoice.
// Now is the evaluation instant.
type Context struct {
	Order         records.Order
	Invoice       *records.Invoice
	Invoices      []records.Invoice
	Payments      []records.Payment
	LedgerEntries []records.LedgerEntry
	Now           time.Time
}

// Violation is the output of one failed rule.
type Violation struct {
	RuleID        string   `json:"rule_id"`
	RuleName      string   `json:"rule_name"`
	Severity      Severity `json:"severity"`
	Weight        int      `json:"weight"`
	Message       string   `json:"message"`
	ExpectedValue string   `json:"expected_value,omitempty"`
	ActualValue   string   `json:"actual_value,omitempty"`
}
