package rules

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/records"
)

// GhostInvoiceID is the id of the ghost invoice rule.
const GhostInvoiceID = "CSI-001"

// GhostInvoice (CSI-001) is a placeholder in per-order evaluation: starting
// from an order, an invoice pointing at a missing order cannot be seen. The
// reconciler runs the check separately across all invoices using
// GhostInvoiceViolation.
func GhostInvoice() Rule {
	return NewRule(GhostInvoiceID, "Ghost Invoice", CategoryCrossSystem, SeverityCritical,
		func(*Context) (*Violation, error) { return nil, nil })
}

// GhostInvoiceViolation describes an invoice whose order does not exist.
func GhostInvoiceViolation(inv records.Invoice) Violation {
	r := GhostInvoice()
	return Violation{
		RuleID:        r.ID,
		RuleName:      r.Name,
		Severity:      r.Severity,
		Weight:        r.Weight(),
		Message:       fmt.Sprintf("Invoice %s references order %s that does not exist in CRM", inv.InvoiceID, inv.OrderID),
		ExpectedValue: "order exists",
		ActualValue:   "not found",
	}
}

// StatusSynchronization (CSI-002) flags a fulfilled order whose invoice is overdue.
func StatusSynchronization() Rule {
	return NewRule("CSI-002", "Status Synchronization", CategoryCrossSystem, SeverityHigh,
		func(c *Context) (*Violation, error) {
			if c.Invoice == nil {
				return nil, nil
			}
			if c.Order.OrderStatus == records.OrderFulfilled && c.Invoice.Status == records.InvoiceOverdue {
				return &Violation{
					Message:       fmt.Sprintf("CRM order is 'fulfilled' but invoice %s is 'overdue'", c.Invoice.InvoiceID),
					ExpectedValue: "paid or sent",
					ActualValue:   records.InvoiceOverdue,
				}, nil
			}
			return nil, nil
		})
}

// LedgerBalance (CSI-003) flags unbalanced postings against the primary
// invoice: total debits and credits must agree within 0.01.
func LedgerBalance() Rule {
	return NewRule("CSI-003", "Ledger Balance", CategoryCrossSystem, SeverityCritical,
		func(c *Context) (*Violation, error) {
			if len(c.LedgerEntries) == 0 {
				return nil, nil
			}
			debit, credit := decimal.Zero, decimal.Zero
			for _, e := range c.LedgerEntries {
				debit = debit.Add(e.Debit)
				credit = credit.Add(e.Credit)
			}
			if debit.Sub(credit).Abs().GreaterThan(amountTolerance) {
				return &Violation{
					Message:       fmt.Sprintf("Ledger imbalance: debits=%s, credits=%s", money(debit), money(credit)),
					ExpectedValue: money(debit),
					ActualValue:   money(credit),
				}, nil
			}
			return nil, nil
		})
}
