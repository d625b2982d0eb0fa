package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/records"
)

var amountTolerance = decimal.RequireFromString("0.01")

const staleAfterDays = 60

// OrderInvoiceMapping (OIC-001) flags an order with no invoice.
func OrderInvoiceMapping() Rule {
	return NewRule("OIC-001", "Order-Invoice Mapping", CategoryOrderInvoice, SeverityCritical,
		func(c *Context) (*Violation, error) {
			if c.Invoice == nil && len(c.Invoices) == 0 {
				return &Violation{
					Message:       fmt.Sprintf("Order %s has no matching invoice in Finance system", c.Order.OrderID),
					ExpectedValue: ">=1 invoice",
					ActualValue:   "0",
				}, nil
			}
			return nil, nil
		})
}

// AmountMatching (OIC-002) flags an absolute difference above 0.01 between
// the order total and the primary invoice total.
func AmountMatching() Rule {
	return NewRule("OIC-002", "Amount Matching", CategoryOrderInvoice, SeverityCritical,
		func(c *Context) (*Violation, error) {
			if c.Invoice == nil {
				return nil, nil
			}
			diff := c.Order.TotalAmount.Sub(c.Invoice.TotalAmount).Abs()
			if diff.GreaterThan(amountTolerance) {
				return &Violation{
					Message: fmt.Sprintf("Amount mismatch: order=%s, invoice=%s (diff=%s)",
						money(c.Order.TotalAmount), money(c.Invoice.TotalAmount), money(diff)),
					ExpectedValue: money(c.Order.TotalAmount),
					ActualValue:   money(c.Invoice.TotalAmount),
				}, nil
			}
			return nil, nil
		})
}

// DuplicateInvoice (OIC-003) flags an order referenced by more than one invoice.
func DuplicateInvoice() Rule {
	return NewRule("OIC-003", "Duplicate Invoice", CategoryOrderInvoice, SeverityHigh,
		func(c *Context) (*Violation, error) {
			if len(c.Invoices) <= 1 {
				return nil, nil
			}
			ids := make([]string, len(c.Invoices))
			for i, inv := range c.Invoices {
				ids[i] = inv.InvoiceID
			}
			return &Violation{
				Message: fmt.Sprintf("Order %s has %d invoices: [%s]",
					c.Order.OrderID, len(c.Invoices), strings.Join(ids, ", ")),
				ExpectedValue: "1",
				ActualValue:   fmt.Sprintf("%d", len(c.Invoices)),
			}, nil
		})
}

// PaymentCompleteness (OIC-004) flags an invoice marked paid whose payments
// do not cover its total.
func PaymentCompleteness() Rule {
	return NewRule("OIC-004", "Payment Completeness", CategoryOrderInvoice, SeverityHigh,
		func(c *Context) (*Violation, error) {
			if c.Invoice == nil || c.Invoice.Status != records.InvoicePaid {
				return nil, nil
			}
			paid := decimal.Zero
			for _, p := range c.Payments {
				paid = paid.Add(p.Amount)
			}
			if paid.LessThan(c.Invoice.TotalAmount) {
				return &Violation{
					Message: fmt.Sprintf("Invoice %s marked 'paid' but payments sum (%s) < total (%s)",
						c.Invoice.InvoiceID, money(paid), money(c.Invoice.TotalAmount)),
					ExpectedValue: money(c.Invoice.TotalAmount),
					ActualValue:   money(paid),
				}, nil
			}
			return nil, nil
		})
}

// StaleInvoice (OIC-005) flags an open invoice more than 60 days past due.
func StaleInvoice() Rule {
	return NewRule("OIC-005", "Stale Invoice", CategoryOrderInvoice, SeverityMedium,
		func(c *Context) (*Violation, error) {
			if c.Invoice == nil || c.Now.IsZero() || c.Invoice.DueDate.IsZero() {
				return nil, nil
			}
			if c.Invoice.Status == records.InvoicePaid || c.Invoice.Status == records.InvoiceVoid {
				return nil, nil
			}
			days := daysBetween(c.Invoice.DueDate, c.Now)
			if days > staleAfterDays {
				return &Violation{
					Message:       fmt.Sprintf("Invoice %s is %d days past due date", c.Invoice.InvoiceID, days),
					ExpectedValue: fmt.Sprintf("<= %d days", staleAfterDays),
					ActualValue:   fmt.Sprintf("%d days", days),
				}, nil
			}
			return nil, nil
		})
}

// daysBetween counts whole calendar days (UTC) from a to b.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}
