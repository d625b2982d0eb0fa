package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/records"
)

var evalNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// cleanContext returns an order with one matching, balanced invoice that
// passes every rule.
func cleanContext() *Context {
	order := records.Order{
		OrderID:        "ORD-1",
		TotalAmount:    dec("1000"),
		Subtotal:       dec("1000"),
		DiscountPct:    dec("5"),
		ApprovalStatus: records.ApprovalPending,
		OrderStatus:    records.OrderConfirmed,
		LineItems: []records.LineItem{
			{ProductID: "P-1", Quantity: 10, UnitPrice: dec("100"), TotalPrice: dec("1000")},
		},
	}
	inv := records.Invoice{
		InvoiceID:   "INV-1",
		OrderID:     "ORD-1",
		TotalAmount: dec("1000"),
		Status:      records.InvoiceSent,
		DueDate:     evalNow.AddDate(0, 0, 10),
	}
	return &Context{
		Order:    order,
		Invoice:  &inv,
		Invoices: []records.Invoice{inv},
		LedgerEntries: []records.LedgerEntry{
			{EntryID: "E-1", InvoiceID: "INV-1", Account: records.AccountReceivable, Debit: dec("1000"), Credit: decimal.Zero},
			{EntryID: "E-2", InvoiceID: "INV-1", Account: records.AccountRevenue, Debit: decimal.Zero, Credit: dec("1000")},
		},
		Now: evalNow,
	}
}

func withInvoice(c *Context, mutate func(inv *records.Invoice)) *Context {
	inv := *c.Invoice
	mutate(&inv)
	c.Invoice = &inv
	c.Invoices = []records.Invoice{inv}
	return c
}

func TestDefaultRegistry_CleanContextPassesEverything(t *testing.T) {
	out := NewEvaluator(DefaultRegistry()).Evaluate(cleanContext())
	assert.Empty(t, out.Violations)
	assert.Empty(t, out.Skipped)
}

func TestRules(t *testing.T) {
	tests := []struct {
		name     string
		rule     Rule
		ctx      func() *Context
		violates bool
		expected string
		actual   string
	}{
		{
			name: "PRC-001 unapproved discount over 15",
			rule: DiscountThreshold(),
			ctx: func() *Context {
				c := cleanContext()
				c.Order.DiscountPct = dec("20")
				return c
			},
			violates: true,
			expected: "approved",
			actual:   "pending",
		},
		{
			name: "PRC-001 approved discount",
			rule: DiscountThreshold(),
			ctx: func() *Context {
				c := cleanContext()
				c.Order.DiscountPct = dec("40")
				c.Order.ApprovalStatus = records.ApprovalApproved
				return c
			},
		},
		{
			name: "PRC-001 exactly 15 is allowed",
			rule: DiscountThreshold(),
			ctx: func() *Context {
				c := cleanContext()
				c.Order.DiscountPct = dec("15")
				return c
			},
		},
		{
			name: "PRC-002 zero unit price has no margin",
			rule: MarginProtection(),
			ctx: func() *Context {
				c := cleanContext()
				c.Order.LineItems = append(c.Order.LineItems, records.LineItem{ProductID: "FREE", Quantity: 1})
				return c
			},
			violates: true,
			expected: ">=10%",
			actual:   "0.00%",
		},
		{
			name:     "PRC-002 assumed cost leaves exactly 10%",
			rule:     MarginProtection(),
			ctx:      cleanContext,
			violates: false,
		},
		{
			name: "PRC-003 drift above 1%",
			rule: PriceConsistency(),
			ctx: func() *Context {
				return withInvoice(cleanContext(), func(inv *records.Invoice) { inv.TotalAmount = dec("1011") })
			},
			violates: true,
			expected: "1000.00",
			actual:   "1011.00",
		},
		{
			name: "PRC-003 drift of exactly 1%",
			rule: PriceConsistency(),
			ctx: func() *Context {
				return withInvoice(cleanContext(), func(inv *records.Invoice) { inv.TotalAmount = dec("990") })
			},
		},
		{
			name: "PRC-003 zero order total",
			rule: PriceConsistency(),
			ctx: func() *Context {
				c := cleanContext()
				c.Order.TotalAmount = decimal.Zero
				return c
			},
		},
		{
			name: "PRC-004 bulk without discount",
			rule: BulkPriceValidation(),
			ctx: func() *Context {
				c := cleanContext()
				c.Order.DiscountPct = decimal.Zero
				c.Order.LineItems[0].Quantity = 101
				return c
			},
			violates: true,
			expected: "discount > 0%",
			actual:   "0%",
		},
		{
			name: "PRC-004 bulk with discount",
			rule: BulkPriceValidation(),
			ctx: func() *Context {
				c := cleanContext()
				c.Order.LineItems[0].Quantity = 500
				return c
			},
		},
		{
			name: "OIC-001 no invoice",
			rule: OrderInvoiceMapping(),
			ctx: func() *Context {
				c := cleanContext()
				c.Invoice = nil
				c.Invoices = nil
				return c
			},
			violates: true,
			expected: ">=1 invoice",
			actual:   "0",
		},
		{
			name: "OIC-002 mismatch",
			rule: AmountMatching(),
			ctx: func() *Context {
				return withInvoice(cleanContext(), func(inv *records.Invoice) { inv.TotalAmount = dec("1000.02") })
			},
			violates: true,
			expected: "1000.00",
			actual:   "1000.02",
		},
		{
			name: "OIC-002 within tolerance",
			rule: AmountMatching(),
			ctx: func() *Context {
				return withInvoice(cleanContext(), func(inv *records.Invoice) { inv.TotalAmount = dec("1000.01") })
			},
		},
		{
			name: "OIC-003 two invoices",
			rule: DuplicateInvoice(),
			ctx: func() *Context {
				c := cleanContext()
				c.Invoices = append(c.Invoices, records.Invoice{InvoiceID: "INV-2", OrderID: "ORD-1"})
				return c
			},
			violates: true,
			expected: "1",
			actual:   "2",
		},
		{
			name: "OIC-004 paid but underpaid",
			rule: PaymentCompleteness(),
			ctx: func() *Context {
				c := withInvoice(cleanContext(), func(inv *records.Invoice) { inv.Status = records.InvoicePaid })
				c.Payments = []records.Payment{{PaymentID: "P-1", Amount: dec("400")}, {PaymentID: "P-2", Amount: dec("500")}}
				return c
			},
			violates: true,
			expected: "1000.00",
			actual:   "900.00",
		},
		{
			name: "OIC-004 paid in full",
			rule: PaymentCompleteness(),
			ctx: func() *Context {
				c := withInvoice(cleanContext(), func(inv *records.Invoice) { inv.Status = records.InvoicePaid })
				c.Payments = []records.Payment{{PaymentID: "P-1", Amount: dec("1000")}}
				return c
			},
		},
		{
			name: "OIC-005 61 days past due",
			rule: StaleInvoice(),
			ctx: func() *Context {
				return withInvoice(cleanContext(), func(inv *records.Invoice) { inv.DueDate = evalNow.AddDate(0, 0, -61) })
			},
			violates: true,
			expected: "<= 60 days",
			actual:   "61 days",
		},
		{
			name: "OIC-005 60 days past due",
			rule: StaleInvoice(),
			ctx: func() *Context {
				return withInvoice(cleanContext(), func(inv *records.Invoice) { inv.DueDate = evalNow.AddDate(0, 0, -60) })
			},
		},
		{
			name: "OIC-005 void invoice is never stale",
			rule: StaleInvoice(),
			ctx: func() *Context {
				return withInvoice(cleanContext(), func(inv *records.Invoice) {
					inv.DueDate = evalNow.AddDate(-1, 0, 0)
					inv.Status = records.InvoiceVoid
				})
			},
		},
		{
			name: "CSI-001 is a no-op per order",
			rule: GhostInvoice(),
			ctx: func() *Context {
				c := cleanContext()
				c.Invoice = nil
				c.Invoices = nil
				return c
			},
		},
		{
			name: "CSI-002 fulfilled order with overdue invoice",
			rule: StatusSynchronization(),
			ctx: func() *Context {
				c := withInvoice(cleanContext(), func(inv *records.Invoice) { inv.Status = records.InvoiceOverdue })
				c.Order.OrderStatus = records.OrderFulfilled
				return c
			},
			violates: true,
			expected: "paid or sent",
			actual:   "overdue",
		},
		{
			name: "CSI-003 unbalanced ledger",
			rule: LedgerBalance(),
			ctx: func() *Context {
				c := cleanContext()
				c.LedgerEntries[1].Credit = dec("999.98")
				return c
			},
			violates: true,
			expected: "1000.00",
			actual:   "999.98",
		},
		{
			name: "CSI-003 no ledger entries",
			rule: LedgerBalance(),
			ctx: func() *Context {
				c := cleanContext()
				c.LedgerEntries = nil
				return c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := tt.rule.Evaluate(tt.ctx())
			require.NoError(t, err)
			if !tt.violates {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Equal(t, tt.rule.ID, v.RuleID)
			assert.Equal(t, tt.rule.Name, v.RuleName)
			assert.Equal(t, tt.rule.Severity, v.Severity)
			assert.Equal(t, tt.rule.Weight(), v.Weight)
			assert.NotEmpty(t, v.Message)
			assert.Equal(t, tt.expected, v.ExpectedValue)
			assert.Equal(t, tt.actual, v.ActualValue)
		})
	}
}

func TestRules_MissingInvoiceNeverFails(t *testing.T) {
	c := cleanContext()
	c.Invoice = nil
	c.Invoices = nil
	c.LedgerEntries = nil

	for _, rule := range DefaultRegistry().All() {
		if rule.ID == "OIC-001" {
			continue
		}
		v, err := rule.Evaluate(c)
		assert.NoError(t, err, rule.ID)
		assert.Nil(t, v, rule.ID)
	}
}

func TestRules_DoNotMutateContext(t *testing.T) {
	c := withInvoice(cleanContext(), func(inv *records.Invoice) { inv.TotalAmount = dec("1") })
	before := *c
	beforeInvoice := *c.Invoice

	NewEvaluator(DefaultRegistry()).Evaluate(c)

	assert.Equal(t, before.Order.OrderID, c.Order.OrderID)
	assert.True(t, before.Order.TotalAmount.Equal(c.Order.TotalAmount))
	assert.Equal(t, beforeInvoice, *c.Invoice)
	assert.Len(t, c.Invoices, 1)
}

func TestSeverityWeights(t *testing.T) {
	assert.Equal(t, 30, SeverityCritical.Weight())
	assert.Equal(t, 20, SeverityHigh.Weight())
	assert.Equal(t, 10, SeverityMedium.Weight())
	assert.Equal(t, 5, SeverityLow.Weight())
	assert.Equal(t, 0, Severity("unknown").Weight())

	assert.True(t, SeverityHigh.IsFailure())
	assert.False(t, SeverityMedium.IsFailure())
}

func TestGhostInvoiceViolation(t *testing.T) {
	v := GhostInvoiceViolation(records.Invoice{InvoiceID: "INV-9", OrderID: "ORD-404"})

	assert.Equal(t, GhostInvoiceID, v.RuleID)
	assert.Equal(t, "Ghost Invoice", v.RuleName)
	assert.Equal(t, SeverityCritical, v.Severity)
	assert.Equal(t, 30, v.Weight)
	assert.Equal(t, "Invoice INV-9 references order ORD-404 that does not exist in CRM", v.Message)
}
