package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recon/internal/audit"
	"github.com/roach88/recon/internal/records"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixedClock time.Time

func (c fixedClock) Now() time.Time { return time.Time(c) }

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// cleanOrder returns an approved order with two units that passes every
// pricing rule.
func cleanOrder(id, total string) records.Order {
	return records.Order{
		OrderID:        id,
		OpportunityID:  "OPP-" + id,
		ContactID:      "CON-1",
		Subtotal:       dec(total),
		DiscountPct:    decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalAmount:    dec(total),
		ApprovalStatus: records.ApprovalApproved,
		OrderStatus:    records.OrderConfirmed,
		OrderDate:      testNow.AddDate(0, 0, -5),
		LineItems: []records.LineItem{
			{ProductID: "P-1", ProductName: "Widget", Quantity: 2,
				UnitPrice: dec(total).Div(decimal.NewFromInt(2)), TotalPrice: dec(total)},
		},
	}
}

// sentInvoice returns an open invoice that is not yet due.
func sentInvoice(id, orderID, total string) records.Invoice {
	return records.Invoice{
		InvoiceID:    id,
		OrderID:      orderID,
		CustomerID:   "CON-1",
		Subtotal:     dec(total),
		TaxAmount:    decimal.Zero,
		TotalAmount:  dec(total),
		AmountPaid:   decimal.Zero,
		AmountDue:    dec(total),
		Status:       records.InvoiceSent,
		IssueDate:    testNow.AddDate(0, 0, -4).Truncate(24 * time.Hour),
		DueDate:      testNow.AddDate(0, 0, 26).Truncate(24 * time.Hour),
		PaymentTerms: "Net 30",
	}
}

func seed(t *testing.T, orders []records.Order, invoices []records.Invoice) *records.Memory {
	t.Helper()
	ctx := context.Background()
	m := records.NewMemory()
	for _, o := range orders {
		require.NoError(t, m.InsertOrder(ctx, o))
	}
	for _, inv := range invoices {
		require.NoError(t, m.InsertInvoice(ctx, inv))
	}
	return m
}

func newAuditLogger(t *testing.T) *audit.Logger {
	t.Helper()
	store, err := audit.Open(filepath.Join(t.TempDir(), "audit"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return audit.NewLogger(store, audit.WithClock(func() time.Time { return testNow }))
}

func newTestReconciler(m *records.Memory, opts ...Option) *Reconciler {
	base := []Option{WithClock(fixedClock(testNow))}
	return New(m, m, append(base, opts...)...)
}

// flakyOrders fails GetOrder for one id and delegates everything else.
type flakyOrders struct {
	records.OrderSource
	failID string
}

var errCRMDown = errors.New("crm unavailable")

func (f flakyOrders) GetOrder(ctx context.Context, id string) (records.Order, error) {
	if id == f.failID {
		return records.Order{}, errCRMDown
	}
	return f.OrderSource.GetOrder(ctx, id)
}

// failingFinance errors on every read.
type failingFinance struct{}

var errLedgerDown = errors.New("finance unavailable")

func (failingFinance) ListInvoices(context.Context) ([]records.Invoice, error) {
	return nil, errLedgerDown
}

func (failingFinance) ListPayments(context.Context) ([]records.Payment, error) {
	return nil, errLedgerDown
}

func (failingFinance) ListLedgerEntries(context.Context) ([]records.LedgerEntry, error) {
	return nil, errLedgerDown
}
