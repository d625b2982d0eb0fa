package records

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// createTestStore creates a new SQLite store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// createTestOrder creates an order with one line item.
func createTestOrder(id, total string) Order {
	return Order{
		OrderID:        id,
		OpportunityID:  "OPP-" + id,
		ContactID:      "CON-1",
		Subtotal:       dec(total),
		DiscountPct:    decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalAmount:    dec(total),
		ApprovalStatus: ApprovalApproved,
		OrderStatus:    OrderConfirmed,
		OrderDate:      time.Date(2025, 1, 5, 10, 30, 0, 0, time.UTC),
		LineItems: []LineItem{
			{ProductID: "P-1", ProductName: "Widget", Quantity: 2, UnitPrice: dec(total).Div(decimal.NewFromInt(2)), TotalPrice: dec(total)},
		},
	}
}

// createTestInvoice creates a sent invoice for orderID.
func createTestInvoice(id, orderID, total string) Invoice {
	return Invoice{
		InvoiceID:    id,
		OrderID:      orderID,
		CustomerID:   "CON-1",
		Subtotal:     dec(total),
		TaxAmount:    decimal.Zero,
		TotalAmount:  dec(total),
		AmountPaid:   decimal.Zero,
		AmountDue:    dec(total),
		Status:       InvoiceSent,
		IssueDate:    day("2025-01-06"),
		DueDate:      day("2025-02-05"),
		PaymentTerms: "Net 30",
	}
}
