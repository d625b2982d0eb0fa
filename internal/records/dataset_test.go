package records

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDataset = `
orders:
  - order_id: ORD-1
    discount_pct: 20
    approval_status: pending
    order_date: 2025-01-05
    line_items:
      - product_id: P-1
        product_name: Widget
        quantity: 4
        unit_price: 250
  - order_id: " ORD-2 "
    total_amount: 500
    order_status: fulfilled
    approval_status: approved
    order_date: "2025-01-07 08:15:00.000000"
invoices:
  - invoice_id: INV-1
    order_id: ORD-1
    total_amount: 800
    amount_paid: 300
    issue_date: 2025-01-06
    due_date: 2025-02-05
payments:
  - payment_id: PAY-1
    invoice_id: INV-1
    amount: 300
    payment_method: wire
    payment_date: 2025-01-20T10:00:00Z
ledger_entries:
  - entry_id: E-1
    invoice_id: INV-1
    debit: 800
    credit: 0
    posted_date: 2025-01-06
`

func TestParseDataset_FillsDerivedValues(t *testing.T) {
	ds, err := ParseDataset([]byte(sampleDataset))
	require.NoError(t, err)

	require.Len(t, ds.Orders, 2)
	o := ds.Orders[0]
	assert.True(t, o.Subtotal.Equal(dec("1000")), "subtotal from line items")
	assert.True(t, o.DiscountAmount.Equal(dec("200")))
	assert.True(t, o.TotalAmount.Equal(dec("800")))
	assert.Equal(t, OrderConfirmed, o.OrderStatus, "default status")
	assert.True(t, o.LineItems[0].TotalPrice.Equal(dec("1000")))

	assert.Equal(t, "ORD-2", ds.Orders[1].OrderID, "ids are trimmed")
	assert.Equal(t, 8, ds.Orders[1].OrderDate.Hour())

	require.Len(t, ds.Invoices, 1)
	inv := ds.Invoices[0]
	assert.True(t, inv.AmountDue.Equal(dec("500")))
	assert.Equal(t, InvoiceSent, inv.Status)
	assert.Equal(t, "Net 30", inv.PaymentTerms)

	require.Len(t, ds.Payments, 1)
	assert.Equal(t, PaymentCompleted, ds.Payments[0].Status)
	require.Len(t, ds.LedgerEntries, 1)
	assert.Equal(t, AccountReceivable, ds.LedgerEntries[0].Account)
}

func TestParseDataset_NormalizesUnicodeIDs(t *testing.T) {
	// E followed by a combining acute accent composes to a single rune.
	ds, err := ParseDataset([]byte("orders:\n  - order_id: \"CAFE\u0301-1\"\n"))
	require.NoError(t, err)
	assert.Equal(t, "CAF\u00c9-1", ds.Orders[0].OrderID)
}

func TestParseDataset_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "orders:\n  - order_id: A\n    colour: red\n"},
		{"missing order id", "orders:\n  - total_amount: 10\n"},
		{"missing invoice id", "invoices:\n  - order_id: A\n"},
		{"bad date", "orders:\n  - order_id: A\n    order_date: yesterday\n"},
		{"bad amount", "orders:\n  - order_id: A\n    total_amount: lots\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataset([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadDataset_ApplyToStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleDataset), 0o644))

	ds, err := LoadDataset(path)
	require.NoError(t, err)

	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, ds.Apply(ctx, s))

	_, total, err := s.ListOrders(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	got, err := s.GetOrder(ctx, "ORD-1")
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(dec("800")))

	payments, err := s.ListPayments(ctx)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestLoadDataset_MissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
