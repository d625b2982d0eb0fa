package records

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_OrdersInInsertionOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, id := range []string{"B", "A", "C"} {
		require.NoError(t, m.InsertOrder(ctx, createTestOrder(id, "1")))
	}
	require.NoError(t, m.InsertOrder(ctx, createTestOrder("A", "2")))

	orders, total, err := m.ListOrders(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, orders, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{orders[0].OrderID, orders[1].OrderID, orders[2].OrderID})

	a, err := m.GetOrder(ctx, "A")
	require.NoError(t, err)
	assert.True(t, a.TotalAmount.Equal(dec("1")), "duplicate insert ignored")
}

func TestMemory_GetOrder_NotFound(t *testing.T) {
	_, err := NewMemory().GetOrder(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InsertInvoice(ctx, createTestInvoice("INV-1", "ORD-1", "10")))

	invoices, err := m.ListInvoices(ctx)
	require.NoError(t, err)
	invoices[0].Status = InvoiceVoid

	again, err := m.ListInvoices(ctx)
	require.NoError(t, err)
	assert.Equal(t, InvoiceSent, again[0].Status)
}

func TestMemory_UpdateInvoice(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InsertInvoice(ctx, createTestInvoice("INV-1", "ORD-1", "10")))

	inv := createTestInvoice("INV-1", "ORD-1", "10")
	inv.AmountPaid = dec("4")
	inv.AmountDue = dec("6")
	inv.Status = InvoicePartial
	inv.CustomerID = "CON-OTHER"
	require.NoError(t, m.UpdateInvoice(ctx, inv))

	got, err := m.GetInvoice(ctx, "INV-1")
	require.NoError(t, err)
	assert.Equal(t, InvoicePartial, got.Status)
	assert.True(t, got.AmountDue.Equal(dec("6")))
	assert.Equal(t, "CON-1", got.CustomerID, "only settlement fields change")

	assert.ErrorIs(t, m.UpdateInvoice(ctx, createTestInvoice("INV-2", "ORD-1", "1")), ErrNotFound)
}

func TestMemory_ConcurrentInserts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.InsertLedgerEntry(ctx, LedgerEntry{EntryID: string(rune('a' + i%26)), Account: AccountCash})
		}(i)
	}
	wg.Wait()

	entries, err := m.ListLedgerEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 26)
}
