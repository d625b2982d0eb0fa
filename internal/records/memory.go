package records

import (
	"context"
	"sync"
)

// Memory is an in-memory record store that iterates in insertion order.
//
// Thread-safety: all methods are safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	orders   map[string]Order
	orderSeq []string
	invoices []Invoice
	payments []Payment
	ledger   []LedgerEntry
	seen     map[string]struct{} // "kind:id" for idempotent inserts
}

var (
	_ OrderSource   = (*Memory)(nil)
	_ FinanceSource = (*Memory)(nil)
	_ Sink          = (*Memory)(nil)
	_ Book          = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		orders: make(map[string]Order),
		seen:   make(map[string]struct{}),
	}
}

func (m *Memory) claim(kind, id string) bool {
	key := kind + ":" + id
	if _, ok := m.seen[key]; ok {
		return false
	}
	m.seen[key] = struct{}{}
	return true
}

// InsertOrder stores an order. Duplicate ids are ignored.
func (m *Memory) InsertOrder(_ context.Context, o Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.claim("order", o.OrderID) {
		return nil
	}
	o.LineItems = append([]LineItem(nil), o.LineItems...)
	m.orders[o.OrderID] = o
	m.orderSeq = append(m.orderSeq, o.OrderID)
	return nil
}

// InsertInvoice stores an invoice. Duplicate ids are ignored.
func (m *Memory) InsertInvoice(_ context.Context, inv Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claim("invoice", inv.InvoiceID) {
		m.invoices = append(m.invoices, inv)
	}
	return nil
}

// UpdateInvoice replaces the settlement fields of a stored invoice.
func (m *Memory) UpdateInvoice(_ context.Context, inv Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.invoices {
		if m.invoices[i].InvoiceID == inv.InvoiceID {
			m.invoices[i].AmountPaid = inv.AmountPaid
			m.invoices[i].AmountDue = inv.AmountDue
			m.invoices[i].Status = inv.Status
			return nil
		}
	}
	return notFound("invoice", inv.InvoiceID)
}

// InsertPayment stores a payment. Duplicate ids are ignored.
func (m *Memory) InsertPayment(_ context.Context, p Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claim("payment", p.PaymentID) {
		m.payments = append(m.payments, p)
	}
	return nil
}

// InsertLedgerEntry appends a ledger entry. Duplicate ids are ignored.
func (m *Memory) InsertLedgerEntry(_ context.Context, e LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claim("ledger", e.EntryID) {
		m.ledger = append(m.ledger, e)
	}
	return nil
}

// GetOrder returns ErrNotFound (wrapped) when the order is unknown.
func (m *Memory) GetOrder(_ context.Context, orderID string) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderID]
	if !ok {
		return Order{}, notFound("order", orderID)
	}
	o.LineItems = append([]LineItem(nil), o.LineItems...)
	return o, nil
}

// ListOrders returns one page of orders in insertion order plus the total count.
func (m *Memory) ListOrders(_ context.Context, page, pageSize int) ([]Order, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := len(m.orderSeq)
	start, end := normalizePage(page, pageSize, total)
	out := make([]Order, 0, end-start)
	for _, id := range m.orderSeq[start:end] {
		out = append(out, m.orders[id])
	}
	return out, total, nil
}

// OrderIDs returns the set of every known order id.
func (m *Memory) OrderIDs(_ context.Context) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make(map[string]struct{}, len(m.orders))
	for id := range m.orders {
		ids[id] = struct{}{}
	}
	return ids, nil
}

// GetInvoice returns ErrNotFound (wrapped) when the invoice is unknown.
func (m *Memory) GetInvoice(_ context.Context, invoiceID string) (Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inv := range m.invoices {
		if inv.InvoiceID == invoiceID {
			return inv, nil
		}
	}
	return Invoice{}, notFound("invoice", invoiceID)
}

// ListInvoices returns a copy of every invoice in insertion order.
func (m *Memory) ListInvoices(_ context.Context) ([]Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Invoice{}, m.invoices...), nil
}

// ListPayments returns a copy of every payment in insertion order.
func (m *Memory) ListPayments(_ context.Context) ([]Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Payment{}, m.payments...), nil
}

// ListLedgerEntries returns a copy of every ledger entry in posting order.
func (m *Memory) ListLedgerEntries(_ context.Context) ([]LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]LedgerEntry{}, m.ledger...), nil
}
