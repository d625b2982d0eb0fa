package records

import "context"

// OrderSource is the read contract of the CRM collaborator.
type OrderSource interface {
	// GetOrder returns ErrNotFound (wrapped) when the order does not exist.
	GetOrder(ctx context.Context, orderID string) (Order, error)

	// ListOrders returns one page (1-based) of orders and the total order count.
	ListOrders(ctx context.Context, page, pageSize int) ([]Order, int, error)

	// OrderIDs returns the full set of known order ids.
	OrderIDs(ctx context.Context) (map[string]struct{}, error)
}

// FinanceSource is the read contract of the finance collaborator.
type FinanceSource interface {
	ListInvoices(ctx context.Context) ([]Invoice, error)
	ListPayments(ctx context.Context) ([]Payment, error)
	ListLedgerEntries(ctx context.Context) ([]LedgerEntry, error)
}

// Sink accepts new records. Inserts are idempotent on the record id.
type Sink interface {
	InsertOrder(ctx context.Context, o Order) error
	InsertInvoice(ctx context.Context, inv Invoice) error
	InsertPayment(ctx context.Context, p Payment) error
	InsertLedgerEntry(ctx context.Context, e LedgerEntry) error
}

// Book is what the ledger needs: invoice lookup and settlement, the existing
// postings and a place to append new ones.
type Book interface {
	FinanceSource
	GetInvoice(ctx context.Context, invoiceID string) (Invoice, error)

	// UpdateInvoice rewrites the settlement fields (amount paid, amount due,
	// status) of a stored invoice. Returns ErrNotFound (wrapped) when the
	// invoice does not exist.
	UpdateInvoice(ctx context.Context, inv Invoice) error

	InsertPayment(ctx context.Context, p Payment) error
	InsertLedgerEntry(ctx context.Context, e LedgerEntry) error
}

// normalizePage applies 1-based paging defaults and returns the slice bounds
// for total items.
func normalizePage(page, pageSize, total int) (start, end int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start = (page - 1) * pageSize
	if start > total {
		start = total
	}
	end = start + pageSize
	if end > total {
		end = total
	}
	return start, end
}
