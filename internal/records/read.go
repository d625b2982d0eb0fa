package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const orderColumns = `order_id, opportunity_id, contact_id, subtotal, discount_pct, discount_amount,
	total_amount, approval_status, order_status, order_date, approved_by, approved_at`

const invoiceColumns = `invoice_id, order_id, customer_id, subtotal, tax_amount, total_amount,
	amount_paid, amount_due, status, issue_date, due_date, payment_terms`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetOrder retrieves a single order with its line items.
// Returns ErrNotFound (wrapped) if the order does not exist.
func (s *Store) GetOrder(ctx context.Context, orderID string) (Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = ?`, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, notFound("order", orderID)
	}
	if err != nil {
		return Order{}, fmt.Errorf("get order: %w", err)
	}

	items, err := s.readLineItems(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	o.LineItems = items
	return o, nil
}

// ListOrders returns one page of orders in insertion order plus the total count.
// Results are ordered deterministically: ORDER BY seq ASC.
func (s *Store) ListOrders(ctx context.Context, page, pageSize int) ([]Order, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	start, end := normalizePage(page, pageSize, total)
	if start == end {
		return []Order{}, total, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY seq ASC
		LIMIT ? OFFSET ?
	`, end-start, start)
	if err != nil {
		return nil, 0, fmt.Errorf("query orders: %w", err)
	}

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	// Release the single connection before the line item queries
	rows.Close()

	for i := range orders {
		items, err := s.readLineItems(ctx, orders[i].OrderID)
		if err != nil {
			return nil, 0, err
		}
		orders[i].LineItems = items
	}

	if orders == nil {
		orders = []Order{}
	}
	return orders, total, nil
}

// OrderIDs returns the set of every stored order id.
func (s *Store) OrderIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT order_id FROM orders`)
	if err != nil {
		return nil, fmt.Errorf("query order ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan order id: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order ids: %w", err)
	}
	return ids, nil
}

func (s *Store) readLineItems(ctx context.Context, orderID string) ([]LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, quantity, unit_price, total_price
		FROM order_line_items
		WHERE order_id = ?
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	items := []LineItem{}
	for rows.Next() {
		var item LineItem
		var unitPrice, totalPrice string
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &unitPrice, &totalPrice); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		if item.UnitPrice, err = parseDecimal(unitPrice); err != nil {
			return nil, err
		}
		if item.TotalPrice, err = parseDecimal(totalPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}
	return items, nil
}

// GetInvoice retrieves a single invoice by id.
// Returns ErrNotFound (wrapped) if the invoice does not exist.
func (s *Store) GetInvoice(ctx context.Context, invoiceID string) (Invoice, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE invoice_id = ?`, invoiceID)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Invoice{}, notFound("invoice", invoiceID)
	}
	if err != nil {
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// ListInvoices returns every invoice in insertion order.
func (s *Store) ListInvoices(ctx context.Context) ([]Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return invoices, nil
}

// ListPayments returns every payment in insertion order.
func (s *Store) ListPayments(ctx context.Context) ([]Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_id, invoice_id, amount, method, payment_date, status, reference_number
		FROM payments
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		var p Payment
		var amount, paymentDate string
		if err := rows.Scan(&p.PaymentID, &p.InvoiceID, &amount, &p.Method, &paymentDate, &p.Status, &p.ReferenceNumber); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		if p.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if p.PaymentDate, err = parseTime(paymentDate); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

// ListLedgerEntries returns every ledger entry in posting order.
func (s *Store) ListLedgerEntries(ctx context.Context) ([]LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entry_id, invoice_id, payment_id, account, debit, credit, description, posted_date
		FROM ledger_entries
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []LedgerEntry{}
	for rows.Next() {
		var e LedgerEntry
		var debit, credit, posted string
		if err := rows.Scan(&e.EntryID, &e.InvoiceID, &e.PaymentID, &e.Account, &debit, &credit, &e.Description, &posted); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.Debit, err = parseDecimal(debit); err != nil {
			return nil, err
		}
		if e.Credit, err = parseDecimal(credit); err != nil {
			return nil, err
		}
		if e.PostedDate, err = parseTime(posted); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return entries, nil
}

// scanOrder scans an order row (without line items).
func scanOrder(row rowScanner) (Order, error) {
	var o Order
	var subtotal, discountPct, discountAmount, total, orderDate, approvedAt string
	if err := row.Scan(
		&o.OrderID, &o.OpportunityID, &o.ContactID, &subtotal, &discountPct, &discountAmount,
		&total, &o.ApprovalStatus, &o.OrderStatus, &orderDate, &o.ApprovedBy, &approvedAt,
	); err != nil {
		return Order{}, err
	}

	var err error
	if o.Subtotal, err = parseDecimal(subtotal); err != nil {
		return Order{}, err
	}
	if o.DiscountPct, err = parseDecimal(discountPct); err != nil {
		return Order{}, err
	}
	if o.DiscountAmount, err = parseDecimal(discountAmount); err != nil {
		return Order{}, err
	}
	if o.TotalAmount, err = parseDecimal(total); err != nil {
		return Order{}, err
	}
	if o.OrderDate, err = parseTime(orderDate); err != nil {
		return Order{}, err
	}
	if approvedAt != "" {
		t, err := parseTime(approvedAt)
		if err != nil {
			return Order{}, err
		}
		o.ApprovedAt = &t
	}
	return o, nil
}

// scanInvoice scans an invoice row.
func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	var subtotal, tax, total, paid, due, issue, dueDate string
	if err := row.Scan(
		&inv.InvoiceID, &inv.OrderID, &inv.CustomerID, &subtotal, &tax, &total,
		&paid, &due, &inv.Status, &issue, &dueDate, &inv.PaymentTerms,
	); err != nil {
		return Invoice{}, err
	}

	var err error
	if inv.Subtotal, err = parseDecimal(subtotal); err != nil {
		return Invoice{}, err
	}
	if inv.TaxAmount, err = parseDecimal(tax); err != nil {
		return Invoice{}, err
	}
	if inv.TotalAmount, err = parseDecimal(total); err != nil {
		return Invoice{}, err
	}
	if inv.AmountPaid, err = parseDecimal(paid); err != nil {
		return Invoice{}, err
	}
	if inv.AmountDue, err = parseDecimal(due); err != nil {
		return Invoice{}, err
	}
	if inv.IssueDate, err = parseDate(issue); err != nil {
		return Invoice{}, err
	}
	if inv.DueDate, err = parseDate(dueDate); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}
