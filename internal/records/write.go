package records

import (
	"context"
	"fmt"
)

// InsertOrder inserts an order and its line items in one transaction.
// Uses ON CONFLICT(order_id) DO NOTHING for idempotency - a duplicate order
// id leaves the stored order and its line items untouched.
func (s *Store) InsertOrder(ctx context.Context, o Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert order: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	approvedAt := ""
	if o.ApprovedAt != nil {
		approvedAt = formatTime(*o.ApprovedAt)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO orders
		(order_id, opportunity_id, contact_id, subtotal, discount_pct, discount_amount,
		 total_amount, approval_status, order_status, order_date, approved_by, approved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(order_id) DO NOTHING
	`,
		o.OrderID,
		o.OpportunityID,
		o.ContactID,
		o.Subtotal.String(),
		o.DiscountPct.String(),
		o.DiscountAmount.String(),
		o.TotalAmount.String(),
		o.ApprovalStatus,
		o.OrderStatus,
		formatTime(o.OrderDate),
		o.ApprovedBy,
		approvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert order: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return tx.Commit()
	}

	for i, item := range o.LineItems {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_line_items
			(order_id, position, product_id, product_name, quantity, unit_price, total_price)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			o.OrderID,
			i,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPrice.String(),
			item.TotalPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order: line item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert order: commit: %w", err)
	}
	return nil
}

// InsertInvoice inserts an invoice. Duplicate invoice ids are silently ignored.
func (s *Store) InsertInvoice(ctx context.Context, inv Invoice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices
		(invoice_id, order_id, customer_id, subtotal, tax_amount, total_amount,
		 amount_paid, amount_due, status, issue_date, due_date, payment_terms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(invoice_id) DO NOTHING
	`,
		inv.InvoiceID,
		inv.OrderID,
		inv.CustomerID,
		inv.Subtotal.String(),
		inv.TaxAmount.String(),
		inv.TotalAmount.String(),
		inv.AmountPaid.String(),
		inv.AmountDue.String(),
		inv.Status,
		formatDate(inv.IssueDate),
		formatDate(inv.DueDate),
		inv.PaymentTerms,
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// UpdateInvoice rewrites amount_paid, amount_due and status of an invoice.
// Returns ErrNotFound (wrapped) if the invoice does not exist.
func (s *Store) UpdateInvoice(ctx context.Context, inv Invoice) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE invoices
		SET amount_paid = ?, amount_due = ?, status = ?
		WHERE invoice_id = ?
	`,
		inv.AmountPaid.String(),
		inv.AmountDue.String(),
		inv.Status,
		inv.InvoiceID,
	)
	if err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update invoice: rows affected: %w", err)
	}
	if n == 0 {
		return notFound("invoice", inv.InvoiceID)
	}
	return nil
}

// InsertPayment inserts a payment. Duplicate payment ids are silently ignored.
func (s *Store) InsertPayment(ctx context.Context, p Payment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO payments
		(payment_id, invoice_id, amount, method, payment_date, status, reference_number)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(payment_id) DO NOTHING
	`,
		p.PaymentID,
		p.InvoiceID,
		p.Amount.String(),
		p.Method,
		formatTime(p.PaymentDate),
		p.Status,
		p.ReferenceNumber,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

// InsertLedgerEntry appends a ledger entry. Duplicate entry ids are silently ignored.
func (s *Store) InsertLedgerEntry(ctx context.Context, e LedgerEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries
		(entry_id, invoice_id, payment_id, account, debit, credit, description, posted_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entry_id) DO NOTHING
	`,
		e.EntryID,
		e.InvoiceID,
		e.PaymentID,
		e.Account,
		e.Debit.String(),
		e.Credit.String(),
		e.Description,
		formatTime(e.PostedDate),
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}
