package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger posts double-entry bookkeeping records into a Book.
//
// Every posting appends a balanced pair of entries. Nothing is ever edited:
// a void is recorded as new entries with debit and credit swapped.
type Ledger struct {
	book  Book
	now   func() time.Time
	newID func() string
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithLedgerClock overrides the posting timestamp source.
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// WithEntryIDs overrides the ledger entry id generator.
func WithEntryIDs(newID func() string) LedgerOption {
	return func(l *Ledger) { l.newID = newID }
}

// NewLedger creates a ledger over book.
func NewLedger(book Book, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		book:  book,
		now:   func() time.Time { return time.Now().UTC() },
		newID: defaultEntryID,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// defaultEntryID returns ids of the form LEDG-1A2B3C4D.
func defaultEntryID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "LEDG-" + strings.ToUpper(hex[:8])
}

// RecordInvoice posts accounts receivable (debit) against revenue (credit).
func (l *Ledger) RecordInvoice(ctx context.Context, inv Invoice) error {
	now := l.now()
	entries := []LedgerEntry{
		{
			EntryID:     l.newID(),
			InvoiceID:   inv.InvoiceID,
			Account:     AccountReceivable,
			Debit:       inv.TotalAmount,
			Credit:      decimal.Zero,
			Description: fmt.Sprintf("Invoice %s Created - AR", inv.InvoiceID),
			PostedDate:  now,
		},
		{
			EntryID:     l.newID(),
			InvoiceID:   inv.InvoiceID,
			Account:     AccountRevenue,
			Debit:       decimal.Zero,
			Credit:      inv.TotalAmount,
			Description: fmt.Sprintf("Invoice %s Created - Revenue", inv.InvoiceID),
			PostedDate:  now,
		},
	}
	return l.post(ctx, entries)
}

// RecordPayment settles part or all of an invoice. It stores the payment,
// moves the invoice to partial or paid, and posts cash (debit) against
// accounts receivable (credit).
//
// Returns a ConflictError when the amount is not positive, the payment id was
// already recorded, the invoice is void, or the payment exceeds the invoice's
// amount due. Returns ErrNotFound (wrapped) when the invoice does not exist.
func (l *Ledger) RecordPayment(ctx context.Context, p Payment) error {
	if !p.Amount.IsPositive() {
		return &ConflictError{
			Code:    ConflictInvalidAmount,
			Message: fmt.Sprintf("payment %s amount must be positive, got %s", p.PaymentID, p.Amount),
		}
	}

	dup, err := l.paymentRecorded(ctx, p.PaymentID)
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	if dup {
		return &ConflictError{
			Code:    ConflictDuplicatePayment,
			Message: fmt.Sprintf("payment %s is already recorded", p.PaymentID),
		}
	}

	inv, err := l.book.GetInvoice(ctx, p.InvoiceID)
	if err != nil {
		return fmt.Errorf("record payment: %w", err)
	}
	if inv.Status == InvoiceVoid {
		return &ConflictError{
			Code:    ConflictInvoiceVoid,
			Message: fmt.Sprintf("invoice %s is void", inv.InvoiceID),
		}
	}
	if p.Amount.GreaterThan(inv.AmountDue) {
		return &ConflictError{
			Code:    ConflictOverpayment,
			Message: fmt.Sprintf("payment %s of %s exceeds amount due %s on invoice %s", p.PaymentID, p.Amount, inv.AmountDue, inv.InvoiceID),
		}
	}

	inv.AmountPaid = inv.AmountPaid.Add(p.Amount)
	inv.AmountDue = inv.AmountDue.Sub(p.Amount)
	if inv.AmountDue.IsZero() {
		inv.Status = InvoicePaid
	} else {
		inv.Status = InvoicePartial
	}
	if err := l.book.UpdateInvoice(ctx, inv); err != nil {
		return fmt.Errorf("record payment: %w", err)
	}

	now := l.now()
	if p.PaymentDate.IsZero() {
		p.PaymentDate = now
	}
	if p.Status == "" {
		p.Status = PaymentCompleted
	}
	if err := l.book.InsertPayment(ctx, p); err != nil {
		return fmt.Errorf("record payment: %w", err)
	}

	entries := []LedgerEntry{
		{
			EntryID:     l.newID(),
			InvoiceID:   p.InvoiceID,
			PaymentID:   p.PaymentID,
			Account:     AccountCash,
			Debit:       p.Amount,
			Credit:      decimal.Zero,
			Description: fmt.Sprintf("Payment %s Received - Cash", p.PaymentID),
			PostedDate:  now,
		},
		{
			EntryID:     l.newID(),
			InvoiceID:   p.InvoiceID,
			PaymentID:   p.PaymentID,
			Account:     AccountReceivable,
			Debit:       decimal.Zero,
			Credit:      p.Amount,
			Description: fmt.Sprintf("Payment %s Received - AR Reduction", p.PaymentID),
			PostedDate:  now,
		},
	}
	return l.post(ctx, entries)
}

// MarkOverdue moves every open invoice whose due date is before the calendar
// day of now and which still has an amount due to overdue. Paid, void and
// draft invoices are left alone. Returns the ids of the invoices it moved.
func (l *Ledger) MarkOverdue(ctx context.Context, now time.Time) ([]string, error) {
	invoices, err := l.book.ListInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("mark overdue: %w", err)
	}

	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var moved []string
	for _, inv := range invoices {
		switch inv.Status {
		case InvoicePaid, InvoiceVoid, InvoiceDraft, InvoiceOverdue:
			continue
		}
		if !inv.DueDate.Before(today) || !inv.AmountDue.IsPositive() {
			continue
		}
		inv.Status = InvoiceOverdue
		if err := l.book.UpdateInvoice(ctx, inv); err != nil {
			return moved, fmt.Errorf("mark overdue: %w", err)
		}
		moved = append(moved, inv.InvoiceID)
	}
	return moved, nil
}

const reversalPrefix = "Reversal for "

// ReverseInvoice voids an invoice in the ledger: every entry posted against
// it gets an offsetting entry, and the stored invoice moves to void. Entries
// that are themselves reversals, or were already reversed, are skipped.
// Returns the number of reversal entries written.
//
// Returns a ConflictError when the invoice is already void.
func (l *Ledger) ReverseInvoice(ctx context.Context, invoiceID string) (int, error) {
	inv, err := l.book.GetInvoice(ctx, invoiceID)
	known := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("reverse invoice: %w", err)
	}
	if known && inv.Status == InvoiceVoid {
		return 0, &ConflictError{
			Code:    ConflictInvoiceVoid,
			Message: fmt.Sprintf("invoice %s is already void", invoiceID),
		}
	}

	all, err := l.book.ListLedgerEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("reverse invoice: %w", err)
	}

	var posted []LedgerEntry
	reversed := make(map[string]bool)
	for _, e := range all {
		if e.InvoiceID != invoiceID {
			continue
		}
		if id, ok := reversedEntryID(e); ok {
			reversed[id] = true
			continue
		}
		posted = append(posted, e)
	}

	now := l.now()
	var reversals []LedgerEntry
	for _, e := range posted {
		if reversed[e.EntryID] {
			continue
		}
		reversals = append(reversals, LedgerEntry{
			EntryID:     l.newID(),
			InvoiceID:   invoiceID,
			PaymentID:   e.PaymentID,
			Account:     e.Account,
			Debit:       e.Credit,
			Credit:      e.Debit,
			Description: fmt.Sprintf("%s%s (Void/Refund)", reversalPrefix, e.EntryID),
			PostedDate:  now,
		})
	}
	if err := l.post(ctx, reversals); err != nil {
		return 0, err
	}

	if known && len(reversals) > 0 {
		inv.Status = InvoiceVoid
		if err := l.book.UpdateInvoice(ctx, inv); err != nil {
			return len(reversals), fmt.Errorf("reverse invoice: %w", err)
		}
	}
	return len(reversals), nil
}

// reversedEntryID returns the id of the entry e offsets, if e is a reversal.
func reversedEntryID(e LedgerEntry) (string, bool) {
	rest, ok := strings.CutPrefix(e.Description, reversalPrefix)
	if !ok {
		return "", false
	}
	id, _, _ := strings.Cut(rest, " ")
	return id, true
}

// Balances returns the running balance of every account.
// Asset accounts (receivable, cash, refunds) grow with debits; revenue grows
// with credits.
func (l *Ledger) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	entries, err := l.book.ListLedgerEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("balances: %w", err)
	}

	balances := map[string]decimal.Decimal{
		AccountReceivable: decimal.Zero,
		AccountRevenue:    decimal.Zero,
		AccountCash:       decimal.Zero,
		AccountRefunds:    decimal.Zero,
	}
	for _, e := range entries {
		switch e.Account {
		case AccountRevenue:
			balances[e.Account] = balances[e.Account].Add(e.Credit.Sub(e.Debit))
		default:
			balances[e.Account] = balances[e.Account].Add(e.Debit.Sub(e.Credit))
		}
	}
	return balances, nil
}

func (l *Ledger) paymentRecorded(ctx context.Context, paymentID string) (bool, error) {
	payments, err := l.book.ListPayments(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range payments {
		if p.PaymentID == paymentID {
			return true, nil
		}
	}
	return false, nil
}

func (l *Ledger) post(ctx context.Context, entries []LedgerEntry) error {
	for _, e := range entries {
		if err := l.book.InsertLedgerEntry(ctx, e); err != nil {
			return fmt.Errorf("post ledger entry %s: %w", e.EntryID, err)
		}
	}
	return nil
}
