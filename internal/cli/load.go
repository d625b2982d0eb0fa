package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/audit"
	"github.com/roach88/recon/internal/records"
)

// LoadOptions holds flags for the load command.
type LoadOptions struct {
	*RootOptions
	PostLedger bool
}

// LoadSummary reports what a load wrote.
type LoadSummary struct {
	Dataset       string   `json:"dataset"`
	Orders        int      `json:"orders"`
	Invoices      int      `json:"invoices"`
	Payments      int      `json:"payments"`
	LedgerEntries int      `json:"ledger_entries"`
	Posted        int      `json:"posted_invoices"`
	Rejected      []string `json:"rejected"`
}

// NewLoadCommand creates the load command.
func NewLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoadOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <dataset.yaml>",
		Short: "Seed the records database from a dataset file",
		Long: `Load orders, invoices, payments and ledger entries from a YAML dataset
into the SQLite records database. Every record written is noted in the
audit trail.

With --post-ledger, invoices that have no ledger entries get their
receivable and revenue postings, and payments go through the ledger:
payments that exceed the amount due, target a void invoice or name an
unknown invoice are rejected and reported.

Examples:
  recon load testdata/q2.yaml
  recon load testdata/q2.yaml --post-ledger --db ./recon.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.PostLedger, "post-ledger", false, "post invoices and payments through the ledger")

	return cmd
}

func runLoad(opts *LoadOptions, path string, cmd *cobra.Command) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	out := newFormatter(opts.RootOptions, cmd)
	ds, err := records.LoadDataset(path)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeDataset, "failed to load dataset", err)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() { err = s.close(err) }()

	summary := LoadSummary{Dataset: path, Rejected: []string{}}
	rejected := map[string]bool{}
	if opts.PostLedger {
		rejected, err = loadWithLedger(ctx, s, ds, &summary)
	} else {
		err = ds.Apply(ctx, s.records)
		summary.Payments = len(ds.Payments)
		summary.LedgerEntries = len(ds.LedgerEntries)
	}
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeStore, "failed to write records", err)
	}
	summary.Orders = len(ds.Orders)
	summary.Invoices = len(ds.Invoices)

	recordEvents(s, ds, rejected)
	s.log.Info("dataset loaded", "dataset", path, "orders", summary.Orders, "invoices", summary.Invoices,
		"payments", summary.Payments, "rejected", len(summary.Rejected))

	if s.out.JSON() {
		return s.out.Success(summary)
	}
	w := s.out.Writer
	fmt.Fprintf(w, "✓ Loaded %s\n", path)
	fmt.Fprintf(w, "  orders:         %d\n", summary.Orders)
	fmt.Fprintf(w, "  invoices:       %d\n", summary.Invoices)
	fmt.Fprintf(w, "  payments:       %d\n", summary.Payments)
	fmt.Fprintf(w, "  ledger entries: %d\n", summary.LedgerEntries)
	if opts.PostLedger {
		fmt.Fprintf(w, "  posted:         %d invoice(s)\n", summary.Posted)
	}
	for _, msg := range summary.Rejected {
		fmt.Fprintf(w, "  ✗ rejected: %s\n", msg)
	}
	return nil
}

// loadWithLedger writes orders and invoices directly and routes postings
// through the ledger. Invoices and payments already in the book are not
// posted twice. Returns the ids of rejected payments.
func loadWithLedger(ctx context.Context, s *session, ds *records.Dataset, summary *LoadSummary) (map[string]bool, error) {
	rejected := map[string]bool{}
	for _, o := range ds.Orders {
		if err := s.records.InsertOrder(ctx, o); err != nil {
			return nil, err
		}
	}
	for _, inv := range ds.Invoices {
		if err := s.records.InsertInvoice(ctx, inv); err != nil {
			return nil, err
		}
	}

	existing, err := s.records.ListLedgerEntries(ctx)
	if err != nil {
		return nil, err
	}
	posted := make(map[string]bool)
	for _, e := range existing {
		posted[e.InvoiceID] = true
	}
	for _, e := range ds.LedgerEntries {
		posted[e.InvoiceID] = true
	}
	paid, err := s.records.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	for _, p := range paid {
		seen[p.PaymentID] = true
	}

	ledger := records.NewLedger(s.records)
	for _, inv := range ds.Invoices {
		if posted[inv.InvoiceID] || inv.Status == records.InvoiceVoid {
			continue
		}
		if err := ledger.RecordInvoice(ctx, inv); err != nil {
			return nil, err
		}
		summary.Posted++
	}

	for _, p := range ds.Payments {
		if seen[p.PaymentID] {
			continue
		}
		seen[p.PaymentID] = true
		err := ledger.RecordPayment(ctx, p)
		switch {
		case err == nil:
			summary.Payments++
		case records.IsConflict(err) || errors.Is(err, records.ErrNotFound):
			rejected[p.PaymentID] = true
			summary.Rejected = append(summary.Rejected, fmt.Sprintf("payment %s: %v", p.PaymentID, err))
			s.log.Warn("payment rejected", "payment_id", p.PaymentID, "invoice_id", p.InvoiceID, "error", err)
		default:
			return nil, err
		}
	}

	for _, e := range ds.LedgerEntries {
		if err := s.records.InsertLedgerEntry(ctx, e); err != nil {
			return nil, err
		}
		summary.LedgerEntries++
	}
	return rejected, nil
}

// recordEvents writes one audit event per loaded record. Payment events
// are keyed by the order of the invoice they settle.
func recordEvents(s *session, ds *records.Dataset, rejected map[string]bool) {
	log := func(eventType audit.EventType, tx string, details map[string]any) {
		if err := s.audit.LogRecordEvent(eventType, tx, details); err != nil {
			s.metrics.RecordAuditFailure(string(eventType))
			s.log.Warn("audit write failed", "event_type", eventType, "error", err)
		}
	}

	for _, o := range ds.Orders {
		log(audit.EventOrderCreated, o.OrderID, map[string]any{
			"total_amount":    o.TotalAmount.String(),
			"approval_status": o.ApprovalStatus,
			"line_items":      len(o.LineItems),
		})
	}
	orderOf := make(map[string]string, len(ds.Invoices))
	for _, inv := range ds.Invoices {
		orderOf[inv.InvoiceID] = inv.OrderID
		log(audit.EventInvoiceCreated, inv.OrderID, map[string]any{
			"invoice_id":   inv.InvoiceID,
			"total_amount": inv.TotalAmount.String(),
			"status":       inv.Status,
		})
	}

	logged := make(map[string]bool, len(ds.Payments))
	for _, p := range ds.Payments {
		if rejected[p.PaymentID] || logged[p.PaymentID] {
			continue
		}
		logged[p.PaymentID] = true
		log(audit.EventPaymentRecorded, orderOf[p.InvoiceID], map[string]any{
			"payment_id": p.PaymentID,
			"invoice_id": p.InvoiceID,
			"amount":     p.Amount.String(),
		})
	}
}
