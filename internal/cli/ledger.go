package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/records"
)

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect and correct ledger postings",
	}

	cmd.AddCommand(newLedgerBalancesCommand(rootOpts))
	cmd.AddCommand(newLedgerReverseCommand(rootOpts))
	cmd.AddCommand(newLedgerOverdueCommand(rootOpts))

	return cmd
}

// AccountBalance is one line of the balances report.
type AccountBalance struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

func newLedgerBalancesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "balances",
		Short:         "Print the running balance of every account",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer func() { err = s.close(err) }()

			balances, err := records.NewLedger(s.records).Balances(commandContext(cmd))
			if err != nil {
				return s.out.Fail(ExitCommandError, ErrCodeStore, "failed to read ledger", err)
			}

			lines := make([]AccountBalance, 0, len(balances))
			for account, bal := range balances {
				lines = append(lines, AccountBalance{Account: account, Balance: bal.StringFixed(2)})
			}
			sort.Slice(lines, func(i, j int) bool { return lines[i].Account < lines[j].Account })

			if s.out.JSON() {
				return s.out.Success(lines)
			}
			for _, l := range lines {
				fmt.Fprintf(s.out.Writer, "%-22s %12s\n", l.Account, l.Balance)
			}
			return nil
		},
	}
}

func newLedgerReverseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <invoice-id>",
		Short: "Append offsetting entries for every posting on an invoice",
		Long: `Void an invoice in the ledger. No entry is edited or deleted: each
entry posted against the invoice gets a new entry with debit and credit
swapped, and the invoice moves to void. A void invoice cannot be reversed
again.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer func() { err = s.close(err) }()

			n, err := records.NewLedger(s.records).ReverseInvoice(commandContext(cmd), args[0])
			if records.IsConflict(err) {
				return s.out.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
			}
			if err != nil {
				return s.out.Fail(ExitCommandError, ErrCodeStore, "failed to reverse invoice", err)
			}
			if n == 0 {
				return s.out.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("no ledger entries for invoice %s", args[0]), nil)
			}
			s.log.Info("invoice reversed", "invoice_id", args[0], "entries", n)

			if s.out.JSON() {
				return s.out.Success(map[string]any{"invoice_id": args[0], "reversal_entries": n})
			}
			fmt.Fprintf(s.out.Writer, "✓ Reversed %s: %d entr(ies) appended\n", args[0], n)
			return nil
		},
	}
}

// OverdueOptions holds flags for the ledger overdue command.
type OverdueOptions struct {
	*RootOptions
	AsOf string
}

func newLedgerOverdueCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OverdueOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "overdue",
		Short: "Move open invoices past their due date to overdue",
		Long: `Scan every invoice. One that is not paid, void or draft, still has an
amount due, and whose due date is before the given day becomes overdue.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			asOf := time.Now().UTC()
			if opts.AsOf != "" {
				asOf, err = parseWhen(opts.AsOf, false)
				if err != nil {
					out := newFormatter(rootOpts, cmd)
					return out.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
				}
			}

			s, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer func() { err = s.close(err) }()

			moved, err := records.NewLedger(s.records).MarkOverdue(commandContext(cmd), asOf)
			if err != nil {
				return s.out.Fail(ExitCommandError, ErrCodeStore, "failed to mark overdue invoices", err)
			}
			if moved == nil {
				moved = []string{}
			}
			s.log.Info("overdue invoices marked", "as_of", asOf.Format(time.DateOnly), "count", len(moved))

			if s.out.JSON() {
				return s.out.Success(map[string]any{"as_of": asOf.Format(time.DateOnly), "overdue": moved})
			}
			if len(moved) == 0 {
				fmt.Fprintln(s.out.Writer, "No invoices became overdue")
				return nil
			}
			for _, id := range moved {
				fmt.Fprintf(s.out.Writer, "! %s overdue\n", id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.AsOf, "as-of", "", "day to compare due dates against (YYYY-MM-DD, default today)")

	return cmd
}
