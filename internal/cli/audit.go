package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/audit"
)

// NewAuditCommand creates the audit command group.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query, export and purge the audit trail",
		Long: `Inspect the append-only audit trail.

The trail lives in one JSON-lines file per UTC day under the audit
directory. These commands read it without adding events of their own,
except purge, which deletes whole days.`,
	}

	cmd.AddCommand(newAuditQueryCommand(rootOpts))
	cmd.AddCommand(newAuditTraceCommand(rootOpts))
	cmd.AddCommand(newAuditSummaryCommand(rootOpts))
	cmd.AddCommand(newAuditExportCommand(rootOpts))
	cmd.AddCommand(newAuditPurgeCommand(rootOpts))

	return cmd
}

// AuditQueryOptions holds flags for audit query.
type AuditQueryOptions struct {
	*RootOptions
	TransactionID string
	EventType     string
	Severity      string
	Decision      string
	Source        string
	From          string
	To            string
	Page          int
	PageSize      int
}

// AuditPage is one page of query results.
type AuditPage struct {
	Entries  []audit.Entry `json:"entries"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

func newAuditQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditQueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List audit events, newest first",
		Long: `List audit events matching every given filter, newest first.

Dates accept YYYY-MM-DD or RFC 3339. A bare --to date covers that whole day.

Examples:
  recon audit query --tx ORD-1001
  recon audit query --event rule_evaluated --decision fail --page 2
  recon audit query --from 2025-06-01 --to 2025-06-07 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.TransactionID, "tx", "", "transaction (order) id")
	cmd.Flags().StringVar(&opts.EventType, "event", "", "event type")
	cmd.Flags().StringVar(&opts.Severity, "severity", "", "rule severity")
	cmd.Flags().StringVar(&opts.Decision, "decision", "", "decision (pass|warn|fail|block|review)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "event source")
	cmd.Flags().StringVar(&opts.From, "from", "", "earliest timestamp")
	cmd.Flags().StringVar(&opts.To, "to", "", "latest timestamp")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", audit.DefaultPageSize, "events per page")

	return cmd
}

func runAuditQuery(opts *AuditQueryOptions, cmd *cobra.Command) error {
	out := newFormatter(opts.RootOptions, cmd)
	filter, err := opts.filter()
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
	}

	log, out, err := openAudit(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer log.Store().Close()

	entries, total := log.Store().Query(filter)
	page := AuditPage{Entries: entries, Total: total, Page: filter.Page, PageSize: filter.PageSize}
	if page.Entries == nil {
		page.Entries = []audit.Entry{}
	}

	if out.JSON() {
		return out.Success(page)
	}
	writeEntries(out.Writer, page.Entries)
	fmt.Fprintf(out.Writer, "page %d: %d of %d event(s)\n", page.Page, len(page.Entries), page.Total)
	return nil
}

func (o *AuditQueryOptions) filter() (audit.Filter, error) {
	f := audit.Filter{
		TransactionID: o.TransactionID,
		EventType:     audit.EventType(o.EventType),
		Severity:      o.Severity,
		Decision:      audit.Decision(o.Decision),
		Source:        o.Source,
		Page:          o.Page,
		PageSize:      o.PageSize,
	}
	if f.EventType != "" && !f.EventType.Valid() {
		return f, fmt.Errorf("unknown event type %q", o.EventType)
	}
	if !f.Decision.Valid() {
		return f, fmt.Errorf("unknown decision %q", o.Decision)
	}
	if f.Page < 1 || f.PageSize < 1 {
		return f, fmt.Errorf("--page and --page-size must be positive")
	}

	var err error
	if o.From != "" {
		if f.From, err = parseWhen(o.From, false); err != nil {
			return f, err
		}
	}
	if o.To != "" {
		if f.To, err = parseWhen(o.To, true); err != nil {
			return f, err
		}
	}
	return f, nil
}

// parseWhen accepts RFC 3339 or a bare UTC date. With endOfDay a bare date
// means the last instant of that day.
func parseWhen(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want YYYY-MM-DD or RFC 3339", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// writeEntries prints one line per entry.
func writeEntries(w io.Writer, entries []audit.Entry) {
	for _, e := range entries {
		var b strings.Builder
		fmt.Fprintf(&b, "%s  %-22s", e.Timestamp.Format(time.RFC3339), e.EventType)
		if e.TransactionID != "" {
			fmt.Fprintf(&b, " tx=%s", e.TransactionID)
		}
		if e.RuleID != "" {
			fmt.Fprintf(&b, " rule=%s", e.RuleID)
		}
		if e.RiskScore != nil {
			fmt.Fprintf(&b, " score=%d", *e.RiskScore)
		}
		if e.RiskClassification != "" {
			fmt.Fprintf(&b, " class=%s", e.RiskClassification)
		}
		if e.Decision != "" {
			fmt.Fprintf(&b, " decision=%s", e.Decision)
		}
		fmt.Fprintln(w, b.String())
	}
}

// TraceGroup is the trail of one reconciliation call.
type TraceGroup struct {
	CorrelationID string        `json:"correlation_id"`
	Entries       []audit.Entry `json:"entries"`
}

func newAuditTraceCommand(rootOpts *RootOptions) *cobra.Command {
	var byCorrelation bool

	cmd := &cobra.Command{
		Use:   "trace <transaction-id>",
		Short: "Show the audit trail of one order, grouped by correlation id",
		Long: `Show every event recorded for one transaction in stored order, grouped
by the reconciliation call that produced it.

With --correlation the argument is a correlation id instead.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, out, err := openAudit(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer log.Store().Close()

			var entries []audit.Entry
			if byCorrelation {
				entries = log.Store().ByCorrelation(args[0])
			} else {
				entries = log.ForTransaction(args[0])
			}
			groups := groupByCorrelation(entries)

			if out.JSON() {
				return out.Success(groups)
			}
			if len(groups) == 0 {
				fmt.Fprintf(out.Writer, "No audit events found for: %s\n", args[0])
				return nil
			}
			for _, g := range groups {
				label := g.CorrelationID
				if label == "" {
					label = "(uncorrelated)"
				}
				fmt.Fprintf(out.Writer, "── %s (%d event(s))\n", label, len(g.Entries))
				writeEntries(out.Writer, g.Entries)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&byCorrelation, "correlation", false, "treat the argument as a correlation id")

	return cmd
}

// groupByCorrelation keeps groups in order of first appearance.
func groupByCorrelation(entries []audit.Entry) []TraceGroup {
	groups := []TraceGroup{}
	index := map[string]int{}
	for _, e := range entries {
		i, ok := index[e.CorrelationID]
		if !ok {
			i = len(groups)
			index[e.CorrelationID] = i
			groups = append(groups, TraceGroup{CorrelationID: e.CorrelationID})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups
}

func newAuditSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "summary",
		Short:         "Count audit events by type, severity and decision",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, out, err := openAudit(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer log.Store().Close()

			sum := log.Summary()
			if out.JSON() {
				return out.Success(sum)
			}
			fmt.Fprintf(out.Writer, "Total events: %d\n", sum.TotalEvents)
			if sum.TotalEvents > 0 {
				fmt.Fprintf(out.Writer, "Range: %s .. %s\n", sum.DateRange["earliest"], sum.DateRange["latest"])
			}
			writeCounts(out.Writer, "By type", sum.EventsByType)
			writeCounts(out.Writer, "By severity", sum.EventsBySeverity)
			writeCounts(out.Writer, "By decision", sum.EventsByDecision)
			return nil
		},
	}
}

func writeCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-24s %d\n", k, counts[k])
	}
}

func newAuditExportCommand(rootOpts *RootOptions) *cobra.Command {
	var from, to, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export whole days of the audit trail as JSON",
		Long: `Export every event from the start of the --from day to the end of the
--to day (UTC) as an indented JSON array, newest first.

Examples:
  recon audit export --from 2025-06-01 --to 2025-06-30 -o june.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, out, err := openAudit(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer log.Store().Close()

			start, err := parseWhen(from, false)
			if err != nil {
				return out.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
			}
			end, err := parseWhen(to, false)
			if err != nil {
				return out.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
			}
			data, err := log.Export(start, end)
			if err != nil {
				return out.Fail(ExitCommandError, ErrCodeInput, "export failed", err)
			}

			if output == "" {
				_, err := out.Writer.Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return out.Fail(ExitCommandError, ErrCodeStore, "failed to write export", err)
			}
			out.VerboseLog("wrote %d bytes to %s", len(data), output)
			if out.JSON() {
				return out.Success(map[string]any{"file": output, "bytes": len(data)})
			}
			fmt.Fprintf(out.Writer, "✓ Exported to %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first day (required)")
	_ = cmd.MarkFlagRequired("from")
	cmd.Flags().StringVar(&to, "to", "", "last day (required)")
	_ = cmd.MarkFlagRequired("to")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}

func newAuditPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var before string
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete audit partitions older than a cutoff",
		Long: `Delete every daily partition file dated strictly before the cutoff.

Give the cutoff as --before DATE or as --days N (N days before now).

Examples:
  recon audit purge --before 2025-01-01
  recon audit purge --days 365`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newFormatter(rootOpts, cmd)
			var cutoff time.Time
			switch {
			case before != "" && days > 0:
				return out.Fail(ExitCommandError, ErrCodeInput, "--before and --days are mutually exclusive", nil)
			case before != "":
				t, err := parseWhen(before, false)
				if err != nil {
					return out.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
				}
				cutoff = t
			case days > 0:
				cutoff = time.Now().UTC().AddDate(0, 0, -days)
			default:
				return out.Fail(ExitCommandError, ErrCodeInput, "one of --before or --days is required", nil)
			}

			log, out, err := openAudit(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer log.Store().Close()

			report, err := log.Store().Purge(cutoff)
			if err != nil {
				return out.Fail(ExitCommandError, ErrCodeStore, "purge failed", err)
			}

			if out.JSON() {
				return out.Success(report)
			}
			fmt.Fprintf(out.Writer, "✓ Purged %d file(s), %d event(s) before %s\n",
				report.FilesDeleted, report.EntriesRemoved, cutoff.Format(time.DateOnly))
			for _, name := range report.DeletedFiles {
				fmt.Fprintf(out.Writer, "  - %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "cutoff date")
	cmd.Flags().IntVar(&days, "days", 0, "cutoff as days before now")

	return cmd
}
