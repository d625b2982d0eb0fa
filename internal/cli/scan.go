package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/risk"
	"github.com/roach88/recon/internal/rules"
)

// ScanOptions holds flags for the scan command.
type ScanOptions struct {
	*RootOptions
	FailOn         string
	Classification string
	MinScore       int
	MaxScore       int
}

// ScanReport is the output of a full scan.
type ScanReport struct {
	Results    []engine.Result   `json:"results"`
	Ghosts     []engine.Result   `json:"ghost_invoices"`
	Statistics engine.Statistics `json:"statistics"`
}

// NewScanCommand creates the scan command.
func NewScanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Reconcile every order and look for ghost invoices",
		Long: `Reconcile every CRM order page by page, then flag invoices whose order
does not exist in the CRM. Prints the results that match the filters and
summary statistics for the whole run.

Exits 1 when any result is at or above the --fail-on level.

Examples:
  recon scan
  recon scan --class critical
  recon scan --min-score 31 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FailOn, "fail-on", FailOnNone, "exit 1 at this classification or worse (none|monitor|critical)")
	cmd.Flags().StringVar(&opts.Classification, "class", "", "only show results with this classification (safe|monitor|critical)")
	cmd.Flags().IntVar(&opts.MinScore, "min-score", 0, "only show results scoring at least this")
	cmd.Flags().IntVar(&opts.MaxScore, "max-score", risk.MaxScore, "only show results scoring at most this")

	return cmd
}

func runScan(opts *ScanOptions, cmd *cobra.Command) (err error) {
	out := newFormatter(opts.RootOptions, cmd)
	if !validFailOn(opts.FailOn) {
		return out.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("invalid --fail-on %q", opts.FailOn), nil)
	}
	filter, err := scanFilter(opts, cmd)
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeInput, err.Error(), nil)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() { err = s.close(err) }()

	ctx := commandContext(cmd)
	r := s.reconciler()
	if _, err := r.ReconcileAll(ctx); err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeSource, "scan failed", err)
	}
	stats, err := r.Statistics(ctx)
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeSource, "statistics failed", err)
	}

	report := ScanReport{Results: []engine.Result{}, Ghosts: []engine.Result{}, Statistics: stats}
	for _, res := range r.Filter(filter) {
		if isGhost(res) {
			report.Ghosts = append(report.Ghosts, res)
		} else {
			report.Results = append(report.Results, res)
		}
	}

	if s.out.JSON() {
		if err := s.out.Success(report); err != nil {
			return err
		}
	} else {
		writeResults(s.out.Writer, report.Results, s.out.Verbose)
		if len(report.Ghosts) > 0 {
			fmt.Fprintf(s.out.Writer, "\nGhost invoices (%d):\n", len(report.Ghosts))
			writeResults(s.out.Writer, report.Ghosts, s.out.Verbose)
		}
		fmt.Fprintln(s.out.Writer)
		writeStatistics(s.out.Writer, stats)
	}
	return checkFailOn(opts.FailOn, r.Results())
}

func scanFilter(opts *ScanOptions, cmd *cobra.Command) (engine.ResultFilter, error) {
	var f engine.ResultFilter
	switch c := risk.Classification(opts.Classification); c {
	case "", risk.Safe, risk.Monitor, risk.Critical:
		f.Classification = c
	default:
		return f, fmt.Errorf("invalid --class %q", opts.Classification)
	}
	if cmd.Flags().Changed("min-score") {
		f.MinScore = &opts.MinScore
	}
	if cmd.Flags().Changed("max-score") {
		f.MaxScore = &opts.MaxScore
	}
	if f.MinScore != nil && f.MaxScore != nil && *f.MinScore > *f.MaxScore {
		return f, fmt.Errorf("--min-score %d is above --max-score %d", *f.MinScore, *f.MaxScore)
	}
	return f, nil
}

func isGhost(res engine.Result) bool {
	ids := res.RuleIDs()
	return len(ids) == 1 && ids[0] == rules.GhostInvoiceID
}

func writeStatistics(w io.Writer, stats engine.Statistics) {
	fmt.Fprintf(w, "Orders in CRM:   %d\n", stats.TotalTransactions)
	fmt.Fprintf(w, "Validated:       %d\n", stats.TotalValidated)
	fmt.Fprintf(w, "  safe:          %d\n", stats.SafeCount)
	fmt.Fprintf(w, "  monitor:       %d\n", stats.MonitorCount)
	fmt.Fprintf(w, "  critical:      %d\n", stats.CriticalCount)
	fmt.Fprintf(w, "Average score:   %.2f\n", stats.AverageRiskScore)
	if len(stats.TopViolations) > 0 {
		parts := make([]string, len(stats.TopViolations))
		for i, rc := range stats.TopViolations {
			parts[i] = fmt.Sprintf("%s×%d", rc.RuleID, rc.Count)
		}
		fmt.Fprintf(w, "Top violations:  %s\n", strings.Join(parts, ", "))
	}
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize risk across every order",
		Long: `Reconcile every order in memory and print counts per classification,
the average risk score and the most violated rules.

No per-order audit trail is written.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(rootOpts, cmd)
		},
	}
}

func runStats(opts *RootOptions, cmd *cobra.Command) (err error) {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer func() { err = s.close(err) }()

	ctx := commandContext(cmd)
	r := s.reconciler(engine.WithAuditLogger(nil))
	if _, err := r.ReconcileAll(ctx); err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeSource, "scan failed", err)
	}
	stats, err := r.Statistics(ctx)
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeSource, "statistics failed", err)
	}

	if s.out.JSON() {
		return s.out.Success(stats)
	}
	writeStatistics(s.out.Writer, stats)
	return nil
}

// NewDistributionCommand creates the distribution command.
func NewDistributionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "distribution",
		Short: "Histogram of risk scores",
		Long: `Reconcile every order in memory and print how many results fall in
each 10-point score bucket, with a separate bucket for 100.

No per-order audit trail is written.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDistribution(rootOpts, cmd)
		},
	}
}

func runDistribution(opts *RootOptions, cmd *cobra.Command) (err error) {
	s, err := openSession(opts, cmd)
	if err != nil {
		return err
	}
	defer func() { err = s.close(err) }()

	r := s.reconciler(engine.WithAuditLogger(nil))
	if _, err := r.ReconcileAll(commandContext(cmd)); err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeSource, "scan failed", err)
	}
	dist := r.Distribution()

	if s.out.JSON() {
		return s.out.Success(dist)
	}
	for _, b := range dist.Buckets {
		fmt.Fprintf(s.out.Writer, "%6s | %-40s %d\n", b.Label, bar(b.Count, dist.Total, 40), b.Count)
	}
	fmt.Fprintf(s.out.Writer, "total: %d\n", dist.Total)
	return nil
}

// bar scales n out of total to at most width characters.
func bar(n, total, width int) string {
	if total == 0 || n == 0 {
		return ""
	}
	size := n * width / total
	if size == 0 {
		size = 1
	}
	return strings.Repeat("#", size)
}
