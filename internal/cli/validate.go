package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/risk"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	FailOn string
}

// Valid --fail-on levels.
const (
	FailOnNone     = "none"
	FailOnMonitor  = "monitor"
	FailOnCritical = "critical"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <order-id>...",
		Short: "Reconcile specific orders",
		Long: `Reconcile one or more CRM orders against the finance records.

Each order is run through every rule, scored and classified. Unknown
order ids are reported as critical. The full rule trail of every order
is written to the audit log under one correlation id.

Exits 1 when any result is at or above the --fail-on level.

Examples:
  recon validate ORD-1001
  recon validate ORD-1001 ORD-1002 --fail-on monitor --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FailOn, "fail-on", FailOnCritical, "exit 1 at this classification or worse (none|monitor|critical)")

	return cmd
}

func runValidate(opts *ValidateOptions, orderIDs []string, cmd *cobra.Command) (err error) {
	out := newFormatter(opts.RootOptions, cmd)
	if !validFailOn(opts.FailOn) {
		return out.Fail(ExitCommandError, ErrCodeInput, fmt.Sprintf("invalid --fail-on %q", opts.FailOn), nil)
	}

	s, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer func() { err = s.close(err) }()

	results, err := s.reconciler().ReconcileBatch(commandContext(cmd), orderIDs)
	if err != nil {
		return s.out.Fail(ExitCommandError, ErrCodeSource, "reconciliation failed", err)
	}

	if s.out.JSON() {
		if err := s.out.Success(results); err != nil {
			return err
		}
	} else {
		writeResults(s.out.Writer, results, s.out.Verbose)
	}
	return checkFailOn(opts.FailOn, results)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func validFailOn(level string) bool {
	switch level {
	case FailOnNone, FailOnMonitor, FailOnCritical:
		return true
	}
	return false
}

// checkFailOn returns an ExitFailure error when any result reaches level.
func checkFailOn(level string, results []engine.Result) error {
	if level == FailOnNone {
		return nil
	}
	var hits []string
	for _, res := range results {
		if res.Classification == risk.Critical ||
			(level == FailOnMonitor && res.Classification == risk.Monitor) {
			hits = append(hits, res.OrderID)
		}
	}
	if len(hits) == 0 {
		return nil
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%d order(s) at or above %s: %s", len(hits), level, strings.Join(hits, ", ")))
}

// writeResults prints one block per result. Safe results without
// violations take a single line.
func writeResults(w io.Writer, results []engine.Result, verbose bool) {
	for _, res := range results {
		fmt.Fprintf(w, "%s %-10s score=%-3d %s\n", classMark(res.Classification), res.OrderID, res.RiskScore, res.Classification)
		if verbose {
			fmt.Fprintf(w, "    rules: %d evaluated, %d passed, %d failed, %d warned, %d skipped\n",
				res.RulesEvaluated, res.RulesPassed, res.RulesFailed, res.RulesWarned, res.RulesSkipped)
			if res.CorrelationID != "" {
				fmt.Fprintf(w, "    correlation: %s\n", res.CorrelationID)
			}
		}
		for _, v := range res.Violations {
			fmt.Fprintf(w, "    [%s] %s (%s, +%d): %s\n", v.RuleID, v.RuleName, v.Severity, v.Weight, v.Message)
		}
	}
}

func classMark(c risk.Classification) string {
	switch c {
	case risk.Safe:
		return "✓"
	case risk.Monitor:
		return "!"
	}
	return "✗"
}
