package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	EnvFile    string

	// Per-run overrides; empty means use the resolved settings.
	Database string
	AuditDir string

	settings *config.Settings
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Settings resolves configuration once: defaults, the CUE file, the
// environment, then the flag overrides above.
func (o *RootOptions) Settings() (config.Settings, error) {
	if o.settings != nil {
		return *o.settings, nil
	}
	s, err := config.Load(config.LoadOptions{File: o.ConfigFile, EnvFile: o.EnvFile})
	if err != nil {
		return config.Settings{}, err
	}
	if o.Database != "" {
		s.DatabasePath = o.Database
	}
	if o.AuditDir != "" {
		s.AuditDir = o.AuditDir
	}
	o.settings = &s
	return s, nil
}

// NewRootCommand creates the root command for the recon CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "recon",
		Short: "recon - CRM to finance reconciliation",
		Long: `Reconcile CRM orders against invoices, payments and ledger postings.

Every order is checked against the rule catalogue, scored for risk and
classified as safe, monitor or critical. Each step is written to an
append-only audit trail partitioned by day.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			if _, err := opts.Settings(); err != nil {
				return WrapExitError(ExitCommandError, "failed to load settings", err)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "CUE settings file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file (default .env)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "SQLite records database (overrides settings)")
	cmd.PersistentFlags().StringVar(&opts.AuditDir, "audit-dir", "", "audit log directory (overrides settings)")

	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewScanCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewDistributionCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger returns the diagnostic logger for a run. Output goes to w,
// never to the command's stdout.
func newLogger(format string, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
