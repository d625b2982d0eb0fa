package cli

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/recon/internal/audit"
	"github.com/roach88/recon/internal/config"
	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/metrics"
	"github.com/roach88/recon/internal/records"
)

// session holds everything one command run touches. Opening it writes a
// system_startup audit event; close writes system_shutdown, plus
// system_error when the run failed.
type session struct {
	command  string
	settings config.Settings
	log      *slog.Logger
	out      *OutputFormatter

	records    *records.Store
	auditStore *audit.Store
	audit      *audit.Logger
	metrics    *metrics.Collector
}

func openSession(opts *RootOptions, cmd *cobra.Command) (*session, error) {
	out := newFormatter(opts, cmd)
	settings, err := opts.Settings()
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeConfig, "failed to load settings", err)
	}

	s := &session{
		command:  cmd.CommandPath(),
		settings: settings,
		log:      newLogger(settings.LogFormat, opts.Verbose, cmd.ErrOrStderr()),
		out:      out,
		metrics:  metrics.NewCollector(settings.MetricsNamespace),
	}

	s.auditStore, err = audit.Open(settings.AuditDir)
	if err != nil {
		return nil, out.Fail(ExitCommandError, ErrCodeStore, "failed to open audit store", err)
	}
	s.audit = audit.NewLogger(s.auditStore, audit.WithSource(settings.AuditSource))

	s.records, err = records.Open(settings.DatabasePath)
	if err != nil {
		_ = s.auditStore.Close()
		return nil, out.Fail(ExitCommandError, ErrCodeStore, "failed to open records database", err)
	}

	s.system(audit.EventSystemStartup, map[string]any{
		"command":  s.command,
		"database": settings.DatabasePath,
	})
	s.log.Debug("session opened", "command", s.command, "database", settings.DatabasePath, "audit_dir", settings.AuditDir)
	return s, nil
}

// reconciler wires the engine to this session's stores, audit trail and
// metrics.
func (s *session) reconciler(extra ...engine.Option) *engine.Reconciler {
	opts := []engine.Option{
		engine.WithAuditLogger(s.audit),
		engine.WithMetrics(s.metrics),
		engine.WithPageSize(s.settings.PageSize),
		engine.WithLogger(s.log),
	}
	return engine.New(s.records, s.records, append(opts, extra...)...)
}

// system writes a system event. Audit failures never fail the command.
func (s *session) system(eventType audit.EventType, details map[string]any) {
	if err := s.audit.LogSystemEvent(eventType, details); err != nil {
		s.metrics.RecordAuditFailure(string(eventType))
		s.log.Warn("audit write failed", "event_type", eventType, "error", err)
	}
}

// close finishes the run and returns runErr, or the first close failure
// when the run itself succeeded.
func (s *session) close(runErr error) error {
	status := "ok"
	if runErr != nil {
		status = "error"
		if !thresholdFailure(runErr) {
			s.system(audit.EventSystemError, map[string]any{
				"command": s.command,
				"error":   runErr.Error(),
			})
		}
	}
	s.system(audit.EventSystemShutdown, map[string]any{
		"command": s.command,
		"status":  status,
	})

	var errs []error
	if path := s.settings.MetricsFile; path != "" {
		if err := s.metrics.WriteTextfile(path); err != nil {
			errs = append(errs, err)
		} else {
			s.log.Debug("metrics written", "path", path)
		}
	}
	errs = append(errs, s.records.Close(), s.auditStore.Close())

	if runErr != nil {
		return runErr
	}
	if err := errors.Join(errs...); err != nil {
		return WrapExitError(ExitCommandError, "failed to close session", err)
	}
	return nil
}

// thresholdFailure reports whether err only signals that results crossed
// the --fail-on level. That is an outcome, not a system error.
func thresholdFailure(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Code == ExitFailure
}

// openAudit opens only the audit store for the audit inspection commands.
// Those commands do not bracket themselves with system events, so what they
// read is not changed by reading it.
func openAudit(opts *RootOptions, cmd *cobra.Command) (*audit.Logger, *OutputFormatter, error) {
	out := newFormatter(opts, cmd)
	settings, err := opts.Settings()
	if err != nil {
		return nil, out, out.Fail(ExitCommandError, ErrCodeConfig, "failed to load settings", err)
	}
	store, err := audit.Open(settings.AuditDir)
	if err != nil {
		return nil, out, out.Fail(ExitCommandError, ErrCodeStore, "failed to open audit store", err)
	}
	return audit.NewLogger(store, audit.WithSource(settings.AuditSource)), out, nil
}
