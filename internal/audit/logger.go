package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultSource tags entries written by the reconciliation pipeline.
const DefaultSource = "validation_engine"

// IDGenerator produces log ids.
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Logger writes typed audit events into a Store.
type Logger struct {
	store  *Store
	now    func() time.Time
	ids    IDGenerator
	source string
}

// LoggerOption configures a Logger.
type LoggerOption func(*Logger)

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) LoggerOption {
	return func(l *Logger) { l.now = now }
}

// WithIDs overrides the log id generator (random UUIDs by default).
func WithIDs(ids IDGenerator) LoggerOption {
	return func(l *Logger) { l.ids = ids }
}

// WithSource sets the source tag of emitted entries.
func WithSource(source string) LoggerOption {
	return func(l *Logger) {
		if source != "" {
			l.source = source
		}
	}
}

// NewLogger creates a logger over store.
func NewLogger(store *Store, opts ...LoggerOption) *Logger {
	l := &Logger{
		store:  store,
		now:    func() time.Time { return time.Now().UTC() },
		ids:    uuidGenerator{},
		source: DefaultSource,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Store returns the underlying store.
func (l *Logger) Store() *Store {
	return l.store
}

// LogEvent stores a raw entry, filling in log id, timestamp and source when
// they are empty. Returns the log id.
func (l *Logger) LogEvent(e Entry) (string, error) {
	if e.LogID == "" {
		e.LogID = l.ids.Generate()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	if e.Source == "" {
		e.Source = l.source
	}
	if err := l.store.Save(e); err != nil {
		return "", err
	}
	return e.LogID, nil
}

// LogValidationStart records the beginning of a reconciliation call.
func (l *Logger) LogValidationStart(transactionID, correlationID string) error {
	_, err := l.LogEvent(Entry{
		EventType:     EventValidationStarted,
		TransactionID: transactionID,
		CorrelationID: correlationID,
	})
	return err
}

// RuleResult is the outcome of one rule for LogRuleResult.
type RuleResult struct {
	RuleID   string
	RuleName string
	Severity string
	Passed   bool
	Details  map[string]any
}

// LogRuleResult records one rule outcome: rule_evaluated with decision pass,
// or rule_violation with decision fail.
func (l *Logger) LogRuleResult(transactionID, correlationID string, r RuleResult) error {
	e := Entry{
		EventType:     EventRuleEvaluated,
		TransactionID: transactionID,
		RuleID:        r.RuleID,
		RuleName:      r.RuleName,
		Decision:      DecisionPass,
		Details:       copyDetails(r.Details),
		CorrelationID: correlationID,
	}
	if !r.Passed {
		e.EventType = EventRuleViolation
		e.Decision = DecisionFail
		e.Severity = r.Severity
	}
	_, err := l.LogEvent(e)
	return err
}

// LogRiskScore records the computed score and classification.
func (l *Logger) LogRiskScore(transactionID, correlationID string, score int, classification string) error {
	_, err := l.LogEvent(Entry{
		EventType:          EventRiskScoreCalculated,
		TransactionID:      transactionID,
		RiskScore:          intPtr(score),
		RiskClassification: classification,
		CorrelationID:      correlationID,
	})
	return err
}

// LogValidationComplete records the end of a reconciliation call and its decision.
func (l *Logger) LogValidationComplete(transactionID, correlationID string, score int, classification string, decision Decision) error {
	_, err := l.LogEvent(Entry{
		EventType:          EventValidationCompleted,
		TransactionID:      transactionID,
		RiskScore:          intPtr(score),
		RiskClassification: classification,
		Decision:           decision,
		CorrelationID:      correlationID,
	})
	return err
}

// LogRecordEvent records creation of a CRM or finance record
// (order_created, invoice_created or payment_recorded).
func (l *Logger) LogRecordEvent(eventType EventType, transactionID string, details map[string]any) error {
	switch eventType {
	case EventOrderCreated, EventInvoiceCreated, EventPaymentRecorded:
	default:
		return fmt.Errorf("%w: %s is not a record event", ErrInvalidEntry, eventType)
	}
	_, err := l.LogEvent(Entry{
		EventType:     eventType,
		TransactionID: transactionID,
		Details:       copyDetails(details),
	})
	return err
}

// LogSystemEvent records process lifecycle events (system_startup,
// system_shutdown or system_error). Errors are tagged with high severity.
func (l *Logger) LogSystemEvent(eventType EventType, details map[string]any) error {
	e := Entry{
		EventType: eventType,
		Details:   copyDetails(details),
	}
	switch eventType {
	case EventSystemStartup, EventSystemShutdown:
	case EventSystemError:
		e.Severity = "high"
	default:
		return fmt.Errorf("%w: %s is not a system event", ErrInvalidEntry, eventType)
	}
	_, err := l.LogEvent(e)
	return err
}

// ForTransaction returns the trail of one transaction in stored order.
func (l *Logger) ForTransaction(transactionID string) []Entry {
	return l.store.ByTransaction(transactionID)
}

func copyDetails(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
