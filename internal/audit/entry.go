package audit

import (
	"errors"
	"fmt"
	"time"
)

// EventType is the closed vocabulary of audit events.
type EventType string

const (
	EventValidationStarted   EventType = "validation_started"
	EventRuleEvaluated       EventType = "rule_evaluated"
	EventRuleViolation       EventType = "rule_violation"
	EventRiskScoreCalculated EventType = "risk_score_calculated"
	EventValidationCompleted EventType = "validation_completed"
	EventOrderCreated        EventType = "order_created"
	EventInvoiceCreated      EventType = "invoice_created"
	EventPaymentRecorded     EventType = "payment_recorded"
	EventSystemStartup       EventType = "system_startup"
	EventSystemShutdown      EventType = "system_shutdown"
	EventSystemError         EventType = "system_error"
)

// EventTypes lists every event type in declaration order.
var EventTypes = []EventType{
	EventValidationStarted,
	EventRuleEvaluated,
	EventRuleViolation,
	EventRiskScoreCalculated,
	EventValidationCompleted,
	EventOrderCreated,
	EventInvoiceCreated,
	EventPaymentRecorded,
	EventSystemStartup,
	EventSystemShutdown,
	EventSystemError,
}

// Valid reports whether t is part of the vocabulary.
func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Decision is the verdict attached to rule and completion events.
type Decision string

const (
	DecisionPass   Decision = "pass"
	DecisionWarn   Decision = "warn"
	DecisionFail   Decision = "fail"
	DecisionBlock  Decision = "block"
	DecisionReview Decision = "review"
)

// Valid reports whether d is empty or a known decision.
func (d Decision) Valid() bool {
	switch d {
	case "", DecisionPass, DecisionWarn, DecisionFail, DecisionBlock, DecisionReview:
		return true
	}
	return false
}

// Entry is one immutable audit record.
//
// Timestamp is always UTC. All events of one reconciliation call share a
// CorrelationID.
type Entry struct {
	LogID              string         `json:"log_id"`
	Timestamp          time.Time      `json:"timestamp"`
	EventType          EventType      `json:"event_type"`
	TransactionID      string         `json:"transaction_id,omitempty"`
	RuleID             string         `json:"rule_id,omitempty"`
	RuleName           string         `json:"rule_name,omitempty"`
	Severity           string         `json:"severity,omitempty"`
	RiskScore          *int           `json:"risk_score,omitempty"`
	RiskClassification string         `json:"risk_classification,omitempty"`
	Decision           Decision       `json:"decision,omitempty"`
	Details            map[string]any `json:"details"`
	Source             string         `json:"source"`
	CorrelationID      string         `json:"correlation_id,omitempty"`
}

// ErrInvalidEntry is returned for entries that cannot be stored.
var ErrInvalidEntry = errors.New("invalid audit entry")

// Validate checks the fields every stored entry must carry.
func (e *Entry) Validate() error {
	switch {
	case e.LogID == "":
		return fmt.Errorf("%w: missing log_id", ErrInvalidEntry)
	case e.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEntry)
	case !e.EventType.Valid():
		return fmt.Errorf("%w: unknown event_type %q", ErrInvalidEntry, e.EventType)
	case !e.Decision.Valid():
		return fmt.Errorf("%w: unknown decision %q", ErrInvalidEntry, e.Decision)
	case e.Source == "":
		return fmt.Errorf("%w: missing source", ErrInvalidEntry)
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
