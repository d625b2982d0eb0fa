package engine

import (
	"errors"
	"fmt"
)

// Stage names a step of the per-order reconciliation state machine.
type Stage string

const (
	StageOrderLookup    Stage = "order-lookup"
	StageContextBuild   Stage = "context-build"
	StageRuleEvaluation Stage = "rule-evaluation"
	StageScoring        Stage = "scoring"
	StageAuditEmit      Stage = "audit-emit"
	StageResultCache    Stage = "result-cache"
)

// ReconcileError is returned when a collaborator fails during reconciliation.
//
// A missing order is not an error: it produces a synthetic critical result.
type ReconcileError struct {
	// Code identifies the error category.
	Code ReconcileErrorCode

	// Stage is the state machine step that failed.
	Stage Stage

	// OrderID identifies the affected order, if any.
	OrderID string

	// Err is the underlying collaborator error.
	Err error
}

// ReconcileErrorCode categorizes reconciliation errors.
type ReconcileErrorCode string

const (
	// ErrCodeOrderSource indicates the CRM collaborator failed.
	ErrCodeOrderSource ReconcileErrorCode = "ORDER_SOURCE_FAILED"

	// ErrCodeFinanceSource indicates the finance collaborator failed.
	ErrCodeFinanceSource ReconcileErrorCode = "FINANCE_SOURCE_FAILED"

	// ErrCodeCancelled indicates the caller's context ended mid-scan.
	ErrCodeCancelled ReconcileErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	if e.OrderID != "" {
		return fmt.Sprintf("%s at %s (order=%s): %v", e.Code, e.Stage, e.OrderID, e.Err)
	}
	return fmt.Sprintf("%s at %s: %v", e.Code, e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// IsSourceError returns true if a CRM or finance collaborator failed.
// Uses errors.As to handle wrapped errors.
func IsSourceError(err error) bool {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Code == ErrCodeOrderSource || re.Code == ErrCodeFinanceSource
	}
	return false
}

// IsCancelled returns true if reconciliation stopped because the context ended.
func IsCancelled(err error) bool {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Code == ErrCodeCancelled
	}
	return false
}

func orderSourceError(orderID string, err error) *ReconcileError {
	return &ReconcileError{Code: ErrCodeOrderSource, Stage: StageOrderLookup, OrderID: orderID, Err: err}
}

func financeSourceError(orderID string, err error) *ReconcileError {
	return &ReconcileError{Code: ErrCodeFinanceSource, Stage: StageContextBuild, OrderID: orderID, Err: err}
}

func cancelledError(orderID string, err error) *ReconcileError {
	return &ReconcileError{Code: ErrCodeCancelled, Stage: StageOrderLookup, OrderID: orderID, Err: err}
}
