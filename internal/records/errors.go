package records

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by point lookups when the record does not exist.
var ErrNotFound = errors.New("record not found")

// ConflictCode categorizes domain validation failures.
type ConflictCode string

const (
	// ConflictOverpayment indicates a payment larger than the invoice amount due.
	ConflictOverpayment ConflictCode = "OVERPAYMENT"

	// ConflictInvalidAmount indicates a zero or negative monetary amount.
	ConflictInvalidAmount ConflictCode = "INVALID_AMOUNT"

	// ConflictInvoiceVoid indicates a posting against, or a second void of,
	// a voided invoice.
	ConflictInvoiceVoid ConflictCode = "INVOICE_VOID"

	// ConflictDuplicatePayment indicates a payment id that was already recorded.
	ConflictDuplicatePayment ConflictCode = "DUPLICATE_PAYMENT"
)

// ConflictError is a domain validation failure. Callers surface it as a
// conflict with the human-readable Message.
type ConflictError struct {
	Code    ConflictCode
	Message string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}
