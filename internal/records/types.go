package records

import (
	"time"

	"github.com/shopspring/decimal"
)

// Approval states for an order discount.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Order fulfilment states.
const (
	OrderDraft     = "draft"
	OrderConfirmed = "confirmed"
	OrderFulfilled = "fulfilled"
	OrderCancelled = "cancelled"
)

// Invoice states.
const (
	InvoiceDraft   = "draft"
	InvoiceSent    = "sent"
	InvoicePartial = "partial"
	InvoicePaid    = "paid"
	InvoiceOverdue = "overdue"
	InvoiceVoid    = "void"
)

// Payment states.
const (
	PaymentCompleted = "completed"
	PaymentPending   = "pending"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Ledger accounts.
const (
	AccountReceivable = "accounts_receivable"
	AccountRevenue    = "revenue"
	AccountCash       = "cash"
	AccountRefunds    = "refunds"
)

// LineItem is one product line on a CRM order.
type LineItem struct {
	ProductID   string          `json:"product_id" yaml:"product_id"`
	ProductName string          `json:"product_name" yaml:"product_name"`
	Quantity    int             `json:"quantity" yaml:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" yaml:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price" yaml:"total_price"`
}

// Order is a CRM sales order. Owned by the CRM collaborator; read-only to the core.
type Order struct {
	OrderID        string          `json:"order_id"`
	OpportunityID  string          `json:"opportunity_id"`
	ContactID      string          `json:"contact_id"`
	LineItems      []LineItem      `json:"line_items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountPct    decimal.Decimal `json:"discount_pct"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ApprovalStatus string          `json:"approval_status"`
	OrderStatus    string          `json:"order_status"`
	OrderDate      time.Time       `json:"order_date"`
	ApprovedBy     string          `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `json:"approved_at,omitempty"`
}

// Invoice is a finance invoice referencing a CRM order by OrderID.
// IssueDate and DueDate are calendar dates at UTC midnight.
type Invoice struct {
	InvoiceID    string          `json:"invoice_id"`
	OrderID      string          `json:"order_id"`
	CustomerID   string          `json:"customer_id"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	AmountDue    decimal.Decimal `json:"amount_due"`
	Status       string          `json:"status"`
	IssueDate    time.Time       `json:"issue_date"`
	DueDate      time.Time       `json:"due_date"`
	PaymentTerms string          `json:"payment_terms"`
}

// Payment is money received against an invoice.
type Payment struct {
	PaymentID       string          `json:"payment_id"`
	InvoiceID       string          `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	Method          string          `json:"payment_method"`
	PaymentDate     time.Time       `json:"payment_date"`
	Status          string          `json:"status"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
}

// LedgerEntry is one side of a double-entry posting. Entries are only ever
// appended; corrections are new offsetting entries.
type LedgerEntry struct {
	EntryID     string          `json:"entry_id"`
	InvoiceID   string          `json:"invoice_id,omitempty"`
	PaymentID   string          `json:"payment_id,omitempty"`
	Account     string          `json:"account"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
	PostedDate  time.Time       `json:"posted_date"`
}
