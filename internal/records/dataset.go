package records

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Dataset is a bundle of CRM and finance records loaded from a YAML file.
type Dataset struct {
	Orders        []Order
	Invoices      []Invoice
	Payments      []Payment
	LedgerEntries []LedgerEntry
}

// datasetFile is the on-disk YAML shape. Dates are strings so both bare
// dates and full timestamps are accepted.
type datasetFile struct {
	Orders []struct {
		OrderID        string          `yaml:"order_id"`
		OpportunityID  string          `yaml:"opportunity_id"`
		ContactID      string          `yaml:"contact_id"`
		LineItems      []LineItem      `yaml:"line_items"`
		Subtotal       decimal.Decimal `yaml:"subtotal"`
		DiscountPct    decimal.Decimal `yaml:"discount_pct"`
		TotalAmount    decimal.Decimal `yaml:"total_amount"`
		ApprovalStatus string          `yaml:"approval_status"`
		OrderStatus    string          `yaml:"order_status"`
		OrderDate      string          `yaml:"order_date"`
		ApprovedBy     string          `yaml:"approved_by"`
	} `yaml:"orders"`
	Invoices []struct {
		InvoiceID    string          `yaml:"invoice_id"`
		OrderID      string          `yaml:"order_id"`
		CustomerID   string          `yaml:"customer_id"`
		Subtotal     decimal.Decimal `yaml:"subtotal"`
		TaxAmount    decimal.Decimal `yaml:"tax_amount"`
		TotalAmount  decimal.Decimal `yaml:"total_amount"`
		AmountPaid   decimal.Decimal `yaml:"amount_paid"`
		Status       string          `yaml:"status"`
		IssueDate    string          `yaml:"issue_date"`
		DueDate      string          `yaml:"due_date"`
		PaymentTerms string          `yaml:"payment_terms"`
	} `yaml:"invoices"`
	Payments []struct {
		PaymentID       string          `yaml:"payment_id"`
		InvoiceID       string          `yaml:"invoice_id"`
		Amount          decimal.Decimal `yaml:"amount"`
		Method          string          `yaml:"payment_method"`
		PaymentDate     string          `yaml:"payment_date"`
		Status          string          `yaml:"status"`
		ReferenceNumber string          `yaml:"reference_number"`
	} `yaml:"payments"`
	LedgerEntries []struct {
		EntryID     string          `yaml:"entry_id"`
		InvoiceID   string          `yaml:"invoice_id"`
		PaymentID   string          `yaml:"payment_id"`
		Account     string          `yaml:"account"`
		Debit       decimal.Decimal `yaml:"debit"`
		Credit      decimal.Decimal `yaml:"credit"`
		Description string          `yaml:"description"`
		PostedDate  string          `yaml:"posted_date"`
	} `yaml:"ledger_entries"`
}

// LoadDataset reads a YAML dataset file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	ds, err := ParseDataset(data)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

// ParseDataset decodes YAML dataset content. Unknown fields are rejected.
//
// Missing values are filled the way the CRM and finance systems would:
// order subtotal from line items, discount amount from the percentage,
// invoice amount due from total minus paid, and default statuses.
func ParseDataset(data []byte) (*Dataset, error) {
	var raw datasetFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	ds := &Dataset{}
	hundred := decimal.NewFromInt(100)

	for i, ro := range raw.Orders {
		if strings.TrimSpace(ro.OrderID) == "" {
			return nil, fmt.Errorf("orders[%d]: order_id is required", i)
		}
		o := Order{
			OrderID:        normalizeID(ro.OrderID),
			OpportunityID:  normalizeID(ro.OpportunityID),
			ContactID:      normalizeID(ro.ContactID),
			Subtotal:       ro.Subtotal,
			DiscountPct:    ro.DiscountPct,
			TotalAmount:    ro.TotalAmount,
			ApprovalStatus: orDefault(ro.ApprovalStatus, ApprovalPending),
			OrderStatus:    orDefault(ro.OrderStatus, OrderConfirmed),
			ApprovedBy:     ro.ApprovedBy,
		}
		for _, item := range ro.LineItems {
			item.ProductID = normalizeID(item.ProductID)
			if item.TotalPrice.IsZero() {
				item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			}
			o.LineItems = append(o.LineItems, item)
		}
		if o.Subtotal.IsZero() {
			for _, item := range o.LineItems {
				o.Subtotal = o.Subtotal.Add(item.TotalPrice)
			}
		}
		o.DiscountAmount = o.Subtotal.Mul(o.DiscountPct).Div(hundred).Round(2)
		if o.TotalAmount.IsZero() {
			o.TotalAmount = o.Subtotal.Sub(o.DiscountAmount)
		}
		var err error
		if o.OrderDate, err = parseTime(ro.OrderDate); err != nil {
			return nil, fmt.Errorf("orders[%d]: %w", i, err)
		}
		ds.Orders = append(ds.Orders, o)
	}

	for i, ri := range raw.Invoices {
		if strings.TrimSpace(ri.InvoiceID) == "" {
			return nil, fmt.Errorf("invoices[%d]: invoice_id is required", i)
		}
		inv := Invoice{
			InvoiceID:    normalizeID(ri.InvoiceID),
			OrderID:      normalizeID(ri.OrderID),
			CustomerID:   normalizeID(ri.CustomerID),
			Subtotal:     ri.Subtotal,
			TaxAmount:    ri.TaxAmount,
			TotalAmount:  ri.TotalAmount,
			AmountPaid:   ri.AmountPaid,
			Status:       orDefault(ri.Status, InvoiceSent),
			PaymentTerms: orDefault(ri.PaymentTerms, "Net 30"),
		}
		if inv.Subtotal.IsZero() {
			inv.Subtotal = inv.TotalAmount.Sub(inv.TaxAmount)
		}
		inv.AmountDue = inv.TotalAmount.Sub(inv.AmountPaid)
		var err error
		if inv.IssueDate, err = parseDate(ri.IssueDate); err != nil {
			return nil, fmt.Errorf("invoices[%d]: %w", i, err)
		}
		if inv.DueDate, err = parseDate(ri.DueDate); err != nil {
			return nil, fmt.Errorf("invoices[%d]: %w", i, err)
		}
		ds.Invoices = append(ds.Invoices, inv)
	}

	for i, rp := range raw.Payments {
		if strings.TrimSpace(rp.PaymentID) == "" {
			return nil, fmt.Errorf("payments[%d]: payment_id is required", i)
		}
		p := Payment{
			PaymentID:       normalizeID(rp.PaymentID),
			InvoiceID:       normalizeID(rp.InvoiceID),
			Amount:          rp.Amount,
			Method:          orDefault(rp.Method, "credit_card"),
			Status:          orDefault(rp.Status, PaymentCompleted),
			ReferenceNumber: rp.ReferenceNumber,
		}
		var err error
		if p.PaymentDate, err = parseTime(rp.PaymentDate); err != nil {
			return nil, fmt.Errorf("payments[%d]: %w", i, err)
		}
		ds.Payments = append(ds.Payments, p)
	}

	for i, rl := range raw.LedgerEntries {
		if strings.TrimSpace(rl.EntryID) == "" {
			return nil, fmt.Errorf("ledger_entries[%d]: entry_id is required", i)
		}
		e := LedgerEntry{
			EntryID:     normalizeID(rl.EntryID),
			InvoiceID:   normalizeID(rl.InvoiceID),
			PaymentID:   normalizeID(rl.PaymentID),
			Account:     orDefault(rl.Account, AccountReceivable),
			Debit:       rl.Debit,
			Credit:      rl.Credit,
			Description: rl.Description,
		}
		var err error
		if e.PostedDate, err = parseTime(rl.PostedDate); err != nil {
			return nil, fmt.Errorf("ledger_entries[%d]: %w", i, err)
		}
		ds.LedgerEntries = append(ds.LedgerEntries, e)
	}

	return ds, nil
}

// Apply writes every record of the dataset into sink: orders, invoices,
// payments, then ledger entries.
func (ds *Dataset) Apply(ctx context.Context, sink Sink) error {
	for _, o := range ds.Orders {
		if err := sink.InsertOrder(ctx, o); err != nil {
			return err
		}
	}
	for _, inv := range ds.Invoices {
		if err := sink.InsertInvoice(ctx, inv); err != nil {
			return err
		}
	}
	for _, p := range ds.Payments {
		if err := sink.InsertPayment(ctx, p); err != nil {
			return err
		}
	}
	for _, e := range ds.LedgerEntries {
		if err := sink.InsertLedgerEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// normalizeID trims whitespace and applies Unicode NFC so ids typed on
// different systems compare equal.
func normalizeID(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return strings.TrimSpace(s)
}
