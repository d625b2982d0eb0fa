package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/recon/internal/audit"
	"github.com/roach88/recon/internal/metrics"
	"github.com/roach88/recon/internal/records"
	"github.com/roach88/recon/internal/risk"
	"github.com/roach88/recon/internal/rules"
)

// DefaultPageSize is the page size used when listing orders for a full scan.
const DefaultPageSize = 100

// Synthetic violation emitted when the order does not exist in the CRM.
const (
	OrderNotFoundID     = "SYS-001"
	OrderNotFoundName   = "Order Not Found"
	orderNotFoundWeight = 100
)

// Result is the outcome of reconciling one order.
type Result struct {
	OrderID        string              `json:"order_id"`
	RiskScore      int                 `json:"risk_score"`
	Classification risk.Classification `json:"risk_classification"`
	RulesEvaluated int                 `json:"rules_evaluated"`
	RulesPassed    int                 `json:"rules_passed"`
	RulesFailed    int                 `json:"rules_failed"`
	RulesWarned    int                 `json:"rules_warned"`
	RulesSkipped   int                 `json:"rules_skipped"`
	Violations     []rules.Violation   `json:"violations"`
	ValidatedAt    time.Time           `json:"validated_at"`
	CorrelationID  string              `json:"correlation_id,omitempty"`
}

// RuleIDs returns the ids of the violated rules in result order.
func (r Result) RuleIDs() []string {
	ids := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		ids[i] = v.RuleID
	}
	return ids
}

// Reconciler compares CRM orders against finance records.
//
// Thread-safety model:
//   - Reconcile, ReconcileBatch, ReconcileAll: safe from any goroutine
//   - read methods (Result, Results, Statistics, ...): safe from any goroutine
//
// INVARIANTS:
//   - the rule registry is never mutated after construction
//   - results holds at most one Result per key
type Reconciler struct {
	orders    records.OrderSource
	finance   records.FinanceSource
	registry  *rules.Registry
	evaluator *rules.Evaluator
	audit     *audit.Logger
	clock     Clock
	corrGen   CorrelationGenerator
	metrics   *metrics.Collector
	pageSize  int
	log       *slog.Logger

	mu      sync.Mutex
	results map[string]Result
}

// Option allows configuration of reconciler parameters.
type Option func(*Reconciler)

// WithRegistry replaces the default rule catalogue.
func WithRegistry(reg *rules.Registry) Option {
	return func(r *Reconciler) { r.registry = reg }
}

// WithAuditLogger enables audit emission. Without it no events are written.
func WithAuditLogger(l *audit.Logger) Option {
	return func(r *Reconciler) { r.audit = l }
}

// WithClock overrides the clock used for validation timestamps.
func WithClock(c Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

// WithCorrelation overrides the correlation id generator.
//
// Default: UUIDv7Generator.
// Use NewFixedGenerator("corr-1", ...) in tests.
func WithCorrelation(g CorrelationGenerator) Option {
	return func(r *Reconciler) { r.corrGen = g }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Reconciler) { r.metrics = c }
}

// WithPageSize sets how many orders a full scan fetches per page.
func WithPageSize(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

// WithLogger overrides the structured logger (slog.Default() otherwise).
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// New creates a Reconciler over the CRM and finance collaborators.
func New(orders records.OrderSource, finance records.FinanceSource, opts ...Option) *Reconciler {
	r := &Reconciler{
		orders:   orders,
		finance:  finance,
		registry: rules.DefaultRegistry(),
		clock:    SystemClock{},
		corrGen:  UUIDv7Generator{},
		pageSize: DefaultPageSize,
		log:      slog.Default(),
		results:  make(map[string]Result),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.evaluator = rules.NewEvaluator(r.registry)
	return r
}

// Registry returns the rule catalogue in use.
func (r *Reconciler) Registry() *rules.Registry {
	return r.registry
}

// financeSnapshot is one read of the finance collaborator.
type financeSnapshot struct {
	invoices []records.Invoice
	payments []records.Payment
	entries  []records.LedgerEntry
}

func (r *Reconciler) loadFinance(ctx context.Context, orderID string) (*financeSnapshot, error) {
	invoices, err := r.finance.ListInvoices(ctx)
	if err != nil {
		return nil, financeSourceError(orderID, fmt.Errorf("list invoices: %w", err))
	}
	payments, err := r.finance.ListPayments(ctx)
	if err != nil {
		return nil, financeSourceError(orderID, fmt.Errorf("list payments: %w", err))
	}
	entries, err := r.finance.ListLedgerEntries(ctx)
	if err != nil {
		return nil, financeSourceError(orderID, fmt.Errorf("list ledger entries: %w", err))
	}
	return &financeSnapshot{invoices: invoices, payments: payments, entries: entries}, nil
}

// Reconcile runs the full state machine for one order and caches the result.
//
// A missing order yields a synthetic critical SYS-001 result with no audit
// trail. Only collaborator failures are returned as errors.
func (r *Reconciler) Reconcile(ctx context.Context, orderID string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, cancelledError(orderID, err)
	}

	order, err := r.orders.GetOrder(ctx, orderID)
	if errors.Is(err, records.ErrNotFound) {
		return r.orderNotFound(orderID), nil
	}
	if err != nil {
		return Result{}, orderSourceError(orderID, err)
	}

	snap, err := r.loadFinance(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	return r.reconcileOrder(order, snap), nil
}

func (r *Reconciler) orderNotFound(orderID string) Result {
	res := Result{
		OrderID:        orderID,
		RiskScore:      risk.MaxScore,
		Classification: risk.Critical,
		RulesEvaluated: 0,
		RulesFailed:    1,
		Violations: []rules.Violation{{
			RuleID:   OrderNotFoundID,
			RuleName: OrderNotFoundName,
			Severity: rules.SeverityCritical,
			Weight:   orderNotFoundWeight,
			Message:  fmt.Sprintf("Order %s does not exist in the CRM system", orderID),
		}},
		ValidatedAt: r.clock.Now(),
	}

	r.log.Debug("order not found", "order_id", orderID)
	r.metrics.RecordReconciliation(string(res.Classification), res.RuleIDs(), 0)
	r.cache(res)
	return res
}

// reconcileOrder runs context-build through result-cache against an
// existing order and a finance snapshot.
func (r *Reconciler) reconcileOrder(order records.Order, snap *financeSnapshot) Result {
	started := time.Now()
	now := r.clock.Now()
	correlationID := r.corrGen.Generate()
	log := r.log.With("correlation_id", correlationID, "order_id", order.OrderID)

	// context-build
	rc := buildContext(order, snap, now)

	// rule-evaluation
	outcome := r.evaluator.Evaluate(rc)

	// scoring
	score := risk.Score(outcome.Violations)
	class := risk.Classify(score)

	res := Result{
		OrderID:        order.OrderID,
		RiskScore:      score,
		Classification: class,
		RulesEvaluated: r.registry.Len(),
		RulesSkipped:   len(outcome.Skipped),
		Violations:     outcome.Violations,
		ValidatedAt:    now,
		CorrelationID:  correlationID,
	}
	if res.Violations == nil {
		res.Violations = []rules.Violation{}
	}
	for _, v := range outcome.Violations {
		if v.Severity.IsFailure() {
			res.RulesFailed++
		} else {
			res.RulesWarned++
		}
	}
	res.RulesPassed = res.RulesEvaluated - len(outcome.Violations) - res.RulesSkipped

	// audit-emit
	r.emitAudit(log, res, outcome)

	// result-cache
	r.cache(res)

	for _, id := range outcome.Skipped {
		r.metrics.RecordSkippedRule(id)
		log.Warn("rule skipped", "rule_id", id)
	}
	r.metrics.RecordReconciliation(string(class), res.RuleIDs(), time.Since(started))
	log.Debug("order reconciled",
		"risk_score", score,
		"classification", class,
		"violations", len(res.Violations))

	return res
}

// buildContext gathers every invoice referencing the order. The first one
// found is primary; payments and ledger entries are those of the primary.
func buildContext(order records.Order, snap *financeSnapshot, now time.Time) *rules.Context {
	rc := &rules.Context{Order: order, Now: now}

	for _, inv := range snap.invoices {
		if inv.OrderID == order.OrderID {
			rc.Invoices = append(rc.Invoices, inv)
		}
	}
	if len(rc.Invoices) == 0 {
		return rc
	}

	primary := rc.Invoices[0]
	rc.Invoice = &primary
	for _, p := range snap.payments {
		if p.InvoiceID == primary.InvoiceID {
			rc.Payments = append(rc.Payments, p)
		}
	}
	for _, e := range snap.entries {
		if e.InvoiceID == primary.InvoiceID {
			rc.LedgerEntries = append(rc.LedgerEntries, e)
		}
	}
	return rc
}

// emitAudit writes the trail of one reconciliation under its correlation id.
// Write errors are dropped here after being counted.
func (r *Reconciler) emitAudit(log *slog.Logger, res Result, outcome rules.Outcome) {
	if r.audit == nil {
		return
	}
	tx, corr := res.OrderID, res.CorrelationID

	r.discard(log, audit.EventValidationStarted, r.audit.LogValidationStart(tx, corr))

	violated := make(map[string]rules.Violation, len(outcome.Violations))
	for _, v := range outcome.Violations {
		violated[v.RuleID] = v
	}
	skipped := make(map[string]bool, len(outcome.Skipped))
	for _, id := range outcome.Skipped {
		skipped[id] = true
	}

	for _, rule := range r.registry.All() {
		if skipped[rule.ID] {
			_, err := r.audit.LogEvent(audit.Entry{
				EventType:     audit.EventRuleEvaluated,
				TransactionID: tx,
				RuleID:        rule.ID,
				RuleName:      rule.Name,
				Decision:      audit.DecisionWarn,
				Details:       map[string]any{"skipped": true},
				CorrelationID: corr,
			})
			r.discard(log, audit.EventRuleEvaluated, err)
			continue
		}

		result := audit.RuleResult{
			RuleID:   rule.ID,
			RuleName: rule.Name,
			Severity: string(rule.Severity),
			Passed:   true,
		}
		eventType := audit.EventRuleEvaluated
		if v, ok := violated[rule.ID]; ok {
			result.Passed = false
			result.Details = map[string]any{
				"message":        v.Message,
				"weight":         v.Weight,
				"expected_value": v.ExpectedValue,
				"actual_value":   v.ActualValue,
			}
			eventType = audit.EventRuleViolation
		}
		r.discard(log, eventType, r.audit.LogRuleResult(tx, corr, result))
	}

	r.discard(log, audit.EventRiskScoreCalculated,
		r.audit.LogRiskScore(tx, corr, res.RiskScore, string(res.Classification)))

	decision := audit.Decision(risk.DecisionFor(res.Classification))
	r.discard(log, audit.EventValidationCompleted,
		r.audit.LogValidationComplete(tx, corr, res.RiskScore, string(res.Classification), decision))
}

func (r *Reconciler) discard(log *slog.Logger, eventType audit.EventType, err error) {
	if err == nil {
		return
	}
	r.metrics.RecordAuditFailure(string(eventType))
	log.Debug("audit write dropped", "event_type", eventType, "error", err)
}

func (r *Reconciler) cache(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[res.OrderID] = res
}
