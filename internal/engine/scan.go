package engine

import (
	"context"
	"fmt"

	"github.com/roach88/recon/internal/risk"
	"github.com/roach88/recon/internal/rules"
)

// ghostScore is the fixed score of a ghost invoice result. Ghost results are
// always reported as monitor.
const ghostScore = 30

// ReconcileBatch reconciles each id independently, preserving order.
//
// Results for earlier ids stay cached when a later id fails. On error the
// results produced so far are returned alongside it.
func (r *Reconciler) ReconcileBatch(ctx context.Context, orderIDs []string) ([]Result, error) {
	out := make([]Result, 0, len(orderIDs))
	for _, id := range orderIDs {
		res, err := r.Reconcile(ctx, id)
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

// ReconcileAll reconciles every CRM order, then scans finance for ghost
// invoices.
//
// The finance collaborator is read once for the whole scan. The returned
// slice holds the per-order results in listing order; ghost results are
// only cached.
func (r *Reconciler) ReconcileAll(ctx context.Context) ([]Result, error) {
	snap, err := r.loadFinance(ctx, "")
	if err != nil {
		return nil, err
	}

	var out []Result
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return out, cancelledError("", err)
		}
		orders, total, err := r.orders.ListOrders(ctx, page, r.pageSize)
		if err != nil {
			return out, orderSourceError("", fmt.Errorf("list orders page %d: %w", page, err))
		}
		for _, order := range orders {
			out = append(out, r.reconcileOrder(order, snap))
		}
		if len(orders) == 0 || page*r.pageSize >= total {
			break
		}
	}

	ghosts, err := r.scanGhosts(ctx, snap)
	if err != nil {
		return out, err
	}

	r.metrics.RecordScan(len(out) + ghosts)
	r.log.Info("scan complete", "orders", len(out), "ghost_invoices", ghosts)
	return out, nil
}

// scanGhosts caches a result for every invoice whose order is unknown to the
// CRM. The result is keyed by that order id and replaces anything cached
// under it.
func (r *Reconciler) scanGhosts(ctx context.Context, snap *financeSnapshot) (int, error) {
	known, err := r.orders.OrderIDs(ctx)
	if err != nil {
		return 0, orderSourceError("", fmt.Errorf("order ids: %w", err))
	}

	now := r.clock.Now()
	ghosts := 0
	for _, inv := range snap.invoices {
		if _, ok := known[inv.OrderID]; ok {
			continue
		}
		r.cache(Result{
			OrderID:        inv.OrderID,
			RiskScore:      ghostScore,
			Classification: risk.Monitor,
			RulesEvaluated: 1,
			RulesFailed:    1,
			Violations:     []rules.Violation{rules.GhostInvoiceViolation(inv)},
			ValidatedAt:    now,
		})
		r.metrics.RecordGhostInvoice()
		r.log.Debug("ghost invoice", "invoice_id", inv.InvoiceID, "order_id", inv.OrderID)
		ghosts++
	}
	return ghosts, nil
}
