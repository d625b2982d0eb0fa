// Package engine implements the CRM to finance reconciliation orchestrator.
//
// A Reconciler drives one order through a fixed sequence of steps:
//
//	order-lookup → context-build → rule-evaluation → scoring → audit-emit → result-cache
//
// A missing order short-circuits at order-lookup into a synthetic critical
// result carrying a single SYS-001 violation. Otherwise the reconciler
// gathers every invoice referencing the order (the first one found is the
// primary invoice), the primary invoice's payments and ledger entries, runs
// the rule catalogue, scores the violations and emits the audit trail under
// one correlation id.
//
// AUDIT IS BEST EFFORT:
// An audit write failure never fails a reconciliation. The error is
// discarded after being counted in the metrics collector.
//
// RESULT CACHE:
// One result per order id. A later reconciliation of the same id replaces
// the earlier result; no history is kept. Ghost invoice results are keyed by
// the missing order id they reference and share the same map.
//
// Thread-safety: Reconciler methods are safe for concurrent use. Rules run
// sequentially within a call; the cache is guarded by a mutex.
package engine
