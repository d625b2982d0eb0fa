// Package harness runs reconciliation scenarios described in YAML.
//
// # Scenario Format
//
//	name: discount_without_invoice
//	description: "What this scenario validates"
//	dataset: ../datasets/unapproved_discount.yaml   # relative to the scenario file
//	now: "2025-06-01T12:00:00Z"                      # optional
//	steps:
//	  - reconcile: [ORD-1, ORD-404]
//	  - reconcile_all: true
//	assertions:
//	  - type: result
//	    order_id: ORD-1
//	    violations: [PRC-001, OIC-001]
//	    expect: { risk_score: 60, risk_classification: monitor }
//	  - type: audit_count
//	    order_id: ORD-1
//	    event_type: rule_violation
//	    count: 2
//	  - type: audit_order
//	    order_id: ORD-1
//	    events: [validation_started, risk_score_calculated, validation_completed]
//	  - type: statistics
//	    expect: { monitor_count: 1 }
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory record store and a
// throwaway audit directory, with a frozen clock and sequential
// correlation ids (corr-1, corr-2, ...) and log ids. The same scenario
// therefore always produces the same audit trail, which golden files pin.
package harness
