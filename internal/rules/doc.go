// Package rules holds the reconciliation rule catalogue.
//
// A Rule is a pure check over a Context (one CRM order plus the finance
// records that reference it). A passing rule yields nothing; a failing rule
// yields a Violation carrying the rule's severity and weight.
//
// The catalogue is closed: twelve rules in three categories, registered in a
// fixed order by DefaultRegistry. The Evaluator runs every registered rule in
// that order and isolates failures so one broken rule cannot abort a scan.
//
// Rules never mutate the Context. Rules that need data the Context does not
// have (no invoice, no ledger entries) pass.
package rules
