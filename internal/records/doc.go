// Package records holds the CRM order and finance record collaborators the
// reconciliation core reads from.
//
// The core only ever sees two narrow read interfaces:
//   - OrderSource: fetch one order, page through all orders, list the order key set
//   - FinanceSource: list invoices, payments and ledger entries
//
// Filtering by reference id (order_id, invoice_id) is the caller's job.
//
// Two implementations are provided:
//   - Store: SQLite-backed, append-only inserts, deterministic ordering
//   - Memory: insertion-ordered in-memory maps for tests and scenarios
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce line item ownership
//
// Money is stored as decimal TEXT and read back with shopspring/decimal so no
// float rounding ever reaches the rule engine.
package records
