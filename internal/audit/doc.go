// Package audit implements the append-only reconciliation audit trail.
//
// Store persists Entry records as newline-delimited JSON, one file per UTC
// calendar day (audit_logs_YYYY-MM-DD.json). On Open every partition is
// replayed in filename order, then line order, into an in-memory list with
// two secondary indexes: by transaction id and by correlation id.
//
// Entries are never edited. Disk writes only append. Purge is the single
// deletion path and works at two granularities: memory drops individual
// entries older than the cutoff instant, disk drops whole partition files
// whose date is strictly before the cutoff date. A purge with a mid-day
// cutoff therefore leaves older entries of that day on disk; they come back
// on the next Open.
//
// Logger is the typed vocabulary the reconciler and CLI emit through.
//
// Thread-safety: Store and Logger are safe for concurrent use.
package audit
