// Package metrics collects reconciliation telemetry.
// It wraps Prometheus collectors in a private registry so a batch run can
// dump them to a node-exporter textfile when it finishes.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "recon"

// Collector provides reconciliation metrics collection.
//
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	reconciliations     *prometheus.CounterVec
	violations          *prometheus.CounterVec
	skippedRules        *prometheus.CounterVec
	auditWriteFailures  *prometheus.CounterVec
	ghostInvoices       prometheus.Counter
	reconcileDuration   prometheus.Histogram
	lastScanResultCount prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{registry: prometheus.NewRegistry()}

	c.reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation results by risk classification",
		},
		[]string{"classification"},
	)

	c.violations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_violations_total",
			Help:      "Rule violations by rule id",
		},
		[]string{"rule_id"},
	)

	c.skippedRules = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_skipped_total",
			Help:      "Rule evaluations skipped because the rule errored or panicked",
		},
		[]string{"rule_id"},
	)

	c.auditWriteFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "write_failures_total",
			Help:      "Audit events dropped because the write failed",
		},
		[]string{"event_type"},
	)

	c.ghostInvoices = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ghost_invoices_total",
			Help:      "Invoices found referencing an order unknown to the CRM",
		},
	)

	c.reconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Time taken to reconcile one order",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
		},
	)

	c.lastScanResultCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_scan_results",
			Help:      "Number of results produced by the most recent full scan",
		},
	)

	c.registry.MustRegister(
		c.reconciliations,
		c.violations,
		c.skippedRules,
		c.auditWriteFailures,
		c.ghostInvoices,
		c.reconcileDuration,
		c.lastScanResultCount,
	)

	return c
}

// Registry returns the private registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordReconciliation counts one result and its violations.
func (c *Collector) RecordReconciliation(classification string, ruleIDs []string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.reconciliations.WithLabelValues(classification).Inc()
	for _, id := range ruleIDs {
		c.violations.WithLabelValues(id).Inc()
	}
	c.reconcileDuration.Observe(elapsed.Seconds())
}

// RecordSkippedRule counts a rule that could not be evaluated.
func (c *Collector) RecordSkippedRule(ruleID string) {
	if c == nil {
		return
	}
	c.skippedRules.WithLabelValues(ruleID).Inc()
}

// RecordAuditFailure counts a dropped audit event.
func (c *Collector) RecordAuditFailure(eventType string) {
	if c == nil {
		return
	}
	c.auditWriteFailures.WithLabelValues(eventType).Inc()
}

// RecordGhostInvoice counts one ghost invoice.
func (c *Collector) RecordGhostInvoice() {
	if c == nil {
		return
	}
	c.ghostInvoices.Inc()
}

// RecordScan sets the result count of the latest full scan.
func (c *Collector) RecordScan(results int) {
	if c == nil {
		return
	}
	c.lastScanResultCount.Set(float64(results))
}

// WriteTextfile writes every metric in the text exposition format to path.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
