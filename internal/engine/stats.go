package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/roach88/recon/internal/risk"
)

// topViolationLimit caps Statistics.TopViolations.
const topViolationLimit = 5

// RuleCount is how often a rule was violated across cached results.
type RuleCount struct {
	RuleID string `json:"rule_id"`
	Count  int    `json:"count"`
}

// Statistics summarizes the result cache.
type Statistics struct {
	TotalTransactions int         `json:"total_transactions"`
	TotalValidated    int         `json:"total_validated"`
	SafeCount         int         `json:"safe_count"`
	MonitorCount      int         `json:"monitor_count"`
	CriticalCount     int         `json:"critical_count"`
	AverageRiskScore  float64     `json:"average_risk_score"`
	TopViolations     []RuleCount `json:"top_violations"`
}

// Bucket is one bar of the score histogram.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Distribution is the score histogram: ten 10-wide buckets from 0-9 to
// 90-99 plus a dedicated bucket for 100.
type Distribution struct {
	Buckets []Bucket `json:"buckets"`
	Total   int      `json:"total"`
}

// ResultFilter narrows Filter output. Zero fields match everything; score
// bounds are inclusive.
type ResultFilter struct {
	Classification risk.Classification
	MinScore       *int
	MaxScore       *int
}

func (f ResultFilter) matches(res Result) bool {
	if f.Classification != "" && res.Classification != f.Classification {
		return false
	}
	if f.MinScore != nil && res.RiskScore < *f.MinScore {
		return false
	}
	if f.MaxScore != nil && res.RiskScore > *f.MaxScore {
		return false
	}
	return true
}

// Result returns the cached result for an order id.
func (r *Reconciler) Result(orderID string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[orderID]
	return res, ok
}

// Results returns every cached result sorted by order id.
func (r *Reconciler) Results() []Result {
	return r.Filter(ResultFilter{})
}

// Filter returns the cached results matching f, sorted by order id.
func (r *Reconciler) Filter(f ResultFilter) []Result {
	r.mu.Lock()
	out := make([]Result, 0, len(r.results))
	for _, res := range r.results {
		if f.matches(res) {
			out = append(out, res)
		}
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// Statistics projects the result cache. TotalTransactions is the number of
// orders the CRM knows about, whether or not they have been reconciled.
func (r *Reconciler) Statistics(ctx context.Context) (Statistics, error) {
	_, total, err := r.orders.ListOrders(ctx, 1, 1)
	if err != nil {
		return Statistics{}, orderSourceError("", fmt.Errorf("count orders: %w", err))
	}

	results := r.Results()
	stats := Statistics{
		TotalTransactions: total,
		TotalValidated:    len(results),
		TopViolations:     []RuleCount{},
	}

	sum := 0
	counts := make(map[string]int)
	for _, res := range results {
		sum += res.RiskScore
		switch res.Classification {
		case risk.Safe:
			stats.SafeCount++
		case risk.Monitor:
			stats.MonitorCount++
		case risk.Critical:
			stats.CriticalCount++
		}
		for _, v := range res.Violations {
			counts[v.RuleID]++
		}
	}

	if len(results) > 0 {
		stats.AverageRiskScore = decimal.NewFromInt(int64(sum)).
			Div(decimal.NewFromInt(int64(len(results)))).
			Round(2).
			InexactFloat64()
	}

	for id, n := range counts {
		stats.TopViolations = append(stats.TopViolations, RuleCount{RuleID: id, Count: n})
	}
	sort.Slice(stats.TopViolations, func(i, j int) bool {
		a, b := stats.TopViolations[i], stats.TopViolations[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.RuleID < b.RuleID
	})
	if len(stats.TopViolations) > topViolationLimit {
		stats.TopViolations = stats.TopViolations[:topViolationLimit]
	}

	return stats, nil
}

// Distribution buckets the cached scores.
func (r *Reconciler) Distribution() Distribution {
	d := Distribution{Buckets: make([]Bucket, 11)}
	for i := 0; i < 10; i++ {
		d.Buckets[i].Label = fmt.Sprintf("%d-%d", i*10, i*10+9)
	}
	d.Buckets[10].Label = "100"

	for _, res := range r.Results() {
		idx := risk.Clamp(res.RiskScore) / 10
		d.Buckets[idx].Count++
		d.Total++
	}
	return d
}
