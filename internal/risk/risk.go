// Package risk turns rule violations into a 0-100 score and a classification.
//
// Everything here is pure: no context, no clock, no I/O.
package risk

import "github.com/roach88/recon/internal/rules"

// MaxScore caps every score.
const MaxScore = 100

// Classification thresholds. Both are inclusive upper bounds.
const (
	SafeMax    = 30
	MonitorMax = 70
)

// Classification is the risk tier of a score.
type Classification string

const (
	Safe     Classification = "safe"
	Monitor  Classification = "monitor"
	Critical Classification = "critical"
)

// Decision is the verdict recorded when a reconciliation completes.
type Decision string

const (
	DecisionPass   Decision = "pass"
	DecisionReview Decision = "review"
)

// Score sums violation weights, capped at MaxScore and floored at 0.
func Score(violations []rules.Violation) int {
	total := 0
	for _, v := range violations {
		total += v.Weight
	}
	return Clamp(total)
}

// Clamp bounds a raw weight sum to [0, MaxScore].
func Clamp(raw int) int {
	if raw < 0 {
		return 0
	}
	if raw > MaxScore {
		return MaxScore
	}
	return raw
}

// Classify maps a score to its tier: <=30 safe, <=70 monitor, else critical.
func Classify(score int) Classification {
	switch {
	case score <= SafeMax:
		return Safe
	case score <= MonitorMax:
		return Monitor
	default:
		return Critical
	}
}

// DecisionFor returns pass for safe results and review for everything else.
func DecisionFor(c Classification) Decision {
	if c == Safe {
		return DecisionPass
	}
	return DecisionReview
}
