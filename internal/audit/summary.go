package audit

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Summary is an overview of everything in the audit store.
type Summary struct {
	TotalEvents      int               `json:"total_events"`
	EventsByType     map[string]int    `json:"events_by_type"`
	EventsBySeverity map[string]int    `json:"events_by_severity"`
	EventsByDecision map[string]int    `json:"events_by_decision"`
	DateRange        map[string]string `json:"date_range"`
}

// Summary counts entries by type, severity and decision and reports the
// earliest and latest timestamps.
func (l *Logger) Summary() Summary {
	entries := l.store.All()
	sum := Summary{
		TotalEvents:      len(entries),
		EventsByType:     map[string]int{},
		EventsBySeverity: map[string]int{},
		EventsByDecision: map[string]int{},
		DateRange:        map[string]string{},
	}

	var earliest, latest time.Time
	for _, e := range entries {
		sum.EventsByType[string(e.EventType)]++
		if e.Severity != "" {
			sum.EventsBySeverity[e.Severity]++
		}
		if e.Decision != "" {
			sum.EventsByDecision[string(e.Decision)]++
		}
		if earliest.IsZero() || e.Timestamp.Before(earliest) {
			earliest = e.Timestamp
		}
		if latest.IsZero() || e.Timestamp.After(latest) {
			latest = e.Timestamp
		}
	}
	if !earliest.IsZero() {
		sum.DateRange["earliest"] = earliest.Format(time.RFC3339Nano)
		sum.DateRange["latest"] = latest.Format(time.RFC3339Nano)
	}
	return sum
}

// Export returns the entries between the start of from's UTC day and the
// end of to's UTC day as an indented JSON array, newest first.
func (l *Logger) Export(from, to time.Time) ([]byte, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("export: to %s is before from %s", to.Format(dateLayout), from.Format(dateLayout))
	}
	start := startOfDay(from)
	end := startOfDay(to).Add(24*time.Hour - time.Nanosecond)

	entries, _ := l.store.Query(Filter{From: start, To: end, PageSize: math.MaxInt32})
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
