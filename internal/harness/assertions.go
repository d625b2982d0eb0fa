package harness

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"

	"github.com/roach88/recon/internal/audit"
)

// EvaluateAssertions checks every assertion against result and returns the
// failure messages. An empty slice means every assertion passed.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertResult:
		return assertResult(result, a)
	case AssertStatistics:
		return matchSubset(result.Statistics, a.Expect)
	case AssertAuditCount:
		return assertAuditCount(result, a)
	case AssertAuditOrder:
		return assertAuditOrder(result, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertResult(result *Result, a Assertion) error {
	res, ok := result.find(a.OrderID)
	if !ok {
		return fmt.Errorf("no result for order %s", a.OrderID)
	}
	if a.Violations != nil {
		got := res.RuleIDs()
		if !slices.Equal(got, a.Violations) {
			return fmt.Errorf("order %s: violations %v, want %v", a.OrderID, got, a.Violations)
		}
	}
	if err := matchSubset(res, a.Expect); err != nil {
		return fmt.Errorf("order %s: %w", a.OrderID, err)
	}
	return nil
}

func assertAuditCount(result *Result, a Assertion) error {
	n := 0
	for _, e := range matchingEntries(result.Trail, a.OrderID) {
		if a.EventType == "" || string(e.EventType) == a.EventType {
			n++
		}
	}
	if n != a.Count {
		return fmt.Errorf("found %d entries, want %d", n, a.Count)
	}
	return nil
}

// assertAuditOrder checks that Events is a subsequence of the trail's event
// types.
func assertAuditOrder(result *Result, a Assertion) error {
	entries := matchingEntries(result.Trail, a.OrderID)
	next := 0
	for _, e := range entries {
		if next < len(a.Events) && string(e.EventType) == a.Events[next] {
			next++
		}
	}
	if next < len(a.Events) {
		return fmt.Errorf("event %q not found in order (matched %d of %d)", a.Events[next], next, len(a.Events))
	}
	return nil
}

func matchingEntries(trail []audit.Entry, transactionID string) []audit.Entry {
	if transactionID == "" {
		return trail
	}
	var out []audit.Entry
	for _, e := range trail {
		if e.TransactionID == transactionID {
			out = append(out, e)
		}
	}
	return out
}

// matchSubset compares the JSON form of actual against expected fields.
// Scalars are compared by their printed form so YAML ints match JSON numbers.
func matchSubset(actual any, expected map[string]any) error {
	data, err := json.Marshal(actual)
	if err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		got, ok := fields[k]
		if !ok {
			return fmt.Errorf("unknown field %q", k)
		}
		if fmt.Sprint(got) != fmt.Sprint(expected[k]) {
			return fmt.Errorf("%s = %v, want %v", k, got, expected[k])
		}
	}
	return nil
}
