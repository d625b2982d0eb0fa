package audit

import (
	"sort"
	"time"
)

// DefaultPageSize is the query page size when none is given.
const DefaultPageSize = 50

// Filter selects entries for Query. Zero-valued fields do not filter.
// From and To are inclusive.
type Filter struct {
	TransactionID string
	EventType     EventType
	Severity      string
	Decision      Decision
	Source        string
	From          time.Time
	To            time.Time

	Page     int
	PageSize int
}

func (f Filter) matches(e *Entry) bool {
	switch {
	case f.TransactionID != "" && e.TransactionID != f.TransactionID:
		return false
	case f.EventType != "" && e.EventType != f.EventType:
		return false
	case f.Severity != "" && e.Severity != f.Severity:
		return false
	case f.Decision != "" && e.Decision != f.Decision:
		return false
	case f.Source != "" && e.Source != f.Source:
		return false
	case !f.From.IsZero() && e.Timestamp.Before(f.From):
		return false
	case !f.To.IsZero() && e.Timestamp.After(f.To):
		return false
	}
	return true
}

// Query returns one page of matching entries, newest first, and the total
// number of matches. Entries with equal timestamps keep their stored order.
func (s *Store) Query(f Filter) ([]Entry, int) {
	s.mu.Lock()
	var matched []Entry
	for i := range s.all {
		if f.matches(&s.all[i]) {
			matched = append(matched, s.all[i])
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return []Entry{}, total
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total
}

// ByTransaction returns every entry for a transaction id in stored order.
func (s *Store) ByTransaction(transactionID string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.byTx[transactionID])
}

// ByCorrelation returns every entry sharing a correlation id in stored order.
func (s *Store) ByCorrelation(correlationID string) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.byCorr[correlationID])
}

// Get returns the entry with the given log id.
func (s *Store) Get(logID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.byID[logID]
	if !ok {
		return Entry{}, false
	}
	return s.all[i], true
}

// All returns every entry in stored order.
func (s *Store) All() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry{}, s.all...)
}

// Len returns the number of entries in memory.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.all)
}

// collect copies the indexed entries. Caller must hold s.mu.
func (s *Store) collect(idx []int) []Entry {
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.all[i])
	}
	return out
}
