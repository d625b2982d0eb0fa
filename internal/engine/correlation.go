package engine

import (
	"sync"

	"github.com/google/uuid"
)

// CorrelationGenerator produces the correlation id that threads together
// every audit event of one reconciliation call.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type CorrelationGenerator interface {
	Generate() string
}

// UUIDv7Generator is the production source of correlation ids. Ids carry
// their issue time in the leading bits, so audit events grouped by
// correlation list in the order reconciliations started.
type UUIDv7Generator struct{}

// Generate returns a fresh correlation id. It panics only if the system
// random source fails.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a scripted list of correlation ids so a test can
// name the audit trail of each reconciliation up front. Safe for concurrent
// use.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator scripts ids for successive reconciliations:
//
//	gen := NewFixedGenerator("corr-ord-1", "corr-ord-2")
//	r := New(crm, finance, WithCorrelation(gen))
//	r.Reconcile(ctx, "ORD-1") // audited under corr-ord-1
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next scripted id. A reconciliation beyond the
// script panics.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: no correlation ids left")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
