package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/recon/internal/audit"
	"github.com/roach88/recon/internal/engine"
	"github.com/roach88/recon/internal/records"
	"github.com/roach88/recon/internal/testutil"
)

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Seed a fresh in-memory record store from the dataset
//  2. Open an audit store in a temporary directory
//  3. Run the steps against one reconciler with deterministic helpers
//  4. Evaluate assertions against the final cache and audit trail
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	ds, err := records.LoadDataset(scenario.Dataset)
	if err != nil {
		return nil, err
	}
	mem := records.NewMemory()
	if err := ds.Apply(ctx, mem); err != nil {
		return nil, fmt.Errorf("failed to seed dataset: %w", err)
	}

	dir, err := os.MkdirTemp("", "recon-harness-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	defer os.RemoveAll(dir)

	auditStore, err := audit.Open(dir)
	if err != nil {
		return nil, err
	}
	defer auditStore.Close()

	start, err := scenario.start()
	if err != nil {
		return nil, err
	}
	clock := testutil.NewFrozenClock(start)
	logger := audit.NewLogger(auditStore,
		audit.WithClock(clock.Now),
		audit.WithIDs(testutil.NewSequenceGenerator("log")))

	rec := engine.New(mem, mem,
		engine.WithClock(clock),
		engine.WithCorrelation(testutil.NewSequenceGenerator("corr")),
		engine.WithAuditLogger(logger),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	for i, step := range scenario.Steps {
		if step.ReconcileAll {
			_, err = rec.ReconcileAll(ctx)
		} else {
			_, err = rec.ReconcileBatch(ctx, step.Reconcile)
		}
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	result := NewResult()
	result.Results = rec.Results()
	result.Trail = auditStore.All()
	if result.Statistics, err = rec.Statistics(ctx); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
