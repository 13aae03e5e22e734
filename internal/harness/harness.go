package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
	"github.com/roach88/tridup/internal/store"
	"github.com/roach88/tridup/internal/testutil"
)

// RunID is the run identifier every scenario is journaled under.
const RunID = "scenario-run"

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and run ID.
type Harness struct {
	store  *store.Store
	clock  *testutil.StepClock
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory store and run
// 2. Run the engine over the records, journaling every decision
// 3. Read the trace back from the journal
// 4. Evaluate expectations and invariants
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	clock := testutil.NewStepClock(time.Millisecond)
	st, err := store.Open(":memory:",
		store.WithIDGenerator(store.NewFixedGenerator(RunID)),
		store.WithClock(clock),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  clock,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	records, err := scenario.BuildRecords()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	limits := scenario.Limits.Engine()

	cfg := map[string]any{
		"scenario":            scenario.Name,
		"max_pair_duplicates": limits.MaxPairDuplicates,
		"max_value_frequency": limits.MaxValueFrequency,
	}
	cfgJSON, err := ir.MarshalCanonical(cfg)
	if err != nil {
		return nil, err
	}
	run, err := h.store.CreateRun(ctx, store.NewRun{
		ConfigHash:       ir.MustContentHash(ir.DomainConfig, cfg),
		Config:           cfgJSON,
		InputFingerprint: ir.InputFingerprint(records),
		InputRows:        len(records),
		Limits:           limits,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	eng, err := engine.New(limits,
		engine.WithLogger(h.logger),
		engine.WithClock(h.clock),
		engine.WithWorkers(max(scenario.Workers, 1)),
		engine.WithCheckpointEvery(scenario.CheckpointEvery),
		engine.WithJournal(store.NewJournal(h.store, run.ID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	res, err := eng.Run(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to execute scenario %s: %w", scenario.Name, err)
	}
	if !res.Complete {
		return nil, fmt.Errorf("scenario %s stopped at row %d: %w", scenario.Name, res.Stats.Processed, ctx.Err())
	}
	if err := h.store.FinishRun(ctx, run.ID, store.StatusComplete, res.Stats); err != nil {
		return nil, fmt.Errorf("failed to finish run: %w", err)
	}

	result := NewResult()
	result.Admitted = res.Admitted
	result.Stats = res.Stats
	if err := h.loadTrace(ctx, run.ID, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateExpectations(result, scenario.Expect, limits) {
		result.AddError(msg)
	}
	return result, nil
}

// loadTrace reads the journaled decisions, so the trace reflects what a
// resumed run would see.
func (h *Harness) loadTrace(ctx context.Context, runID string, result *Result) error {
	decisions, err := h.store.ReadDecisions(ctx, runID, store.DecisionFilter{})
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}

	aux := make(map[int]int64, len(result.Admitted))
	for _, rec := range result.Admitted {
		aux[rec.Row] = rec.Aux
	}
	for _, d := range decisions {
		event := TraceEvent{
			Row:     d.Row,
			Outcome: d.Outcome.String(),
			Subject: d.Subject,
			Detail:  d.Detail,
		}
		if d.Outcome == engine.Admit {
			event.Aux = aux[d.Row]
		}
		result.Trace = append(result.Trace, event)
	}
	return nil
}
