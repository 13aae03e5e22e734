package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/tridup/internal/ir"
)

// Defaults for engine options.
const (
	DefaultWorkers         = 4
	DefaultProgressEvery   = 1000
	DefaultCheckpointEvery = 5000
)

// Journal receives the decisions and checkpoints of a run as they happen.
//
// RecordDecision is called once per processed row, in row order. Checkpoint
// is called every checkpoint interval and once more when the run stops,
// whether it finished or was cancelled.
type Journal interface {
	RecordDecision(ctx context.Context, d Decision) error
	Checkpoint(ctx context.Context, cp *Checkpoint) error
}

// Engine is the single-threaded admission engine.
//
// An Engine owns one State and processes records strictly in input order:
// each decision sees only the admissions that precede it. Engines are not
// safe for concurrent use. Run a fresh Engine per input.
type Engine struct {
	limits  Limits
	state   *State
	stats   Stats
	logger  *slog.Logger
	clock   Clock
	journal Journal
	resume  *Checkpoint

	workers         int
	progressEvery   int
	checkpointEvery int

	admitted []int
	nextRow  int
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. The default discards output.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithWorkers sets the number of goroutines used by the aggregation pre-pass.
func WithWorkers(n int) EngineOption {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithProgressEvery logs progress every n rows. Zero disables progress logs.
func WithProgressEvery(n int) EngineOption {
	return func(e *Engine) {
		e.progressEvery = n
	}
}

// WithCheckpointEvery hands a checkpoint to the journal every n rows.
// Zero means only the final checkpoint is written.
func WithCheckpointEvery(n int) EngineOption {
	return func(e *Engine) {
		e.checkpointEvery = n
	}
}

// WithJournal sets the journal that receives decisions and checkpoints.
func WithJournal(j Journal) EngineOption {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithCheckpoint resumes from cp: the state is restored and Run continues
// at cp.NextRow.
func WithCheckpoint(cp *Checkpoint) EngineOption {
	return func(e *Engine) {
		e.resume = cp
	}
}

// WithClock sets the clock used to time the run.
// A nil clock keeps SystemClock.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// New creates an Engine for the given limits.
func New(limits Limits, opts ...EngineOption) (*Engine, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		limits:          limits,
		state:           NewState(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:           SystemClock{},
		workers:         DefaultWorkers,
		progressEvery:   DefaultProgressEvery,
		checkpointEvery: DefaultCheckpointEvery,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1 (got %d)", e.workers)
	}

	if e.resume != nil {
		state, err := Restore(e.resume)
		if err != nil {
			return nil, err
		}
		e.state = state
		e.stats = e.resume.Stats
		e.admitted = append([]int(nil), e.resume.Admitted...)
		e.nextRow = e.resume.NextRow
	}
	return e, nil
}

// Limits returns the engine's limits.
func (e *Engine) Limits() Limits {
	return e.limits
}

// State returns the engine's admission state. Callers must not mutate it.
func (e *Engine) State() *State {
	return e.state
}

// Stats returns the running statistics.
func (e *Engine) Stats() Stats {
	return e.stats
}

// Step decides rec against the current state and applies it when admitted.
//
// rec must be well formed (see ValidateRecord). Step does not attach the
// aggregate; Run does that for admitted records.
func (e *Engine) Step(rec ir.Record) Decision {
	d := Decide(e.state, rec, e.limits)
	if d.Admitted() {
		e.state.Apply(rec)
		e.admitted = append(e.admitted, rec.Row)
	}
	e.stats.count(d)
	e.nextRow = rec.Row + 1
	return d
}

// Checkpoint snapshots the engine after the rows processed so far.
func (e *Engine) Checkpoint() *Checkpoint {
	return Snapshot(e.state, e.nextRow, e.admitted, e.stats)
}

// Run processes records in order and returns the admitted subset.
//
// Records are validated up front; a malformed record fails the run before
// any decision is made. Run checks ctx between records: on cancellation it
// returns the result for the processed prefix together with ctx.Err(). The
// final checkpoint is still written so the run can be resumed.
func (e *Engine) Run(ctx context.Context, records []ir.Record) (*Result, error) {
	if err := ValidateRecords(records); err != nil {
		return nil, err
	}
	if e.nextRow > len(records) {
		return nil, NewCheckpointError(fmt.Sprintf("checkpoint at row %d but input has %d rows",
			e.nextRow, len(records)))
	}

	start := e.clock.Now()
	e.logger.Info("engine starting",
		"rows", len(records),
		"start_row", e.nextRow,
		"max_pair_duplicates", e.limits.MaxPairDuplicates,
		"max_value_frequency", e.limits.MaxValueFrequency,
		"workers", e.workers,
	)

	agg, err := Aggregate(ctx, records, e.workers)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	e.stats.TotalRecords = len(records)
	e.stats.DistinctTriples = agg.Distinct()
	e.logger.Debug("aggregation complete", "distinct_triples", agg.Distinct())

	if err := e.checkResume(agg); err != nil {
		return nil, err
	}

	result := &Result{}
	for _, row := range e.admitted {
		result.Admitted = append(result.Admitted, withAggregate(records[row], agg))
	}

	var runErr error
	for i := e.nextRow; i < len(records); i++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		rec := records[i]
		d := e.Step(rec)
		result.Decisions = append(result.Decisions, d)
		if d.Admitted() {
			result.Admitted = append(result.Admitted, withAggregate(rec, agg))
		} else {
			e.logger.Debug("record rejected",
				"row", d.Row,
				"reason", d.Outcome.String(),
				"detail", d.Detail(),
			)
		}

		if e.journal != nil {
			if err := e.journal.RecordDecision(ctx, d); err != nil {
				return nil, fmt.Errorf("journal decision for row %d: %w", d.Row, err)
			}
		}

		processed := i + 1
		if e.progressEvery > 0 && processed%e.progressEvery == 0 {
			e.logger.Info("progress",
				"processed", processed,
				"total", len(records),
				"admitted", e.stats.Admitted,
			)
		}
		if e.checkpointEvery > 0 && processed%e.checkpointEvery == 0 && processed < len(records) {
			if err := e.writeCheckpoint(ctx); err != nil {
				return nil, err
			}
		}
	}

	e.stats.ElapsedMs = e.clock.Now().Sub(start).Milliseconds()
	result.Stats = e.stats
	result.Complete = runErr == nil

	// The final checkpoint must land even when ctx was cancelled.
	if err := e.writeCheckpoint(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}

	e.logger.Info("run complete",
		"elapsed", time.Duration(e.stats.ElapsedMs)*time.Millisecond,
		"original_rows", e.stats.TotalRecords,
		"admitted_rows", e.stats.Admitted,
		"dedup_rate", fmt.Sprintf("%.2f%%", e.stats.DedupRate()),
		"complete", result.Complete,
	)
	return result, runErr
}

func (e *Engine) writeCheckpoint(ctx context.Context) error {
	if e.journal == nil {
		return nil
	}
	cp := e.Checkpoint()
	if err := e.journal.Checkpoint(ctx, cp); err != nil {
		return fmt.Errorf("checkpoint at row %d: %w", cp.NextRow, err)
	}
	e.logger.Debug("checkpoint written", "next_row", cp.NextRow, "admitted", len(cp.Admitted))
	return nil
}

// checkResume verifies that the restored admissions belong to this input.
func (e *Engine) checkResume(agg *Aggregation) error {
	if e.resume == nil {
		return nil
	}
	for _, row := range e.admitted {
		key := agg.Keys[row]
		if got, ok := e.state.Identities.RowOf(key); !ok || got != row {
			return NewCheckpointError(fmt.Sprintf("admitted row %d does not match the input", row))
		}
	}
	return nil
}

func withAggregate(rec ir.Record, agg *Aggregation) ir.Record {
	rec.Aux = agg.Sum(agg.Keys[rec.Row])
	return rec
}

// ValidateRecord checks that rec can take part in admission.
func ValidateRecord(rec ir.Record) error {
	for i, v := range rec.IDs {
		if v == nil {
			return NewRecordError(rec.Row, rec.Line, "", fmt.Sprintf("identifier %d is missing", i+1))
		}
		if s, ok := v.(ir.IRString); ok && s == "" {
			return NewRecordError(rec.Row, rec.Line, "", fmt.Sprintf("identifier %d is empty", i+1))
		}
	}
	return nil
}

// ValidateRecords checks every record and that rows are numbered 0..n-1.
func ValidateRecords(records []ir.Record) error {
	for i, rec := range records {
		if rec.Row != i {
			return NewRecordError(i, rec.Line, "", fmt.Sprintf("row index %d out of sequence", rec.Row))
		}
		if err := ValidateRecord(rec); err != nil {
			return err
		}
	}
	return nil
}
