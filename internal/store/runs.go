package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/tridup/internal/engine"
	"github.com/roach88/tridup/internal/ir"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

// Run statuses.
const (
	StatusRunning     RunStatus = "running"
	StatusComplete    RunStatus = "complete"
	StatusInterrupted RunStatus = "interrupted"
	StatusFailed      RunStatus = "failed"
)

// NewRun describes a run about to start.
type NewRun struct {
	ConfigHash       string
	Config           []byte // canonical JSON of the effective config
	InputFingerprint string
	InputRows        int
	Limits           engine.Limits
}

// Run is a journaled admission pass.
type Run struct {
	ID               string
	ConfigHash       string
	Config           []byte
	InputFingerprint string
	InputRows        int
	Limits           engine.Limits
	Status           RunStatus
	NextRow          int
	Admitted         int
	RejectedExact    int
	RejectedPair     int
	RejectedValue    int
	EngineVersion    string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Rejected returns the number of rows rejected so far.
func (r *Run) Rejected() int {
	return r.RejectedExact + r.RejectedPair + r.RejectedValue
}

// Resumable reports whether the run stopped before the end of its input.
func (r *Run) Resumable() bool {
	return r.Status != StatusComplete && r.NextRow < r.InputRows
}

// CreateRun inserts a new run in the running state and returns it.
func (s *Store) CreateRun(ctx context.Context, nr NewRun) (*Run, error) {
	if err := nr.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	now := s.clock.Now().UTC()
	run := &Run{
		ID:               s.ids.Generate(),
		ConfigHash:       nr.ConfigHash,
		Config:           nr.Config,
		InputFingerprint: nr.InputFingerprint,
		InputRows:        nr.InputRows,
		Limits:           nr.Limits,
		Status:           StatusRunning,
		EngineVersion:    ir.EngineVersion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, config_hash, config, input_fingerprint, input_rows,
		 max_pair_duplicates, max_value_frequency, status, engine_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.ConfigHash,
		string(run.Config),
		run.InputFingerprint,
		run.InputRows,
		run.Limits.MaxPairDuplicates,
		run.Limits.MaxValueFrequency,
		string(run.Status),
		run.EngineVersion,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

const runColumns = `
	id, config_hash, config, input_fingerprint, input_rows,
	max_pair_duplicates, max_value_frequency, status, next_row,
	admitted, rejected_exact, rejected_pair, rejected_value,
	engine_version, created_at, updated_at`

// GetRun retrieves a run by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns all runs, oldest first.
// Returns an empty slice (not nil) when the journal has no runs.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// FinishRun records the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, stats engine.Stats) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, next_row = ?, admitted = ?,
		    rejected_exact = ?, rejected_pair = ?, rejected_value = ?, updated_at = ?
		WHERE id = ?
	`,
		string(status),
		stats.Processed,
		stats.Admitted,
		stats.RejectedExact,
		stats.RejectedPair,
		stats.RejectedValue,
		formatTime(s.clock.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// SetStatus changes the status of a run without touching its counters.
// Used to reopen a stopped run before resuming it and to mark failures.
func (s *Store) SetStatus(ctx context.Context, id string, status RunStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), formatTime(s.clock.Now()), id)
	if err != nil {
		return fmt.Errorf("set status of run %s: %w", id, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		run       Run
		config    string
		status    string
		createdAt string
		updatedAt string
	)
	err := sc.Scan(
		&run.ID,
		&run.ConfigHash,
		&config,
		&run.InputFingerprint,
		&run.InputRows,
		&run.Limits.MaxPairDuplicates,
		&run.Limits.MaxValueFrequency,
		&status,
		&run.NextRow,
		&run.Admitted,
		&run.RejectedExact,
		&run.RejectedPair,
		&run.RejectedValue,
		&run.EngineVersion,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run.Config = []byte(config)
	run.Status = RunStatus(status)
	if run.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if run.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &run, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
