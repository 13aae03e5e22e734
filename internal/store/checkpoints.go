package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tridup/internal/engine"
)

// SaveCheckpoint stores cp for a run and advances the run's counters to it.
func (s *Store) SaveCheckpoint(ctx context.Context, runID string, cp *engine.Checkpoint) error {
	return s.commit(ctx, runID, nil, cp)
}

// commit writes decisions and the checkpoint that covers them atomically.
func (s *Store) commit(ctx context.Context, runID string, decisions []engine.Decision, cp *engine.Checkpoint) error {
	state, err := cp.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	hash, err := cp.Hash()
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save checkpoint: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writeDecisions(ctx, tx, runID, decisions); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO checkpoints (run_id, next_row, state, state_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, next_row) DO NOTHING
	`, runID, cp.NextRow, string(state), hash); err != nil {
		return fmt.Errorf("save checkpoint: insert: %w", err)
	}

	st := cp.Stats
	res, err := tx.ExecContext(ctx, `
		UPDATE runs
		SET next_row = ?, admitted = ?, rejected_exact = ?, rejected_pair = ?,
		    rejected_value = ?, updated_at = ?
		WHERE id = ?
	`, cp.NextRow, st.Admitted, st.RejectedExact, st.RejectedPair, st.RejectedValue,
		formatTime(s.clock.Now()), runID)
	if err != nil {
		return fmt.Errorf("save checkpoint: update run: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("save checkpoint: rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("save checkpoint: run %s: %w", runID, sql.ErrNoRows)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save checkpoint: commit: %w", err)
	}
	return nil
}

// LoadCheckpoint returns the latest checkpoint of a run.
// Returns sql.ErrNoRows if the run has none. The stored state hash is
// checked against the decoded checkpoint.
func (s *Store) LoadCheckpoint(ctx context.Context, runID string) (*engine.Checkpoint, error) {
	var state, hash string
	err := s.db.QueryRowContext(ctx, `
		SELECT state, state_hash FROM checkpoints
		WHERE run_id = ?
		ORDER BY next_row DESC
		LIMIT 1
	`, runID).Scan(&state, &hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	cp, err := engine.ParseCheckpoint([]byte(state))
	if err != nil {
		return nil, err
	}
	got, err := cp.Hash()
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if got != hash {
		return nil, engine.NewCheckpointError(fmt.Sprintf("state hash %s does not match stored %s", got, hash))
	}
	return cp, nil
}
