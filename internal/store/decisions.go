package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/tridup/internal/engine"
)

// DecisionRecord is a journaled decision.
type DecisionRecord struct {
	Row     int            `json:"row"`
	Outcome engine.Outcome `json:"outcome"`
	Subject string         `json:"subject"`
	Detail  string         `json:"detail"`
	Count   int            `json:"count"`
	Ref     *int           `json:"ref,omitempty"`
}

// RecordOf converts an engine decision into its journal form.
func RecordOf(d engine.Decision) DecisionRecord {
	rec := DecisionRecord{
		Row:     d.Row,
		Outcome: d.Outcome,
		Subject: d.Subject(),
		Detail:  d.Detail(),
		Count:   d.Count,
	}
	if d.Ref >= 0 {
		ref := d.Ref
		rec.Ref = &ref
	}
	return rec
}

// DecisionFilter narrows ReadDecisions. Zero value selects everything.
type DecisionFilter struct {
	Row     *int
	Outcome *engine.Outcome
}

// WriteDecisions inserts decisions for a run in one transaction.
// Uses ON CONFLICT(run_id, row) DO NOTHING, so rewriting a batch after a
// crash is a no-op.
func (s *Store) WriteDecisions(ctx context.Context, runID string, decisions []engine.Decision) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write decisions: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := writeDecisions(ctx, tx, runID, decisions); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write decisions: commit: %w", err)
	}
	return nil
}

func writeDecisions(ctx context.Context, tx *sql.Tx, runID string, decisions []engine.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (run_id, row, outcome, subject, detail, count, ref)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, row) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write decisions: prepare: %w", err)
	}
	defer stmt.Close()

	for _, d := range decisions {
		rec := RecordOf(d)
		var ref sql.NullInt64
		if rec.Ref != nil {
			ref = sql.NullInt64{Int64: int64(*rec.Ref), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			runID,
			rec.Row,
			rec.Outcome.String(),
			rec.Subject,
			rec.Detail,
			rec.Count,
			ref,
		); err != nil {
			return fmt.Errorf("write decision for row %d: %w", rec.Row, err)
		}
	}
	return nil
}

// ReadDecisions returns the journaled decisions of a run ordered by row.
// Returns an empty slice (not nil) if none match.
func (s *Store) ReadDecisions(ctx context.Context, runID string, f DecisionFilter) ([]DecisionRecord, error) {
	query := `SELECT row, outcome, subject, detail, count, ref FROM decisions WHERE run_id = ?`
	args := []any{runID}
	if f.Row != nil {
		query += ` AND row = ?`
		args = append(args, *f.Row)
	}
	if f.Outcome != nil {
		query += ` AND outcome = ?`
		args = append(args, f.Outcome.String())
	}
	query += ` ORDER BY row ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	out := []DecisionRecord{}
	for rows.Next() {
		var (
			rec     DecisionRecord
			outcome string
			ref     sql.NullInt64
		)
		if err := rows.Scan(&rec.Row, &outcome, &rec.Subject, &rec.Detail, &rec.Count, &ref); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if rec.Outcome, err = engine.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("decision row %d: %w", rec.Row, err)
		}
		if ref.Valid {
			r := int(ref.Int64)
			rec.Ref = &r
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return out, nil
}
