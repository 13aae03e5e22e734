package store

import (
	"context"

	"github.com/roach88/tridup/internal/engine"
)

// Journal records one run's decisions and checkpoints in a Store.
//
// Decisions are buffered in memory and committed together with the next
// checkpoint, so a crash loses at most the rows since the last checkpoint
// and those rows are re-decided on resume.
type Journal struct {
	store   *Store
	runID   string
	pending []engine.Decision
}

var _ engine.Journal = (*Journal)(nil)

// NewJournal returns a Journal for runID.
func NewJournal(s *Store, runID string) *Journal {
	return &Journal{store: s, runID: runID}
}

// RunID returns the journaled run.
func (j *Journal) RunID() string {
	return j.runID
}

// RecordDecision implements engine.Journal.
func (j *Journal) RecordDecision(_ context.Context, d engine.Decision) error {
	j.pending = append(j.pending, d)
	return nil
}

// Checkpoint implements engine.Journal.
func (j *Journal) Checkpoint(ctx context.Context, cp *engine.Checkpoint) error {
	if err := j.store.commit(ctx, j.runID, j.pending, cp); err != nil {
		return err
	}
	j.pending = j.pending[:0]
	return nil
}

// Pending returns the number of decisions not yet committed.
func (j *Journal) Pending() int {
	return len(j.pending)
}
