package engine

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/roach88/tridup/internal/ir"
)

// Checkpoint is a snapshot of the admission state after NextRow records.
//
// Restoring a checkpoint and processing rows NextRow.. produces the same
// decisions as an uninterrupted run over the same input.
type Checkpoint struct {
	// Version is the state schema version, ir.StateVersion when written.
	Version    string
	NextRow    int
	Admitted   []int
	Identities map[ir.TripleKey]int
	Pairs      map[ir.PairKey]int
	Values     map[ir.ValueKey]int
	Stats      Stats
}

// checkpointWire is the JSON shape of a checkpoint.
type checkpointWire struct {
	Version    string         `json:"version"`
	NextRow    int            `json:"next_row"`
	Admitted   []int          `json:"admitted"`
	Identities map[string]int `json:"identities"`
	Pairs      map[string]int `json:"pairs"`
	Values     map[string]int `json:"values"`
	Stats      Stats          `json:"stats"`
}

// Snapshot captures s after nextRow records have been processed.
func Snapshot(s *State, nextRow int, admitted []int, stats Stats) *Checkpoint {
	return &Checkpoint{
		Version:    ir.StateVersion,
		NextRow:    nextRow,
		Admitted:   slices.Clone(admitted),
		Identities: s.Identities.Snapshot(),
		Pairs:      s.Pairs.Snapshot(),
		Values:     s.Values.Snapshot(),
		Stats:      stats,
	}
}

// MarshalCanonical encodes the checkpoint as canonical JSON.
// The encoding is byte-identical for equal checkpoints.
func (c *Checkpoint) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(c.canonical())
}

// Hash returns the content hash of the checkpoint.
func (c *Checkpoint) Hash() (string, error) {
	return ir.ContentHash(ir.DomainState, c.canonical())
}

func (c *Checkpoint) canonical() map[string]any {
	admitted := c.Admitted
	if admitted == nil {
		admitted = []int{}
	}
	return map[string]any{
		"version":    c.Version,
		"next_row":   c.NextRow,
		"admitted":   admitted,
		"identities": stringKeys(c.Identities),
		"pairs":      stringKeys(c.Pairs),
		"values":     stringKeys(c.Values),
		"stats":      c.Stats.canonical(),
	}
}

func stringKeys[K ~string](m map[K]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func typedKeys[K ~string](m map[string]int) map[K]int {
	out := make(map[K]int, len(m))
	for k, v := range m {
		out[K(k)] = v
	}
	return out
}

// ParseCheckpoint decodes a checkpoint written by MarshalCanonical and
// checks that it is well formed.
func ParseCheckpoint(data []byte) (*Checkpoint, error) {
	var w checkpointWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	cp := &Checkpoint{
		Version:    w.Version,
		NextRow:    w.NextRow,
		Admitted:   w.Admitted,
		Identities: typedKeys[ir.TripleKey](w.Identities),
		Pairs:      typedKeys[ir.PairKey](w.Pairs),
		Values:     typedKeys[ir.ValueKey](w.Values),
		Stats:      w.Stats,
	}
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return cp, nil
}

// Validate checks the structural consistency of the checkpoint.
func (c *Checkpoint) Validate() error {
	if c.Version != ir.StateVersion {
		return NewCheckpointError(fmt.Sprintf("state version %q, want %q", c.Version, ir.StateVersion))
	}
	if c.NextRow < 0 {
		return NewCheckpointError(fmt.Sprintf("negative next_row %d", c.NextRow))
	}
	if len(c.Admitted) != len(c.Identities) {
		return NewCheckpointError(fmt.Sprintf("%d admitted rows but %d identities",
			len(c.Admitted), len(c.Identities)))
	}
	prev := -1
	for _, row := range c.Admitted {
		if row <= prev || row >= c.NextRow {
			return NewCheckpointError(fmt.Sprintf("admitted row %d out of order or beyond next_row %d", row, c.NextRow))
		}
		prev = row
	}
	for k := range c.Identities {
		if _, err := k.Values(); err != nil {
			return NewCheckpointError(err.Error())
		}
	}
	for k, n := range c.Pairs {
		if _, _, err := k.Values(); err != nil {
			return NewCheckpointError(err.Error())
		}
		if n <= 0 {
			return NewCheckpointError(fmt.Sprintf("pair %s has count %d", k, n))
		}
	}
	for k, n := range c.Values {
		if _, err := ir.ParseValueKey(k); err != nil {
			return NewCheckpointError(err.Error())
		}
		if n <= 0 {
			return NewCheckpointError(fmt.Sprintf("value %s has count %d", k, n))
		}
	}
	if c.Stats.Processed != c.NextRow {
		return NewCheckpointError(fmt.Sprintf("stats processed %d != next_row %d", c.Stats.Processed, c.NextRow))
	}
	if c.Stats.Admitted != len(c.Admitted) {
		return NewCheckpointError(fmt.Sprintf("stats admitted %d != %d admitted rows", c.Stats.Admitted, len(c.Admitted)))
	}
	return nil
}

// Restore rebuilds admission state from c.
func Restore(c *Checkpoint) (*State, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	s := NewState()
	for k, row := range c.Identities {
		s.Identities.Record(k, row)
	}
	for k, n := range c.Pairs {
		s.Pairs.Add(k, n)
	}
	for k, n := range c.Values {
		s.Values.Add(k, n)
	}
	return s, nil
}
