package engine

import (
	"maps"

	"github.com/roach88/tridup/internal/ir"
)

// IdentitySet tracks the triples already admitted.
//
// Each admitted triple remembers the row that admitted it, so an exact
// duplicate rejection can point at the original.
type IdentitySet struct {
	rows map[ir.TripleKey]int
}

// NewIdentitySet creates an empty identity set.
func NewIdentitySet() *IdentitySet {
	return &IdentitySet{rows: make(map[ir.TripleKey]int)}
}

// RowOf returns the row that admitted key.
func (s *IdentitySet) RowOf(key ir.TripleKey) (int, bool) {
	row, ok := s.rows[key]
	return row, ok
}

// Record marks key as admitted by row. The first admission wins.
func (s *IdentitySet) Record(key ir.TripleKey, row int) {
	if _, ok := s.rows[key]; ok {
		return
	}
	s.rows[key] = row
}

// Len returns the number of admitted triples.
func (s *IdentitySet) Len() int {
	return len(s.rows)
}

// Snapshot returns a copy of the key to row mapping.
func (s *IdentitySet) Snapshot() map[ir.TripleKey]int {
	return maps.Clone(s.rows)
}
