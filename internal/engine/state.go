package engine

import "github.com/roach88/tridup/internal/ir"

// State is the admission state of one run: the admitted triples, the pair
// counters and the value counters. It only ever grows.
type State struct {
	Identities *IdentitySet
	Pairs      *Counter[ir.PairKey]
	Values     *Counter[ir.ValueKey]
}

// NewState creates empty admission state.
func NewState() *State {
	return &State{
		Identities: NewIdentitySet(),
		Pairs:      NewCounter[ir.PairKey](),
		Values:     NewCounter[ir.ValueKey](),
	}
}

// Apply records rec as admitted.
//
// Callers must only apply a record for which Decide returned Admit;
// Apply itself does not check the limits.
func (s *State) Apply(rec ir.Record) {
	s.Identities.Record(rec.Key(), rec.Row)
	for _, p := range rec.Pairs() {
		s.Pairs.Add(p, 1)
	}
	for _, v := range rec.IDs {
		s.Values.Add(ir.KeyOf(v), 1)
	}
}
