package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/tridup/internal/ir"
)

// Outcome is the result of the admission checks for one record.
type Outcome int

const (
	// Admit means the record passed every check and joins the result.
	Admit Outcome = iota

	// RejectExactDuplicate means the record's triple was already admitted.
	RejectExactDuplicate

	// RejectPairLimit means one of the record's pairs is at its limit.
	RejectPairLimit

	// RejectValueLimit means one of the record's values is at its limit.
	RejectValueLimit
)

var outcomeNames = [...]string{
	Admit:                "admit",
	RejectExactDuplicate: "exact_duplicate",
	RejectPairLimit:      "pair_limit",
	RejectValueLimit:     "value_limit",
}

// String returns the stable name of the outcome.
func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// ParseOutcome parses a name produced by Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	for i, name := range outcomeNames {
		if name == s {
			return Outcome(i), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(b []byte) error {
	parsed, err := ParseOutcome(string(b))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Decision is the tagged result of checking one record against the state.
//
// Which fields are set depends on the outcome:
//   - RejectExactDuplicate: Ref is the row that admitted the same triple.
//   - RejectPairLimit: Pair is the first pair at its limit, Count its counter.
//   - RejectValueLimit: Value is the first value at its limit, Count its counter.
type Decision struct {
	Row     int
	Outcome Outcome
	Key     ir.TripleKey
	Pair    ir.PairKey
	Value   ir.IRValue
	Count   int
	Ref     int
}

// Admitted reports whether the record was admitted.
func (d Decision) Admitted() bool {
	return d.Outcome == Admit
}

// Detail renders the reason for a rejection. Empty for admissions.
func (d Decision) Detail() string {
	switch d.Outcome {
	case RejectExactDuplicate:
		return fmt.Sprintf("triple %s already admitted at row %d", tripleText(d.Key), d.Ref)
	case RejectPairLimit:
		return fmt.Sprintf("pair %s already in %d admitted records", d.Pair.String(), d.Count)
	case RejectValueLimit:
		return fmt.Sprintf("value %s already appears %d times", d.Value.Text(), d.Count)
	}
	return ""
}

// Subject returns the key that caused a rejection: the triple, pair or
// value rendered for humans. Empty for admissions.
func (d Decision) Subject() string {
	switch d.Outcome {
	case RejectExactDuplicate:
		return tripleText(d.Key)
	case RejectPairLimit:
		return d.Pair.String()
	case RejectValueLimit:
		return d.Value.Text()
	}
	return ""
}

func tripleText(k ir.TripleKey) string {
	t, err := k.Values()
	if err != nil {
		return string(k)
	}
	return "(" + strings.Join([]string{t[0].Text(), t[1].Text(), t[2].Text()}, ", ") + ")"
}

// Decide runs the three admission checks for rec against s. It never
// mutates s.
//
// The checks run in a fixed order and the first failure wins:
//
//  1. exact duplicate: the normalized triple was already admitted;
//  2. pair limit: for each pair in field order (id0,id1), (id0,id2),
//     (id1,id2), admitting would push its counter above the pair ceiling;
//  3. value limit: for each identifier in field order, admitting would push
//     its counter above MaxValueFrequency.
//
// A record that repeats a value contributes to the same counter more than
// once, so the check is count+multiplicity > limit. For records with three
// distinct values this is count >= limit.
func Decide(s *State, rec ir.Record, limits Limits) Decision {
	key := rec.Key()
	d := Decision{Row: rec.Row, Key: key, Ref: -1}

	if row, ok := s.Identities.RowOf(key); ok {
		d.Outcome = RejectExactDuplicate
		d.Ref = row
		return d
	}

	pairs := rec.Pairs()
	for i, p := range pairs {
		count := s.Pairs.Get(p)
		if count+multiplicity(pairs[:], i) > limits.PairCeiling() {
			d.Outcome = RejectPairLimit
			d.Pair = p
			d.Count = count
			return d
		}
	}

	values := [3]ir.ValueKey{ir.KeyOf(rec.IDs[0]), ir.KeyOf(rec.IDs[1]), ir.KeyOf(rec.IDs[2])}
	for i, v := range values {
		count := s.Values.Get(v)
		if count+multiplicity(values[:], i) > limits.MaxValueFrequency {
			d.Outcome = RejectValueLimit
			d.Value = rec.IDs[i]
			d.Count = count
			return d
		}
	}

	d.Outcome = Admit
	return d
}

// multiplicity counts how often keys[i] occurs in keys.
func multiplicity[K comparable](keys []K, i int) int {
	n := 0
	for _, k := range keys {
		if k == keys[i] {
			n++
		}
	}
	return n
}
