package ir

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Triple is an identifier triple normalized into sorted order.
//
// Normalization makes the triple position-independent: (A,B,C), (C,A,B)
// and (B,C,A) all produce the same Triple. Repeated values are kept
// (multiset semantics), so (A,A,B) and (A,B,B) stay distinct.
type Triple [3]IRValue

// NewTriple normalizes three identifier values into a Triple.
func NewTriple(a, b, c IRValue) Triple {
	t := Triple{a, b, c}
	slices.SortStableFunc(t[:], Compare)
	return t
}

// Key returns the canonical key of the triple.
func (t Triple) Key() TripleKey {
	return TripleKey(appendValues(nil, t[:]))
}

// Degenerate reports whether the triple repeats a value.
func (t Triple) Degenerate() bool {
	return Equal(t[0], t[1]) || Equal(t[1], t[2])
}

// TripleKey is the canonical map key of a normalized Triple,
// encoded as a canonical JSON array such as [7,"A","B"].
type TripleKey string

// Values decodes the key back into the normalized triple.
func (k TripleKey) Values() (Triple, error) {
	vals, err := parseKeyArray(string(k), 3)
	if err != nil {
		return Triple{}, fmt.Errorf("triple key: %w", err)
	}
	return Triple{vals[0], vals[1], vals[2]}, nil
}

// PairKey is the canonical key of an unordered pair of identifier values,
// encoded as a sorted canonical JSON array such as ["A","B"].
type PairKey string

// NewPairKey builds the key for the unordered pair {a, b}.
func NewPairKey(a, b IRValue) PairKey {
	if Compare(a, b) > 0 {
		a, b = b, a
	}
	return PairKey(appendValues(nil, []IRValue{a, b}))
}

// Values decodes the key back into its two values in sorted order.
func (k PairKey) Values() (IRValue, IRValue, error) {
	vals, err := parseKeyArray(string(k), 2)
	if err != nil {
		return nil, nil, fmt.Errorf("pair key: %w", err)
	}
	return vals[0], vals[1], nil
}

// String renders the pair for humans, e.g. {A, B}.
func (k PairKey) String() string {
	a, b, err := k.Values()
	if err != nil {
		return string(k)
	}
	return "{" + a.Text() + ", " + b.Text() + "}"
}

// PairsOf returns the three pair keys of ids in field order:
// (id0,id1), (id0,id2), (id1,id2).
func PairsOf(ids [3]IRValue) [3]PairKey {
	return [3]PairKey{
		NewPairKey(ids[0], ids[1]),
		NewPairKey(ids[0], ids[2]),
		NewPairKey(ids[1], ids[2]),
	}
}

func appendValues(buf []byte, vals []IRValue) []byte {
	buf = append(buf, '[')
	for i, v := range vals {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendValue(buf, v)
	}
	return append(buf, ']')
}

func parseKeyArray(s string, want int) ([]IRValue, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, err
	}
	if len(raw) != want {
		return nil, fmt.Errorf("expected %d values, got %d", want, len(raw))
	}
	vals := make([]IRValue, len(raw))
	for i, r := range raw {
		v, err := ParseValueKey(ValueKey(r))
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
