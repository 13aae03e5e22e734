package engine

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/tridup/internal/ir"
)

// Violation describes one broken invariant in an admitted set.
type Violation struct {
	// Kind is RejectExactDuplicate, RejectPairLimit or RejectValueLimit:
	// the check that would have prevented the violation.
	Kind Outcome

	// Rows lists the rows sharing the offending key, in input order.
	Rows []int

	// Subject renders the offending triple, pair or value.
	Subject string

	// Count is the number of occurrences found; Limit the allowed maximum.
	Count int
	Limit int
}

// String renders the violation for humans.
func (v Violation) String() string {
	return fmt.Sprintf("%s: %s occurs %d times (limit %d) in rows %v",
		v.Kind, v.Subject, v.Count, v.Limit, v.Rows)
}

// Verify checks the three admission invariants over an admitted set:
// no repeated triple, no pair in more than PairCeiling records and no
// value more than MaxValueFrequency times.
//
// Violations are grouped by kind (triples, pairs, values) and ordered by
// their first row, then by key.
func Verify(records []ir.Record, limits Limits) []Violation {
	type group struct {
		rows  []int
		count int
	}
	triples := make(map[ir.TripleKey]*group)
	pairs := make(map[ir.PairKey]*group)
	values := make(map[ir.ValueKey]*group)

	add := func(g *group, row int) *group {
		if g == nil {
			g = &group{}
		}
		g.count++
		if len(g.rows) == 0 || g.rows[len(g.rows)-1] != row {
			g.rows = append(g.rows, row)
		}
		return g
	}

	for _, rec := range records {
		k := rec.Key()
		triples[k] = add(triples[k], rec.Row)
		for _, p := range rec.Pairs() {
			pairs[p] = add(pairs[p], rec.Row)
		}
		for _, v := range rec.IDs {
			vk := ir.KeyOf(v)
			values[vk] = add(values[vk], rec.Row)
		}
	}

	var out []Violation
	collect := func(kind Outcome, limit int, keys []string, lookup func(string) *group, subject func(string) string) {
		var found []Violation
		for _, k := range keys {
			g := lookup(k)
			if g.count <= limit {
				continue
			}
			found = append(found, Violation{
				Kind:    kind,
				Rows:    g.rows,
				Subject: subject(k),
				Count:   g.count,
				Limit:   limit,
			})
		}
		slices.SortStableFunc(found, func(a, b Violation) int {
			return a.Rows[0] - b.Rows[0]
		})
		out = append(out, found...)
	}

	collect(RejectExactDuplicate, 1, sortedKeys(triples),
		func(k string) *group { return triples[ir.TripleKey(k)] },
		func(k string) string { return tripleText(ir.TripleKey(k)) })
	collect(RejectPairLimit, limits.PairCeiling(), sortedKeys(pairs),
		func(k string) *group { return pairs[ir.PairKey(k)] },
		func(k string) string { return ir.PairKey(k).String() })
	collect(RejectValueLimit, limits.MaxValueFrequency, sortedKeys(values),
		func(k string) *group { return values[ir.ValueKey(k)] },
		func(k string) string {
			v, err := ir.ParseValueKey(ir.ValueKey(k))
			if err != nil {
				return k
			}
			return v.Text()
		})
	return out
}

func sortedKeys[K ~string, V any](m map[K]V) []string {
	keys := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		keys = append(keys, string(k))
	}
	return keys
}
