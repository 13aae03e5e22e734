package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tridup/internal/ir"
)

func admitAll(t *testing.T, s *State, limits Limits, records []ir.Record) {
	t.Helper()
	for _, rec := range records {
		d := Decide(s, rec, limits)
		require.True(t, d.Admitted(), "row %d: %s", rec.Row, d.Detail())
		s.Apply(rec)
	}
}

func TestDecide_DoesNotMutate(t *testing.T) {
	s := NewState()
	limits := Limits{MaxPairDuplicates: 1, MaxValueFrequency: 1}
	rec := build(t, []any{"A", "B", "C", 1})[0]

	for i := 0; i < 3; i++ {
		assert.Equal(t, Admit, Decide(s, rec, limits).Outcome)
	}
	assert.Zero(t, s.Identities.Len())
	assert.Zero(t, s.Pairs.Len())
	assert.Zero(t, s.Values.Len())
}

func TestDecide_CheckOrder(t *testing.T) {
	// Exact duplicate wins over pair and value rejections.
	s := NewState()
	limits := Limits{MaxPairDuplicates: 1, MaxValueFrequency: 1}
	records := build(t, []any{"A", "B", "C", 1}, []any{"B", "C", "A", 1}, []any{"A", "B", "D", 1})
	admitAll(t, s, limits, records[:1])

	assert.Equal(t, RejectExactDuplicate, Decide(s, records[1], limits).Outcome)

	// Pair rejection wins over value rejection.
	assert.Equal(t, RejectPairLimit, Decide(s, records[2], limits).Outcome)
}

func TestDecide_PairFieldOrder(t *testing.T) {
	s := NewState()
	limits := Limits{MaxPairDuplicates: 1, MaxValueFrequency: 5}
	admitAll(t, s, limits, build(t,
		[]any{"X", "Z", "P", 1},
		[]any{"X", "Y", "Q", 1},
	))

	// (X,Y,Z): pairs in field order are {X,Y}, {X,Z}, {Y,Z}; both {X,Y}
	// and {X,Z} are at the ceiling, {X,Y} is checked first.
	rec := build(t, []any{"X", "Y", "Z", 1})[0]
	d := Decide(s, rec, limits)
	assert.Equal(t, RejectPairLimit, d.Outcome)
	assert.Equal(t, ir.NewPairKey(ir.IRString("X"), ir.IRString("Y")), d.Pair)

	// Reordering the columns changes which pair is reported.
	rec = build(t, []any{"Z", "X", "Y", 1})[0]
	d = Decide(s, rec, limits)
	assert.Equal(t, ir.NewPairKey(ir.IRString("X"), ir.IRString("Z")), d.Pair)
}

func TestDecide_CountedPairs(t *testing.T) {
	s := NewState()
	limits := Limits{MaxPairDuplicates: 2, MaxValueFrequency: 10}
	admitAll(t, s, limits, build(t,
		[]any{"A", "B", "C", 1},
		[]any{"A", "B", "D", 1},
	))

	d := Decide(s, build(t, []any{"A", "B", "E", 1})[0], limits)
	assert.Equal(t, RejectPairLimit, d.Outcome)
	assert.Equal(t, 2, d.Count)
	assert.Equal(t, "pair {A, B} already in 2 admitted records", d.Detail())
}

func TestDecide_ValueFieldOrder(t *testing.T) {
	s := NewState()
	limits := Limits{MaxPairDuplicates: 5, MaxValueFrequency: 1}
	admitAll(t, s, limits, build(t,
		[]any{"A", "B", "C", 1},
	))

	d := Decide(s, build(t, []any{"X", "C", "A", 1})[0], limits)
	assert.Equal(t, RejectValueLimit, d.Outcome)
	assert.Equal(t, ir.IRString("C"), d.Value, "C comes before A in field order")
	assert.Equal(t, "value C already appears 1 times", d.Detail())
}

func TestDecide_IntAndStringValuesDistinct(t *testing.T) {
	s := NewState()
	limits := Limits{MaxPairDuplicates: 1, MaxValueFrequency: 1}
	admitAll(t, s, limits, []ir.Record{
		{Row: 0, IDs: [3]ir.IRValue{ir.IRInt(7), ir.IRString("a"), ir.IRString("b")}},
	})

	rec := ir.Record{Row: 1, IDs: [3]ir.IRValue{ir.IRString("7"), ir.IRString("c"), ir.IRString("d")}}
	assert.Equal(t, Admit, Decide(s, rec, limits).Outcome)
}

func TestDecide_DegenerateRecords(t *testing.T) {
	aab := build(t, []any{"A", "A", "B", 1})[0]

	// A appears twice, so a value ceiling of 1 cannot hold it.
	d := Decide(NewState(), aab, Limits{MaxPairDuplicates: 5, MaxValueFrequency: 1})
	assert.Equal(t, RejectValueLimit, d.Outcome)
	assert.Equal(t, ir.IRString("A"), d.Value)
	assert.Equal(t, 0, d.Count)

	// {A,B} is produced twice, which exceeds a pair ceiling of 1.
	d = Decide(NewState(), aab, Limits{MaxPairDuplicates: 1, MaxValueFrequency: 5})
	assert.Equal(t, RejectPairLimit, d.Outcome)
	assert.Equal(t, ir.NewPairKey(ir.IRString("A"), ir.IRString("B")), d.Pair)

	s := NewState()
	limits := Limits{MaxPairDuplicates: 2, MaxValueFrequency: 2}
	require.Equal(t, Admit, Decide(s, aab, limits).Outcome)
	s.Apply(aab)
	assert.Equal(t, 1, s.Pairs.Get(ir.NewPairKey(ir.IRString("A"), ir.IRString("A"))))
	assert.Equal(t, 2, s.Pairs.Get(ir.NewPairKey(ir.IRString("A"), ir.IRString("B"))))
	assert.Equal(t, 2, s.Values.Get(ir.KeyOf(ir.IRString("A"))))
	assert.Equal(t, 1, s.Values.Get(ir.KeyOf(ir.IRString("B"))))
	assert.Empty(t, Verify([]ir.Record{aab}, limits))

	// (A,B,B) is a different multiset from (A,A,B).
	abb := build(t, []any{"A", "B", "B", 1})[0]
	assert.NotEqual(t, RejectExactDuplicate, Decide(s, abb, limits).Outcome)
}

func TestDecide_ExactDuplicateDetail(t *testing.T) {
	s := NewState()
	limits := Limits{MaxPairDuplicates: 3, MaxValueFrequency: 3}
	records := build(t, []any{"B", 10, "A", 1}, []any{"A", "B", 10, 1})
	admitAll(t, s, limits, records[:1])

	d := Decide(s, records[1], limits)
	assert.Equal(t, RejectExactDuplicate, d.Outcome)
	assert.Equal(t, "triple (10, A, B) already admitted at row 0", d.Detail())
	assert.Equal(t, "(10, A, B)", d.Subject())
}

func TestOutcome_Names(t *testing.T) {
	for _, o := range []Outcome{Admit, RejectExactDuplicate, RejectPairLimit, RejectValueLimit} {
		parsed, err := ParseOutcome(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, parsed)
	}
	assert.Equal(t, "pair_limit", RejectPairLimit.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())

	_, err := ParseOutcome("bogus")
	assert.Error(t, err)
}

func TestOutcome_JSONText(t *testing.T) {
	data, err := json.Marshal(map[string]Outcome{"o": RejectValueLimit})
	require.NoError(t, err)
	assert.JSONEq(t, `{"o":"value_limit"}`, string(data))

	var back map[string]Outcome
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, RejectValueLimit, back["o"])
}

func TestLimits_Validate(t *testing.T) {
	assert.NoError(t, Limits{MaxPairDuplicates: 0, MaxValueFrequency: 1}.Validate())
	assert.True(t, IsLimitsError(Limits{MaxPairDuplicates: -1, MaxValueFrequency: 1}.Validate()))
	assert.True(t, IsLimitsError(Limits{MaxPairDuplicates: 0, MaxValueFrequency: 0}.Validate()))

	assert.Equal(t, 1, Limits{MaxPairDuplicates: 0}.PairCeiling())
	assert.Equal(t, 1, Limits{MaxPairDuplicates: 1}.PairCeiling())
	assert.Equal(t, 3, Limits{MaxPairDuplicates: 3}.PairCeiling())
}

func TestRecordError_Message(t *testing.T) {
	err := NewRecordError(4, 6, "heroID2", "empty identifier")
	assert.Equal(t, `MALFORMED_RECORD: row 4 (line 6), column "heroID2": empty identifier`, err.Error())

	err = NewRecordError(4, 0, "", "identifier 3 is missing")
	assert.Equal(t, "MALFORMED_RECORD: row 4: identifier 3 is missing", err.Error())
	assert.False(t, IsLimitsError(err))
}
