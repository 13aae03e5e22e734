package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerify_Clean(t *testing.T) {
	records := build(t,
		[]any{"A", "B", "C", 1},
		[]any{"A", "D", "E", 1},
	)
	assert.Empty(t, Verify(records, Limits{MaxPairDuplicates: 1, MaxValueFrequency: 2}))
	assert.Empty(t, Verify(nil, Limits{MaxPairDuplicates: 0, MaxValueFrequency: 1}))
}

func TestVerify_FindsEveryKind(t *testing.T) {
	records := build(t,
		[]any{"A", "B", "C", 1},
		[]any{"C", "B", "A", 1},
		[]any{"A", "B", "D", 1},
	)

	violations := Verify(records, Limits{MaxPairDuplicates: 2, MaxValueFrequency: 2})
	require.Len(t, violations, 4)

	assert.Equal(t, RejectExactDuplicate, violations[0].Kind)
	assert.Equal(t, "(A, B, C)", violations[0].Subject)
	assert.Equal(t, []int{0, 1}, violations[0].Rows)
	assert.Equal(t, 2, violations[0].Count)
	assert.Equal(t, 1, violations[0].Limit)

	assert.Equal(t, RejectPairLimit, violations[1].Kind)
	assert.Equal(t, "{A, B}", violations[1].Subject)
	assert.Equal(t, []int{0, 1, 2}, violations[1].Rows)
	assert.Equal(t, 3, violations[1].Count)

	assert.Equal(t, RejectValueLimit, violations[2].Kind)
	assert.Equal(t, "A", violations[2].Subject)
	assert.Equal(t, RejectValueLimit, violations[3].Kind)
	assert.Equal(t, "B", violations[3].Subject)

	assert.Equal(t, "value_limit: A occurs 3 times (limit 2) in rows [0 1 2]", violations[2].String())
}

func TestVerify_PairZeroMeansUnique(t *testing.T) {
	records := build(t,
		[]any{"A", "B", "C", 1},
		[]any{"A", "B", "D", 1},
	)
	violations := Verify(records, Limits{MaxPairDuplicates: 0, MaxValueFrequency: 5})
	require.Len(t, violations, 1)
	assert.Equal(t, RejectPairLimit, violations[0].Kind)
	assert.Equal(t, 1, violations[0].Limit)
}
