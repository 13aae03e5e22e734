package engine

import "fmt"

// Limits are the admission thresholds of a run.
//
// Both limits are inclusive upper bounds on the admitted set:
//   - MaxPairDuplicates: admitted records that may share any one pair of
//     identifiers. The first record holding a pair is always allowed, so
//     0 and 1 both mean a pair may appear in one admitted record only.
//   - MaxValueFrequency: occurrences of any one identifier value across the
//     identifier columns of all admitted records. Must be at least 1.
type Limits struct {
	MaxPairDuplicates int `json:"max_pair_duplicates" yaml:"max_pair_duplicates"`
	MaxValueFrequency int `json:"max_value_frequency" yaml:"max_value_frequency"`
}

// Validate checks that the limits are in range.
func (l Limits) Validate() error {
	if l.MaxPairDuplicates < 0 {
		return NewLimitsError(fmt.Sprintf("max_pair_duplicates cannot be negative (got %d)", l.MaxPairDuplicates))
	}
	if l.MaxValueFrequency < 1 {
		return NewLimitsError(fmt.Sprintf("max_value_frequency must be at least 1 (got %d)", l.MaxValueFrequency))
	}
	return nil
}

// PairCeiling returns the maximum number of admitted records that may
// contain any one pair.
func (l Limits) PairCeiling() int {
	return max(l.MaxPairDuplicates, 1)
}

// String returns a human-readable representation of the limits.
func (l Limits) String() string {
	return fmt.Sprintf("Limits{MaxPair: %d, MaxValue: %d}", l.MaxPairDuplicates, l.MaxValueFrequency)
}
