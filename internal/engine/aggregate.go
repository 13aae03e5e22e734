package engine

import (
	"context"
	"hash/fnv"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/tridup/internal/ir"
)

// Aggregation holds the per-triple auxiliary sums of the whole input.
type Aggregation struct {
	// Keys is the triple key of every record, indexed by row.
	Keys []ir.TripleKey

	// Sums maps each distinct triple to the sum of Aux over every record
	// sharing it, admitted or not.
	Sums map[ir.TripleKey]int64
}

// Sum returns the aggregate for key.
func (a *Aggregation) Sum(key ir.TripleKey) int64 {
	return a.Sums[key]
}

// Distinct returns the number of distinct triples in the input.
func (a *Aggregation) Distinct() int {
	return len(a.Sums)
}

// Aggregate computes the per-triple sums of Aux over records.
//
// The work is split over workers goroutines in two phases. Keys are computed
// over contiguous chunks of rows, then summed over hash partitions of the key
// space so that every triple is owned by exactly one goroutine. Integer sums
// make the result independent of scheduling.
func Aggregate(ctx context.Context, records []ir.Record, workers int) (*Aggregation, error) {
	if workers < 1 {
		workers = 1
	}
	n := len(records)
	keys := make([]ir.TripleKey, n)

	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				keys[i] = records[i].Key()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	shards := make([]map[ir.TripleKey]int64, workers)
	g, gctx = errgroup.WithContext(ctx)
	for shard := range shards {
		g.Go(func() error {
			sums := make(map[ir.TripleKey]int64)
			for i, key := range keys {
				if i%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				if shardOf(key, workers) != shard {
					continue
				}
				sum, ok := addInt64(sums[key], records[i].Aux)
				if !ok {
					return NewOverflowError(tripleText(key))
				}
				sums[key] = sum
			}
			shards[shard] = sums
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := make(map[ir.TripleKey]int64)
	for _, sums := range shards {
		for k, v := range sums {
			total[k] = v
		}
	}
	return &Aggregation{Keys: keys, Sums: total}, nil
}

func shardOf(key ir.TripleKey, shards int) int {
	if shards == 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(shards))
}

// addInt64 returns a+b and false if the addition overflowed.
func addInt64(a, b int64) (int64, bool) {
	c := a + b
	if (c > a) == (b > 0) {
		return c, true
	}
	return c, false
}
