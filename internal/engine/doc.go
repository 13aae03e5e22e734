// Package engine implements the tridup admission engine.
//
// The engine consumes an ordered sequence of records, each carrying three
// identifier values, and decides which records to admit under three
// escalating constraints:
//
//   - no two admitted records share the same identifier triple, regardless
//     of column order;
//   - no pair of identifiers appears in more than MaxPairDuplicates
//     admitted records;
//   - no identifier value appears more than MaxValueFrequency times across
//     the identifier columns of the admitted records.
//
// ARCHITECTURE:
//
// Aggregation pre-pass:
// Before any decision, Aggregate sums the auxiliary field of every record
// per triple. This pass is parallel (errgroup over hash partitions) and its
// result does not depend on scheduling.
//
// Single-threaded main pass:
// Records are decided strictly in input order. Decide is a pure function of
// (State, Record, Limits); State.Apply mutates only after an Admit. Each
// decision therefore sees exactly the admissions that precede it, and the
// same input with the same limits always produces the same result.
//
// Checkpoints:
// The engine hands periodic snapshots of its state to an optional Journal.
// Restoring a snapshot and continuing produces the decisions an
// uninterrupted run would have made.
//
// The engine performs no I/O of its own.
package engine
