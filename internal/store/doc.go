// Package store provides the SQLite run journal for tridup.
//
// A journal database records:
//   - Runs: one row per admission pass, with the config hash, the input
//     fingerprint, the limits, and the running counters
//   - Decisions: the outcome of every processed row, keyed by (run, row)
//   - Checkpoints: canonical-JSON engine state, keyed by (run, next_row)
//
// Writes are idempotent: decisions and checkpoints use ON CONFLICT DO
// NOTHING, so replaying a batch after a crash leaves the journal unchanged.
// Decisions buffered by Journal are committed in the same transaction as
// the checkpoint that covers them, so the journal never holds a decision
// beyond its latest checkpoint.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Run IDs are UUIDv7 strings, so ordering by id orders runs by creation.
// Checkpoint state hashes come from internal/ir/hash.go (RFC 8785 canonical
// JSON, SHA-256 with domain separation).
package store
