// Package ir provides the canonical value types shared by every tridup package.
//
// This package contains value types and pure functions only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Identifier values are IRString or IRInt, NO floats
//   - Triples and pairs are normalized by a total order, never by input position
//   - Map keys (ValueKey, PairKey, TripleKey) are canonical JSON, so an
//     integer 7 and the string "7" never collide
//   - Content hashes use RFC 8785 canonical JSON with domain separation
package ir
