// Package store is the Redis-backed cache of server-side session snapshots,
// keyed by session id with TTL semantics.
//
// # Design
//
// The store is a cache, not a system of record. Every failure mode on the
// read path degrades to a miss so that a store outage forces a fall-through
// to backend validation instead of failing the request. Writes are
// best-effort idempotent upserts of the full record, never partial-field
// patches. Snapshots are encoded in a compact versioned binary format.
//
// # Architecture boundaries
//
// This package owns the Redis key layout, the snapshot wire format, and the
// per-call store timeout. It never decides validity or staleness; that is
// the resolver's job.
//
// # What this package must NOT do
//
//   - Surface a store outage as an authentication failure.
//   - Cache anything in process memory.
//   - Import the root package or any sibling package.
package store
