// Package sessiongate provides server-side session resolution for a
// multi-tenant web application: a Redis-backed snapshot cache, an HTTP
// backend validator as the source of truth, and a legacy encrypted-cookie
// fallback, composed into a single fail-closed priority chain.
//
// The package is designed for concurrent server workloads: Resolver methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// sessiongate is the public surface. It exposes [Resolver], [Builder],
// [Config], and value types (ResolvedSession, MetricsSnapshot, AuditEvent).
// Chain orchestration lives under internal/flows; cookie parsing and
// crypto, the store client, and the backend validator live in their own
// leaf packages (cookie, store, backend) and never import sessiongate.
//
// # What this package must NOT do
//
//   - Expose the Redis client, snapshot encoding, or backend wire format in
//     its public API.
//   - Treat the store as a system of record: every cached field must be
//     reconstructible from a backend validation.
//   - Trust a legacy cookie for mutating operations before the backend has
//     confirmed it.
//
// # Performance contract
//
// Resolve is the hot path. A fresh cache hit costs one Redis round-trip and
// no backend call; only stale, conflicted, or missing entries reach the
// backend.
package sessiongate
