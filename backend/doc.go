// Package backend calls the authoritative session-validation endpoint of
// the business backend.
//
// # Design
//
// A single bounded network call per validation: GET
// {base}/sessions/validate/{sessionId}. A timeout is classified as
// [ErrTimeout] and retried at most once; an explicit rejection is an
// authoritative "no" and is never retried. The validator holds no cache of
// its own; caching is the store client's responsibility layered on top.
//
// # Architecture boundaries
//
// This package owns the validate wire contract and the service-token
// authentication toward the backend. It never touches cookies or Redis.
//
// # What this package must NOT do
//
//   - Cache validation results.
//   - Retry explicit rejections.
//   - Let a slow backend stall a request beyond the configured timeout.
package backend
