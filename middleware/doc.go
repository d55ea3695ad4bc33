// Package middleware exposes net/http middleware adapters for session
// enforcement built on top of sessiongate.Resolver resolution.
//
// # Guards
//
//   - [Guard] — resolves the session from request cookies and injects it
//     into the request context; unresolved requests are redirected to the
//     configured sign-in URL.
//   - [RequireValidated] — additionally rejects sessions that still need
//     backend revalidation (legacy-cookie hits, degraded cache hits).
//     Intended for mutating and financial routes.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Resolver calls. It does NOT
// implement resolution logic itself — all decisions are delegated to
// Resolver.Resolve.
//
// # What this package must NOT do
//
//   - Read or write cookies beyond passing the request to the Resolver.
//   - Access Redis or the backend directly (the Resolver handles I/O).
//   - Make session decisions beyond pass/redirect from Resolver.Resolve.
package middleware
