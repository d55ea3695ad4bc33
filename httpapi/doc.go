// Package httpapi exposes the session endpoints as a gin route group:
// current-session introspection, logout, and onboarding completion.
//
// # Architecture boundaries
//
// httpapi translates HTTP requests into Resolver calls and Resolver errors
// into status codes. Conflict-class failures (onboarding state conflicts,
// tenant reassignment) map to 409 with a retryable flag so the frontend can
// re-resolve instead of showing a dead end.
//
// # What this package must NOT do
//
//   - Touch Redis, the backend, or cookies directly.
//   - Leak internal error text to unauthenticated callers.
package httpapi
