// Package cookie reads and writes the session cookie surface: the short
// opaque sid cookie, the deprecated encrypted legacy blob, and the
// non-sensitive status-flag cookies used to bias UI decisions before the
// authoritative session resolves.
//
// # Design
//
// Extraction is a pure parse: malformed or absent cookies yield zero-value
// fields, never an error. The legacy blob uses AES-256-CBC with a random IV
// in the wire format "iv_hex:ciphertext_hex"; every decrypt failure is
// classified under [ErrDecode] so callers can treat it as an absent cookie.
//
// # Architecture boundaries
//
// This package owns cookie names, flags, and the legacy crypto format. It
// never decides whether a session is valid; that is the resolver's job.
//
// # What this package must NOT do
//
//   - Perform network I/O.
//   - Trust status-flag cookies for anything authorization related.
//   - Panic on hostile input.
package cookie
