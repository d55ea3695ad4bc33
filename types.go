package sessiongate

import (
	"time"

	"github.com/dottlabs/sessiongate/internal/flows"
	"github.com/dottlabs/sessiongate/store"
)

// Source identifies which layer a resolved session came from, in descending
// trust order.
//
//	Docs: docs/resolution.md
type Source uint8

const (
	// SourceNone is an exported constant or variable used by the session resolution engine.
	SourceNone Source = iota
	// SourceBackendValidated is an exported constant or variable used by the session resolution engine.
	SourceBackendValidated
	// SourceStoreCache is an exported constant or variable used by the session resolution engine.
	SourceStoreCache
	// SourceLegacyCookie is an exported constant or variable used by the session resolution engine.
	SourceLegacyCookie
)

// String describes the string operation and its observable behavior.
//
// String may return an error when input validation, dependency calls, or security checks fail.
// String does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s Source) String() string {
	switch s {
	case SourceBackendValidated:
		return "backend-validated"
	case SourceStoreCache:
		return "store-cache"
	case SourceLegacyCookie:
		return "legacy-cookie"
	default:
		return "none"
	}
}

// ResolvedSession is returned by [Resolver.Resolve] and carries everything a
// request handler needs: identity, tenant binding, onboarding state, and the
// provenance of the answer.
//
//	Docs: docs/resolution.md
type ResolvedSession struct {
	SessionID string
	UserID    string
	Email     string

	// TenantID is empty until onboarding assigns one.
	TenantID string

	NeedsOnboarding     bool
	OnboardingCompleted bool

	Source Source

	// RequiresRevalidation marks a session that must not be trusted for
	// mutating operations: every legacy-cookie hit, and a cache hit served
	// while the backend was unreachable. [Resolver.RequireValidated]
	// enforces this.
	RequiresRevalidation bool

	CreatedAt       time.Time
	LastValidatedAt time.Time
}

// Established reports whether the session is bound to a tenant with
// onboarding complete.
func (s *ResolvedSession) Established() bool {
	return s != nil && s.TenantID != "" && s.OnboardingCompleted && !s.NeedsOnboarding
}

// EstablishInput defines a public type used by sessiongate APIs.
//
// EstablishInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EstablishInput struct {
	// SessionID is optional; a v4 UUID is generated when empty.
	SessionID string

	UserID string
	Email  string

	// TenantID may be empty for a pre-onboarding session.
	TenantID string

	NeedsOnboarding     bool
	OnboardingCompleted bool
}

func resolvedFromSnapshot(snap *store.Snapshot, source flows.ResolveSource, requiresRevalidation bool) *ResolvedSession {
	if snap == nil {
		return nil
	}

	out := &ResolvedSession{
		SessionID:            snap.SessionID,
		UserID:               snap.UserID,
		Email:                snap.Email,
		TenantID:             snap.TenantID,
		NeedsOnboarding:      snap.NeedsOnboarding,
		OnboardingCompleted:  snap.OnboardingCompleted,
		RequiresRevalidation: requiresRevalidation,
	}

	switch source {
	case flows.ResolveSourceBackend:
		out.Source = SourceBackendValidated
	case flows.ResolveSourceStoreCache:
		out.Source = SourceStoreCache
	case flows.ResolveSourceLegacy:
		out.Source = SourceLegacyCookie
	}

	if snap.CreatedAt > 0 {
		out.CreatedAt = time.Unix(snap.CreatedAt, 0).UTC()
	}
	if snap.LastValidatedAt > 0 {
		out.LastValidatedAt = time.Unix(snap.LastValidatedAt, 0).UTC()
	}

	return out
}
