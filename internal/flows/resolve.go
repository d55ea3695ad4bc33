package flows

import (
	"context"
	"errors"
	"time"

	"github.com/dottlabs/sessiongate/backend"
	"github.com/dottlabs/sessiongate/cookie"
	"github.com/dottlabs/sessiongate/store"
)

// ResolveSource identifies which link of the fallback chain produced the
// session, in descending trust order.
type ResolveSource int

const (
	ResolveSourceNone ResolveSource = iota
	ResolveSourceStoreCache
	ResolveSourceBackend
	ResolveSourceLegacy
)

// ResolveFailureKind classifies resolution failures for root-level mapping.
type ResolveFailureKind int

const (
	ResolveFailureNone ResolveFailureKind = iota
	ResolveFailureInvalid
	ResolveFailureConflict
)

// ResolveResult is the outcome of one pass through the resolution chain,
// plus telemetry flags the root package turns into metrics and audit events.
type ResolveResult struct {
	Failure ResolveFailureKind
	Err     error

	Snapshot *store.Snapshot
	Source   ResolveSource

	// RequiresRevalidation marks a session that must not be trusted for
	// mutating operations until the backend confirms it: every
	// legacy-cookie hit, and a stale cache hit served while the backend
	// was unreachable.
	RequiresRevalidation bool

	StaleHit             bool
	StoreDegraded        bool
	BackendTimeout       bool
	BackendUnavailable   bool
	BackendRejected      bool
	ConflictRevalidated  bool
	TenantRebound        bool
	PriorTenant          string
	LegacyDecodeFailures int
}

// ResolveDeps captures the resolution chain's collaborators.
type ResolveDeps struct {
	StoreGet    func(ctx context.Context, sessionID string) (*store.Snapshot, error)
	StoreSet    func(ctx context.Context, snap *store.Snapshot, ttl time.Duration) error
	StoreDelete func(ctx context.Context, sessionID string) error

	Validate func(ctx context.Context, sessionID string) (*backend.Result, error)

	DecodeLegacy func(blob string) (*cookie.LegacyPayload, error)

	Now                func() time.Time
	ValidationInterval time.Duration
	SnapshotTTL        time.Duration
}

// RunResolve walks the priority chain: fresh store hit, backend validation
// with write-through, legacy cookie fallback, invalid. Short-circuits on the
// first authoritative answer and fails closed when every link is exhausted.
func RunResolve(ctx context.Context, bundle cookie.Bundle, deps ResolveDeps) ResolveResult {
	var res ResolveResult
	now := deps.Now()

	if bundle.HasSID() {
		var cached *store.Snapshot

		snap, err := deps.StoreGet(ctx, bundle.SID)
		switch {
		case err == nil:
			cached = snap
			switch {
			case snap.Conflicted():
				// Cached contradiction: tenant assigned but onboarding
				// still flagged. The backend, not the cache, settles it.
				res.ConflictRevalidated = true
			case snap.Age(now) <= deps.ValidationInterval:
				res.Snapshot = snap
				res.Source = ResolveSourceStoreCache
				return res
			default:
				res.StaleHit = true
			}
		case errors.Is(err, store.ErrUnavailable):
			res.StoreDegraded = true
		}

		backendRes, backendErr := deps.Validate(ctx, bundle.SID)
		switch {
		case backendErr == nil && backendRes.Valid:
			if backendRes.TenantID != "" && backendRes.NeedsOnboarding {
				// The source of truth itself is contradictory. Surface it;
				// guessing a side here corrupts tenant assignment.
				res.Failure = ResolveFailureConflict
				return res
			}

			if cached != nil &&
				cached.Provenance == store.ProvenanceBackend &&
				cached.TenantID != "" && backendRes.TenantID != "" &&
				cached.TenantID != backendRes.TenantID {
				res.TenantRebound = true
				res.PriorTenant = cached.TenantID
			}

			fresh := snapshotFromBackend(bundle.SID, backendRes, now, cached)
			// Write-through is detached so cache warming survives an
			// aborted request.
			if err := deps.StoreSet(context.WithoutCancel(ctx), fresh, deps.SnapshotTTL); err != nil {
				res.StoreDegraded = true
			}

			res.Snapshot = fresh
			res.Source = ResolveSourceBackend
			return res

		case backendErr == nil:
			// Authoritative rejection. A cached entry, stale or not, must
			// never outlive an explicit backend "no".
			res.BackendRejected = true
			_ = deps.StoreDelete(context.WithoutCancel(ctx), bundle.SID)

		default:
			if errors.Is(backendErr, backend.ErrTimeout) {
				res.BackendTimeout = true
			} else {
				res.BackendUnavailable = true
			}

			if cached != nil && !cached.Conflicted() {
				// Backend unreachable but we hold a cached session: serve
				// it read-only until revalidation succeeds.
				res.Snapshot = cached
				res.Source = ResolveSourceStoreCache
				res.RequiresRevalidation = true
				res.Err = backendErr
				return res
			}
		}
	}

	for _, blob := range bundle.LegacyBlobs {
		payload, err := deps.DecodeLegacy(blob)
		if err != nil {
			res.LegacyDecodeFailures++
			continue
		}

		res.Snapshot = snapshotFromLegacy(payload, now)
		res.Source = ResolveSourceLegacy
		res.RequiresRevalidation = true
		return res
	}

	res.Failure = ResolveFailureInvalid
	return res
}

func snapshotFromBackend(sessionID string, r *backend.Result, now time.Time, prior *store.Snapshot) *store.Snapshot {
	createdAt := now.Unix()
	if prior != nil && prior.CreatedAt > 0 {
		createdAt = prior.CreatedAt
	}

	return &store.Snapshot{
		SessionID:           sessionID,
		UserID:              r.UserID,
		Email:               r.Email,
		TenantID:            r.TenantID,
		NeedsOnboarding:     r.NeedsOnboarding,
		OnboardingCompleted: r.OnboardingCompleted,
		Provenance:          store.ProvenanceBackend,
		CreatedAt:           createdAt,
		LastValidatedAt:     now.Unix(),
	}
}

func snapshotFromLegacy(p *cookie.LegacyPayload, now time.Time) *store.Snapshot {
	createdAt := p.IssuedAt
	if createdAt <= 0 {
		createdAt = now.Unix()
	}

	return &store.Snapshot{
		SessionID:           p.SessionID,
		UserID:              p.UserID,
		Email:               p.Email,
		TenantID:            p.TenantID,
		NeedsOnboarding:     p.NeedsOnboarding,
		OnboardingCompleted: p.OnboardingCompleted,
		Provenance:          store.ProvenanceLegacy,
		CreatedAt:           createdAt,
		// Never validated: a legacy hit is zero-aged so the resolver does
		// not mistake it for a backend-confirmed record.
		LastValidatedAt: 0,
	}
}
