package flows

import (
	"context"
	"time"

	"github.com/dottlabs/sessiongate/backend"
	"github.com/dottlabs/sessiongate/store"
)

// OnboardingFailureKind classifies onboarding-completion failures for
// root-level mapping.
type OnboardingFailureKind int

const (
	OnboardingFailureNone OnboardingFailureKind = iota
	OnboardingFailureNotFound
	OnboardingFailureReassignment
	OnboardingFailureConflict
)

// OnboardingResult is the outcome of one completion attempt.
type OnboardingResult struct {
	Failure OnboardingFailureKind
	Err     error

	Snapshot *store.Snapshot

	// Idempotent marks a repeat call with the tenant already assigned:
	// a no-op, not an error.
	Idempotent    bool
	StoreDegraded bool
}

// OnboardingDeps captures the completion flow's collaborators.
type OnboardingDeps struct {
	StoreGet func(ctx context.Context, sessionID string) (*store.Snapshot, error)
	StoreSet func(ctx context.Context, snap *store.Snapshot, ttl time.Duration) error
	Validate func(ctx context.Context, sessionID string) (*backend.Result, error)

	Now         func() time.Time
	SnapshotTTL time.Duration
}

// RunOnboardingComplete transitions needsOnboarding true→false and binds
// tenantID. Repeating the call with the same tenant is a no-op; a different
// tenant after the first assignment is a reassignment failure, never a
// silent overwrite.
func RunOnboardingComplete(ctx context.Context, sessionID, tenantID string, deps OnboardingDeps) OnboardingResult {
	var res OnboardingResult
	now := deps.Now()

	snap, err := deps.StoreGet(ctx, sessionID)
	if err != nil {
		// Cache miss or outage: the backend still knows the session.
		backendRes, backendErr := deps.Validate(ctx, sessionID)
		if backendErr != nil || !backendRes.Valid {
			res.Failure = OnboardingFailureNotFound
			res.Err = backendErr
			return res
		}
		if backendRes.TenantID != "" && backendRes.NeedsOnboarding {
			res.Failure = OnboardingFailureConflict
			return res
		}
		snap = snapshotFromBackend(sessionID, backendRes, now, nil)
	}

	switch {
	case snap.TenantID == tenantID && !snap.NeedsOnboarding && snap.OnboardingCompleted:
		res.Snapshot = snap
		res.Idempotent = true
		return res
	case snap.TenantID != "" && snap.TenantID != tenantID:
		res.Failure = OnboardingFailureReassignment
		return res
	}

	snap.TenantID = tenantID
	snap.NeedsOnboarding = false
	snap.OnboardingCompleted = true
	snap.LastValidatedAt = now.Unix()

	if err := deps.StoreSet(context.WithoutCancel(ctx), snap, deps.SnapshotTTL); err != nil {
		// The backend already holds the transition; the cache heals on the
		// next resolve.
		res.StoreDegraded = true
	}

	res.Snapshot = snap
	return res
}
