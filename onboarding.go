package sessiongate

import (
	"context"
	"fmt"

	"github.com/dottlabs/sessiongate/internal/flows"
)

// UpdateOnboardingComplete transitions the session's onboarding state and
// binds the tenant. The call is idempotent for the same tenant; a different
// tenant after the first assignment is refused with [ErrTenantReassignment].
//
// UpdateOnboardingComplete may return an error when input validation, dependency calls, or security checks fail.
// UpdateOnboardingComplete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) UpdateOnboardingComplete(ctx context.Context, sessionID, tenantID string) error {
	if r == nil {
		return ErrResolverNotReady
	}
	if sessionID == "" {
		return ErrSessionNotFound
	}
	if tenantID == "" {
		return fmt.Errorf("%w: empty tenant id", ErrOnboardingStateConflict)
	}

	res := flows.RunOnboardingComplete(ctx, sessionID, tenantID, flows.OnboardingDeps{
		StoreGet:    r.store.Get,
		StoreSet:    r.store.Set,
		Validate:    r.validator.Validate,
		Now:         r.now,
		SnapshotTTL: r.config.Store.SnapshotTTL,
	})

	if res.StoreDegraded {
		r.metricInc(MetricStoreDegraded)
	}

	switch res.Failure {
	case flows.OnboardingFailureNotFound:
		r.emitAudit(ctx, AuditEvent{
			EventType: auditOnboardingRejected,
			TenantID:  tenantID,
			SessionID: sessionID,
			Error:     ErrSessionNotFound.Error(),
		})
		if res.Err != nil {
			return fmt.Errorf("%w: %v", ErrSessionNotFound, res.Err)
		}
		return ErrSessionNotFound

	case flows.OnboardingFailureReassignment:
		r.metricInc(MetricOnboardingReassignRejected)
		r.emitAudit(ctx, AuditEvent{
			EventType: auditOnboardingRejected,
			TenantID:  tenantID,
			SessionID: sessionID,
			Error:     ErrTenantReassignment.Error(),
		})
		return ErrTenantReassignment

	case flows.OnboardingFailureConflict:
		r.metricInc(MetricOnboardingConflict)
		r.emitAudit(ctx, AuditEvent{
			EventType: auditOnboardingRejected,
			TenantID:  tenantID,
			SessionID: sessionID,
			Error:     ErrOnboardingStateConflict.Error(),
		})
		return ErrOnboardingStateConflict
	}

	if res.Idempotent {
		r.metricInc(MetricOnboardingIdempotent)
		return nil
	}

	r.metricInc(MetricOnboardingCompleted)
	r.emitAudit(ctx, AuditEvent{
		EventType: auditOnboardingComplete,
		UserID:    res.Snapshot.UserID,
		TenantID:  tenantID,
		SessionID: sessionID,
		Success:   true,
	})

	return nil
}
