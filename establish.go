package sessiongate

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dottlabs/sessiongate/cookie"
	"github.com/dottlabs/sessiongate/internal/flows"
	"github.com/dottlabs/sessiongate/store"
	"github.com/google/uuid"
)

// Establish creates a session: it writes the store snapshot, sets the
// session cookie on w, and re-reads the store until the write is observable.
// The verification loop is bounded; after the retry budget the failure is
// explicit, never an indefinite hang.
//
// Establish may return an error when input validation, dependency calls, or security checks fail.
// Establish does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) Establish(ctx context.Context, w http.ResponseWriter, in EstablishInput) (*ResolvedSession, error) {
	if r == nil {
		return nil, ErrResolverNotReady
	}
	if in.UserID == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: user id and email required", ErrEstablishFailed)
	}

	sessionID := in.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	now := r.now()
	snap := &store.Snapshot{
		SessionID:           sessionID,
		UserID:              in.UserID,
		Email:               in.Email,
		TenantID:            in.TenantID,
		NeedsOnboarding:     in.NeedsOnboarding,
		OnboardingCompleted: in.OnboardingCompleted,
		Provenance:          store.ProvenanceBackend,
		CreatedAt:           now.Unix(),
		LastValidatedAt:     now.Unix(),
	}

	res := flows.RunEstablish(ctx, snap, flows.EstablishDeps{
		StoreSet:          r.store.Set,
		StoreGet:          r.store.Get,
		TTL:               r.config.Store.SnapshotTTL,
		MaxAttempts:       r.config.Establish.MaxAttempts,
		RetryInterval:     r.config.Establish.RetryInterval,
		BackoffMultiplier: r.config.Establish.BackoffMultiplier,
		Sleep:             r.sleep,
	})

	if res.Attempts > 1 {
		r.metricAdd(MetricEstablishRetry, uint64(res.Attempts-1))
	}

	if res.Err != nil {
		r.metricInc(MetricEstablishFailure)
		r.emitAudit(ctx, AuditEvent{
			EventType: auditEstablishFailed,
			UserID:    in.UserID,
			TenantID:  in.TenantID,
			SessionID: sessionID,
			Error:     res.Err.Error(),
			Metadata:  attemptsMetadata(res.Attempts),
		})
		return nil, fmt.Errorf("%w: %v", ErrEstablishFailed, res.Err)
	}

	if w != nil {
		opts := r.writeOptions()
		cookie.SetSID(w, sessionID, opts)
		cookie.SetStatusFlag(w, cookie.FlagOnboardingCompleted,
			strconv.FormatBool(in.OnboardingCompleted), opts)
	}

	r.metricInc(MetricEstablishSuccess)
	r.emitAudit(ctx, AuditEvent{
		EventType: auditEstablished,
		UserID:    in.UserID,
		TenantID:  in.TenantID,
		SessionID: sessionID,
		Source:    SourceBackendValidated.String(),
		Success:   true,
		Metadata:  attemptsMetadata(res.Attempts),
	})

	return resolvedFromSnapshot(snap, flows.ResolveSourceBackend, false), nil
}
