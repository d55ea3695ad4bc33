package sessiongate

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dottlabs/sessiongate/backend"
	"github.com/dottlabs/sessiongate/cookie"
	"github.com/dottlabs/sessiongate/internal/flows"
	"github.com/dottlabs/sessiongate/store"
)

// Resolver defines a public type used by sessiongate APIs.
//
// Resolver instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Resolver struct {
	config    Config
	store     *store.Client
	codec     *cookie.Codec
	validator backend.Validator
	audit     *auditDispatcher
	metrics   *Metrics
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) Close() {
	if r == nil {
		return
	}
	if r.audit != nil {
		r.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) AuditDropped() uint64 {
	if r == nil || r.audit == nil {
		return 0
	}
	return r.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) MetricsSnapshot() MetricsSnapshot {
	if r == nil || r.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return r.metrics.Snapshot()
}

func (r *Resolver) metricInc(id MetricID) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.Inc(id)
}

func (r *Resolver) metricAdd(id MetricID, n uint64) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.Add(id, n)
}

func (r *Resolver) metricObserve(id MetricID, d time.Duration) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.Observe(id, d)
}

func (r *Resolver) emitAudit(ctx context.Context, event AuditEvent) {
	if r == nil || r.audit == nil {
		return
	}
	event.Timestamp = r.now()
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	if ua := userAgentFromContext(ctx); ua != "" {
		if event.Metadata == nil {
			event.Metadata = map[string]string{}
		}
		event.Metadata["user_agent"] = ua
	}
	r.audit.Emit(ctx, event)
}

// Resolve extracts the session cookies from req and resolves them through
// the priority chain: fresh store-cache hit, backend validation with
// write-through, legacy cookie fallback, invalid.
//
// Resolve may return an error when input validation, dependency calls, or security checks fail.
// Resolve does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*ResolvedSession, error) {
	if r == nil {
		return nil, ErrResolverNotReady
	}
	return r.ResolveBundle(ctx, cookie.Extract(req))
}

// ResolveBundle describes the resolvebundle operation and its observable behavior.
//
// ResolveBundle may return an error when input validation, dependency calls, or security checks fail.
// ResolveBundle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) ResolveBundle(ctx context.Context, bundle cookie.Bundle) (*ResolvedSession, error) {
	if r == nil {
		return nil, ErrResolverNotReady
	}

	start := r.now()
	res := flows.RunResolve(ctx, bundle, r.resolveDeps())
	r.metricObserve(MetricResolveLatency, r.now().Sub(start))

	r.recordResolveTelemetry(ctx, bundle, res)

	// An aborted request never has a result applied; the detached
	// write-through above has already warmed the store.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestAborted, err)
	}

	switch res.Failure {
	case flows.ResolveFailureConflict:
		r.metricInc(MetricResolveConflict)
		r.emitAudit(ctx, AuditEvent{
			EventType: auditResolveConflict,
			SessionID: bundle.SID,
			Error:     ErrOnboardingStateConflict.Error(),
		})
		return nil, ErrOnboardingStateConflict

	case flows.ResolveFailureInvalid:
		r.metricInc(MetricResolveInvalid)
		r.emitAudit(ctx, AuditEvent{
			EventType: auditResolveInvalid,
			SessionID: bundle.SID,
			Error:     ErrSessionInvalid.Error(),
		})
		if cause := invalidCause(res); cause != nil {
			return nil, fmt.Errorf("%w: %w", ErrSessionInvalid, cause)
		}
		if res.Err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, res.Err)
		}
		return nil, ErrSessionInvalid
	}

	session := resolvedFromSnapshot(res.Snapshot, res.Source, res.RequiresRevalidation)

	r.emitAudit(ctx, AuditEvent{
		EventType: auditResolveSuccess,
		UserID:    session.UserID,
		TenantID:  session.TenantID,
		SessionID: session.SessionID,
		Source:    session.Source.String(),
		Success:   true,
	})

	return session, nil
}

// RequireValidated enforces the mutating-operation gate: sessions served
// from a legacy cookie or from a degraded cache hit must be re-validated by
// the backend before they may drive writes.
//
// RequireValidated may return an error when input validation, dependency calls, or security checks fail.
// RequireValidated does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) RequireValidated(session *ResolvedSession) error {
	if session == nil {
		return ErrSessionInvalid
	}
	if session.RequiresRevalidation {
		return ErrRevalidationRequired
	}
	return nil
}

func (r *Resolver) recordResolveTelemetry(ctx context.Context, bundle cookie.Bundle, res flows.ResolveResult) {
	switch res.Source {
	case flows.ResolveSourceStoreCache:
		r.metricInc(MetricResolveStoreHit)
	case flows.ResolveSourceBackend:
		r.metricInc(MetricResolveBackendValidated)
	case flows.ResolveSourceLegacy:
		r.metricInc(MetricResolveLegacy)
	}

	if res.StoreDegraded {
		r.metricInc(MetricStoreDegraded)
	}
	if res.BackendTimeout {
		r.metricInc(MetricBackendTimeout)
	}
	if res.BackendUnavailable {
		r.metricInc(MetricBackendUnavailable)
	}
	if res.BackendRejected {
		r.metricInc(MetricBackendRejected)
	}
	r.metricAdd(MetricLegacyDecodeFailure, uint64(res.LegacyDecodeFailures))

	if res.RequiresRevalidation && res.Source == flows.ResolveSourceStoreCache {
		r.metricInc(MetricResolveDegraded)
		r.emitAudit(ctx, AuditEvent{
			EventType: auditResolveDegraded,
			SessionID: bundle.SID,
			Source:    SourceStoreCache.String(),
			Success:   true,
			Error:     errString(res.Err),
		})
	}

	if res.TenantRebound {
		r.metricInc(MetricTenantReconciled)
		r.emitAudit(ctx, AuditEvent{
			EventType: auditTenantReconciled,
			UserID:    res.Snapshot.UserID,
			TenantID:  res.Snapshot.TenantID,
			SessionID: bundle.SID,
			Source:    SourceBackendValidated.String(),
			Success:   true,
			Metadata: map[string]string{
				"prior_tenant_id": res.PriorTenant,
			},
		})
	}
}

func (r *Resolver) resolveDeps() flows.ResolveDeps {
	return flows.ResolveDeps{
		StoreGet:           r.store.Get,
		StoreSet:           r.store.Set,
		StoreDelete:        r.store.Delete,
		Validate:           r.validator.Validate,
		DecodeLegacy:       r.decodeLegacy,
		Now:                r.now,
		ValidationInterval: r.config.Resolver.ValidationInterval,
		SnapshotTTL:        r.config.Store.SnapshotTTL,
	}
}

func (r *Resolver) decodeLegacy(blob string) (*cookie.LegacyPayload, error) {
	if r.codec == nil {
		return nil, fmt.Errorf("%w: legacy fallback disabled", cookie.ErrDecode)
	}
	payload, err := r.codec.DecodeLegacy(blob)
	if err != nil {
		return nil, err
	}
	if !payload.WellFormed() {
		return nil, fmt.Errorf("%w: payload missing identity", cookie.ErrDecode)
	}
	return payload, nil
}

func (r *Resolver) writeOptions() cookie.WriteOptions {
	// Cookie.MaxAge is configured in seconds; WriteOptions carries a
	// duration. A bare cast would be nanoseconds and truncate to zero.
	return cookie.WriteOptions{
		Domain: r.config.Cookie.Domain,
		Secure: r.config.Cookie.Secure,
		MaxAge: time.Duration(r.config.Cookie.MaxAge) * time.Second,
	}
}

// invalidCause picks the classification sentinel for a failed-closed resolve
// so callers can tell a backend rejection apart from an outage with errors.Is.
func invalidCause(res flows.ResolveResult) error {
	switch {
	case res.BackendRejected:
		return ErrBackendRejected
	case res.BackendTimeout:
		return ErrBackendTimeout
	case res.BackendUnavailable:
		return ErrBackendUnavailable
	case res.StoreDegraded:
		return ErrStoreUnavailable
	default:
		return nil
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func attemptsMetadata(attempts int) map[string]string {
	return map[string]string{"attempts": strconv.Itoa(attempts)}
}
