package internaldefs

import (
	sessiongate "github.com/dottlabs/sessiongate"
)

// CounterDef defines a public type used by sessiongate APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by sessiongate APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   sessiongate.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the session resolution engine.
var CounterDefs = []CounterDef{
	{ID: sessiongate.MetricResolveStoreHit, Name: "sessiongate_resolve_store_hit_total", Help: "Sessions resolved from a fresh store-cache snapshot."},
	{ID: sessiongate.MetricResolveBackendValidated, Name: "sessiongate_resolve_backend_validated_total", Help: "Sessions resolved by backend validation."},
	{ID: sessiongate.MetricResolveLegacy, Name: "sessiongate_resolve_legacy_total", Help: "Sessions resolved from a legacy encrypted cookie."},
	{ID: sessiongate.MetricResolveInvalid, Name: "sessiongate_resolve_invalid_total", Help: "Resolution attempts that produced no valid session."},
	{ID: sessiongate.MetricResolveConflict, Name: "sessiongate_resolve_conflict_total", Help: "Resolutions surfacing an onboarding state conflict."},
	{ID: sessiongate.MetricResolveDegraded, Name: "sessiongate_resolve_degraded_total", Help: "Cache hits served read-only while the backend was unreachable."},
	{ID: sessiongate.MetricStoreDegraded, Name: "sessiongate_store_degraded_total", Help: "Store operations degraded by a Redis outage."},
	{ID: sessiongate.MetricBackendTimeout, Name: "sessiongate_backend_timeout_total", Help: "Backend validation timeouts."},
	{ID: sessiongate.MetricBackendRejected, Name: "sessiongate_backend_rejected_total", Help: "Sessions explicitly rejected by the backend."},
	{ID: sessiongate.MetricBackendUnavailable, Name: "sessiongate_backend_unavailable_total", Help: "Backend validation failures other than timeouts."},
	{ID: sessiongate.MetricTenantReconciled, Name: "sessiongate_tenant_reconciled_total", Help: "Cached tenant assignments overwritten by the backend value."},
	{ID: sessiongate.MetricLegacyDecodeFailure, Name: "sessiongate_legacy_decode_failure_total", Help: "Legacy cookie blobs that failed to decrypt or parse."},
	{ID: sessiongate.MetricEstablishSuccess, Name: "sessiongate_establish_success_total", Help: "Successful session establishments."},
	{ID: sessiongate.MetricEstablishRetry, Name: "sessiongate_establish_retry_total", Help: "Establishment verification retries."},
	{ID: sessiongate.MetricEstablishFailure, Name: "sessiongate_establish_failure_total", Help: "Establishments that exhausted the retry budget."},
	{ID: sessiongate.MetricOnboardingCompleted, Name: "sessiongate_onboarding_completed_total", Help: "Completed onboarding transitions."},
	{ID: sessiongate.MetricOnboardingIdempotent, Name: "sessiongate_onboarding_idempotent_total", Help: "Onboarding completions that were same-tenant no-ops."},
	{ID: sessiongate.MetricOnboardingReassignRejected, Name: "sessiongate_onboarding_reassign_rejected_total", Help: "Onboarding completions refused for tenant reassignment."},
	{ID: sessiongate.MetricOnboardingConflict, Name: "sessiongate_onboarding_conflict_total", Help: "Onboarding completions refused for contradictory backend state."},
	{ID: sessiongate.MetricRevocation, Name: "sessiongate_revocation_total", Help: "Session revocations."},
}

// HistogramDefs is an exported constant or variable used by the session resolution engine.
var HistogramDefs = []HistogramDef{
	{ID: sessiongate.MetricResolveLatency, Name: "sessiongate_resolve_latency_seconds", Help: "Resolve latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the session resolution engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the session resolution engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
