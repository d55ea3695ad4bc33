package sessiongate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dottlabs/sessiongate/backend"
	"github.com/dottlabs/sessiongate/cookie"
	"github.com/dottlabs/sessiongate/store"
)

func seedSnapshot(t *testing.T, r *Resolver, snap *store.Snapshot) {
	t.Helper()
	if err := r.store.Set(context.Background(), snap, time.Hour); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

func validSnapshot(sid string) *store.Snapshot {
	return &store.Snapshot{
		SessionID:           sid,
		UserID:              "u-1",
		Email:               "user@example.com",
		TenantID:            "t-1",
		OnboardingCompleted: true,
		Provenance:          store.ProvenanceBackend,
		CreatedAt:           testClock.Add(-time.Hour).Unix(),
		LastValidatedAt:     testClock.Add(-10 * time.Second).Unix(),
	}
}

func TestResolveBundleFreshCacheHit(t *testing.T) {
	v := &fakeValidator{}
	resolver, _, cleanup := buildTestResolver(t, testConfig(), v, nil)
	defer cleanup()

	seedSnapshot(t, resolver, validSnapshot("s1"))

	session, err := resolver.ResolveBundle(context.Background(), cookie.Bundle{SID: "s1"})
	if err != nil {
		t.Fatalf("ResolveBundle: %v", err)
	}
	if session.Source != SourceStoreCache {
		t.Fatalf("source = %v, want store-cache", session.Source)
	}
	if v.calls.Load() != 0 {
		t.Fatal("backend consulted on fresh cache hit")
	}
	if got := resolver.metrics.Value(MetricResolveStoreHit); got != 1 {
		t.Fatalf("MetricResolveStoreHit = %d, want 1", got)
	}
}

func TestResolveBundleBackendWriteThrough(t *testing.T) {
	v := &fakeValidator{result: &backend.Result{
		Valid:               true,
		UserID:              "u-1",
		Email:               "user@example.com",
		TenantID:            "t-1",
		OnboardingCompleted: true,
	}}
	resolver, _, cleanup := buildTestResolver(t, testConfig(), v, nil)
	defer cleanup()

	session, err := resolver.ResolveBundle(context.Background(), cookie.Bundle{SID: "s1"})
	if err != nil {
		t.Fatalf("ResolveBundle: %v", err)
	}
	if session.Source != SourceBackendValidated || session.TenantID != "t-1" {
		t.Fatalf("unexpected session %+v", session)
	}
	if err := resolver.RequireValidated(session); err != nil {
		t.Fatalf("RequireValidated: %v", err)
	}

	cached, err := resolver.store.Get(context.Background(), "s1")
	if err != nil {
		t.Fatalf("write-through missing: %v", err)
	}
	if cached.TenantID != "t-1" {
		t.Fatalf("cached tenant = %q", cached.TenantID)
	}
}

func TestResolveBundleLegacyFallback(t *testing.T) {
	v := &fakeValidator{result: &backend.Result{Valid: false}}
	resolver, _, cleanup := buildTestResolver(t, testConfig(), v, nil)
	defer cleanup()

	codec, err := cookie.NewCodec(testLegacyKey)
	if err != nil {
		t.Fatalf("codec: %v", err)
	}
	blob, err := codec.EncodeLegacy(&cookie.LegacyPayload{
		SessionID: "legacy-1",
		UserID:    "u-9",
		Email:     "old@example.com",
		TenantID:  "t-9",
		IssuedAt:  testClock.Add(-48 * time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("encode legacy: %v", err)
	}

	session, err := resolver.ResolveBundle(context.Background(), cookie.Bundle{SID: "stale", LegacyBlobs: []string{blob}})
	if err != nil {
		t.Fatalf("ResolveBundle: %v", err)
	}
	if session.Source != SourceLegacyCookie || session.UserID != "u-9" {
		t.Fatalf("unexpected session %+v", session)
	}
	if !session.RequiresRevalidation {
		t.Fatal("legacy session not flagged for revalidation")
	}
	if err := resolver.RequireValidated(session); !errors.Is(err, ErrRevalidationRequired) {
		t.Fatalf("RequireValidated = %v, want ErrRevalidationRequired", err)
	}
}

func TestResolveBundleNoCookiesFailsClosed(t *testing.T) {
	resolver, _, cleanup := buildTestResolver(t, testConfig(), &fakeValidator{}, nil)
	defer cleanup()

	_, err := resolver.ResolveBundle(context.Background(), cookie.Bundle{})
	if !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("err = %v, want ErrSessionInvalid", err)
	}
	if got := resolver.metrics.Value(MetricResolveInvalid); got != 1 {
		t.Fatalf("MetricResolveInvalid = %d, want 1", got)
	}
}

func TestResolveBundleConflictSurfaced(t *testing.T) {
	v := &fakeValidator{result: &backend.Result{
		Valid:           true,
		UserID:          "u-1",
		Email:           "user@example.com",
		TenantID:        "t-1",
		NeedsOnboarding: true,
	}}
	resolver, _, cleanup := buildTestResolver(t, testConfig(), v, nil)
	defer cleanup()

	_, err := resolver.ResolveBundle(context.Background(), cookie.Bundle{SID: "s1"})
	if !errors.Is(err, ErrOnboardingStateConflict) {
		t.Fatalf("err = %v, want ErrOnboardingStateConflict", err)
	}
	if got := resolver.metrics.Value(MetricResolveConflict); got != 1 {
		t.Fatalf("MetricResolveConflict = %d, want 1", got)
	}
}

func TestResolveBundleAbortedRequest(t *testing.T) {
	v := &fakeValidator{result: &backend.Result{
		Valid:  true,
		UserID: "u-1",
		Email:  "user@example.com",
	}}
	resolver, _, cleanup := buildTestResolver(t, testConfig(), v, nil)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := resolver.ResolveBundle(ctx, cookie.Bundle{SID: "s1"})
	if !errors.Is(err, ErrRequestAborted) {
		t.Fatalf("err = %v, want ErrRequestAborted", err)
	}
}

func TestResolveFromRequestCookies(t *testing.T) {
	v := &fakeValidator{}
	resolver, _, cleanup := buildTestResolver(t, testConfig(), v, nil)
	defer cleanup()

	seedSnapshot(t, resolver, validSnapshot("s1"))

	req := httptest.NewRequest("GET", "http://app.example.com/", nil)
	req.AddCookie(&http.Cookie{Name: cookie.SIDName, Value: "s1"})

	session, err := resolver.Resolve(context.Background(), req)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if session.SessionID != "s1" {
		t.Fatalf("session id = %q", session.SessionID)
	}
}

func TestResolveTenantReconciliationAudited(t *testing.T) {
	v := &fakeValidator{result: &backend.Result{
		Valid:               true,
		UserID:              "u-1",
		Email:               "user@example.com",
		TenantID:            "T2",
		OnboardingCompleted: true,
	}}
	sink := NewChannelSink(16)
	resolver, _, cleanup := buildTestResolver(t, testConfig(), v, sink)
	defer cleanup()

	stale := validSnapshot("s1")
	stale.TenantID = "T1"
	stale.LastValidatedAt = testClock.Add(-5 * time.Minute).Unix()
	seedSnapshot(t, resolver, stale)

	session, err := resolver.ResolveBundle(context.Background(), cookie.Bundle{SID: "s1"})
	if err != nil {
		t.Fatalf("ResolveBundle: %v", err)
	}
	if session.TenantID != "T2" {
		t.Fatalf("tenant = %q, want backend value T2", session.TenantID)
	}
	if got := resolver.metrics.Value(MetricTenantReconciled); got != 1 {
		t.Fatalf("MetricTenantReconciled = %d, want 1", got)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-sink.Events():
			if event.EventType != auditTenantReconciled {
				continue
			}
			if event.Metadata["prior_tenant_id"] != "T1" {
				t.Fatalf("prior tenant = %q, want T1", event.Metadata["prior_tenant_id"])
			}
			return
		case <-deadline:
			t.Fatal("tenant reconciliation audit event not observed")
		}
	}
}

func TestResolveDegradedCacheHitWhenBackendDown(t *testing.T) {
	v := &fakeValidator{err: backend.ErrTimeout}
	resolver, _, cleanup := buildTestResolver(t, testConfig(), v, nil)
	defer cleanup()

	stale := validSnapshot("s1")
	stale.LastValidatedAt = testClock.Add(-5 * time.Minute).Unix()
	seedSnapshot(t, resolver, stale)

	session, err := resolver.ResolveBundle(context.Background(), cookie.Bundle{SID: "s1"})
	if err != nil {
		t.Fatalf("ResolveBundle: %v", err)
	}
	if !session.RequiresRevalidation {
		t.Fatal("degraded hit not flagged for revalidation")
	}
	if got := resolver.metrics.Value(MetricBackendTimeout); got != 1 {
		t.Fatalf("MetricBackendTimeout = %d, want 1", got)
	}
	if got := resolver.metrics.Value(MetricResolveDegraded); got != 1 {
		t.Fatalf("MetricResolveDegraded = %d, want 1", got)
	}
}

func TestResolverMetricHelpersNilSafe(t *testing.T) {
	var nilResolver *Resolver
	nilResolver.metricInc(MetricResolveStoreHit)
	nilResolver.metricAdd(MetricEstablishRetry, 2)
	nilResolver.metricObserve(MetricResolveLatency, time.Millisecond)

	bare := &Resolver{}
	bare.metricInc(MetricResolveStoreHit)
	bare.metricAdd(MetricEstablishRetry, 2)
	bare.metricObserve(MetricResolveLatency, time.Millisecond)

	snap := bare.MetricsSnapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 || len(snap.HistogramSums) != 0 {
		t.Fatalf("bare resolver snapshot not empty: %+v", snap)
	}
}
