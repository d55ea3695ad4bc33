package sessiongate

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dottlabs/sessiongate/backend"
	"github.com/redis/go-redis/v9"
)

var testClock = time.Unix(1700000000, 0)

var testLegacyKey = []byte("0123456789abcdef0123456789abcdef")

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

type fakeValidator struct {
	result *backend.Result
	err    error
	calls  atomic.Int64
}

func (f *fakeValidator) Validate(context.Context, string) (*backend.Result, error) {
	f.calls.Add(1)
	return f.result, f.err
}

type fakeRevoker struct {
	fakeValidator
	revoked chan string
}

func (f *fakeRevoker) Revoke(_ context.Context, sessionID string) error {
	f.revoked <- sessionID
	return nil
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Cookie.Secure = false
	cfg.Cookie.LegacyKey = testLegacyKey
	cfg.Establish.RetryInterval = time.Millisecond
	return cfg
}

func buildTestResolver(t *testing.T, cfg Config, v backend.Validator, sink AuditSink) (*Resolver, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	resolver, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithValidator(v).
		WithAuditSink(sink).
		WithClock(func() time.Time { return testClock }).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	// Deterministic, instant retry schedule.
	resolver.sleep = func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}

	return resolver, mr, func() {
		resolver.Close()
		mr.Close()
	}
}
