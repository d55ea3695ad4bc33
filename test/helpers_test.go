//go:build integration
// +build integration

package test

import (
	"context"
	"sync"
	"testing"
	"time"

	sessiongate "github.com/dottlabs/sessiongate"
	"github.com/dottlabs/sessiongate/backend"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var integrationLegacyKey = []byte("0123456789abcdef0123456789abcdef")

// scriptedValidator replays a fixed sequence of backend answers. When the
// script runs out it keeps returning the last entry.
type scriptedValidator struct {
	mu     sync.Mutex
	script []scriptedAnswer
	calls  int
}

type scriptedAnswer struct {
	result *backend.Result
	err    error
}

func (v *scriptedValidator) push(result *backend.Result, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.script = append(v.script, scriptedAnswer{result: result, err: err})
}

func (v *scriptedValidator) Validate(_ context.Context, _ string) (*backend.Result, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if len(v.script) == 0 {
		return &backend.Result{Valid: false}, nil
	}
	answer := v.script[0]
	if len(v.script) > 1 {
		v.script = v.script[1:]
	}
	return answer.result, answer.err
}

func (v *scriptedValidator) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

// integrationRig is a resolver wired to miniredis with a controllable clock.
type integrationRig struct {
	resolver  *sessiongate.Resolver
	validator *scriptedValidator
	mr        *miniredis.Miniredis

	mu  sync.Mutex
	now time.Time
}

func newIntegrationRig(t *testing.T, mutate func(*sessiongate.Config)) *integrationRig {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := sessiongate.DefaultConfig()
	cfg.Cookie.Secure = false
	cfg.Cookie.LegacyKey = integrationLegacyKey
	cfg.Establish.RetryInterval = 5 * time.Millisecond
	if mutate != nil {
		mutate(&cfg)
	}

	rig := &integrationRig{
		validator: &scriptedValidator{},
		mr:        mr,
		now:       time.Unix(1700000000, 0),
	}

	resolver, err := sessiongate.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithValidator(rig.validator).
		WithClock(rig.clock).
		Build()
	if err != nil {
		t.Fatalf("resolver build failed: %v", err)
	}
	t.Cleanup(resolver.Close)

	rig.resolver = resolver
	return rig
}

func (r *integrationRig) clock() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.now
}

func (r *integrationRig) advance(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = r.now.Add(d)
}
