package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	sessiongate "github.com/dottlabs/sessiongate"
	"github.com/dottlabs/sessiongate/backend"
	"github.com/dottlabs/sessiongate/cookie"
	"github.com/dottlabs/sessiongate/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// allowAllValidator answers every validation locally so the benchmark
// measures the resolution chain, not a remote backend.
type allowAllValidator struct{}

func (allowAllValidator) Validate(_ context.Context, sessionID string) (*backend.Result, error) {
	return &backend.Result{
		Valid:               true,
		UserID:              "user-" + sessionID,
		Email:               sessionID + "@example.com",
		TenantID:            "tenant-1",
		OnboardingCompleted: true,
	}, nil
}

func main() {
	var (
		sessions    = flag.Int("sessions", 100000, "number of sessions to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase (resolve + establish)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "sg", "snapshot key prefix")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := sessiongate.DefaultConfig()
	cfg.Store.RedisPrefix = *prefix
	cfg.Audit.Enabled = false

	resolver, err := sessiongate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithValidator(allowAllValidator{}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "resolver build failed: %v\n", err)
		os.Exit(1)
	}
	defer resolver.Close()

	snapshots := store.NewClient(client, *prefix, time.Second)
	sids := make([]string, *sessions)

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	now := time.Now().Unix()
	for i := 0; i < *sessions; i++ {
		sid := fmt.Sprintf("sid-%d", i)
		sids[i] = sid
		snap := &store.Snapshot{
			SessionID:           sid,
			UserID:              fmt.Sprintf("user-%d", i),
			Email:               fmt.Sprintf("user-%d@example.com", i),
			TenantID:            "tenant-1",
			OnboardingCompleted: true,
			Provenance:          store.ProvenanceBackend,
			CreatedAt:           now,
			LastValidatedAt:     now,
		}
		if err := snapshots.Set(ctx, snap, 24*time.Hour); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	resolveStats := runResolvePhase(ctx, resolver, sids, *ops, *concurrency)
	establishStats := runEstablishPhase(ctx, resolver, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("resolve", resolveStats)
	printStats("establish", establishStats)
}

func runResolvePhase(ctx context.Context, resolver *sessiongate.Resolver, sids []string, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				sid := sids[r.Intn(len(sids))]
				t0 := time.Now()
				_, err := resolver.ResolveBundle(ctx, cookie.Bundle{SID: sid})
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func runEstablishPhase(ctx context.Context, resolver *sessiongate.Resolver, ops, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				_, err := resolver.Establish(ctx, nil, sessiongate.EstablishInput{
					SessionID:           fmt.Sprintf("est-%d-%d", worker, i),
					UserID:              fmt.Sprintf("estuser-%d", i),
					Email:               fmt.Sprintf("estuser-%d@example.com", i),
					TenantID:            "tenant-1",
					OnboardingCompleted: true,
				})
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50,
		s.p95,
		s.p99,
	)
}
