package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dottlabs/sessiongate/store"
)

// ErrEstablishNotObserved is returned when the snapshot write could not be
// read back within the retry budget. The caller reports failure explicitly;
// the loop never hangs past its budget.
var ErrEstablishNotObserved = errors.New("established session not observable after retry budget")

// EstablishDeps captures the establish loop's collaborators. Sleep is
// injectable so the retry schedule is deterministic under test.
type EstablishDeps struct {
	StoreSet func(ctx context.Context, snap *store.Snapshot, ttl time.Duration) error
	StoreGet func(ctx context.Context, sessionID string) (*store.Snapshot, error)

	TTL               time.Duration
	MaxAttempts       int
	RetryInterval     time.Duration
	BackoffMultiplier float64

	Sleep func(ctx context.Context, d time.Duration) error
}

// EstablishResult reports how many attempts the loop consumed and the final
// error, if any.
type EstablishResult struct {
	Attempts int
	Err      error
}

// RunEstablish writes the snapshot and verifies it is readable, retrying on
// a fixed or exponential schedule. This is a bounded tolerance for
// eventually-consistent edge cookie/store propagation, not a correctness
// guarantee: after MaxAttempts the failure is explicit.
func RunEstablish(ctx context.Context, snap *store.Snapshot, deps EstablishDeps) EstablishResult {
	maxAttempts := deps.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	interval := deps.RetryInterval
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return EstablishResult{Attempts: attempt - 1, Err: err}
		}

		if err := deps.StoreSet(ctx, snap, deps.TTL); err != nil {
			lastErr = err
		} else if _, err := deps.StoreGet(ctx, snap.SessionID); err == nil {
			return EstablishResult{Attempts: attempt}
		} else {
			lastErr = err
		}

		if attempt == maxAttempts {
			break
		}

		if err := deps.Sleep(ctx, interval); err != nil {
			return EstablishResult{Attempts: attempt, Err: err}
		}
		if deps.BackoffMultiplier > 1 {
			interval = time.Duration(float64(interval) * deps.BackoffMultiplier)
		}
	}

	if lastErr != nil {
		return EstablishResult{Attempts: maxAttempts, Err: fmt.Errorf("%w: %v", ErrEstablishNotObserved, lastErr)}
	}
	return EstablishResult{Attempts: maxAttempts, Err: ErrEstablishNotObserved}
}
