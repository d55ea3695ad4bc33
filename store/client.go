package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by [Client.Get] when no usable snapshot exists for a
// session id. A store outage and a corrupt blob both report as a miss; use
// [ErrUnavailable] to distinguish outage-driven misses.
var ErrMiss = errors.New("session snapshot miss")

// ErrUnavailable classifies store outages. On the read path it is always
// joined with [ErrMiss] so callers that only check for a miss degrade
// correctly.
var ErrUnavailable = errors.New("session store unavailable")

const defaultTimeout = time.Second

// Client reads and writes session snapshots in Redis.
//
//	Docs: docs/store.md
type Client struct {
	redis   redis.UniversalClient
	prefix  string
	timeout time.Duration
}

// NewClient creates a snapshot [Client]. prefix sets the Redis key
// namespace; timeout bounds every store round-trip (default 1s when zero).
func NewClient(redisClient redis.UniversalClient, prefix string, timeout time.Duration) *Client {
	if prefix == "" {
		prefix = "sg"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		redis:   redisClient,
		prefix:  prefix,
		timeout: timeout,
	}
}

func (c *Client) key(sessionID string) string {
	return c.prefix + ":sess:" + sessionID
}

// Get reads the snapshot for sessionID. Absent keys, store outages, and
// corrupt blobs all return an [ErrMiss]-classified error; corrupt blobs are
// additionally purged so they cannot shadow a later write.
//
//	Performance: 1 Redis command (2 when purging a corrupt blob).
func (c *Client) Get(ctx context.Context, sessionID string) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := c.redis.Get(ctx, c.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("%w: %w: %v", ErrMiss, ErrUnavailable, err)
	}

	snap, err := Decode(data)
	if err != nil {
		c.purgeCorrupt(sessionID)
		return nil, fmt.Errorf("%w: corrupt snapshot purged: %v", ErrMiss, err)
	}
	if snap.SessionID != sessionID {
		c.purgeCorrupt(sessionID)
		return nil, fmt.Errorf("%w: snapshot key mismatch", ErrMiss)
	}

	return snap, nil
}

// Set upserts the full snapshot with the given TTL. Writes are best effort;
// the caller logs failures instead of raising them because the backend
// remains the source of truth.
func (c *Client) Set(ctx context.Context, snap *Snapshot, ttl time.Duration) error {
	encoded, err := Encode(snap)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.redis.Set(ctx, c.key(snap.SessionID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes the snapshot for sessionID. Deleting an absent key is a
// no-op, not an error.
func (c *Client) Delete(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.redis.Del(ctx, c.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// purgeCorrupt removes a blob that failed decoding. Detached from the
// request context so an aborted request still heals the key.
func (c *Client) purgeCorrupt(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	_ = c.redis.Del(ctx, c.key(sessionID)).Err()
}
