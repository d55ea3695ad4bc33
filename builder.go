package sessiongate

import (
	"errors"
	"time"

	"github.com/dottlabs/sessiongate/backend"
	"github.com/dottlabs/sessiongate/cookie"
	"github.com/dottlabs/sessiongate/store"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by sessiongate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	validator backend.Validator
	auditSink AuditSink
	clock     func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithValidator describes the withvalidator operation and its observable behavior.
//
// WithValidator may return an error when input validation, dependency calls, or security checks fail.
// WithValidator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithValidator(v backend.Validator) *Builder {
	b.validator = v
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock describes the withclock operation and its observable behavior.
//
// WithClock may return an error when input validation, dependency calls, or security checks fail.
// WithClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Resolver, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	validator := b.validator
	if validator == nil {
		if cfg.Backend.BaseURL == "" {
			return nil, errors.New("backend validator or Backend.BaseURL required")
		}
		v, err := backend.NewHTTPValidator(backend.Config{
			BaseURL:              cfg.Backend.BaseURL,
			Timeout:              cfg.Backend.Timeout,
			RetryTimeouts:        cfg.Backend.RetryTimeouts,
			ServiceTokenSecret:   cloneBytes(cfg.Backend.ServiceTokenSecret),
			ServiceTokenIssuer:   cfg.Backend.ServiceTokenIssuer,
			ServiceTokenAudience: cfg.Backend.ServiceTokenAudience,
			ServiceTokenTTL:      cfg.Backend.ServiceTokenTTL,
		})
		if err != nil {
			return nil, err
		}
		validator = v
	}

	var codec *cookie.Codec
	if len(cfg.Cookie.LegacyKey) > 0 {
		c, err := cookie.NewCodec(cfg.Cookie.LegacyKey)
		if err != nil {
			return nil, err
		}
		codec = c
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	r := &Resolver{
		config:    cfg,
		store:     store.NewClient(b.redis, cfg.Store.RedisPrefix, cfg.Store.Timeout),
		codec:     codec,
		validator: validator,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink, clock),
		metrics:   NewMetrics(cfg.Metrics),
		now:       clock,
		sleep:     sleepFor,
	}

	b.built = true

	return r, nil
}
