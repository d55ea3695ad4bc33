package sessiongate

import (
	"errors"
	"strings"
	"time"
)

// Config defines a public type used by sessiongate APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Store     StoreConfig
	Backend   BackendConfig
	Cookie    CookieConfig
	Resolver  ResolverConfig
	Establish EstablishConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines a public type used by sessiongate APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type StoreConfig struct {
	RedisPrefix string
	Timeout     time.Duration
	SnapshotTTL time.Duration
}

/*
====================================
BACKEND CONFIG
====================================
*/

// BackendConfig defines a public type used by sessiongate APIs.
//
// BackendConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type BackendConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RetryTimeouts bool

	// ServiceTokenSecret enables HS256 service-token auth toward the
	// backend when non-empty.
	ServiceTokenSecret   []byte
	ServiceTokenIssuer   string
	ServiceTokenAudience string
	ServiceTokenTTL      time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig defines a public type used by sessiongate APIs.
//
// CookieConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CookieConfig struct {
	Domain string
	Secure bool

	// MaxAge of the session id cookie in seconds.
	MaxAge int

	// LegacyKey is the 32-byte AES key for decrypting legacy session
	// cookies. Leaving it empty disables the legacy fallback entirely.
	LegacyKey []byte
}

/*
====================================
RESOLVER CONFIG
====================================
*/

// ResolverConfig defines a public type used by sessiongate APIs.
//
// ResolverConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResolverConfig struct {
	// ValidationInterval bounds how long a cached snapshot's tenant and
	// onboarding fields are trusted without a backend round-trip.
	ValidationInterval time.Duration
}

/*
====================================
ESTABLISH CONFIG
====================================
*/

// EstablishConfig defines a public type used by sessiongate APIs.
//
// EstablishConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type EstablishConfig struct {
	MaxAttempts   int
	RetryInterval time.Duration

	// BackoffMultiplier > 1 switches the retry schedule from fixed to
	// exponential. 0 or 1 keeps it fixed.
	BackoffMultiplier float64
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by sessiongate APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by sessiongate APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Store: StoreConfig{
			RedisPrefix: "sg",
			Timeout:     time.Second,
			SnapshotTTL: 24 * time.Hour,
		},
		Backend: BackendConfig{
			Timeout:         5 * time.Second,
			RetryTimeouts:   true,
			ServiceTokenTTL: time.Minute,
		},
		Cookie: CookieConfig{
			Secure: true,
			MaxAge: 86400,
		},
		Resolver: ResolverConfig{
			ValidationInterval: time.Minute,
		},
		Establish: EstablishConfig{
			MaxAttempts:   5,
			RetryInterval: 1500 * time.Millisecond,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	if c.Store.Timeout <= 0 {
		return errors.New("Store.Timeout must be positive")
	}
	if c.Store.SnapshotTTL <= 0 {
		return errors.New("Store.SnapshotTTL must be positive")
	}
	if strings.ContainsAny(c.Store.RedisPrefix, " \t\n") {
		return errors.New("Store.RedisPrefix must not contain whitespace")
	}

	if c.Backend.BaseURL != "" && c.Backend.Timeout <= 0 {
		return errors.New("Backend.Timeout must be positive")
	}
	if len(c.Backend.ServiceTokenSecret) > 0 && len(c.Backend.ServiceTokenSecret) < 16 {
		return errors.New("Backend.ServiceTokenSecret must be at least 16 bytes")
	}
	if len(c.Backend.ServiceTokenSecret) > 0 && c.Backend.ServiceTokenTTL <= 0 {
		return errors.New("Backend.ServiceTokenTTL must be positive when service tokens are enabled")
	}

	if len(c.Cookie.LegacyKey) > 0 && len(c.Cookie.LegacyKey) != 32 {
		return errors.New("Cookie.LegacyKey must be exactly 32 bytes")
	}
	if c.Cookie.MaxAge <= 0 {
		return errors.New("Cookie.MaxAge must be positive")
	}

	if c.Resolver.ValidationInterval <= 0 {
		return errors.New("Resolver.ValidationInterval must be positive")
	}
	if c.Resolver.ValidationInterval > c.Store.SnapshotTTL {
		return errors.New("Resolver.ValidationInterval must not exceed Store.SnapshotTTL")
	}

	if c.Establish.MaxAttempts <= 0 {
		return errors.New("Establish.MaxAttempts must be positive")
	}
	if c.Establish.MaxAttempts > 1 && c.Establish.RetryInterval <= 0 {
		return errors.New("Establish.RetryInterval must be positive when retries are enabled")
	}
	if c.Establish.BackoffMultiplier < 0 || (c.Establish.BackoffMultiplier > 0 && c.Establish.BackoffMultiplier < 1) {
		return errors.New("Establish.BackoffMultiplier must be 0 or >= 1")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}

	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Backend.ServiceTokenSecret = cloneBytes(cfg.Backend.ServiceTokenSecret)
	out.Cookie.LegacyKey = cloneBytes(cfg.Cookie.LegacyKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
