package sessiongate

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "store timeout invalid",
			mutate: func(c *Config) {
				c.Store.Timeout = 0
			},
			wantValid: false,
		},
		{
			name: "snapshot ttl invalid",
			mutate: func(c *Config) {
				c.Store.SnapshotTTL = -time.Hour
			},
			wantValid: false,
		},
		{
			name: "redis prefix whitespace invalid",
			mutate: func(c *Config) {
				c.Store.RedisPrefix = "sg prod"
			},
			wantValid: false,
		},
		{
			name: "short service token secret invalid",
			mutate: func(c *Config) {
				c.Backend.ServiceTokenSecret = []byte("short")
			},
			wantValid: false,
		},
		{
			name: "service token secret valid",
			mutate: func(c *Config) {
				c.Backend.ServiceTokenSecret = []byte("0123456789abcdef")
			},
			wantValid: true,
		},
		{
			name: "legacy key wrong size invalid",
			mutate: func(c *Config) {
				c.Cookie.LegacyKey = []byte("too-short")
			},
			wantValid: false,
		},
		{
			name: "legacy key 32 bytes valid",
			mutate: func(c *Config) {
				c.Cookie.LegacyKey = testLegacyKey
			},
			wantValid: true,
		},
		{
			name: "cookie max age invalid",
			mutate: func(c *Config) {
				c.Cookie.MaxAge = 0
			},
			wantValid: false,
		},
		{
			name: "validation interval invalid",
			mutate: func(c *Config) {
				c.Resolver.ValidationInterval = 0
			},
			wantValid: false,
		},
		{
			name: "validation interval exceeds ttl invalid",
			mutate: func(c *Config) {
				c.Resolver.ValidationInterval = 48 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "establish attempts invalid",
			mutate: func(c *Config) {
				c.Establish.MaxAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "single attempt without interval valid",
			mutate: func(c *Config) {
				c.Establish.MaxAttempts = 1
				c.Establish.RetryInterval = 0
			},
			wantValid: true,
		},
		{
			name: "fractional backoff invalid",
			mutate: func(c *Config) {
				c.Establish.BackoffMultiplier = 0.5
			},
			wantValid: false,
		},
		{
			name: "exponential backoff valid",
			mutate: func(c *Config) {
				c.Establish.BackoffMultiplier = 2
			},
			wantValid: true,
		},
		{
			name: "audit buffer invalid",
			mutate: func(c *Config) {
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
		{
			name: "audit disabled ignores buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = false
				c.Audit.BufferSize = 0
			},
			wantValid: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("Validate() = nil, want error")
			}
		})
	}
}

func TestCloneConfigIsolatesSecrets(t *testing.T) {
	cfg := defaultConfig()
	cfg.Backend.ServiceTokenSecret = []byte("0123456789abcdef")
	cfg.Cookie.LegacyKey = append([]byte(nil), testLegacyKey...)

	clone := cloneConfig(cfg)
	clone.Backend.ServiceTokenSecret[0] = 'X'
	clone.Cookie.LegacyKey[0] = 'X'

	if cfg.Backend.ServiceTokenSecret[0] == 'X' {
		t.Fatal("service token secret aliased after clone")
	}
	if cfg.Cookie.LegacyKey[0] == 'X' {
		t.Fatal("legacy key aliased after clone")
	}
}

func TestBuilderRequiresRedis(t *testing.T) {
	_, err := New().WithValidator(&fakeValidator{}).Build()
	if err == nil {
		t.Fatal("Build succeeded without redis client")
	}
}

func TestBuilderRequiresValidatorOrBaseURL(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	_, err := New().WithRedis(rdb).Build()
	if err == nil {
		t.Fatal("Build succeeded without validator or backend base URL")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	b := New().WithRedis(rdb).WithValidator(&fakeValidator{})

	resolver, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer resolver.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("second Build succeeded")
	}
}
