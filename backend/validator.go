package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTimeout classifies a validation call that exceeded its deadline.
// Retryable once; a second timeout surfaces to the resolver.
var ErrTimeout = errors.New("backend validation timeout")

// ErrUnavailable classifies transport failures and backend 5xx responses.
var ErrUnavailable = errors.New("backend unavailable")

const (
	defaultTimeout = 5 * time.Second
	defaultAuthTTL = time.Minute
)

// Result is the canonical state returned by the backend for a session id.
// An explicit rejection is Valid=false with a nil error; errors are reserved
// for calls that produced no authoritative answer.
type Result struct {
	Valid bool

	UserID string
	Email  string

	TenantID            string
	NeedsOnboarding     bool
	OnboardingCompleted bool
}

// Validator is the single source of truth for session state.
type Validator interface {
	Validate(ctx context.Context, sessionID string) (*Result, error)
}

// Revoker is optionally implemented by validators that can tear the session
// down at the source of truth. Revocation is best effort: local logout does
// not wait for it.
type Revoker interface {
	Revoke(ctx context.Context, sessionID string) error
}

// Config configures an [HTTPValidator].
type Config struct {
	BaseURL string
	Timeout time.Duration

	// RetryTimeouts enables the single retry on ErrTimeout. Explicit
	// rejections are never retried regardless of this setting.
	RetryTimeouts bool

	// ServiceTokenSecret enables HS256 service-token auth toward the
	// backend when non-empty.
	ServiceTokenSecret   []byte
	ServiceTokenIssuer   string
	ServiceTokenAudience string
	ServiceTokenTTL      time.Duration

	HTTPClient *http.Client
}

// HTTPValidator implements [Validator] over the backend's
// GET /sessions/validate/{sessionId} contract.
//
//	Docs: docs/backend.md
type HTTPValidator struct {
	baseURL       string
	timeout       time.Duration
	retryTimeouts bool
	client        *http.Client

	tokenSecret   []byte
	tokenIssuer   string
	tokenAudience string
	tokenTTL      time.Duration
}

// NewHTTPValidator creates an [HTTPValidator] from cfg.
func NewHTTPValidator(cfg Config) (*HTTPValidator, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, errors.New("backend BaseURL required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("backend BaseURL invalid: %v", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	tokenTTL := cfg.ServiceTokenTTL
	if tokenTTL <= 0 {
		tokenTTL = defaultAuthTTL
	}

	return &HTTPValidator{
		baseURL:       base,
		timeout:       timeout,
		retryTimeouts: cfg.RetryTimeouts,
		client:        client,
		tokenSecret:   cfg.ServiceTokenSecret,
		tokenIssuer:   cfg.ServiceTokenIssuer,
		tokenAudience: cfg.ServiceTokenAudience,
		tokenTTL:      tokenTTL,
	}, nil
}

type validateResponse struct {
	Valid bool `json:"valid"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Tenant              *string `json:"tenant"`
	NeedsOnboarding     bool    `json:"needs_onboarding"`
	OnboardingCompleted bool    `json:"onboarding_completed"`
}

// Validate performs the authoritative backend call. A timeout is retried at
// most once; an explicit rejection returns Valid=false with a nil error.
func (v *HTTPValidator) Validate(ctx context.Context, sessionID string) (*Result, error) {
	result, err := v.validateOnce(ctx, sessionID)
	if err != nil && v.retryTimeouts && errors.Is(err, ErrTimeout) {
		result, err = v.validateOnce(ctx, sessionID)
	}
	return result, err
}

func (v *HTTPValidator) validateOnce(ctx context.Context, sessionID string) (*Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	endpoint := v.baseURL + "/sessions/validate/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	if len(v.tokenSecret) > 0 {
		token, err := v.signServiceToken()
		if err != nil {
			return nil, fmt.Errorf("%w: service token: %v", ErrUnavailable, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to body decode
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		// Authoritative rejection. Drain so the connection is reusable.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &Result{Valid: false}, nil
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var body validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrUnavailable, err)
	}

	if !body.Valid {
		return &Result{Valid: false}, nil
	}

	result := &Result{
		Valid:               true,
		UserID:              body.User.ID,
		Email:               body.User.Email,
		NeedsOnboarding:     body.NeedsOnboarding,
		OnboardingCompleted: body.OnboardingCompleted,
	}
	if body.Tenant != nil {
		result.TenantID = *body.Tenant
	}

	if result.UserID == "" {
		return nil, fmt.Errorf("%w: valid session without user id", ErrUnavailable)
	}

	return result, nil
}

// Revoke issues DELETE /sessions/{sessionId}. Any 2xx, 401, or 404 counts
// as revoked; the session is gone or never existed either way.
func (v *HTTPValidator) Revoke(ctx context.Context, sessionID string) error {
	callCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	endpoint := v.baseURL + "/sessions/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(callCtx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(v.tokenSecret) > 0 {
		token, err := v.signServiceToken()
		if err != nil {
			return fmt.Errorf("%w: service token: %v", ErrUnavailable, err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}

func (v *HTTPValidator) signServiceToken() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    v.tokenIssuer,
		Subject:   "session-validator",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(v.tokenTTL)),
	}
	if v.tokenAudience != "" {
		claims.Audience = jwt.ClaimStrings{v.tokenAudience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.tokenSecret)
}
