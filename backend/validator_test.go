package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func newValidator(t *testing.T, cfg Config) *HTTPValidator {
	t.Helper()
	v, err := NewHTTPValidator(cfg)
	if err != nil {
		t.Fatalf("NewHTTPValidator failed: %v", err)
	}
	return v
}

func TestNewHTTPValidatorRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPValidator(Config{}); err == nil {
		t.Fatal("expected error for empty BaseURL")
	}
}

func TestValidateValidSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/validate/sid-1" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"valid":true,"user":{"id":"u-1","email":"a@b.c"},"tenant":"t-9","needs_onboarding":false,"onboarding_completed":true}`))
	}))
	defer srv.Close()

	v := newValidator(t, Config{BaseURL: srv.URL})
	res, err := v.Validate(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !res.Valid || res.UserID != "u-1" || res.Email != "a@b.c" || res.TenantID != "t-9" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.NeedsOnboarding || !res.OnboardingCompleted {
		t.Fatalf("onboarding fields wrong: %+v", res)
	}
}

func TestValidateNullTenant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"valid":true,"user":{"id":"u-1","email":"a@b.c"},"tenant":null,"needs_onboarding":true,"onboarding_completed":false}`))
	}))
	defer srv.Close()

	v := newValidator(t, Config{BaseURL: srv.URL})
	res, err := v.Validate(context.Background(), "sid-1")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if res.TenantID != "" || !res.NeedsOnboarding {
		t.Fatalf("expected pre-onboarding result, got %+v", res)
	}
}

func TestValidateExplicitRejection(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		v := newValidator(t, Config{BaseURL: srv.URL})
		res, err := v.Validate(context.Background(), "sid-1")
		srv.Close()

		if err != nil {
			t.Fatalf("status %d: rejection must not be an error, got %v", status, err)
		}
		if res.Valid {
			t.Fatalf("status %d: expected Valid=false", status)
		}
	}
}

func TestValidateBodyRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"valid":false}`))
	}))
	defer srv.Close()

	v := newValidator(t, Config{BaseURL: srv.URL})
	res, err := v.Validate(context.Background(), "sid-1")
	if err != nil || res.Valid {
		t.Fatalf("expected clean rejection, got res=%+v err=%v", res, err)
	}
}

func TestValidateServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := newValidator(t, Config{BaseURL: srv.URL})
	if _, err := v.Validate(context.Background(), "sid-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestValidateTimeoutClassifiedAndRetriedOnce(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(500 * time.Millisecond):
		}
	}))
	defer srv.Close()

	v := newValidator(t, Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, RetryTimeouts: true})
	_, err := v.Validate(context.Background(), "sid-1")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", got)
	}
}

func TestValidateRejectionNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := newValidator(t, Config{BaseURL: srv.URL, RetryTimeouts: true})
	res, err := v.Validate(context.Background(), "sid-1")
	if err != nil || res.Valid {
		t.Fatalf("expected rejection, got res=%+v err=%v", res, err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("rejection must not be retried, got %d attempts", got)
	}
}

func TestValidateSendsServiceToken(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"valid":false}`))
	}))
	defer srv.Close()

	v := newValidator(t, Config{
		BaseURL:              srv.URL,
		ServiceTokenSecret:   secret,
		ServiceTokenIssuer:   "sessiongate",
		ServiceTokenAudience: "backend-api",
	})
	if _, err := v.Validate(context.Background(), "sid-1"); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	const bearer = "Bearer "
	if len(gotAuth) <= len(bearer) || gotAuth[:len(bearer)] != bearer {
		t.Fatalf("missing bearer token, got %q", gotAuth)
	}

	claims := jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(gotAuth[len(bearer):], &claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithIssuer("sessiongate"), jwt.WithAudience("backend-api"))
	if err != nil {
		t.Fatalf("service token did not verify: %v", err)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Fatal("service token must carry a future expiry")
	}
}

func TestValidateMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"valid":tru`))
	}))
	defer srv.Close()

	v := newValidator(t, Config{BaseURL: srv.URL})
	if _, err := v.Validate(context.Background(), "sid-1"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for malformed body, got %v", err)
	}
}
