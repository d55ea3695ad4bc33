package middleware

import (
	"context"
	"errors"
	"net/http"

	sessiongate "github.com/dottlabs/sessiongate"
)

type sessionContextKey struct{}

// SessionFromContext returns the resolved session injected by [Guard].
func SessionFromContext(ctx context.Context) (*sessiongate.ResolvedSession, bool) {
	session, ok := ctx.Value(sessionContextKey{}).(*sessiongate.ResolvedSession)
	return session, ok
}

// Options configures the guard's failure behavior.
type Options struct {
	// SignInURL receives a 302 redirect when resolution fails. Empty
	// means respond 401 instead (API routes).
	SignInURL string
}

// Guard resolves the session from the request's cookies, injects it into
// the context, and passes the request on. An unresolvable session is a
// redirect to sign-in (or 401), never a 500.
func Guard(resolver *sessiongate.Resolver, opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				reject(w, r, opts)
				return
			}

			ctx := sessiongate.WithClientIP(r.Context(), remoteIP(r))
			ctx = sessiongate.WithUserAgent(ctx, r.UserAgent())

			session, err := resolver.Resolve(ctx, r)
			if err != nil {
				if errors.Is(err, sessiongate.ErrRequestAborted) {
					return
				}
				reject(w, r, opts)
				return
			}

			ctx = context.WithValue(ctx, sessionContextKey{}, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireValidated wraps [Guard] and additionally refuses sessions that
// have not been confirmed by the backend. Mount it on routes that mutate
// state.
func RequireValidated(resolver *sessiongate.Resolver, opts Options) func(http.Handler) http.Handler {
	guard := Guard(resolver, opts)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok || resolver.RequireValidated(session) != nil {
				reject(w, r, opts)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func reject(w http.ResponseWriter, r *http.Request, opts Options) {
	if opts.SignInURL != "" {
		http.Redirect(w, r, opts.SignInURL, http.StatusFound)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func remoteIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	return r.RemoteAddr
}
