package sessiongate

import (
	"context"
	"net/http"

	"github.com/dottlabs/sessiongate/backend"
	"github.com/dottlabs/sessiongate/cookie"
)

// Revoke logs the session out: the store entry is deleted and every session
// cookie on w is expired immediately. Backend revocation runs detached and
// best effort; the client is logged out even if it is still in flight.
//
// Revoke may return an error when input validation, dependency calls, or security checks fail.
// Revoke does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (r *Resolver) Revoke(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	if r == nil {
		return ErrResolverNotReady
	}

	if sessionID != "" {
		if err := r.store.Delete(ctx, sessionID); err != nil {
			r.metricInc(MetricStoreDegraded)
		}

		if revoker, ok := r.validator.(backend.Revoker); ok {
			go func() {
				_ = revoker.Revoke(context.WithoutCancel(ctx), sessionID)
			}()
		}
	}

	if w != nil {
		cookie.ExpireAll(w, r.writeOptions())
	}

	r.metricInc(MetricRevocation)
	r.emitAudit(ctx, AuditEvent{
		EventType: auditRevoked,
		SessionID: sessionID,
		Success:   true,
	})

	return nil
}
