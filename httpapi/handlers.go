package httpapi

import (
	"context"
	"errors"
	"net/http"

	sessiongate "github.com/dottlabs/sessiongate"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the session endpoints around one Resolver.
type Handlers struct {
	resolver *sessiongate.Resolver
}

// NewHandlers creates the endpoint set.
func NewHandlers(resolver *sessiongate.Resolver) *Handlers {
	return &Handlers{resolver: resolver}
}

// RegisterRoutes mounts the session API under /api/v1.
func (h *Handlers) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.GET("/sessions/me", h.MeHandler)
	v1.POST("/auth/logout", h.LogoutHandler)
	v1.POST("/onboarding/complete", h.CompleteOnboardingHandler)
}

// MeHandler reports the caller's resolved session. An unresolved session is
// a 200 with authenticated=false, not an error: the frontend uses this to
// decide whether to render the sign-in flow.
func (h *Handlers) MeHandler(c *gin.Context) {
	session, err := h.resolver.Resolve(h.requestContext(c), c.Request)
	if err != nil {
		if errors.Is(err, sessiongate.ErrOnboardingStateConflict) {
			c.JSON(http.StatusConflict, gin.H{
				"authenticated": false,
				"error":         "onboarding state conflict",
				"retryable":     true,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"authenticated": false, "user": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user": gin.H{
			"id":                   session.UserID,
			"email":                session.Email,
			"tenantId":             tenantOrNil(session.TenantID),
			"needsOnboarding":      session.NeedsOnboarding,
			"onboardingCompleted":  session.OnboardingCompleted,
			"source":               session.Source.String(),
			"requiresRevalidation": session.RequiresRevalidation,
		},
	})
}

// LogoutHandler revokes the caller's session and expires its cookies. It
// succeeds even when no session resolves; logout is idempotent.
func (h *Handlers) LogoutHandler(c *gin.Context) {
	ctx := h.requestContext(c)

	var sessionID string
	if session, err := h.resolver.Resolve(ctx, c.Request); err == nil {
		sessionID = session.SessionID
	}

	if err := h.resolver.Revoke(ctx, c.Writer, sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"loggedOut": true})
}

// CompleteOnboardingHandler binds the caller's session to a tenant.
func (h *Handlers) CompleteOnboardingHandler(c *gin.Context) {
	var req struct {
		TenantID string `json:"tenantId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenantId required"})
		return
	}

	ctx := h.requestContext(c)

	session, err := h.resolver.Resolve(ctx, c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	// Legacy and degraded sessions must be re-validated before a write.
	if err := h.resolver.RequireValidated(session); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session requires revalidation", "retryable": true})
		return
	}

	switch err := h.resolver.UpdateOnboardingComplete(ctx, session.SessionID, req.TenantID); {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"completed": true, "tenantId": req.TenantID})
	case errors.Is(err, sessiongate.ErrTenantReassignment):
		c.JSON(http.StatusConflict, gin.H{"error": "tenant already assigned", "retryable": false})
	case errors.Is(err, sessiongate.ErrOnboardingStateConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "onboarding state conflict", "retryable": true})
	case errors.Is(err, sessiongate.ErrSessionNotFound):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "onboarding completion failed"})
	}
}

func (h *Handlers) requestContext(c *gin.Context) context.Context {
	ctx := sessiongate.WithClientIP(c.Request.Context(), c.ClientIP())
	return sessiongate.WithUserAgent(ctx, c.Request.UserAgent())
}

func tenantOrNil(tenantID string) any {
	if tenantID == "" {
		return nil
	}
	return tenantID
}
