package sessiongate

import "errors"

var (
	// ErrSessionInvalid is an exported constant or variable used by the session resolution engine.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSessionNotFound is an exported constant or variable used by the session resolution engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrOnboardingStateConflict is an exported constant or variable used by the session resolution engine.
	ErrOnboardingStateConflict = errors.New("onboarding state conflict: tenant assigned while onboarding incomplete")
	// ErrTenantReassignment is an exported constant or variable used by the session resolution engine.
	ErrTenantReassignment = errors.New("tenant already assigned to a different value")
	// ErrRevalidationRequired is an exported constant or variable used by the session resolution engine.
	ErrRevalidationRequired = errors.New("session requires backend revalidation")
	// ErrEstablishFailed is an exported constant or variable used by the session resolution engine.
	ErrEstablishFailed = errors.New("session establishment failed")
	// ErrBackendTimeout is an exported constant or variable used by the session resolution engine.
	ErrBackendTimeout = errors.New("backend validation timed out")
	// ErrBackendRejected is an exported constant or variable used by the session resolution engine.
	ErrBackendRejected = errors.New("backend rejected session")
	// ErrBackendUnavailable is an exported constant or variable used by the session resolution engine.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrStoreUnavailable is an exported constant or variable used by the session resolution engine.
	ErrStoreUnavailable = errors.New("session store unavailable")
	// ErrRequestAborted is an exported constant or variable used by the session resolution engine.
	ErrRequestAborted = errors.New("request aborted before resolution completed")
	// ErrResolverNotReady is an exported constant or variable used by the session resolution engine.
	ErrResolverNotReady = errors.New("resolver not initialized")
)
