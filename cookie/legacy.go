package cookie

import (
	"encoding/json"
	"fmt"
	"time"
)

// LegacyPayload is the JSON snapshot carried by the deprecated encrypted
// session cookies. The field names match the blobs minted by earlier
// releases and must not change.
type LegacyPayload struct {
	SessionID           string `json:"sessionId,omitempty"`
	UserID              string `json:"userId"`
	Email               string `json:"email"`
	TenantID            string `json:"tenantId,omitempty"`
	NeedsOnboarding     bool   `json:"needsOnboarding"`
	OnboardingCompleted bool   `json:"onboardingCompleted"`
	IssuedAt            int64  `json:"issuedAt,omitempty"`
}

// WellFormed reports whether the payload carries enough identity to act as
// a session fallback. Identity fields are mandatory; everything else is
// advisory.
func (p *LegacyPayload) WellFormed() bool {
	return p != nil && p.UserID != "" && p.Email != ""
}

// IssuedTime returns the payload issue time, or the zero time when the blob
// predates the issuedAt field.
func (p *LegacyPayload) IssuedTime() time.Time {
	if p == nil || p.IssuedAt <= 0 {
		return time.Time{}
	}
	return time.Unix(p.IssuedAt, 0).UTC()
}

// DecodeLegacy decrypts and parses one legacy blob. A blob that decrypts but
// does not parse to a well-formed payload is a decode failure, not a partial
// success.
func (c *Codec) DecodeLegacy(token string) (*LegacyPayload, error) {
	plain, err := c.Decrypt(token)
	if err != nil {
		return nil, err
	}

	var p LegacyPayload
	if err := json.Unmarshal(plain, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !p.WellFormed() {
		return nil, fmt.Errorf("%w: payload missing identity fields", ErrDecode)
	}

	return &p, nil
}

// EncodeLegacy seals a payload into a legacy blob. Kept for compatibility
// writes during the migration window; new sessions should rely on the sid
// cookie alone.
func (c *Codec) EncodeLegacy(p *LegacyPayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return c.Encrypt(data)
}
