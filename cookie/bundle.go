package cookie

import (
	"net/http"
	"strings"
)

// Cookie names on the wire. SIDName is the preferred short session id
// cookie; the legacy names carry the deprecated encrypted blob and are read
// in order for backward compatibility. Writes go to LegacyPrimaryName only.
const (
	SIDName           = "sid"
	LegacyPrimaryName = "dott_auth_session"
	LegacyAltName     = "appSession"
)

// Status-flag cookie names. Flags are short-lived UI signals and are never
// consulted for authorization.
const (
	FlagOnboardingCompleted = "onboardingCompleted"
	FlagAuthFlow            = "authFlow"
)

var flagNames = []string{FlagOnboardingCompleted, FlagAuthFlow}

// Bundle is the raw cookie material read from a single request.
type Bundle struct {
	SID         string
	LegacyBlobs []string
	StatusFlags map[string]string
}

// HasSID reports whether a non-empty sid cookie was present.
func (b Bundle) HasSID() bool {
	return b.SID != ""
}

// HasLegacy reports whether at least one legacy blob was present.
func (b Bundle) HasLegacy() bool {
	return len(b.LegacyBlobs) > 0
}

// Extract parses the Cookie header of r into a typed [Bundle]. It never
// fails: malformed cookies are skipped, missing cookies leave zero fields.
// Legacy blobs are collected in priority order (dott_auth_session before
// appSession) so callers can attempt decryption with a fixed precedence.
func Extract(r *http.Request) Bundle {
	var b Bundle

	if c, err := r.Cookie(SIDName); err == nil {
		b.SID = sanitize(c.Value)
	}

	for _, name := range []string{LegacyPrimaryName, LegacyAltName} {
		if c, err := r.Cookie(name); err == nil {
			if v := sanitize(c.Value); v != "" {
				b.LegacyBlobs = append(b.LegacyBlobs, v)
			}
		}
	}

	for _, name := range flagNames {
		if c, err := r.Cookie(name); err == nil {
			if v := sanitize(c.Value); v != "" {
				if b.StatusFlags == nil {
					b.StatusFlags = make(map[string]string, len(flagNames))
				}
				b.StatusFlags[name] = v
			}
		}
	}

	return b
}

// ExtractHeader parses a raw Cookie header value. It exists for callers that
// hold headers without an *http.Request (edge middleware, tests).
func ExtractHeader(header string) Bundle {
	r := &http.Request{Header: http.Header{}}
	if header != "" {
		r.Header.Set("Cookie", header)
	}
	return Extract(r)
}

func sanitize(v string) string {
	v = strings.TrimSpace(v)
	// Cookie values longer than 8 KiB are hostile or corrupted; a real sid
	// is short and a legacy blob tops out well under this.
	if len(v) > 8192 {
		return ""
	}
	return v
}
