package cookie

import (
	"net/http"
	"time"
)

// WriteOptions control the flags stamped on every session cookie. The flag
// set is part of the wire contract: HttpOnly, SameSite=Lax, Path=/, and a
// 24h Max-Age, with Secure enabled outside local development.
type WriteOptions struct {
	Domain string
	Secure bool
	MaxAge time.Duration
}

const defaultMaxAge = 24 * time.Hour

func (o WriteOptions) maxAgeSeconds() int {
	if o.MaxAge <= 0 {
		return int(defaultMaxAge / time.Second)
	}
	return int(o.MaxAge / time.Second)
}

// SetSID writes the sid cookie.
func SetSID(w http.ResponseWriter, sid string, opts WriteOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     SIDName,
		Value:    sid,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   opts.maxAgeSeconds(),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetLegacy writes the encrypted legacy blob under the primary legacy name.
// Only the primary name is ever written; the alternate name is read-only
// compatibility.
func SetLegacy(w http.ResponseWriter, blob string, opts WriteOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     LegacyPrimaryName,
		Value:    blob,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   opts.maxAgeSeconds(),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetStatusFlag writes a short-lived, non-HttpOnly signal cookie. Flags are
// readable by the UI and carry no authority.
func SetStatusFlag(w http.ResponseWriter, name, value string, opts WriteOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   opts.Domain,
		MaxAge:   300,
		HttpOnly: false,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ExpireAll expires every session-related cookie, including both legacy
// names and all status flags. Used on revocation; expiry must not depend on
// which cookies the client actually held.
func ExpireAll(w http.ResponseWriter, opts WriteOptions) {
	names := []string{SIDName, LegacyPrimaryName, LegacyAltName}
	names = append(names, flagNames...)

	for _, name := range names {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   opts.Domain,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: name == SIDName || name == LegacyPrimaryName || name == LegacyAltName,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
