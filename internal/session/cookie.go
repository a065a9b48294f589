package session

import (
	"net/http"
	"time"

	"secureauth/api/internal/config"
)

// CookieWriter applies the session cookie policy: HttpOnly always,
// SameSite=Lax always, Secure only when the deployment terminates TLS.
// Plain sessions get a browser-session cookie (the server-side TTL still
// bounds them to the default lifetime); remembered sessions get a
// Max-Age matching the extended lifetime.
type CookieWriter struct {
	name        string
	secure      bool
	rememberTTL time.Duration
}

func NewCookieWriter(cfg config.SessionConfig, secure bool) *CookieWriter {
	return &CookieWriter{
		name:        cfg.CookieName,
		secure:      secure,
		rememberTTL: cfg.RememberTTL,
	}
}

func (cw *CookieWriter) Name() string {
	return cw.name
}

func (cw *CookieWriter) Write(w http.ResponseWriter, token string, remember bool) {
	cookie := &http.Cookie{
		Name:     cw.name,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cw.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(cw.rememberTTL.Seconds())
	}
	http.SetCookie(w, cookie)
}

func (cw *CookieWriter) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cw.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cw.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
