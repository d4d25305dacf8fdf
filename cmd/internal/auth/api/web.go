package authapi

import (
	"net/http"
	"strings"
	"time"

	"vidtube/cmd/internal/auth/credential"
)

// setAuthCookies writes both token cookies. Each cookie expires with
// its own token; the browser drops the access cookie first and the
// client falls back to the refresh flow.
func (h *Handler) setAuthCookies(w http.ResponseWriter, pair credential.Pair) {
	h.setCookie(w, h.cfg.AccessCookieName, pair.AccessToken, pair.AccessExpiresAt)
	h.setCookie(w, h.cfg.RefreshCookieName, pair.RefreshToken, pair.RefreshExpiresAt)
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	h.expireCookie(w, h.cfg.AccessCookieName)
	h.expireCookie(w, h.cfg.RefreshCookieName)
}

func (h *Handler) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	if h == nil || w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  exp,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

func (h *Handler) expireCookie(w http.ResponseWriter, name string) {
	if h == nil || w == nil || strings.TrimSpace(name) == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.CookieSameSite,
	})
}

// refreshTokenFromCookie returns the refresh cookie value, if present.
func (h *Handler) refreshTokenFromCookie(r *http.Request) (string, bool) {
	if h == nil || r == nil {
		return "", false
	}
	c, err := r.Cookie(h.cfg.RefreshCookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	if v == "" {
		return "", false
	}
	return v, true
}

// accessTokenFromRequest resolves the access token from the cookie
// first, then from an Authorization: Bearer header.
func (h *Handler) accessTokenFromRequest(r *http.Request) string {
	if h == nil || r == nil {
		return ""
	}
	if c, err := r.Cookie(h.cfg.AccessCookieName); err == nil {
		if v := strings.TrimSpace(c.Value); v != "" {
			return v
		}
	}
	return bearerToken(r)
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
