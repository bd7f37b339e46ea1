package gotrue

import (
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// Cookie names for the backend-issued token pair.
const (
	AccessTokenCookie  = "quill-access-token"
	RefreshTokenCookie = "quill-refresh-token"
)

// refreshTokenMaxAge bounds how long a refresh token cookie survives in the
// browser; the backend enforces the real rotation/expiry policy.
const refreshTokenMaxAge = 30 * 24 * time.Hour

// setTokenCookies queues Set-Cookie updates for a freshly issued token pair.
func (c *Client) setTokenCookies(token *oauth2.Token) {
	accessMaxAge := int(time.Until(token.Expiry).Seconds())
	if accessMaxAge <= 0 {
		accessMaxAge = 0 // session cookie when the backend sent no expiry
	}
	c.queueCookie(&http.Cookie{
		Name:   AccessTokenCookie,
		Value:  token.AccessToken,
		MaxAge: accessMaxAge,
	})
	if token.RefreshToken != "" {
		c.queueCookie(&http.Cookie{
			Name:   RefreshTokenCookie,
			Value:  token.RefreshToken,
			MaxAge: int(refreshTokenMaxAge.Seconds()),
		})
	}
}

// clearTokenCookies queues deletion of both token cookies.
func (c *Client) clearTokenCookies() {
	expired := time.Unix(0, 0).UTC()
	c.queueCookie(&http.Cookie{Name: AccessTokenCookie, Value: "", MaxAge: -1, Expires: expired})
	c.queueCookie(&http.Cookie{Name: RefreshTokenCookie, Value: "", MaxAge: -1, Expires: expired})
	c.access = ""
	c.refresh = ""
	c.token = nil
}

// queueCookie applies the shared attributes and replaces any earlier pending
// update for the same cookie name (last write wins within a request).
func (c *Client) queueCookie(ck *http.Cookie) {
	ck.Path = "/"
	ck.Domain = c.factory.cfg.CookieDomain
	ck.HttpOnly = true
	ck.Secure = c.secure
	ck.SameSite = http.SameSiteLaxMode

	for i, existing := range c.pending {
		if existing.Name == ck.Name {
			c.pending[i] = ck
			return
		}
	}
	c.pending = append(c.pending, ck)
}
