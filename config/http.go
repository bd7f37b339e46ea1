package config

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// CookieDomain is the domain for auth token cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`
}

// Sanitize applies guardrails to HTTP configuration values. A cookie domain
// that is itself a public suffix (e.g. "co.uk", "herokuapp.com") is dropped:
// browsers refuse to store cookies scoped that wide, so tokens would silently
// never persist.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = ":8080"
	}

	domain := strings.TrimPrefix(strings.TrimSpace(h.CookieDomain), ".")
	if domain == "" {
		h.CookieDomain = ""
		return
	}
	if suffix, _ := publicsuffix.PublicSuffix(domain); suffix == domain {
		h.CookieDomain = ""
	}
}
