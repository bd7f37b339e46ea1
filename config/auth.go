package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the identity backend mode for the application.
type AuthMode string

const (
	// AuthModeGoTrue talks to a hosted GoTrue-compatible identity backend.
	AuthModeGoTrue AuthMode = "gotrue"
	// AuthModeMock uses a single in-process dev account (development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "gotrue", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: gotrue, mock)", v)
	}
}

// GoTrueConfig contains the hosted identity backend configuration.
type GoTrueConfig struct {
	// BaseURL is the backend's auth API root, e.g.
	// "https://project.supabase.co/auth/v1".
	BaseURL string `env:"BASE_URL"`

	// AnonKey is the public (anonymous) API key sent with every request.
	AnonKey string `env:"ANON_KEY"`

	// SiteURL is the app's public origin, used to build the callback URL
	// handed to the backend for email confirmations and OAuth returns.
	SiteURL string `env:"SITE_URL" envDefault:"http://localhost:8080"`

	// JWKSIssuer overrides the issuer used for local access token
	// verification. Defaults to BaseURL.
	JWKSIssuer string `env:"JWKS_ISSUER"`

	// DisplayNameExpr and AvatarURLExpr are JMESPath expressions evaluated
	// against the backend's user_metadata to fill profile fields.
	DisplayNameExpr string `env:"DISPLAY_NAME_EXPR"`
	AvatarURLExpr   string `env:"AVATAR_URL_EXPR"`

	// OAuthProvider is the default provider for /auth/oauth redirects.
	OAuthProvider string `env:"OAUTH_PROVIDER" envDefault:"google"`
}

// DevAuthConfig controls the mock identity backend account.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID   string `env:"USER_ID"`
	Email    string `env:"EMAIL"    envDefault:"dev@example.com"`
	Password string `env:"PASSWORD" envDefault:"devdevdev"`
}

// AuthConfig groups all identity-related configuration.
type AuthConfig struct {
	// Mode determines which identity backend to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"gotrue"`

	// GoTrue configuration (used when Mode=gotrue).
	GoTrue GoTrueConfig `envPrefix:"GOTRUE_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
}
