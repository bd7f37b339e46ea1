// Package devidentity provides a config-driven, in-process identity backend
// for local development. It short-circuits the hosted backend entirely:
// sign-in checks the configured credentials, OAuth redirects straight back to
// our own callback, and tokens are opaque local strings.
package devidentity

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/ports"
)

// Cookie names mirror the gotrue adapter so the request gate and handlers
// see a single cookie shape regardless of auth mode.
const (
	accessTokenCookie  = "quill-access-token"
	refreshTokenCookie = "quill-refresh-token"
)

// Config controls the dev identity backend.
type Config struct {
	UserID   string // default: random UUID
	Email    string
	Password string
	// SessionDuration defaults to 8h when zero.
	SessionDuration time.Duration
}

// Provider is the dev identity backend. It hands out per-request clients the
// same way the gotrue factory does.
type Provider struct {
	user     domainauth.User
	password string
	duration time.Duration
	token    string
}

var _ ports.ClientSource = (*Provider)(nil)

// NewProvider constructs a dev identity backend from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Email == "" {
		return nil, errors.New("devidentity: Email is required")
	}
	if cfg.Password == "" {
		return nil, errors.New("devidentity: Password is required")
	}
	userID := cfg.UserID
	if userID == "" {
		userID = uuid.NewString()
	}
	duration := cfg.SessionDuration
	if duration == 0 {
		duration = 8 * time.Hour
	}
	return &Provider{
		user:     domainauth.User{ID: userID, Email: cfg.Email},
		password: cfg.Password,
		duration: duration,
		token:    "dev-" + uuid.NewString(),
	}, nil
}

// ForRequest returns a client bound to the request's token cookie.
//
//nolint:ireturn // the port is the contract.
func (p *Provider) ForRequest(r *http.Request) ports.IdentityClient {
	c := &client{provider: p}
	if r != nil {
		if ck, err := r.Cookie(accessTokenCookie); err == nil {
			c.access = ck.Value
		}
	}
	return c
}

type client struct {
	provider *Provider
	access   string
	pending  []*http.Cookie
}

var _ ports.IdentityClient = (*client)(nil)

func (c *client) SignInWithPassword(_ context.Context, email, password string) (domainauth.Session, error) {
	p := c.provider
	if !strings.EqualFold(email, p.user.Email) || password != p.password {
		return domainauth.Session{}, &domainauth.BackendError{Message: "invalid login credentials", Status: http.StatusBadRequest}
	}
	return c.issueSession(), nil
}

func (c *client) SignUp(_ context.Context, in ports.SignUpInput) error {
	if strings.EqualFold(in.Email, c.provider.user.Email) {
		return &domainauth.BackendError{Message: "user already registered", Status: http.StatusUnprocessableEntity}
	}
	// The dev backend has exactly one account; everything else "signs up"
	// successfully and simply cannot log in.
	return nil
}

func (c *client) SignOut(_ context.Context) error {
	c.access = ""
	expired := time.Unix(0, 0).UTC()
	c.queueCookie(&http.Cookie{Name: accessTokenCookie, Value: "", MaxAge: -1, Expires: expired})
	c.queueCookie(&http.Cookie{Name: refreshTokenCookie, Value: "", MaxAge: -1, Expires: expired})
	return nil
}

func (c *client) SignInWithOAuth(_ context.Context, _ ports.OAuthInput) (string, error) {
	// Skip the provider hop and land straight on our own callback.
	return "/auth/callback?code=dev", nil
}

func (c *client) ExchangeCodeForSession(_ context.Context, code string) (domainauth.Session, error) {
	if code == "" {
		return domainauth.Session{}, &domainauth.BackendError{Message: "authorization code is required", Status: http.StatusBadRequest}
	}
	return c.issueSession(), nil
}

func (c *client) GetUser(_ context.Context) (*domainauth.User, error) {
	if c.access == "" || c.access != c.provider.token {
		return nil, &domainauth.BackendError{Message: "no session", Status: http.StatusUnauthorized}
	}
	user := c.provider.user
	return &user, nil
}

func (c *client) PendingCookies() []*http.Cookie {
	return c.pending
}

func (c *client) issueSession() domainauth.Session {
	p := c.provider
	c.access = p.token
	c.queueCookie(&http.Cookie{
		Name:   accessTokenCookie,
		Value:  p.token,
		MaxAge: int(p.duration.Seconds()),
	})
	return domainauth.Session{
		AccessToken: p.token,
		ExpiresAt:   time.Now().Add(p.duration),
		User:        p.user,
	}
}

func (c *client) queueCookie(ck *http.Cookie) {
	ck.Path = "/"
	ck.HttpOnly = true
	ck.SameSite = http.SameSiteLaxMode
	for i, existing := range c.pending {
		if existing.Name == ck.Name {
			c.pending[i] = ck
			return
		}
	}
	c.pending = append(c.pending, ck)
}
