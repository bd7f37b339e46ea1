// Package ports defines interfaces (hexagonal ports) for the identity backend
// and the persistence queries. Implementations live in internal/adapters and
// internal/data; orchestration in internal/service.
package ports

import (
	"context"
	"net/http"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
)

// SignUpInput carries inputs for registering a new account with the backend.
type SignUpInput struct {
	Email    string
	Password string
	// EmailRedirectTo is where the confirmation email sends the user;
	// normally the app's /auth/callback URL.
	EmailRedirectTo string
}

// OAuthInput carries inputs for starting a provider-hosted OAuth flow.
type OAuthInput struct {
	Provider   string
	RedirectTo string
	// QueryParams are forwarded verbatim to the backend's authorize endpoint
	// (e.g. access_type=offline, prompt=consent for Google).
	QueryParams map[string]string
}

// IdentityClient is the hosted identity backend, scoped to one request's
// credentials. It is the only source of truth for "is this request
// authenticated"; quill delegates all credential and token handling to it.
//
// Any failed operation returns a *domainauth.BackendError.
type IdentityClient interface {
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error)
	SignUp(ctx context.Context, in SignUpInput) error
	SignOut(ctx context.Context) error

	// SignInWithOAuth returns the backend's authorize URL to redirect the
	// browser to. The OAuth negotiation itself is entirely backend-owned.
	SignInWithOAuth(ctx context.Context, in OAuthInput) (string, error)

	// ExchangeCodeForSession completes an OAuth or email-confirmation flow.
	ExchangeCodeForSession(ctx context.Context, code string) (domainauth.Session, error)

	// GetUser returns the current user, or an error when the request carries
	// no live session.
	GetUser(ctx context.Context) (*domainauth.User, error)

	// PendingCookies returns credential updates (refreshed or cleared tokens)
	// accumulated by earlier calls on this client. The caller must propagate
	// them to both the forwarded request and the outgoing response.
	PendingCookies() []*http.Cookie
}

// ClientSource builds an IdentityClient bound to the credentials of a single
// inbound request.
type ClientSource interface {
	ForRequest(r *http.Request) IdentityClient
}

// TokenVerifier checks a backend-issued access token locally, without a
// network round trip. Used for best-effort user resolution on invalidation
// paths; never a substitute for GetUser in access-control decisions.
type TokenVerifier interface {
	Verify(ctx context.Context, accessToken string) (*domainauth.User, error)
}
