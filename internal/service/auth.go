package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/ports"
)

// ActionStatus is the outcome of an auth action, reported to the client so it
// can render the matching state.
type ActionStatus string

const (
	StatusIdle        ActionStatus = "idle"
	StatusInProgress  ActionStatus = "in_progress"
	StatusSuccess     ActionStatus = "success"
	StatusFailed      ActionStatus = "failed"
	StatusUserExists  ActionStatus = "user_exists"
	StatusInvalidData ActionStatus = "invalid_data"
)

// ActionResult carries an action's status plus, for failures, the backend's
// message for display.
type ActionResult struct {
	Status  ActionStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// minPasswordLength matches the backend's own minimum so invalid passwords
// are rejected before a network call.
const minPasswordLength = 6

// AuthService implements the login, registration, and logout actions over a
// request-scoped identity client, invalidating caches on every auth event.
type AuthService struct {
	queries     *CachedQueries
	invalidator *CacheInvalidator
	verifier    ports.TokenVerifier
	callbackURL string
	logger      *slog.Logger
}

// AuthServiceOptions bundles dependencies for NewAuthService.
type AuthServiceOptions struct {
	Queries     *CachedQueries
	Invalidator *CacheInvalidator
	// Verifier is optional; when set it resolves the acting user from the
	// access token without a backend round trip.
	Verifier ports.TokenVerifier
	// CallbackURL is the absolute URL of the app's /auth/callback route,
	// handed to the backend as the post-confirmation redirect.
	CallbackURL string
	Logger      *slog.Logger
}

// NewAuthService constructs an AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		queries:     opts.Queries,
		invalidator: opts.Invalidator,
		verifier:    opts.Verifier,
		callbackURL: opts.CallbackURL,
		logger:      logger,
	}
}

// Login signs the user in with email and password. Invalid input short-circuits
// with StatusInvalidData and no backend call at all.
func (s *AuthService) Login(ctx context.Context, client ports.IdentityClient, email, password string) ActionResult {
	if !validCredentials(email, password) {
		return ActionResult{Status: StatusInvalidData}
	}

	// Drop any session already on the request so a half-signed-in browser
	// cannot end up with mixed credentials.
	if err := client.SignOut(ctx); err != nil {
		s.logger.DebugContext(ctx, "pre-login sign-out failed", "error", err)
	}

	session, err := client.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.logger.InfoContext(ctx, "login rejected", "error", err)
		return failedResult(err)
	}

	s.invalidate(ctx, session.User.ID, session.User.Email)
	return ActionResult{Status: StatusSuccess}
}

// Register creates an account. Any existing session is cleared first; a known
// email then returns StatusUserExists without ever calling the backend's
// sign-up endpoint. The existence check reads the cached user-by-email lookup,
// so a just-registered email can be reported as free until that cache
// invalidates.
func (s *AuthService) Register(ctx context.Context, client ports.IdentityClient, email, password string) ActionResult {
	if !validCredentials(email, password) {
		return ActionResult{Status: StatusInvalidData}
	}

	// Force-clear before the existence check: a user_exists outcome must not
	// leave a half-signed-in session behind either.
	if err := client.SignOut(ctx); err != nil {
		s.logger.DebugContext(ctx, "pre-registration sign-out failed", "error", err)
	}

	existing, err := s.queries.GetUserByEmail(ctx, email)
	if err != nil {
		s.logger.ErrorContext(ctx, "registration existence check failed", "error", err)
		return ActionResult{Status: StatusFailed}
	}
	if existing != nil {
		return ActionResult{Status: StatusUserExists}
	}

	if err := client.SignUp(ctx, ports.SignUpInput{
		Email:           email,
		Password:        password,
		EmailRedirectTo: s.callbackURL,
	}); err != nil {
		s.logger.InfoContext(ctx, "registration rejected", "error", err)
		return failedResult(err)
	}

	s.invalidate(ctx, "", email)
	return ActionResult{Status: StatusSuccess}
}

// Logout ends the session. The acting user is resolved best-effort first so
// the invalidation can reach their tags; when resolution fails the logout
// still proceeds and only the global tags are cleared.
func (s *AuthService) Logout(ctx context.Context, client ports.IdentityClient, accessToken string) InvalidationResult {
	user := s.resolveUser(ctx, client, accessToken)

	if err := client.SignOut(ctx); err != nil {
		s.logger.WarnContext(ctx, "sign-out failed", "error", err)
	}

	return s.invalidateResolved(ctx, user)
}

// StartOAuth begins a provider-hosted OAuth flow and returns the authorize
// URL to redirect the browser to.
func (s *AuthService) StartOAuth(ctx context.Context, client ports.IdentityClient, provider string) (string, error) {
	if err := client.SignOut(ctx); err != nil {
		s.logger.DebugContext(ctx, "pre-oauth sign-out failed", "error", err)
	}
	return client.SignInWithOAuth(ctx, ports.OAuthInput{
		Provider:   provider,
		RedirectTo: s.callbackURL,
		QueryParams: map[string]string{
			"access_type": "offline",
			"prompt":      "consent",
		},
	})
}

// CompleteCallback exchanges the one-time code from the backend's redirect for
// a session and invalidates the new user's caches. On failure nothing is
// invalidated; the caller sends the browser to the error page.
func (s *AuthService) CompleteCallback(ctx context.Context, client ports.IdentityClient, code string) (domainauth.Session, error) {
	session, err := client.ExchangeCodeForSession(ctx, code)
	if err != nil {
		return domainauth.Session{}, err
	}
	s.invalidate(ctx, session.User.ID, session.User.Email)
	return session, nil
}

// ClearCaches invalidates the acting user's cached state without touching the
// session, for support tooling and post-mutation refreshes.
func (s *AuthService) ClearCaches(ctx context.Context, client ports.IdentityClient, accessToken string) InvalidationResult {
	user := s.resolveUser(ctx, client, accessToken)
	return s.invalidateResolved(ctx, user)
}

// resolveUser identifies the acting user, trying the local token verifier
// before falling back to a backend round trip. Returns nil when neither works.
func (s *AuthService) resolveUser(ctx context.Context, client ports.IdentityClient, accessToken string) *domainauth.User {
	if s.verifier != nil && accessToken != "" {
		if user, err := s.verifier.Verify(ctx, accessToken); err == nil {
			return user
		}
	}
	user, err := client.GetUser(ctx)
	if err != nil {
		s.logger.DebugContext(ctx, "could not resolve user for invalidation", "error", err)
		return nil
	}
	return user
}

func (s *AuthService) invalidate(ctx context.Context, userID, email string) InvalidationResult {
	result, err := s.invalidator.InvalidateUser(ctx, userID, email)
	if err != nil {
		s.logger.WarnContext(ctx, "post-auth invalidation failed", "error", err)
	}
	return result
}

func (s *AuthService) invalidateResolved(ctx context.Context, user *domainauth.User) InvalidationResult {
	if user == nil {
		return s.invalidate(ctx, "", "")
	}
	return s.invalidate(ctx, user.ID, user.Email)
}

func failedResult(err error) ActionResult {
	var backendErr *domainauth.BackendError
	if errors.As(err, &backendErr) {
		return ActionResult{Status: StatusFailed, Message: backendErr.Message}
	}
	return ActionResult{Status: StatusFailed}
}

// validCredentials checks shape only: a parseable bare address with a dotted
// domain, and a password of at least minPasswordLength runes. Real credential
// verification is the backend's job.
func validCredentials(email, password string) bool {
	return validEmail(email) && utf8.RuneCountInString(password) >= minPasswordLength
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
