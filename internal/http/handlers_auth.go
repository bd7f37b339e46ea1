package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/ports"
	"github.com/quillchat/quill/internal/service"
)

var errMissingProvider = errors.New("oauth provider is required")

// AuthServiceInterface defines the auth actions the handlers dispatch to.
type AuthServiceInterface interface {
	Login(ctx context.Context, client ports.IdentityClient, email, password string) service.ActionResult
	Register(ctx context.Context, client ports.IdentityClient, email, password string) service.ActionResult
	Logout(ctx context.Context, client ports.IdentityClient, accessToken string) service.InvalidationResult
	StartOAuth(ctx context.Context, client ports.IdentityClient, provider string) (string, error)
	CompleteCallback(ctx context.Context, client ports.IdentityClient, code string) (domainauth.Session, error)
	ClearCaches(ctx context.Context, client ports.IdentityClient, accessToken string) service.InvalidationResult
}

// SessionQueries is the cached session lookup used by the status endpoint.
type SessionQueries interface {
	GetSession(ctx context.Context, client ports.IdentityClient) (*domainauth.User, error)
}

// AuthHandlers provides HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	Svc     AuthServiceInterface
	Queries SessionQueries
	Clients ports.ClientSource
	// AccessTokenCookie is the cookie name carrying the backend access token,
	// read for best-effort user resolution on logout and cache clears.
	AccessTokenCookie string
	Logger            *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles the password sign-in action.
// POST /auth/login {"email": ..., "password": ...}.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	client := h.Clients.ForRequest(r)
	result := h.Svc.Login(r.Context(), client, req.Email, req.Password)
	writeCookies(w, client.PendingCookies())
	WriteJSON(w, actionStatusCode(result.Status), result)
}

// Register handles the sign-up action.
// POST /auth/register {"email": ..., "password": ...}.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	client := h.Clients.ForRequest(r)
	result := h.Svc.Register(r.Context(), client, req.Email, req.Password)
	writeCookies(w, client.PendingCookies())
	WriteJSON(w, actionStatusCode(result.Status), result)
}

// Logout ends the current session and clears its cached state.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	client := h.Clients.ForRequest(r)
	invalidated := h.Svc.Logout(r.Context(), client, h.accessToken(r))
	writeCookies(w, client.PendingCookies())
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":             service.StatusSuccess,
		"invalidation_scope": invalidated.Scope,
	})
}

// OAuth starts a provider-hosted sign-in flow.
// GET /auth/oauth/{provider}.
func (h *AuthHandlers) OAuth(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	if provider == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_provider", Err: errMissingProvider})
		return
	}

	client := h.Clients.ForRequest(r)
	authURL, err := h.Svc.StartOAuth(r.Context(), client, provider)
	writeCookies(w, client.PendingCookies())
	if err != nil {
		h.logger().ErrorContext(r.Context(), "oauth start failed", "provider", provider, "error", err)
		http.Redirect(w, r, "/auth-error", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// Callback completes an OAuth or email-confirmation flow.
// GET /auth/callback?code=<one-time code>.
//
// A failed or codeless callback redirects to the error page without touching
// any cached state; only a successful exchange invalidates.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/auth-error", http.StatusSeeOther)
		return
	}

	client := h.Clients.ForRequest(r)
	if _, err := h.Svc.CompleteCallback(r.Context(), client, code); err != nil {
		h.logger().WarnContext(r.Context(), "code exchange failed", "error", err)
		http.Redirect(w, r, "/auth-error", http.StatusSeeOther)
		return
	}

	writeCookies(w, client.PendingCookies())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Status returns the current authentication state via the cached session
// lookup.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	client := h.Clients.ForRequest(r)
	user, err := h.Queries.GetSession(r.Context(), client)
	writeCookies(w, client.PendingCookies())
	if err != nil || user == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":           user.ID,
			"email":        user.Email,
			"display_name": user.DisplayName,
			"avatar_url":   user.AvatarURL,
		},
	})
}

// ClearCaches drops the acting user's cached state without ending the session.
// POST /auth/clear-caches.
func (h *AuthHandlers) ClearCaches(w http.ResponseWriter, r *http.Request) {
	client := h.Clients.ForRequest(r)
	invalidated := h.Svc.ClearCaches(r.Context(), client, h.accessToken(r))
	WriteJSON(w, http.StatusOK, map[string]any{
		"status": service.StatusSuccess,
		"scope":  invalidated.Scope,
		"tags":   invalidated.Tags,
	})
}

func (h *AuthHandlers) accessToken(r *http.Request) string {
	if h.AccessTokenCookie == "" {
		return ""
	}
	cookie, err := r.Cookie(h.AccessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// actionStatusCode maps an action outcome to an HTTP status. The body's
// status field is authoritative; the code is for clients and middleboxes
// that only look at the status line.
func actionStatusCode(status service.ActionStatus) int {
	switch status {
	case service.StatusSuccess:
		return http.StatusOK
	case service.StatusInvalidData:
		return http.StatusUnprocessableEntity
	case service.StatusUserExists:
		return http.StatusConflict
	default:
		return http.StatusUnauthorized
	}
}

func writeCookies(w http.ResponseWriter, cookies []*http.Cookie) {
	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}
