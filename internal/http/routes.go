package httpx

import (
	"log/slog"
	"net/http"

	"github.com/quillchat/quill/internal/ports"
	"github.com/quillchat/quill/internal/service"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth    *service.AuthService
	Queries *service.CachedQueries
	Clients ports.ClientSource
	// AccessTokenCookie is the cookie name carrying the backend access token.
	AccessTokenCookie string
	Logger            *slog.Logger
}

// NewRouter creates and configures the HTTP router with the session gate and
// standard middleware applied.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:               services.Auth,
		Queries:           services.Queries,
		Clients:           services.Clients,
		AccessTokenCookie: services.AccessTokenCookie,
		Logger:            services.Logger,
	}
	apiHandlers := &APIHandlers{
		Queries: services.Queries,
		Clients: services.Clients,
		Logger:  services.Logger,
	}

	registerAuthRoutes(mux, authHandlers)
	registerAPIRoutes(mux, apiHandlers)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	mux.Handle("GET /{$}", servePage("home"))
	mux.Handle("GET /login", servePage("login"))
	mux.Handle("GET /register", servePage("register"))
	mux.Handle("GET /auth-error", servePage("auth-error"))

	// The gate wraps the whole mux so every route shares one decision point.
	gate := SessionGate(SessionGateOptions{Clients: services.Clients, Logger: services.Logger})
	return gate(mux)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.Handle("POST /auth/login", http.HandlerFunc(h.Login))
	mux.Handle("POST /auth/register", http.HandlerFunc(h.Register))
	mux.Handle("POST /auth/logout", http.HandlerFunc(h.Logout))
	mux.Handle("POST /auth/clear-caches", http.HandlerFunc(h.ClearCaches))
	mux.Handle("GET /auth/callback", http.HandlerFunc(h.Callback))
	mux.Handle("GET /auth/oauth/{provider}", http.HandlerFunc(h.OAuth))
	mux.Handle("GET /auth/status", http.HandlerFunc(h.Status))
}

func registerAPIRoutes(mux *http.ServeMux, h *APIHandlers) {
	mux.Handle("GET /api/me", http.HandlerFunc(h.Me))
	mux.Handle("GET /api/chats", http.HandlerFunc(h.ListChats))
	mux.Handle("GET /api/chats/{id}", http.HandlerFunc(h.GetChat))
	mux.Handle("GET /api/chats/{id}/messages", http.HandlerFunc(h.ListChatMessages))
	mux.Handle("GET /api/chats/{id}/votes", http.HandlerFunc(h.ListChatVotes))
	mux.Handle("GET /api/documents/{id}", http.HandlerFunc(h.GetDocument))
	mux.Handle("GET /api/documents/{id}/versions", http.HandlerFunc(h.ListDocumentVersions))
	mux.Handle("GET /api/documents/{id}/suggestions", http.HandlerFunc(h.ListDocumentSuggestions))
}
