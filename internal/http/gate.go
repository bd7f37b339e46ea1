package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/ports"
)

// routeClass is the gate's decision category for a request path.
type routeClass int

const (
	// classPass requests bypass the auth check entirely. This is the default:
	// the auth callback must never be intercepted mid-flow, the API handlers
	// answer 401 JSON themselves, and static assets carry no session state.
	classPass routeClass = iota
	// classGuestOnly pages (login, register) bounce signed-in users home.
	classGuestOnly
	// classProtected pages require a live session. Only the root page.
	classProtected
)

func classify(path string) routeClass {
	switch path {
	case "/":
		return classProtected
	case "/login", "/register":
		return classGuestOnly
	default:
		return classPass
	}
}

// SessionGateOptions bundles dependencies for SessionGate.
type SessionGateOptions struct {
	Clients ports.ClientSource
	Logger  *slog.Logger
}

// SessionGate returns the middleware that enforces quill's three route
// classes. It asks the identity backend for the current user on every gated
// request; a token refresh performed during that check is propagated to the
// forwarded request's cookies and to the response, so the handler and the
// browser both see the new credentials.
//
// The gate fails open: when the backend check errors for any reason other
// than "no session", the request proceeds as if authenticated. An outage at
// the identity provider degrades auth freshness, not page availability;
// handlers still cannot read protected data without a working session.
func SessionGate(opts SessionGateOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			class := classify(r.URL.Path)
			if class == classPass {
				next.ServeHTTP(w, r)
				return
			}

			client := opts.Clients.ForRequest(r)
			user, err := client.GetUser(r.Context())

			// GetUser may have refreshed the session. Update the forwarded
			// request first so the handler reads the new tokens, then the
			// response so the browser stores them.
			propagateCookies(w, r, client.PendingCookies())

			if err != nil && !isUnauthenticated(err) {
				logger.WarnContext(r.Context(), "session check failed, letting request through",
					"path", r.URL.Path, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			authed := err == nil && user != nil
			switch class {
			case classGuestOnly:
				if authed {
					http.Redirect(w, r, "/", http.StatusSeeOther)
					return
				}
			case classProtected:
				if !authed {
					http.Redirect(w, r, "/login", http.StatusSeeOther)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isUnauthenticated reports whether err means "no live session" as opposed to
// an internal failure. Only definitive backend rejections count; everything
// else is treated as an internal error so the gate fails open.
func isUnauthenticated(err error) bool {
	var backendErr *domainauth.BackendError
	if !errors.As(err, &backendErr) {
		return false
	}
	switch backendErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}

// propagateCookies applies pending credential cookies to the forwarded
// request's Cookie header and to the outgoing response. Request first: the
// downstream handler must see the same tokens the browser will store.
func propagateCookies(w http.ResponseWriter, r *http.Request, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}

	existing := r.Cookies()
	merged := make([]*http.Cookie, 0, len(existing)+len(cookies))
	replaced := make(map[string]bool, len(cookies))
	for _, c := range cookies {
		replaced[c.Name] = true
	}
	for _, c := range existing {
		if !replaced[c.Name] {
			merged = append(merged, c)
		}
	}
	for _, c := range cookies {
		if c.MaxAge < 0 || c.Value == "" {
			continue // cleared cookie: drop from the forwarded request
		}
		merged = append(merged, &http.Cookie{Name: c.Name, Value: c.Value})
	}

	r.Header.Del("Cookie")
	for _, c := range merged {
		r.AddCookie(c)
	}

	for _, c := range cookies {
		http.SetCookie(w, c)
	}
}
