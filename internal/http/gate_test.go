package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	identitymock "github.com/quillchat/quill/internal/mocks/identity"
)

func gateHandler(source *identitymock.MockSource, next http.Handler) http.Handler {
	if next == nil {
		next = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	}
	return SessionGate(SessionGateOptions{Clients: source})(next)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want routeClass
	}{
		{path: "/auth/callback", want: classPass},
		{path: "/auth/callback/confirm", want: classPass},
		{path: "/auth/login", want: classPass},
		{path: "/api/chats", want: classPass},
		{path: "/static/app.js", want: classPass},
		{path: "/healthz", want: classPass},
		{path: "/auth-error", want: classPass},
		{path: "/settings", want: classPass},
		{path: "/chats/c1", want: classPass},
		{path: "/login", want: classGuestOnly},
		{path: "/register", want: classGuestOnly},
		{path: "/", want: classProtected},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.path))
		})
	}
}

func TestGateProtectedRedirectsWhenUnauthenticated(t *testing.T) {
	source := identitymock.NewMockSource()
	source.Client.Unauthenticated()
	handler := gateHandler(source, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestGateProtectedServesWhenAuthenticated(t *testing.T) {
	source := identitymock.NewMockSource()
	handler := gateHandler(source, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateGuestOnlyRedirectsWhenAuthenticated(t *testing.T) {
	source := identitymock.NewMockSource()
	handler := gateHandler(source, nil)

	for _, path := range []string{"/login", "/register"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/", rec.Header().Get("Location"), path)
	}
}

func TestGateGuestOnlyServesWhenUnauthenticated(t *testing.T) {
	source := identitymock.NewMockSource()
	source.Client.Unauthenticated()
	handler := gateHandler(source, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGateUnlistedPathPassesUnauthenticated(t *testing.T) {
	source := identitymock.NewMockSource()
	source.Client.Unauthenticated()
	handler := gateHandler(source, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/settings", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "only the root page is session gated")
	assert.Zero(t, source.Client.GetUserCalls)
}

func TestGateCallbackPassesWithoutBackendCall(t *testing.T) {
	source := identitymock.NewMockSource()
	handler := gateHandler(source, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, source.Client.GetUserCalls, "the callback must never be intercepted mid-flow")
}

func TestGateFailsOpenOnBackendOutage(t *testing.T) {
	source := identitymock.NewMockSource()
	source.Client.GetUserFunc = func(context.Context) (*domainauth.User, error) {
		return nil, &domainauth.BackendError{Message: "connect: connection refused", Status: http.StatusServiceUnavailable}
	}
	handler := gateHandler(source, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "an identity outage must not take pages down")
}

func TestGateFailsOpenOnUnexpectedError(t *testing.T) {
	source := identitymock.NewMockSource()
	source.Client.GetUserFunc = func(context.Context) (*domainauth.User, error) {
		return nil, errors.New("unexpected")
	}
	handler := gateHandler(source, nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGatePropagatesRefreshedCookies(t *testing.T) {
	source := identitymock.NewMockSource()
	source.Client.Cookies = []*http.Cookie{
		{Name: "quill-access-token", Value: "fresh-access", Path: "/"},
		{Name: "quill-refresh-token", Value: "fresh-refresh", Path: "/"},
	}

	var forwarded *http.Request
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = r
		w.WriteHeader(http.StatusOK)
	})
	handler := gateHandler(source, next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "quill-access-token", Value: "stale-access"})
	req.AddCookie(&http.Cookie{Name: "other", Value: "kept"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, forwarded)

	// The handler sees the refreshed token, not the one the browser sent.
	access, err := forwarded.Cookie("quill-access-token")
	require.NoError(t, err)
	assert.Equal(t, "fresh-access", access.Value)

	// Unrelated cookies survive the rewrite.
	other, err := forwarded.Cookie("other")
	require.NoError(t, err)
	assert.Equal(t, "kept", other.Value)

	// The browser gets the refreshed tokens too.
	setCookies := rec.Result().Cookies()
	names := make(map[string]string, len(setCookies))
	for _, c := range setCookies {
		names[c.Name] = c.Value
	}
	assert.Equal(t, "fresh-access", names["quill-access-token"])
	assert.Equal(t, "fresh-refresh", names["quill-refresh-token"])
}

func TestGateDropsClearedCookiesFromForwardedRequest(t *testing.T) {
	source := identitymock.NewMockSource()
	source.Client.Cookies = []*http.Cookie{
		{Name: "quill-access-token", Value: "", MaxAge: -1, Path: "/"},
	}

	var forwarded *http.Request
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded = r
		w.WriteHeader(http.StatusOK)
	})
	handler := gateHandler(source, next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "quill-access-token", Value: "stale"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.NotNil(t, forwarded)
	_, err := forwarded.Cookie("quill-access-token")
	assert.ErrorIs(t, err, http.ErrNoCookie)
}
