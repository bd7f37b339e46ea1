package devidentity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/ports"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(Config{
		UserID:   "dev-user-id",
		Email:    "dev@example.com",
		Password: "devdevdev",
	})
	require.NoError(t, err)
	return p
}

func TestNewProviderValidation(t *testing.T) {
	_, err := NewProvider(Config{Password: "pw"})
	require.Error(t, err)

	_, err = NewProvider(Config{Email: "dev@example.com"})
	require.Error(t, err)
}

func TestSignInWithPassword(t *testing.T) {
	p := newTestProvider(t)
	client := p.ForRequest(nil)

	session, err := client.SignInWithPassword(context.Background(), "DEV@example.com", "devdevdev")
	require.NoError(t, err, "email comparison is case insensitive")
	assert.Equal(t, "dev-user-id", session.User.ID)
	assert.NotEmpty(t, session.AccessToken)

	cookies := client.PendingCookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.AccessToken, cookies[0].Value)
}

func TestSignInWithWrongPassword(t *testing.T) {
	p := newTestProvider(t)
	client := p.ForRequest(nil)

	_, err := client.SignInWithPassword(context.Background(), "dev@example.com", "nope")

	var backendErr *domainauth.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusBadRequest, backendErr.Status)
}

func TestGetUserRequiresIssuedToken(t *testing.T) {
	p := newTestProvider(t)

	// No cookie at all.
	_, err := p.ForRequest(nil).GetUser(context.Background())
	var backendErr *domainauth.BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusUnauthorized, backendErr.Status)

	// A made-up token is rejected too.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: "forged"})
	_, err = p.ForRequest(req).GetUser(context.Background())
	require.Error(t, err)
}

func TestGetUserWithIssuedToken(t *testing.T) {
	p := newTestProvider(t)

	signin := p.ForRequest(nil)
	session, err := signin.SignInWithPassword(context.Background(), "dev@example.com", "devdevdev")
	require.NoError(t, err)

	// A later request carrying the issued cookie resolves the dev user.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: session.AccessToken})
	user, err := p.ForRequest(req).GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dev@example.com", user.Email)
}

func TestSignOutClearsCookies(t *testing.T) {
	p := newTestProvider(t)
	client := p.ForRequest(nil)

	_, err := client.SignInWithPassword(context.Background(), "dev@example.com", "devdevdev")
	require.NoError(t, err)
	require.NoError(t, client.SignOut(context.Background()))

	cleared := map[string]int{}
	for _, c := range client.PendingCookies() {
		cleared[c.Name] = c.MaxAge
	}
	assert.Equal(t, -1, cleared[accessTokenCookie])
	assert.Equal(t, -1, cleared[refreshTokenCookie])

	_, err = client.GetUser(context.Background())
	require.Error(t, err)
}

func TestSignUpAgainstConfiguredAccount(t *testing.T) {
	p := newTestProvider(t)
	client := p.ForRequest(nil)

	err := client.SignUp(context.Background(), ports.SignUpInput{Email: "dev@example.com", Password: "x"})
	require.Error(t, err, "the configured account already exists")

	require.NoError(t, client.SignUp(context.Background(), ports.SignUpInput{Email: "new@example.com", Password: "x"}))
}

func TestOAuthRoundTripsThroughLocalCallback(t *testing.T) {
	p := newTestProvider(t)
	client := p.ForRequest(nil)

	redirect, err := client.SignInWithOAuth(context.Background(), ports.OAuthInput{Provider: "google"})
	require.NoError(t, err)
	assert.Equal(t, "/auth/callback?code=dev", redirect)

	session, err := client.ExchangeCodeForSession(context.Background(), "dev")
	require.NoError(t, err)
	assert.Equal(t, "dev-user-id", session.User.ID)

	_, err = client.ExchangeCodeForSession(context.Background(), "")
	require.Error(t, err)
}
