// Package identity contains simple hand-written test doubles for the identity
// backend ports. The call counters let tests assert that invalid input never
// reaches the backend.
package identity

import (
	"context"
	"net/http"
	"time"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityClient = (*MockClient)(nil)
	_ ports.ClientSource   = (*MockSource)(nil)
	_ ports.TokenVerifier  = (*MockVerifier)(nil)
)

// MockClient simulates a request-scoped identity backend client. Behavior is
// overridden per test via the Func fields; every call bumps the matching
// counter regardless.
type MockClient struct {
	SignInFunc   func(ctx context.Context, email, password string) (domainauth.Session, error)
	SignUpFunc   func(ctx context.Context, in ports.SignUpInput) error
	SignOutFunc  func(ctx context.Context) error
	OAuthFunc    func(ctx context.Context, in ports.OAuthInput) (string, error)
	ExchangeFunc func(ctx context.Context, code string) (domainauth.Session, error)
	GetUserFunc  func(ctx context.Context) (*domainauth.User, error)

	// DefaultUser backs the zero-config happy path.
	DefaultUser domainauth.User

	// Cookies is returned verbatim from PendingCookies.
	Cookies []*http.Cookie

	SignInCalls   int
	SignUpCalls   int
	SignOutCalls  int
	OAuthCalls    int
	ExchangeCalls int
	GetUserCalls  int
}

// NewMockClient creates a MockClient with a sensible default user.
func NewMockClient() *MockClient {
	return &MockClient{
		DefaultUser: domainauth.User{
			ID:    "aa11bb22-cc33-dd44-ee55-ff6677889900",
			Email: "mock.user@example.com",
		},
	}
}

// BackendCalls reports the total number of backend operations performed.
func (m *MockClient) BackendCalls() int {
	return m.SignInCalls + m.SignUpCalls + m.SignOutCalls + m.OAuthCalls + m.ExchangeCalls + m.GetUserCalls
}

func (m *MockClient) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error) {
	m.SignInCalls++
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, email, password)
	}
	return m.session(), nil
}

func (m *MockClient) SignUp(ctx context.Context, in ports.SignUpInput) error {
	m.SignUpCalls++
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, in)
	}
	return nil
}

func (m *MockClient) SignOut(ctx context.Context) error {
	m.SignOutCalls++
	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx)
	}
	return nil
}

func (m *MockClient) SignInWithOAuth(ctx context.Context, in ports.OAuthInput) (string, error) {
	m.OAuthCalls++
	if m.OAuthFunc != nil {
		return m.OAuthFunc(ctx, in)
	}
	return "https://mock-backend/authorize?provider=" + in.Provider, nil
}

func (m *MockClient) ExchangeCodeForSession(ctx context.Context, code string) (domainauth.Session, error) {
	m.ExchangeCalls++
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return m.session(), nil
}

func (m *MockClient) GetUser(ctx context.Context) (*domainauth.User, error) {
	m.GetUserCalls++
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx)
	}
	user := m.DefaultUser
	return &user, nil
}

func (m *MockClient) PendingCookies() []*http.Cookie {
	return m.Cookies
}

func (m *MockClient) session() domainauth.Session {
	return domainauth.Session{
		AccessToken:  "mock-access",
		RefreshToken: "mock-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         m.DefaultUser,
	}
}

// Unauthenticated configures the client to report no live session.
func (m *MockClient) Unauthenticated() *MockClient {
	m.GetUserFunc = func(context.Context) (*domainauth.User, error) {
		return nil, &domainauth.BackendError{Message: "invalid token", Status: http.StatusUnauthorized}
	}
	return m
}

// MockSource hands out the same client for every request.
type MockSource struct {
	Client *MockClient
}

// NewMockSource creates a MockSource around a fresh MockClient.
func NewMockSource() *MockSource {
	return &MockSource{Client: NewMockClient()}
}

//nolint:ireturn // the port is the contract.
func (s *MockSource) ForRequest(_ *http.Request) ports.IdentityClient {
	return s.Client
}

// MockVerifier resolves tokens from a fixed map.
type MockVerifier struct {
	Users map[string]*domainauth.User
}

func (v *MockVerifier) Verify(_ context.Context, accessToken string) (*domainauth.User, error) {
	if user, ok := v.Users[accessToken]; ok {
		return user, nil
	}
	return nil, &domainauth.BackendError{Message: "unknown token", Status: http.StatusUnauthorized}
}
