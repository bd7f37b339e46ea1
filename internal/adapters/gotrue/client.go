// Package gotrue implements the identity backend port against a hosted
// GoTrue-compatible REST API. All credential storage, token issuance, and
// OAuth negotiation live on the backend; this client only shuttles tokens
// between request cookies and the backend's endpoints.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/ports"
)

// Config holds configuration for the identity backend.
type Config struct {
	// BaseURL is the backend auth root, e.g. "https://id.example.com/auth/v1".
	BaseURL string
	// AnonKey is the backend's public API key, sent on every request.
	AnonKey string
	// SiteURL is the public URL of this application, used to build the
	// /auth/callback redirect target for sign-up confirmation and OAuth.
	SiteURL string
	// CookieDomain scopes the token cookies. Empty uses the request domain.
	CookieDomain string
	// Metadata configures the user_metadata to profile field mapping.
	Metadata MetadataConfig
	// HTTPClient is optional; defaults to a 30-second-timeout client.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Factory builds per-request clients bound to that request's token cookies.
type Factory struct {
	cfg    Config
	http   *http.Client
	mapper *MetadataMapper
	logger *slog.Logger
}

var _ ports.ClientSource = (*Factory)(nil)

// NewFactory validates the configuration and constructs a Factory.
func NewFactory(cfg Config) (*Factory, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("gotrue: BaseURL is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("gotrue: AnonKey is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	mapper, err := NewMetadataMapper(cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("gotrue: metadata mapping: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		cfg:    Config{BaseURL: strings.TrimSuffix(cfg.BaseURL, "/"), AnonKey: cfg.AnonKey, SiteURL: strings.TrimSuffix(cfg.SiteURL, "/"), CookieDomain: cfg.CookieDomain},
		http:   httpClient,
		mapper: mapper,
		logger: logger,
	}, nil
}

// ForRequest returns a client bound to the request's token cookies.
//
//nolint:ireturn // the port is the contract; callers never see the concrete type.
func (f *Factory) ForRequest(r *http.Request) ports.IdentityClient {
	c := &Client{factory: f}
	if r != nil {
		c.secure = r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
		if ck, err := r.Cookie(AccessTokenCookie); err == nil {
			c.access = ck.Value
		}
		if ck, err := r.Cookie(RefreshTokenCookie); err == nil {
			c.refresh = ck.Value
		}
	}
	return c
}

// CallbackURL returns the application's OAuth/confirmation callback URL.
func (f *Factory) CallbackURL() string {
	return f.cfg.SiteURL + "/auth/callback"
}

// Client is a single-request identity backend client. Not safe for use from
// multiple goroutines; each request gets its own.
type Client struct {
	factory *Factory
	secure  bool

	// tokens from the inbound request's cookies
	access  string
	refresh string

	// token is the authoritative pair after any operation that (re)issued
	// one during this request.
	token *oauth2.Token

	pending []*http.Cookie
}

var _ ports.IdentityClient = (*Client)(nil)

// tokenResponse is GoTrue's token grant payload.
type tokenResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         userPayload `json:"user"`
}

type userPayload struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error) {
	body := map[string]string{"email": email, "password": password}
	var resp tokenResponse
	err := c.do(ctx, request{
		Method: http.MethodPost,
		Path:   "/token",
		Query:  url.Values{"grant_type": {"password"}},
		Body:   body,
	}, &resp)
	if err != nil {
		return domainauth.Session{}, err
	}
	return c.adoptSession(resp), nil
}

func (c *Client) SignUp(ctx context.Context, in ports.SignUpInput) error {
	q := url.Values{}
	if in.EmailRedirectTo != "" {
		q.Set("redirect_to", in.EmailRedirectTo)
	}
	body := map[string]string{"email": in.Email, "password": in.Password}
	return c.do(ctx, request{Method: http.MethodPost, Path: "/signup", Query: q, Body: body}, nil)
}

func (c *Client) SignOut(ctx context.Context) error {
	token := c.bearerToken()
	// Clearing cookies is unconditional: even a failed backend revocation
	// must not leave tokens on the client.
	defer c.clearTokenCookies()

	if token == "" {
		return nil // nothing to revoke
	}
	err := c.do(ctx, request{Method: http.MethodPost, Path: "/logout", Bearer: token}, nil)
	var backendErr *domainauth.BackendError
	if errors.As(err, &backendErr) && (backendErr.Status == http.StatusUnauthorized || backendErr.Status == http.StatusNotFound) {
		// The session was already gone; that is the state we wanted.
		return nil
	}
	return err
}

func (c *Client) SignInWithOAuth(_ context.Context, in ports.OAuthInput) (string, error) {
	if in.Provider == "" {
		return "", &domainauth.BackendError{Message: "oauth provider is required", Status: http.StatusBadRequest}
	}
	q := url.Values{"provider": {in.Provider}}
	if in.RedirectTo != "" {
		q.Set("redirect_to", in.RedirectTo)
	}
	for k, v := range in.QueryParams {
		q.Set(k, v)
	}
	return c.factory.cfg.BaseURL + "/authorize?" + q.Encode(), nil
}

func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) (domainauth.Session, error) {
	if code == "" {
		return domainauth.Session{}, &domainauth.BackendError{Message: "authorization code is required", Status: http.StatusBadRequest}
	}
	var resp tokenResponse
	err := c.do(ctx, request{
		Method: http.MethodPost,
		Path:   "/token",
		Query:  url.Values{"grant_type": {"pkce"}},
		Body:   map[string]string{"auth_code": code},
	}, &resp)
	if err != nil {
		return domainauth.Session{}, err
	}
	return c.adoptSession(resp), nil
}

func (c *Client) GetUser(ctx context.Context) (*domainauth.User, error) {
	token := c.bearerToken()
	if token == "" {
		if c.refresh == "" {
			return nil, &domainauth.BackendError{Message: "no session", Status: http.StatusUnauthorized}
		}
		if err := c.refreshSession(ctx); err != nil {
			return nil, err
		}
		token = c.bearerToken()
	}

	user, err := c.fetchUser(ctx, token)
	var backendErr *domainauth.BackendError
	if errors.As(err, &backendErr) && backendErr.Status == http.StatusUnauthorized && c.refresh != "" {
		// Access token expired mid-flight; refresh once and retry.
		if refreshErr := c.refreshSession(ctx); refreshErr != nil {
			return nil, refreshErr
		}
		return c.fetchUser(ctx, c.bearerToken())
	}
	return user, err
}

func (c *Client) PendingCookies() []*http.Cookie {
	return c.pending
}

func (c *Client) fetchUser(ctx context.Context, token string) (*domainauth.User, error) {
	var payload userPayload
	if err := c.do(ctx, request{Method: http.MethodGet, Path: "/user", Bearer: token}, &payload); err != nil {
		return nil, err
	}
	user := c.factory.mapper.MapUser(payload.ID, payload.Email, payload.UserMetadata)
	return &user, nil
}

// refreshSession exchanges the refresh token for a new pair and records the
// cookie updates so both legs of the request observe the refreshed tokens.
func (c *Client) refreshSession(ctx context.Context) error {
	var resp tokenResponse
	err := c.do(ctx, request{
		Method: http.MethodPost,
		Path:   "/token",
		Query:  url.Values{"grant_type": {"refresh_token"}},
		Body:   map[string]string{"refresh_token": c.refresh},
	}, &resp)
	if err != nil {
		return err
	}
	c.adoptSession(resp)
	return nil
}

// adoptSession records a newly issued token pair as this request's
// credentials and queues the matching cookie updates.
func (c *Client) adoptSession(resp tokenResponse) domainauth.Session {
	expiry := time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	c.token = &oauth2.Token{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       expiry,
	}
	c.access = resp.AccessToken
	c.refresh = resp.RefreshToken
	c.setTokenCookies(c.token)

	user := c.factory.mapper.MapUser(resp.User.ID, resp.User.Email, resp.User.UserMetadata)
	return domainauth.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    expiry,
		User:         user,
	}
}

// bearerToken returns the freshest known access token, preferring a pair
// issued during this request over the inbound cookie.
func (c *Client) bearerToken() string {
	if c.token != nil && c.token.Valid() {
		return c.token.AccessToken
	}
	return c.access
}

// request groups the parameters of one backend call.
type request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	// Bearer overrides the Authorization token; empty sends the anon key.
	Bearer string
}

func (c *Client) do(ctx context.Context, req request, out any) error {
	endpoint := c.factory.cfg.BaseURL + req.Path
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("apikey", c.factory.cfg.AnonKey)
	bearer := req.Bearer
	if bearer == "" {
		bearer = c.factory.cfg.AnonKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.factory.http.Do(httpReq)
	if err != nil {
		// Network failures surface like any other backend error; no retry here.
		return &domainauth.BackendError{Message: err.Error(), Status: http.StatusServiceUnavailable}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return backendErrorFromResponse(resp)
	}
	if out == nil {
		return nil
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr != nil {
		return &domainauth.BackendError{Message: "malformed backend response: " + decodeErr.Error(), Status: resp.StatusCode}
	}
	return nil
}

// errorPayload covers the error shapes GoTrue responds with across versions.
type errorPayload struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}

func backendErrorFromResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload errorPayload
	message := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &payload); err == nil {
		switch {
		case payload.Msg != "":
			message = payload.Msg
		case payload.Message != "":
			message = payload.Message
		case payload.ErrorDescription != "":
			message = payload.ErrorDescription
		}
	}
	if message == "" {
		message = resp.Status
	}
	return &domainauth.BackendError{Message: message, Status: resp.StatusCode}
}
