package gotrue

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gooidc "github.com/coreos/go-oidc/v3/oidc"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/ports"
)

// Verifier checks backend-issued access tokens locally against the backend's
// JWKS. It serves best-effort user resolution on invalidation paths where a
// network round trip is not worth it; access-control decisions still go
// through GetUser.
type Verifier struct {
	verifier *gooidc.IDTokenVerifier
}

var _ ports.TokenVerifier = (*Verifier)(nil)

// VerifierConfig holds configuration for local token verification.
type VerifierConfig struct {
	// BaseURL is the backend auth root; also the JWT issuer.
	BaseURL string
	// HTTPClient is optional and used for JWKS fetches.
	HTTPClient *http.Client
}

// NewVerifier constructs a Verifier backed by the backend's remote key set.
func NewVerifier(ctx context.Context, cfg VerifierConfig) (*Verifier, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gotrue: verifier BaseURL is required")
	}
	issuer := strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		ctx = gooidc.ClientContext(ctx, cfg.HTTPClient)
	}
	keySet := gooidc.NewRemoteKeySet(ctx, issuer+"/.well-known/jwks.json")
	verifier := gooidc.NewVerifier(issuer, keySet, &gooidc.Config{
		// Access tokens carry the backend's fixed "authenticated" audience,
		// not a client ID.
		SkipClientIDCheck: true,
	})
	return &Verifier{verifier: verifier}, nil
}

// accessTokenClaims is the subset of GoTrue access-token claims quill reads.
type accessTokenClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// Verify validates signature and expiry and returns the token's user.
func (v *Verifier) Verify(ctx context.Context, accessToken string) (*domainauth.User, error) {
	if accessToken == "" {
		return nil, &domainauth.BackendError{Message: "no access token", Status: http.StatusUnauthorized}
	}
	token, err := v.verifier.Verify(ctx, accessToken)
	if err != nil {
		return nil, &domainauth.BackendError{Message: "invalid access token: " + err.Error(), Status: http.StatusUnauthorized}
	}
	var claims accessTokenClaims
	if claimsErr := token.Claims(&claims); claimsErr != nil {
		return nil, fmt.Errorf("parse access token claims: %w", claimsErr)
	}
	return &domainauth.User{
		ID:       token.Subject,
		Email:    claims.Email,
		Metadata: claims.UserMetadata,
	}, nil
}

// AccessTokenFromRequest pulls the raw access token cookie off a request for
// use with Verify. Returns the empty string when absent.
func AccessTokenFromRequest(r *http.Request) string {
	if ck, err := r.Cookie(AccessTokenCookie); err == nil {
		return ck.Value
	}
	return ""
}
