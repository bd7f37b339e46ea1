// Package auth contains domain-level types for identity and sessions.
// It is pure and free of framework/adapter concerns.
package auth

import (
	"fmt"
	"time"
)

// User is the authenticated principal as reported by the identity backend.
// The backend owns this record; quill never mutates it.
type User struct {
	// ID is the backend's opaque, stable user identifier.
	ID    string `json:"id"`
	Email string `json:"email"`

	// DisplayName and AvatarURL are derived from the backend's
	// user_metadata payload via configured mapping expressions.
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	// Metadata is the raw user_metadata object from the backend.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Session is the token pair the identity backend issues for a signed-in user.
// quill never persists it; it only rides in cookies between requests.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token has passed its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// BackendError is a failure reported by the identity backend. The message and
// status are carried for client display but never interpreted further here:
// wrong credentials and a provider outage look the same to callers.
type BackendError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("identity backend: %s (status %d)", e.Message, e.Status)
}
