package gotrue

import (
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
)

// MetadataConfig selects which user_metadata fields feed the profile.
// Expressions are JMESPath; empty expressions fall back to the defaults,
// which match what common social providers put in user_metadata.
type MetadataConfig struct {
	DisplayNameExpr string
	AvatarURLExpr   string
}

const (
	defaultDisplayNameExpr = "full_name || name"
	defaultAvatarURLExpr   = "avatar_url || picture"
)

// MetadataMapper maps a backend user payload into the domain User shape.
type MetadataMapper struct {
	displayName string
	avatarURL   string
}

// NewMetadataMapper validates the configured expressions.
func NewMetadataMapper(cfg MetadataConfig) (*MetadataMapper, error) {
	displayName := cfg.DisplayNameExpr
	if strings.TrimSpace(displayName) == "" {
		displayName = defaultDisplayNameExpr
	}
	avatarURL := cfg.AvatarURLExpr
	if strings.TrimSpace(avatarURL) == "" {
		avatarURL = defaultAvatarURLExpr
	}
	for _, expr := range []string{displayName, avatarURL} {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("compile expression %q: %w", expr, err)
		}
	}
	return &MetadataMapper{displayName: displayName, avatarURL: avatarURL}, nil
}

// MapUser builds the domain user, deriving profile fields from metadata.
func (m *MetadataMapper) MapUser(id, email string, metadata map[string]any) domainauth.User {
	user := domainauth.User{ID: id, Email: email, Metadata: metadata}
	if len(metadata) == 0 {
		return user
	}
	user.DisplayName = m.evalString(m.displayName, metadata)
	user.AvatarURL = m.evalString(m.avatarURL, metadata)
	return user
}

func (m *MetadataMapper) evalString(expr string, data map[string]any) string {
	result, err := jmespath.Search(expr, data)
	if err != nil {
		return ""
	}
	if s, ok := result.(string); ok {
		return s
	}
	return ""
}
