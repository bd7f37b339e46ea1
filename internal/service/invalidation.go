// Package service orchestrates auth actions, the cached query surface, and
// cache invalidation on auth state changes.
package service

import (
	"context"
	"log/slog"

	"github.com/quillchat/quill/internal/cache"
)

// Tag names shared by the cached query surface and the invalidator.
const (
	// TagSession covers the session lookup; cleared on every auth event.
	TagSession = "session"
	// TagUser covers generic user state; cleared on every auth event.
	TagUser = "user"
)

// idSliceStart/End bound the fixed-length slice of the backend user id used
// in per-user tags. The backend's id format is uniform enough that this
// substring stays unique per user in practice; that is an assumption about
// the provider, not a guarantee.
const (
	idSliceStart = 2
	idSliceEnd   = 12
)

func idSlice(userID string) string {
	switch {
	case len(userID) <= idSliceStart:
		return ""
	case len(userID) < idSliceEnd:
		return userID[idSliceStart:]
	default:
		return userID[idSliceStart:idSliceEnd]
	}
}

// UserByIDTag names the cache tag for user-by-id lookups.
func UserByIDTag(userID string) string { return "user_by_id_" + idSlice(userID) }

// UserChatsTag names the cache tag for a user's chat list.
func UserChatsTag(userID string) string { return "user_" + userID + "_chats" }

// UserEmailTag names the cache tag for user-by-email lookups.
func UserEmailTag(email string) string { return "user_" + email }

// ChatTag names the cache tag for a single chat.
func ChatTag(chatID string) string { return "chat_" + chatID }

// ChatMessagesTag names the cache tag for a chat's messages.
func ChatMessagesTag(chatID string) string { return "chat_" + chatID + "_messages" }

// ChatVotesTag names the cache tag for a chat's votes.
func ChatVotesTag(chatID string) string { return "chat_" + chatID + "_votes" }

// DocumentTag names the cache tag for a single document.
func DocumentTag(documentID string) string { return "document_" + documentID }

// DocumentVersionsTag names the cache tag for a document's version history.
func DocumentVersionsTag(documentID string) string { return "document_" + documentID + "_versions" }

// DocumentSuggestionsTag names the cache tag for a document's suggestions.
func DocumentSuggestionsTag(documentID string) string { return "document_" + documentID + "_suggestions" }

// InvalidationScope records how far an invalidation reached.
type InvalidationScope string

const (
	// ScopeGlobal means only the global session/user tags were cleared
	// because the acting user could not be resolved. User-specific stale
	// entries self-expire within their TTL, worst case one hour for the
	// email-existence cache.
	ScopeGlobal InvalidationScope = "global"
	// ScopeUser means user-specific tags were cleared as well.
	ScopeUser InvalidationScope = "user"
)

// InvalidationResult reports which tags an invalidation cleared, so degraded
// (global-only) paths are observable instead of silent.
type InvalidationResult struct {
	Scope InvalidationScope
	Tags  []string
}

// CacheInvalidator clears every cache tag that could hold stale data for a
// user after an auth state change.
type CacheInvalidator struct {
	store  *cache.Store
	logger *slog.Logger
}

// CacheInvalidatorOptions bundles dependencies for NewCacheInvalidator.
type CacheInvalidatorOptions struct {
	Store  *cache.Store
	Logger *slog.Logger
}

// NewCacheInvalidator constructs a CacheInvalidator.
func NewCacheInvalidator(opts CacheInvalidatorOptions) *CacheInvalidator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheInvalidator{store: opts.Store, logger: logger}
}

// InvalidateUser clears the global session/user tags and, when the id or
// email is known, the matching user-specific tags. A missing id or email
// skips only its own tags. Safe to call repeatedly; re-invalidating is a
// no-op for observable cache state.
func (c *CacheInvalidator) InvalidateUser(ctx context.Context, userID, email string) (InvalidationResult, error) {
	tags := []string{TagSession, TagUser}
	scope := ScopeGlobal
	if userID != "" {
		tags = append(tags, UserByIDTag(userID), UserChatsTag(userID))
		scope = ScopeUser
	}
	if email != "" {
		tags = append(tags, UserEmailTag(email))
		scope = ScopeUser
	}

	result := InvalidationResult{Scope: scope, Tags: tags}
	if err := c.store.InvalidateTags(ctx, tags...); err != nil {
		c.logger.WarnContext(ctx, "cache invalidation incomplete", "scope", scope, "error", err)
		return result, err
	}
	return result, nil
}
