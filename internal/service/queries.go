package service

import (
	"context"
	"errors"
	"time"

	"github.com/quillchat/quill/internal/cache"
	"github.com/quillchat/quill/internal/data"
	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/domain/model"
	"github.com/quillchat/quill/internal/ports"
)

// QueryTTLs holds the freshness windows for the cached query surface.
type QueryTTLs struct {
	// Session bounds how long a session lookup may lag the backend.
	Session time.Duration
	// Entity covers single-entity and per-parent list lookups.
	Entity time.Duration
	// UserByEmail covers the email-existence lookup used by registration.
	UserByEmail time.Duration
}

// DefaultQueryTTLs returns the standard freshness windows.
func DefaultQueryTTLs() QueryTTLs {
	return QueryTTLs{
		Session:     time.Second,
		Entity:      10 * time.Second,
		UserByEmail: time.Hour,
	}
}

func (t QueryTTLs) withDefaults() QueryTTLs {
	def := DefaultQueryTTLs()
	if t.Session <= 0 {
		t.Session = def.Session
	}
	if t.Entity <= 0 {
		t.Entity = def.Entity
	}
	if t.UserByEmail <= 0 {
		t.UserByEmail = def.UserByEmail
	}
	return t
}

// CachedQueries is the read surface of the app: every lookup goes through the
// tagged cache so auth events can invalidate it.
type CachedQueries struct {
	store     *cache.Store
	users     ports.UserRepository
	chats     ports.ChatRepository
	documents ports.DocumentRepository
	ttl       QueryTTLs
}

// CachedQueriesOptions bundles dependencies for NewCachedQueries.
type CachedQueriesOptions struct {
	Store     *cache.Store
	Users     ports.UserRepository
	Chats     ports.ChatRepository
	Documents ports.DocumentRepository
	TTLs      QueryTTLs
}

// NewCachedQueries constructs the cached query surface.
func NewCachedQueries(opts CachedQueriesOptions) *CachedQueries {
	return &CachedQueries{
		store:     opts.Store,
		users:     opts.Users,
		chats:     opts.Chats,
		documents: opts.Documents,
		ttl:       opts.TTLs.withDefaults(),
	}
}

// GetSession returns the current backend user for the request's client. The
// entry is keyed globally, not per user; the one-second TTL and the session
// tag keep it from outliving an auth change.
func (q *CachedQueries) GetSession(ctx context.Context, client ports.IdentityClient) (*domainauth.User, error) {
	return cache.Lookup(ctx, q.store, []string{"session"},
		cache.Options{Tags: []string{TagSession}, TTL: q.ttl.Session},
		func(ctx context.Context) (*domainauth.User, error) {
			return client.GetUser(ctx)
		})
}

// GetUserByID returns the application user with the given backend id.
func (q *CachedQueries) GetUserByID(ctx context.Context, id string) (*domainauth.User, error) {
	return cache.Lookup(ctx, q.store, []string{"user_by_id", idSlice(id)},
		cache.Options{Tags: []string{UserByIDTag(id)}, TTL: q.ttl.Entity},
		func(ctx context.Context) (*domainauth.User, error) {
			return q.users.GetByID(ctx, id)
		})
}

// GetUserByEmail returns the user with the given email, or nil when no such
// user exists. Absence is cached too, so a registration that races this
// lookup can see a stale miss until the tag is invalidated or the TTL lapses.
func (q *CachedQueries) GetUserByEmail(ctx context.Context, email string) (*domainauth.User, error) {
	return cache.Lookup(ctx, q.store, []string{"user", email},
		cache.Options{Tags: []string{UserEmailTag(email)}, TTL: q.ttl.UserByEmail},
		func(ctx context.Context) (*domainauth.User, error) {
			user, err := q.users.GetByEmail(ctx, email)
			if errors.Is(err, data.ErrNotFound) {
				return nil, nil
			}
			return user, err
		})
}

// GetChatByID returns a single chat.
func (q *CachedQueries) GetChatByID(ctx context.Context, id string) (*model.Chat, error) {
	return cache.Lookup(ctx, q.store, []string{"chat", id},
		cache.Options{Tags: []string{ChatTag(id)}, TTL: q.ttl.Entity},
		func(ctx context.Context) (*model.Chat, error) {
			return q.chats.GetByID(ctx, id)
		})
}

// GetChatsByUserID returns a user's chats, most recently updated first.
func (q *CachedQueries) GetChatsByUserID(ctx context.Context, userID string) ([]model.Chat, error) {
	return cache.Lookup(ctx, q.store, []string{"user", userID, "chats"},
		cache.Options{Tags: []string{UserChatsTag(userID)}, TTL: q.ttl.Entity},
		func(ctx context.Context) ([]model.Chat, error) {
			return q.chats.ListByUserID(ctx, userID)
		})
}

// GetMessagesByChatID returns a chat's messages in creation order.
func (q *CachedQueries) GetMessagesByChatID(ctx context.Context, chatID string) ([]model.Message, error) {
	return cache.Lookup(ctx, q.store, []string{"chat", chatID, "messages"},
		cache.Options{Tags: []string{ChatMessagesTag(chatID)}, TTL: q.ttl.Entity},
		func(ctx context.Context) ([]model.Message, error) {
			return q.chats.ListMessages(ctx, chatID)
		})
}

// GetVotesByChatID returns the votes recorded against a chat's messages.
func (q *CachedQueries) GetVotesByChatID(ctx context.Context, chatID string) ([]model.Vote, error) {
	return cache.Lookup(ctx, q.store, []string{"chat", chatID, "votes"},
		cache.Options{Tags: []string{ChatVotesTag(chatID)}, TTL: q.ttl.Entity},
		func(ctx context.Context) ([]model.Vote, error) {
			return q.chats.ListVotes(ctx, chatID)
		})
}

// GetChatWithMessages returns a chat and its messages as one unit.
func (q *CachedQueries) GetChatWithMessages(ctx context.Context, id string) (*model.ChatWithMessages, error) {
	return cache.Lookup(ctx, q.store, []string{"chat", id, "with_messages"},
		cache.Options{Tags: []string{ChatTag(id), ChatMessagesTag(id)}, TTL: q.ttl.Entity},
		func(ctx context.Context) (*model.ChatWithMessages, error) {
			return q.chats.GetWithMessages(ctx, id)
		})
}

// GetDocumentByID returns the latest version of a document.
func (q *CachedQueries) GetDocumentByID(ctx context.Context, id string) (*model.Document, error) {
	return cache.Lookup(ctx, q.store, []string{"document", id},
		cache.Options{Tags: []string{DocumentTag(id)}, TTL: q.ttl.Entity},
		func(ctx context.Context) (*model.Document, error) {
			return q.documents.GetByID(ctx, id)
		})
}

// GetDocumentsByID returns every stored version of a document, oldest first.
func (q *CachedQueries) GetDocumentsByID(ctx context.Context, id string) ([]model.Document, error) {
	return cache.Lookup(ctx, q.store, []string{"document", id, "versions"},
		cache.Options{Tags: []string{DocumentVersionsTag(id)}, TTL: q.ttl.Entity},
		func(ctx context.Context) ([]model.Document, error) {
			return q.documents.ListVersions(ctx, id)
		})
}

// GetSuggestionsByDocumentID returns a document's suggestions.
func (q *CachedQueries) GetSuggestionsByDocumentID(ctx context.Context, documentID string) ([]model.Suggestion, error) {
	return cache.Lookup(ctx, q.store, []string{"document", documentID, "suggestions"},
		cache.Options{Tags: []string{DocumentSuggestionsTag(documentID)}, TTL: q.ttl.Entity},
		func(ctx context.Context) ([]model.Suggestion, error) {
			return q.documents.ListSuggestions(ctx, documentID)
		})
}
