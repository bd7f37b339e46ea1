package ports

import (
	"context"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/domain/model"
)

// UserRepository reads application user rows. The identity backend remains the
// record of truth for credentials; these rows mirror id/email for joins.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domainauth.User, error)
	GetByEmail(ctx context.Context, email string) (*domainauth.User, error)
}

// ChatRepository reads chats and their dependent rows.
type ChatRepository interface {
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	ListByUserID(ctx context.Context, userID string) ([]model.Chat, error)
	ListMessages(ctx context.Context, chatID string) ([]model.Message, error)
	ListVotes(ctx context.Context, chatID string) ([]model.Vote, error)
	GetWithMessages(ctx context.Context, id string) (*model.ChatWithMessages, error)
}

// DocumentRepository reads documents and their version history.
type DocumentRepository interface {
	GetByID(ctx context.Context, id string) (*model.Document, error)
	ListVersions(ctx context.Context, id string) ([]model.Document, error)
	ListSuggestions(ctx context.Context, documentID string) ([]model.Suggestion, error)
}
