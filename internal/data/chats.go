package data

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/quillchat/quill/internal/data/pgxutil"
	"github.com/quillchat/quill/internal/domain/model"
	"github.com/quillchat/quill/internal/ports"
)

// ChatRepo reads chats, messages, and votes.
type ChatRepo struct {
	DB *sql.DB
}

var _ ports.ChatRepository = (*ChatRepo)(nil)

// NewChatRepo creates a ChatRepo over the given database handle.
func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{DB: db}
}

const chatColumns = `id, user_id, title, created_at, updated_at`

func (r *ChatRepo) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	var chat model.Chat
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats WHERE id = $1`, id).
			Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt)
	})
	if err != nil {
		return nil, mapError("get chat by id", err)
	}
	return &chat, nil
}

func (r *ChatRepo) ListByUserID(ctx context.Context, userID string) ([]model.Chat, error) {
	var chats []model.Chat
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+chatColumns+` FROM chats WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
		if err != nil {
			return err
		}
		chats, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.Chat])
		return err
	})
	if err != nil {
		return nil, mapError("list chats by user", err)
	}
	return chats, nil
}

func (r *ChatRepo) ListMessages(ctx context.Context, chatID string) ([]model.Message, error) {
	var messages []model.Message
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = $1 ORDER BY created_at ASC`,
			chatID)
		if err != nil {
			return err
		}
		messages, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.Message])
		return err
	})
	if err != nil {
		return nil, mapError("list messages by chat", err)
	}
	return messages, nil
}

func (r *ChatRepo) ListVotes(ctx context.Context, chatID string) ([]model.Vote, error) {
	var votes []model.Vote
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT chat_id, message_id, is_upvoted FROM votes WHERE chat_id = $1`, chatID)
		if err != nil {
			return err
		}
		votes, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.Vote])
		return err
	})
	if err != nil {
		return nil, mapError("list votes by chat", err)
	}
	return votes, nil
}

func (r *ChatRepo) GetWithMessages(ctx context.Context, id string) (*model.ChatWithMessages, error) {
	chat, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	messages, err := r.ListMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ChatWithMessages{Chat: *chat, Messages: messages}, nil
}
