package data

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	"github.com/quillchat/quill/internal/data/pgxutil"
	"github.com/quillchat/quill/internal/domain/model"
	"github.com/quillchat/quill/internal/ports"
)

// DocumentRepo reads documents, their version history, and suggestions.
type DocumentRepo struct {
	DB *sql.DB
}

var _ ports.DocumentRepository = (*DocumentRepo)(nil)

// NewDocumentRepo creates a DocumentRepo over the given database handle.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{DB: db}
}

const documentColumns = `id, user_id, title, content, created_at`

// GetByID returns the latest version of a document.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*model.Document, error) {
	var doc model.Document
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = $1 ORDER BY created_at DESC LIMIT 1`, id).
			Scan(&doc.ID, &doc.UserID, &doc.Title, &doc.Content, &doc.CreatedAt)
	})
	if err != nil {
		return nil, mapError("get document by id", err)
	}
	return &doc, nil
}

// ListVersions returns every stored version of a document, oldest first.
func (r *DocumentRepo) ListVersions(ctx context.Context, id string) ([]model.Document, error) {
	var docs []model.Document
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT `+documentColumns+` FROM documents WHERE id = $1 ORDER BY created_at ASC`, id)
		if err != nil {
			return err
		}
		docs, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.Document])
		return err
	})
	if err != nil {
		return nil, mapError("list document versions", err)
	}
	return docs, nil
}

func (r *DocumentRepo) ListSuggestions(ctx context.Context, documentID string) ([]model.Suggestion, error) {
	var suggestions []model.Suggestion
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT id, document_id, user_id, original_text, suggested_text, description, is_resolved, created_at
			 FROM suggestions WHERE document_id = $1 ORDER BY created_at ASC`, documentID)
		if err != nil {
			return err
		}
		suggestions, err = pgx.CollectRows(rows, pgx.RowToStructByPos[model.Suggestion])
		return err
	})
	if err != nil {
		return nil, mapError("list suggestions by document", err)
	}
	return suggestions, nil
}
