package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/quillchat/quill/internal/data"
	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/ports"
	"github.com/quillchat/quill/internal/service"
)

var errLoginRequired = errors.New("authentication required")

// APIHandlers serves the cached read surface over JSON. Every lookup goes
// through CachedQueries, so responses reflect cache staleness bounds rather
// than live database state.
type APIHandlers struct {
	Queries *service.CachedQueries
	Clients ports.ClientSource
	Logger  *slog.Logger
}

func (h *APIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// currentUser resolves the request's user via the cached session lookup.
// Returns nil with a 401 already written when there is no live session.
func (h *APIHandlers) currentUser(w http.ResponseWriter, r *http.Request) *domainauth.User {
	client := h.Clients.ForRequest(r)
	user, err := h.Queries.GetSession(r.Context(), client)
	if err != nil || user == nil {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required", Err: errLoginRequired})
		return nil
	}
	return user
}

// Me returns the current user.
// GET /api/me.
func (h *APIHandlers) Me(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	WriteJSON(w, http.StatusOK, user)
}

// ListChats returns the current user's chats.
// GET /api/chats.
func (h *APIHandlers) ListChats(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	chats, err := h.Queries.GetChatsByUserID(r.Context(), user.ID)
	if err != nil {
		h.writeQueryError(w, r, "list chats", err)
		return
	}
	WriteJSON(w, http.StatusOK, chats)
}

// GetChat returns a chat with its messages.
// GET /api/chats/{id}.
func (h *APIHandlers) GetChat(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	chat, err := h.Queries.GetChatWithMessages(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeQueryError(w, r, "get chat", err)
		return
	}
	if chat.Chat.UserID != user.ID {
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: errors.New("chat belongs to another user")})
		return
	}
	WriteJSON(w, http.StatusOK, chat)
}

// ListChatMessages returns a chat's messages.
// GET /api/chats/{id}/messages.
func (h *APIHandlers) ListChatMessages(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	chatID := r.PathValue("id")
	if !h.ownsChat(w, r, user, chatID) {
		return
	}
	messages, err := h.Queries.GetMessagesByChatID(r.Context(), chatID)
	if err != nil {
		h.writeQueryError(w, r, "list messages", err)
		return
	}
	WriteJSON(w, http.StatusOK, messages)
}

// ListChatVotes returns the votes on a chat's messages.
// GET /api/chats/{id}/votes.
func (h *APIHandlers) ListChatVotes(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	chatID := r.PathValue("id")
	if !h.ownsChat(w, r, user, chatID) {
		return
	}
	votes, err := h.Queries.GetVotesByChatID(r.Context(), chatID)
	if err != nil {
		h.writeQueryError(w, r, "list votes", err)
		return
	}
	WriteJSON(w, http.StatusOK, votes)
}

// GetDocument returns the latest version of a document.
// GET /api/documents/{id}.
func (h *APIHandlers) GetDocument(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	doc, err := h.Queries.GetDocumentByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeQueryError(w, r, "get document", err)
		return
	}
	if doc.UserID != user.ID {
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: errors.New("document belongs to another user")})
		return
	}
	WriteJSON(w, http.StatusOK, doc)
}

// ListDocumentVersions returns every stored version of a document.
// GET /api/documents/{id}/versions.
func (h *APIHandlers) ListDocumentVersions(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	id := r.PathValue("id")
	if !h.ownsDocument(w, r, user, id) {
		return
	}
	versions, err := h.Queries.GetDocumentsByID(r.Context(), id)
	if err != nil {
		h.writeQueryError(w, r, "list document versions", err)
		return
	}
	WriteJSON(w, http.StatusOK, versions)
}

// ListDocumentSuggestions returns a document's suggestions.
// GET /api/documents/{id}/suggestions.
func (h *APIHandlers) ListDocumentSuggestions(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	id := r.PathValue("id")
	if !h.ownsDocument(w, r, user, id) {
		return
	}
	suggestions, err := h.Queries.GetSuggestionsByDocumentID(r.Context(), id)
	if err != nil {
		h.writeQueryError(w, r, "list suggestions", err)
		return
	}
	WriteJSON(w, http.StatusOK, suggestions)
}

func (h *APIHandlers) ownsChat(w http.ResponseWriter, r *http.Request, user *domainauth.User, chatID string) bool {
	chat, err := h.Queries.GetChatByID(r.Context(), chatID)
	if err != nil {
		h.writeQueryError(w, r, "get chat", err)
		return false
	}
	if chat.UserID != user.ID {
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: errors.New("chat belongs to another user")})
		return false
	}
	return true
}

func (h *APIHandlers) ownsDocument(w http.ResponseWriter, r *http.Request, user *domainauth.User, id string) bool {
	doc, err := h.Queries.GetDocumentByID(r.Context(), id)
	if err != nil {
		h.writeQueryError(w, r, "get document", err)
		return false
	}
	if doc.UserID != user.ID {
		WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "forbidden", Err: errors.New("document belongs to another user")})
		return false
	}
	return true
}

func (h *APIHandlers) writeQueryError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, data.ErrNotFound) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: err})
		return
	}
	h.logger().ErrorContext(r.Context(), op+" failed", "error", err)
	WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: errors.New(op + " failed")})
}
