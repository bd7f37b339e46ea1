package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quillchat/quill/internal/cache"
	"github.com/quillchat/quill/internal/data"
	"github.com/quillchat/quill/internal/domain/model"
	mocks "github.com/quillchat/quill/internal/mocks"
	identitymock "github.com/quillchat/quill/internal/mocks/identity"
	"github.com/quillchat/quill/internal/service"
)

type apiFixture struct {
	handlers *APIHandlers
	source   *identitymock.MockSource
	chats    *mocks.MockChatRepository
	docs     *mocks.MockDocumentRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := cache.NewStore(cache.StoreOptions{Repository: cache.NewMemory(nil)})

	chats := mocks.NewMockChatRepository(ctrl)
	docs := mocks.NewMockDocumentRepository(ctrl)
	queries := service.NewCachedQueries(service.CachedQueriesOptions{
		Store:     store,
		Users:     mocks.NewMockUserRepository(ctrl),
		Chats:     chats,
		Documents: docs,
	})

	source := identitymock.NewMockSource()
	return &apiFixture{
		handlers: &APIHandlers{Queries: queries, Clients: source},
		source:   source,
		chats:    chats,
		docs:     docs,
	}
}

func getWithID(t *testing.T, handler http.HandlerFunc, target, id string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if id != "" {
		req.SetPathValue("id", id)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAPIRequiresSession(t *testing.T) {
	f := newAPIFixture(t)
	f.source.Client.Unauthenticated()

	rec := getWithID(t, f.handlers.Me, "/api/me", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication_required", decodeBody(t, rec)["error"])
}

func TestMeReturnsCurrentUser(t *testing.T) {
	f := newAPIFixture(t)

	rec := getWithID(t, f.handlers.Me, "/api/me", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.source.Client.DefaultUser.Email, decodeBody(t, rec)["email"])
}

func TestListChatsReturnsOwnChats(t *testing.T) {
	f := newAPIFixture(t)
	userID := f.source.Client.DefaultUser.ID
	f.chats.EXPECT().ListByUserID(gomock.Any(), userID).
		Return([]model.Chat{{ID: "c1", UserID: userID, Title: "first"}}, nil)

	rec := getWithID(t, f.handlers.ListChats, "/api/chats", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"first"`)
}

func TestGetChatRejectsForeignChat(t *testing.T) {
	f := newAPIFixture(t)
	f.chats.EXPECT().GetWithMessages(gomock.Any(), "c1").
		Return(&model.ChatWithMessages{Chat: model.Chat{ID: "c1", UserID: "someone-else"}}, nil)

	rec := getWithID(t, f.handlers.GetChat, "/api/chats/c1", "c1")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", decodeBody(t, rec)["error"])
}

func TestGetChatNotFound(t *testing.T) {
	f := newAPIFixture(t)
	f.chats.EXPECT().GetWithMessages(gomock.Any(), "missing").
		Return(nil, fmt.Errorf("get chat: %w", data.ErrNotFound))

	rec := getWithID(t, f.handlers.GetChat, "/api/chats/missing", "missing")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListChatMessagesChecksOwnershipFirst(t *testing.T) {
	f := newAPIFixture(t)
	f.chats.EXPECT().GetByID(gomock.Any(), "c1").
		Return(&model.Chat{ID: "c1", UserID: "someone-else"}, nil)

	rec := getWithID(t, f.handlers.ListChatMessages, "/api/chats/c1/messages", "c1")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListChatMessages(t *testing.T) {
	f := newAPIFixture(t)
	userID := f.source.Client.DefaultUser.ID
	f.chats.EXPECT().GetByID(gomock.Any(), "c1").
		Return(&model.Chat{ID: "c1", UserID: userID}, nil)
	f.chats.EXPECT().ListMessages(gomock.Any(), "c1").
		Return([]model.Message{{ID: "m1", ChatID: "c1", Role: "user", Content: "hi"}}, nil)

	rec := getWithID(t, f.handlers.ListChatMessages, "/api/chats/c1/messages", "c1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"m1"`)
}

func TestGetDocumentQueryFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.docs.EXPECT().GetByID(gomock.Any(), "d1").
		Return(nil, errors.New("database down"))

	rec := getWithID(t, f.handlers.GetDocument, "/api/documents/d1", "d1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeBody(t, rec)["error"])
}

func TestListDocumentVersions(t *testing.T) {
	f := newAPIFixture(t)
	userID := f.source.Client.DefaultUser.ID
	f.docs.EXPECT().GetByID(gomock.Any(), "d1").
		Return(&model.Document{ID: "d1", UserID: userID}, nil)
	f.docs.EXPECT().ListVersions(gomock.Any(), "d1").
		Return([]model.Document{{ID: "d1", UserID: userID, Title: "v1"}}, nil)

	rec := getWithID(t, f.handlers.ListDocumentVersions, "/api/documents/d1/versions", "d1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"v1"`)
}
