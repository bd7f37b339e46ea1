package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/quillchat/quill/internal/cache"
	"github.com/quillchat/quill/internal/data"
	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/domain/model"
	mocks "github.com/quillchat/quill/internal/mocks"
	identitymock "github.com/quillchat/quill/internal/mocks/identity"
)

type queriesFixture struct {
	queries   *CachedQueries
	store     *cache.Store
	clock     *fakeClock
	users     *mocks.MockUserRepository
	chats     *mocks.MockChatRepository
	documents *mocks.MockDocumentRepository
}

func newQueriesFixture(t *testing.T) *queriesFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store, clock := newTestStore()

	users := mocks.NewMockUserRepository(ctrl)
	chats := mocks.NewMockChatRepository(ctrl)
	documents := mocks.NewMockDocumentRepository(ctrl)

	queries := NewCachedQueries(CachedQueriesOptions{
		Store:     store,
		Users:     users,
		Chats:     chats,
		Documents: documents,
	})
	return &queriesFixture{
		queries:   queries,
		store:     store,
		clock:     clock,
		users:     users,
		chats:     chats,
		documents: documents,
	}
}

func TestGetSessionCachesForOneSecond(t *testing.T) {
	f := newQueriesFixture(t)
	ctx := context.Background()
	client := identitymock.NewMockClient()

	_, err := f.queries.GetSession(ctx, client)
	require.NoError(t, err)
	_, err = f.queries.GetSession(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, 1, client.GetUserCalls, "session lookups within the TTL hit the cache")

	f.clock.Advance(1100 * time.Millisecond)
	_, err = f.queries.GetSession(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, 2, client.GetUserCalls)
}

func TestGetUserByIDUsesSlicedKey(t *testing.T) {
	f := newQueriesFixture(t)
	ctx := context.Background()

	want := &domainauth.User{ID: testUserID, Email: "a@example.com"}
	f.users.EXPECT().GetByID(gomock.Any(), testUserID).Return(want, nil).Times(1)

	got, err := f.queries.GetUserByID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Cache hit: repository is not consulted again.
	got, err = f.queries.GetUserByID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGetUserByEmailCachesAbsence(t *testing.T) {
	f := newQueriesFixture(t)
	ctx := context.Background()

	f.users.EXPECT().GetByEmail(gomock.Any(), "new@example.com").
		Return(nil, fmt.Errorf("get user by email: %w", data.ErrNotFound)).
		Times(1)

	got, err := f.queries.GetUserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)

	// The miss is cached: a second check within the hour does not touch the
	// database.
	got, err = f.queries.GetUserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetUserByEmailStaleMissWindow(t *testing.T) {
	f := newQueriesFixture(t)
	ctx := context.Background()
	email := "new@example.com"

	gomock.InOrder(
		f.users.EXPECT().GetByEmail(gomock.Any(), email).
			Return(nil, fmt.Errorf("get user by email: %w", data.ErrNotFound)),
		f.users.EXPECT().GetByEmail(gomock.Any(), email).
			Return(&domainauth.User{ID: testUserID, Email: email}, nil),
	)

	got, err := f.queries.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Invalidating the email tag ends the stale-miss window early.
	inv := NewCacheInvalidator(CacheInvalidatorOptions{Store: f.store})
	f.clock.Advance(time.Second)
	_, err = inv.InvalidateUser(ctx, "", email)
	require.NoError(t, err)

	got, err = f.queries.GetUserByEmail(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, email, got.Email)
}

func TestGetChatsByUserIDInvalidatedByUserTags(t *testing.T) {
	f := newQueriesFixture(t)
	ctx := context.Background()

	chats := []model.Chat{{ID: "c1", UserID: testUserID, Title: "first"}}
	f.chats.EXPECT().ListByUserID(gomock.Any(), testUserID).Return(chats, nil).Times(2)

	got, err := f.queries.GetChatsByUserID(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, chats, got)

	// Cache hit.
	_, err = f.queries.GetChatsByUserID(ctx, testUserID)
	require.NoError(t, err)

	inv := NewCacheInvalidator(CacheInvalidatorOptions{Store: f.store})
	f.clock.Advance(time.Second)
	_, err = inv.InvalidateUser(ctx, testUserID, "")
	require.NoError(t, err)

	// Recomputed after invalidation (second EXPECT call).
	_, err = f.queries.GetChatsByUserID(ctx, testUserID)
	require.NoError(t, err)
}

func TestGetChatWithMessagesSharesChatTags(t *testing.T) {
	f := newQueriesFixture(t)
	ctx := context.Background()

	combined := &model.ChatWithMessages{
		Chat:     model.Chat{ID: "c1", UserID: testUserID},
		Messages: []model.Message{{ID: "m1", ChatID: "c1", Role: "user", Content: "hi"}},
	}
	f.chats.EXPECT().GetWithMessages(gomock.Any(), "c1").Return(combined, nil).Times(2)

	_, err := f.queries.GetChatWithMessages(ctx, "c1")
	require.NoError(t, err)

	// Invalidating the chat's message tag alone forces a recompute since the
	// combined entry carries both chat tags.
	f.clock.Advance(time.Second)
	require.NoError(t, f.store.InvalidateTags(ctx, ChatMessagesTag("c1")))

	_, err = f.queries.GetChatWithMessages(ctx, "c1")
	require.NoError(t, err)
}

func TestGetDocumentsByIDCachesVersionList(t *testing.T) {
	f := newQueriesFixture(t)
	ctx := context.Background()

	versions := []model.Document{
		{ID: "d1", UserID: testUserID, Title: "v1"},
		{ID: "d1", UserID: testUserID, Title: "v2"},
	}
	f.documents.EXPECT().ListVersions(gomock.Any(), "d1").Return(versions, nil).Times(1)

	got, err := f.queries.GetDocumentsByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, versions, got)

	got, err = f.queries.GetDocumentsByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, versions, got)
}

func TestEntityLookupsExpireAfterTenSeconds(t *testing.T) {
	f := newQueriesFixture(t)
	ctx := context.Background()

	doc := &model.Document{ID: "d1", UserID: testUserID, Title: "doc"}
	f.documents.EXPECT().GetByID(gomock.Any(), "d1").Return(doc, nil).Times(2)

	_, err := f.queries.GetDocumentByID(ctx, "d1")
	require.NoError(t, err)

	f.clock.Advance(9 * time.Second)
	_, err = f.queries.GetDocumentByID(ctx, "d1")
	require.NoError(t, err)

	f.clock.Advance(2 * time.Second)
	_, err = f.queries.GetDocumentByID(ctx, "d1")
	require.NoError(t, err)
}
