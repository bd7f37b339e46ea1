package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillchat/quill/internal/cache"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestStore() (*cache.Store, *fakeClock) {
	clock := newFakeClock()
	repo := cache.NewMemory(clock.Now)
	return cache.NewStore(cache.StoreOptions{Repository: repo, Clock: clock.Now}), clock
}

const testUserID = "ab12cd34-ef56-7890-abcd-ef1234567890"

func TestIDSlice(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		want   string
	}{
		{name: "standard uuid", userID: testUserID, want: "12cd34-ef5"},
		{name: "exactly twelve chars", userID: "0123456789ab", want: "23456789ab"},
		{name: "short id clamps to the tail", userID: "short", want: "ort"},
		{name: "two chars or fewer is empty", userID: "ab", want: ""},
		{name: "empty", userID: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idSlice(tt.userID))
		})
	}
}

func TestInvalidateUserTagSets(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		email     string
		wantScope InvalidationScope
		wantTags  []string
	}{
		{
			name:      "id and email",
			userID:    testUserID,
			email:     "a@example.com",
			wantScope: ScopeUser,
			wantTags: []string{
				"session", "user",
				"user_by_id_12cd34-ef5",
				"user_" + testUserID + "_chats",
				"user_a@example.com",
			},
		},
		{
			name:      "id only",
			userID:    testUserID,
			wantScope: ScopeUser,
			wantTags: []string{
				"session", "user",
				"user_by_id_12cd34-ef5",
				"user_" + testUserID + "_chats",
			},
		},
		{
			name:      "email only",
			email:     "a@example.com",
			wantScope: ScopeUser,
			wantTags:  []string{"session", "user", "user_a@example.com"},
		},
		{
			name:      "unresolved user falls back to globals",
			wantScope: ScopeGlobal,
			wantTags:  []string{"session", "user"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestStore()
			inv := NewCacheInvalidator(CacheInvalidatorOptions{Store: store})

			result, err := inv.InvalidateUser(context.Background(), tt.userID, tt.email)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScope, result.Scope)
			assert.Equal(t, tt.wantTags, result.Tags)
		})
	}
}

func TestInvalidateUserClearsTaggedEntries(t *testing.T) {
	store, clock := newTestStore()
	inv := NewCacheInvalidator(CacheInvalidatorOptions{Store: store})
	ctx := context.Background()

	calls := 0
	lookup := func() {
		_, err := cache.Lookup(ctx, store, []string{"user_by_id", idSlice(testUserID)},
			cache.Options{Tags: []string{UserByIDTag(testUserID)}, TTL: time.Hour},
			func(context.Context) (string, error) {
				calls++
				return "profile", nil
			})
		require.NoError(t, err)
	}

	lookup()
	lookup()
	require.Equal(t, 1, calls)

	clock.Advance(time.Second)
	_, err := inv.InvalidateUser(ctx, testUserID, "")
	require.NoError(t, err)

	lookup()
	assert.Equal(t, 2, calls)
}

func TestInvalidateUserIsRepeatable(t *testing.T) {
	store, _ := newTestStore()
	inv := NewCacheInvalidator(CacheInvalidatorOptions{Store: store})
	ctx := context.Background()

	first, err := inv.InvalidateUser(ctx, testUserID, "a@example.com")
	require.NoError(t, err)
	second, err := inv.InvalidateUser(ctx, testUserID, "a@example.com")
	require.NoError(t, err)

	assert.Equal(t, first.Scope, second.Scope)
	assert.Equal(t, first.Tags, second.Tags)
}
