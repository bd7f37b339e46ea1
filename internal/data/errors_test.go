package data

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "nil passes through", err: nil, want: nil},
		{name: "no rows becomes not found", err: pgx.ErrNoRows, want: ErrNotFound},
		{
			name: "unique violation becomes conflict",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation},
			want: ErrConflict,
		},
		{name: "context cancellation passes through", err: context.Canceled, want: context.Canceled},
		{name: "deadline passes through", err: context.DeadlineExceeded, want: context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError("get user by id", tt.err)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestMapErrorWrapsOperationName(t *testing.T) {
	got := mapError("list chats", errors.New("connection reset"))
	require.Error(t, got)
	assert.Contains(t, got.Error(), "list chats: ")
}

func TestMapErrorKeepsOtherPgErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: pgerrcode.SerializationFailure, Message: "could not serialize"}
	got := mapError("vote", pgErr)

	assert.NotErrorIs(t, got, ErrConflict)
	var mapped *pgconn.PgError
	assert.ErrorAs(t, got, &mapped)
}
