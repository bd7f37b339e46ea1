// Package data implements the read queries behind the cached query surface
// using PostgreSQL via the pgx stdlib bridge.
package data

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"

	domainauth "github.com/quillchat/quill/internal/domain/auth"
	"github.com/quillchat/quill/internal/data/pgxutil"
	"github.com/quillchat/quill/internal/ports"
)

// UserRepo reads the application's mirror of identity backend users.
type UserRepo struct {
	DB *sql.DB
}

var _ ports.UserRepository = (*UserRepo)(nil)

// NewUserRepo creates a UserRepo over the given database handle.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

const userColumns = `id, email`

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domainauth.User, error) {
	return r.getOne(ctx, "get user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domainauth.User, error) {
	return r.getOne(ctx, "get user by email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepo) getOne(ctx context.Context, op, query string, arg any) (*domainauth.User, error) {
	var user domainauth.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		return conn.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Email)
	})
	if err != nil {
		return nil, mapError(op, err)
	}
	return &user, nil
}
