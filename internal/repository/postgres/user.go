package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/danilgordienko/user-auth-service/internal/apperrors"
	"github.com/danilgordienko/user-auth-service/internal/models"
)

type UserRepo struct {
	DB DBTX
}

const createUser = `-- name: CreateUser
INSERT INTO users (login, email, password_hash, roles)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at, login, email, password_hash, roles
`

func (r *UserRepo) CreateUser(ctx context.Context, login string, email string, hashedPassword string, roles []string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, createUser, login, email, hashedPassword, roles)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return user, apperrors.ErrUserAlreadyExists
		}

		return user, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

const getUserByLogin = `-- name: GetUserByLogin
SELECT id, created_at, login, email, password_hash, roles
FROM users
WHERE login = $1
`

func (r *UserRepo) GetUserByLogin(ctx context.Context, login string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, getUserByLogin, login)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		return user, apperrors.ErrUserNotFound
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

const addRole = `-- name: AddRole
UPDATE users
SET roles = array_append(roles, $2)
WHERE id = $1 AND NOT (roles @> ARRAY[$2])
RETURNING id, created_at, login, email, password_hash, roles
`

// Append role to the user role set
// The '@>' guard keeps the set duplicate free even if two calls race
func (r *UserRepo) AddRole(ctx context.Context, userID int64, role string) (models.User, error) {
	rows, _ := r.DB.Query(ctx, addRole, userID, role)
	user, err := pgx.CollectOneRow(rows, rowToUser)

	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, pgx.ErrNoRows):
		// The user was loaded by the caller a moment ago, so the only
		// way to match no row is the role being there already
		return user, apperrors.ErrRoleAlreadyAssigned
	default:
		return user, fmt.Errorf("db error: %w", err)
	}
}

func rowToUser(row pgx.CollectableRow) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.CreatedAt, &u.Login, &u.Email, &u.HashedPassword, &u.Roles)
	return u, err
}
