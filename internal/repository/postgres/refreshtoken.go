package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/danilgordienko/user-auth-service/internal/apperrors"
	"github.com/danilgordienko/user-auth-service/internal/models"
)

type RefreshTokenRepo struct {
	DB DBTX
}

const saveToken = `-- name: SaveRefreshToken
INSERT INTO refresh_tokens (token, user_id, created_at, revoked)
VALUES ($1, $2, $3, $4)
RETURNING token, user_id, created_at, revoked
`

func (r *RefreshTokenRepo) Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, saveToken, token.Token, token.UserID, token.CreatedAt, token.Revoked)
	saved, err := pgx.CollectOneRow(rows, rowToRefreshToken)
	if err != nil {
		return saved, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

const getToken = `-- name: GetRefreshToken
SELECT token, user_id, created_at, revoked
FROM refresh_tokens
WHERE token = $1
`

// Get the record by the token string itself
// Revoked records are returned too: telling "revoked" from "unknown" is the caller's job
func (r *RefreshTokenRepo) Get(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	rows, _ := r.DB.Query(ctx, getToken, tokenString)
	token, err := pgx.CollectOneRow(rows, rowToRefreshToken)

	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, pgx.ErrNoRows):
		return token, fmt.Errorf("repo error: %w", apperrors.ErrTokenNotFound)
	default:
		return token, fmt.Errorf("db error: %w", err)
	}
}

const deleteAllForUser = `-- name: DeleteAllRefreshTokensForUser
DELETE FROM refresh_tokens
WHERE user_id = $1
`

func (r *RefreshTokenRepo) DeleteAllForUser(ctx context.Context, userID int64) error {
	_, err := r.DB.Exec(ctx, deleteAllForUser, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

const setRevoked = `-- name: SetRefreshTokenRevoked
UPDATE refresh_tokens
SET revoked = TRUE
WHERE token = $1
`

// Mark the record revoked
// Idempotent: revoking a revoked or unknown token is not an error here
func (r *RefreshTokenRepo) SetRevoked(ctx context.Context, tokenString string) error {
	_, err := r.DB.Exec(ctx, setRevoked, tokenString)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func rowToRefreshToken(row pgx.CollectableRow) (models.RefreshToken, error) {
	var t models.RefreshToken
	err := row.Scan(&t.Token, &t.UserID, &t.CreatedAt, &t.Revoked)
	return t, err
}
