package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/danilgordienko/user-auth-service/internal/apperrors"
	"github.com/danilgordienko/user-auth-service/internal/models"
	"github.com/danilgordienko/user-auth-service/internal/repository"
)

// TokenLedger keeps issued refresh tokens consistent with stored state:
// it persists them, looks them up and flips their revoked flag.
// The codec is only used to read expiry out of the stored token string
type TokenLedger struct {
	codec *TokenCodec
	repo  repository.RefreshTokenRepo
}

func NewTokenLedger(codec *TokenCodec, repo repository.RefreshTokenRepo) *TokenLedger {
	return &TokenLedger{codec: codec, repo: repo}
}

// Store inserts a new non-revoked record owned by the user
func (l *TokenLedger) Store(ctx context.Context, tokenString string, user models.User) error {
	_, err := l.repo.Save(ctx, models.RefreshToken{
		Token:     tokenString,
		UserID:    user.ID,
		CreatedAt: time.Now().Truncate(time.Second),
		Revoked:   false,
	})
	if err != nil {
		return fmt.Errorf("error while saving refresh token. Err: %w", err)
	}
	return nil
}

// Supersede deletes every stored refresh token owned by the user.
// Called on login so earlier sessions can't refresh anymore
func (l *TokenLedger) Supersede(ctx context.Context, user models.User) error {
	err := l.repo.DeleteAllForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("error while superseding refresh tokens. Err: %w", err)
	}
	return nil
}

// Validate checks the token against the ledger
//
// The checks run in a fixed order and the first failing one is reported:
// unknown record (apperrors.ErrTokenNotFound), then expiry of the embedded
// claims (apperrors.ErrTokenExpired), then the stored revoked flag
// (apperrors.ErrTokenAlreadyRevoked)
func (l *TokenLedger) Validate(ctx context.Context, tokenString string) (models.RefreshToken, error) {
	token, err := l.repo.Get(ctx, tokenString)
	if err != nil {
		return token, fmt.Errorf("error while validating token. Err: %w", err)
	}

	claims, err := l.codec.Decode(tokenString)
	if err != nil {
		return token, fmt.Errorf("error while validating token. Err: %w", err)
	}
	if l.codec.IsExpired(claims) {
		return token, fmt.Errorf("error while validating token. Err: %w", apperrors.ErrTokenExpired)
	}

	if token.Revoked {
		return token, fmt.Errorf("error while validating token. Err: %w", apperrors.ErrTokenAlreadyRevoked)
	}

	return token, nil
}

// Revoke marks the record revoked
// Idempotent: revoking an unknown or already revoked token is a silent no-op
func (l *TokenLedger) Revoke(ctx context.Context, tokenString string) error {
	err := l.repo.SetRevoked(ctx, tokenString)
	if err != nil {
		return fmt.Errorf("error while revoking token. Err: %w", err)
	}
	return nil
}

// withRepo returns a ledger bound to another repo, usually one running in a tx
func (l *TokenLedger) withRepo(repo repository.RefreshTokenRepo) *TokenLedger {
	return &TokenLedger{codec: l.codec, repo: repo}
}
