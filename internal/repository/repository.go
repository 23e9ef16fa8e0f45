package repository

import (
	"context"

	"github.com/danilgordienko/user-auth-service/internal/models"
)

// User repository interface
type UserRepo interface {
	// Create user with the given roles
	// If user with the login exists already has to return apperrors.ErrUserAlreadyExists
	CreateUser(ctx context.Context, login string, email string, hashedPassword string, roles []string) (models.User, error)

	// Get user by login
	// If user not found must return apperrors.ErrUserNotFound
	GetUserByLogin(ctx context.Context, login string) (models.User, error)

	// Append role to the user role set
	// The caller is expected to check the role is not held yet;
	// the query itself never produces duplicates
	AddRole(ctx context.Context, userID int64, role string) (models.User, error)
}

// RefreshToken repository interface
type RefreshTokenRepo interface {
	// Insert a new non-revoked token record
	Save(ctx context.Context, token models.RefreshToken) (models.RefreshToken, error)

	// Return the record even if it is revoked
	// If no record matches must return apperrors.ErrTokenNotFound
	Get(ctx context.Context, tokenString string) (models.RefreshToken, error)

	// Delete every record owned by the user
	DeleteAllForUser(ctx context.Context, userID int64) error

	// Set the revoked flag. Idempotent, no error if the token is unknown
	SetRevoked(ctx context.Context, tokenString string) error
}

// Storage aggregates the repositories over one db connection or transaction
type Storage interface {
	User() UserRepo
	Refresh() RefreshTokenRepo

	// Run fn within a db transaction
	// The storage passed to fn shares that transaction
	InTx(ctx context.Context, fn func(Storage) error) error
}
