package postgres

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danilgordienko/user-auth-service/internal/apperrors"
	"github.com/danilgordienko/user-auth-service/internal/models"
	"github.com/danilgordienko/user-auth-service/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	// Token rows reference users, so each test creates an owner first
	createUser := func(t *testing.T, tx pgx.Tx, login string) models.User {
		userRepo := UserRepo{DB: tx}
		user, err := userRepo.CreateUser(t.Context(), login, login+"@x.com", "hashed", []string{models.RoleGuest})
		require.NoError(t, err)
		return user
	}

	t.Run("save token ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "alice")
			token := models.RefreshToken{
				Token:     "secret-token",
				UserID:    user.ID,
				CreatedAt: mustParseTime("2024-01-01 19:00:01Z"),
			}

			got, err := repo.Save(t.Context(), token)

			require.NoError(t, err)
			require.Equal(t, token.Token, got.Token)
			require.Equal(t, user.ID, got.UserID)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, time.Microsecond)
			require.False(t, got.Revoked, "new record should not be revoked")
		})
	})

	t.Run("get token ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "alice")
			_, err := repo.Save(t.Context(), models.RefreshToken{Token: "secret-token", UserID: user.ID, CreatedAt: time.Now()})
			require.NoError(t, err)

			got, err := repo.Get(t.Context(), "secret-token")

			require.NoError(t, err)
			require.Equal(t, "secret-token", got.Token)
			require.Equal(t, user.ID, got.UserID)
			require.False(t, got.Revoked)
		})
	})

	t.Run("get unknown token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.Get(t.Context(), "never-stored")

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})

	t.Run("get returns revoked records too", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "alice")
			_, err := repo.Save(t.Context(), models.RefreshToken{Token: "secret-token", UserID: user.ID, CreatedAt: time.Now()})
			require.NoError(t, err)
			require.NoError(t, repo.SetRevoked(t.Context(), "secret-token"))

			got, err := repo.Get(t.Context(), "secret-token")

			require.NoError(t, err, "revocation marks the record, it must stay readable")
			require.True(t, got.Revoked)
		})
	})

	t.Run("set revoked is idempotent", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			user := createUser(t, tx, "alice")
			_, err := repo.Save(t.Context(), models.RefreshToken{Token: "secret-token", UserID: user.ID, CreatedAt: time.Now()})
			require.NoError(t, err)

			require.NoError(t, repo.SetRevoked(t.Context(), "secret-token"))
			require.NoError(t, repo.SetRevoked(t.Context(), "secret-token"))
			require.NoError(t, repo.SetRevoked(t.Context(), "unknown-token"), "revoking unknown token is a silent no-op")
		})
	})

	t.Run("delete all for user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			alice := createUser(t, tx, "alice")
			bob := createUser(t, tx, "bob")

			for _, token := range []models.RefreshToken{
				{Token: "alice-1", UserID: alice.ID, CreatedAt: time.Now()},
				{Token: "alice-2", UserID: alice.ID, CreatedAt: time.Now()},
				{Token: "bob-1", UserID: bob.ID, CreatedAt: time.Now()},
			} {
				_, err := repo.Save(t.Context(), token)
				require.NoError(t, err)
			}

			require.NoError(t, repo.DeleteAllForUser(t.Context(), alice.ID))

			_, err := repo.Get(t.Context(), "alice-1")
			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
			_, err = repo.Get(t.Context(), "alice-2")
			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)

			_, err = repo.Get(t.Context(), "bob-1")
			assert.NoError(t, err, "other users records should survive")
		})
	})
}
