package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danilgordienko/user-auth-service/internal/apperrors"
	"github.com/danilgordienko/user-auth-service/internal/models"
)

// Base64 of 32 test bytes, strong enough for the codec
const testSecretKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

var testUser = models.User{
	ID:             42,
	Login:          "alice",
	Email:          "a@x.com",
	HashedPassword: "hashed_password",
	Roles:          []string{models.RoleGuest},
}

func Test_TokenCodec_New(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		c, err := NewTokenCodec(CodecConfig{SecretKey: testSecretKey})
		require.NoError(t, err)

		require.Equal(t, defaultAccessTokenTTL, c.accessTTL, "default access token TTL should be set")
		require.Equal(t, defaultRefreshTokenTTL, c.refreshTTL, "default refresh token TTL should be set")
		require.Equal(t, defaultSigningMethod, c.alg.Alg(), "default signing method should be set")
	})

	t.Run("not base64 secret", func(t *testing.T) {
		_, err := NewTokenCodec(CodecConfig{SecretKey: "definitely-not-base64!!!"})
		require.Error(t, err)
	})

	t.Run("weak secret", func(t *testing.T) {
		// 16 bytes only, below the 32 byte minimum
		_, err := NewTokenCodec(CodecConfig{SecretKey: "MDEyMzQ1Njc4OWFiY2RlZg=="})

		require.Error(t, err)
		require.ErrorContains(t, err, "too weak")
	})
}

func Test_TokenCodec_Issue(t *testing.T) {
	t.Parallel()

	codec, err := NewTokenCodec(CodecConfig{
		SecretKey:  testSecretKey,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	})
	require.NoError(t, err)

	t.Run("access claims round trip", func(t *testing.T) {
		token, err := codec.IssueAccess(testUser)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := codec.Decode(token)
		require.NoError(t, err)

		assert.Equal(t, "alice", claims.Subject, "subject should be the login")
		assert.Equal(t, []string{models.RoleGuest}, claims.Roles)
		assert.Equal(t, int64(42), claims.UserID, "access token should carry user id")
		assert.Equal(t, "a@x.com", claims.Email, "access token should carry email")
		assert.NotEmpty(t, claims.ID, "token has to has jti")
		assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Second)
		assert.False(t, codec.IsExpired(claims))
	})

	t.Run("refresh claims round trip", func(t *testing.T) {
		token, err := codec.IssueRefresh(testUser)
		require.NoError(t, err)

		claims, err := codec.Decode(token)
		require.NoError(t, err)

		assert.Equal(t, "alice", claims.Subject)
		assert.Equal(t, []string{models.RoleGuest}, claims.Roles)
		assert.Zero(t, claims.UserID, "refresh token should not carry user id")
		assert.Empty(t, claims.Email, "refresh token should not carry email")
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Second)
	})

	t.Run("every call produces a distinct token", func(t *testing.T) {
		first, err := codec.IssueAccess(testUser)
		require.NoError(t, err)
		second, err := codec.IssueAccess(testUser)
		require.NoError(t, err)

		assert.NotEqual(t, first, second, "jti makes tokens distinct even for identical claims")
	})
}

func Test_TokenCodec_Decode(t *testing.T) {
	t.Parallel()

	codec, err := NewTokenCodec(CodecConfig{SecretKey: testSecretKey})
	require.NoError(t, err)

	t.Run("malformed token", func(t *testing.T) {
		_, err := codec.Decode("not-even-close-to-a-jwt")

		require.Error(t, err)
		require.ErrorIs(t, err, apperrors.ErrMalformedToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		// Same alg, different key
		other, err := NewTokenCodec(CodecConfig{SecretKey: "YWJjZGVmMDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODk="})
		require.NoError(t, err)
		token, err := other.IssueAccess(testUser)
		require.NoError(t, err)

		_, err = codec.Decode(token)

		require.Error(t, err)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		other, err := NewTokenCodec(CodecConfig{SecretKey: testSecretKey, Alg: "HS512"})
		require.NoError(t, err)
		token, err := other.IssueAccess(testUser)
		require.NoError(t, err)

		_, err = codec.Decode(token)

		require.Error(t, err)
		require.ErrorIs(t, err, apperrors.ErrUnsupportedToken)
	})

	t.Run("expired token still decodes", func(t *testing.T) {
		stale, err := NewTokenCodec(CodecConfig{SecretKey: testSecretKey, AccessTTL: -time.Hour})
		require.NoError(t, err)
		token, err := stale.IssueAccess(testUser)
		require.NoError(t, err)

		claims, err := codec.Decode(token)

		require.NoError(t, err, "expiry is a separate check, not a decode failure")
		require.Equal(t, "alice", claims.Subject)
		require.True(t, codec.IsExpired(claims))
	})

	t.Run("claims without expiry count as expired", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"}}
		require.True(t, codec.IsExpired(claims))
	})
}
