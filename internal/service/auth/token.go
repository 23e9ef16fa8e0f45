package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/danilgordienko/user-auth-service/internal/apperrors"
	"github.com/danilgordienko/user-auth-service/internal/models"
)

const (
	defaultSigningMethod   = "HS256"
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTokenTTL = 24 * time.Hour

	// HS256 needs at least 256 bits of key material
	minKeyLen = 32
)

type Claims struct {
	jwt.RegisteredClaims

	// Role names granted to the subject
	Roles []string `json:"roles"`

	// Set on access tokens only
	UserID int64  `json:"uid,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Token codec config with sensible defaults
type CodecConfig struct {
	// Base64 (std encoding) of the raw signing key
	// Required to be set, must decode to at least 32 bytes
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Access and refresh token lifetimes
	// If not set then default is used
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenCodec issues and decodes signed JWT tokens
// It does no I/O: stored token state is the ledger's concern
type TokenCodec struct {
	key []byte
	alg jwt.SigningMethod

	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	key, err := base64.StdEncoding.DecodeString(cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("secret key must be valid base64. Err: %w", err)
	}
	if len(key) < minKeyLen {
		return nil, fmt.Errorf("secret key too weak: got %d bytes, need at least %d", len(key), minKeyLen)
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.AccessTTL, defaultAccessTokenTTL)
	setDefaultDuration(&cfg.RefreshTTL, defaultRefreshTokenTTL)

	return &TokenCodec{
		key:        key,
		alg:        jwt.GetSigningMethod(cfg.Alg),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}, nil
}

func (c *TokenCodec) AccessTTL() time.Duration  { return c.accessTTL }
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// IssueAccess signs a short lived token that additionally carries the user
// id and email, so authenticated requests don't need a db roundtrip for them
func (c *TokenCodec) IssueAccess(user models.User) (string, error) {
	claims := c.buildClaims(user.Principal(), c.accessTTL)
	claims.UserID = user.ID
	claims.Email = user.Email

	return c.sign(claims)
}

// IssueRefresh signs a long lived token carrying subject and roles only
func (c *TokenCodec) IssueRefresh(user models.User) (string, error) {
	return c.sign(c.buildClaims(user.Principal(), c.refreshTTL))
}

func (c *TokenCodec) buildClaims(p models.Principal, ttl time.Duration) Claims {
	now := time.Now().Truncate(time.Second)

	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   p.Username(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: p.Authorities(),
	}
}

func (c *TokenCodec) sign(claims Claims) (string, error) {
	token, err := jwt.NewWithClaims(c.alg, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("error while signing token. Err: %w", err)
	}
	return token, nil
}

// Decode verifies the signature and returns the embedded claims
//
// Expired tokens decode fine: expiry is an explicit separate check (IsExpired),
// so callers can tell "never valid" from "was valid, now stale"
func (c *TokenCodec) Decode(tokenString string) (Claims, error) {
	claims := Claims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(t *jwt.Token) (any, error) {
			if t.Method.Alg() != c.alg.Alg() {
				return nil, fmt.Errorf("%w: got %q", apperrors.ErrUnsupportedToken, t.Method.Alg())
			}
			return c.key, nil
		},
		jwt.WithoutClaimsValidation(),
	)

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, apperrors.ErrUnsupportedToken):
		return Claims{}, fmt.Errorf("error while decoding token. Err: %w", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Claims{}, fmt.Errorf("error while decoding token. Err: %w: %w", apperrors.ErrMalformedToken, err)
	default:
		return Claims{}, fmt.Errorf("error while decoding token. Err: %w: %w", apperrors.ErrInvalidToken, err)
	}
}

// IsExpired is a pure comparison of the claims expiry against current time
// Claims without expiry are treated as expired
func (c *TokenCodec) IsExpired(claims Claims) bool {
	if claims.ExpiresAt == nil {
		return true
	}
	return claims.ExpiresAt.Before(time.Now())
}
