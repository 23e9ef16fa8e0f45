package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danilgordienko/user-auth-service/internal/apperrors"
	"github.com/danilgordienko/user-auth-service/internal/models"
	"github.com/danilgordienko/user-auth-service/internal/repository"
)

const (
	// Login of the bootstrap administrator account
	defaultAdminLogin = "admin"
	defaultAdminEmail = "admin@example.com"
)

type Config struct {
	// Base64 encoded secret to sign token payloads
	SecretKey string

	// JWT MAC algorithm, default is used if empty
	Alg string

	// Hasher to use during user registration or login
	Hasher PasswordHasher

	// Access and refresh token lifetimes
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AuthService ties the codec, the ledger and the stored identity state
// together into the register/login/refresh/logout workflows
type AuthService struct {
	codec  *TokenCodec
	ledger *TokenLedger
	hasher PasswordHasher

	storage repository.Storage
}

func NewService(cfg Config, storage repository.Storage) (*AuthService, error) {
	if storage == nil {
		return nil, errors.New("storage must not be nil")
	}

	hasher := cfg.Hasher
	if hasher == nil {
		hasher = DefaultHasher
	}

	codec, err := NewTokenCodec(CodecConfig{
		SecretKey:  cfg.SecretKey,
		Alg:        cfg.Alg,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token codec. Err: %w", err)
	}

	return &AuthService{
		codec:   codec,
		ledger:  NewTokenLedger(codec, storage.Refresh()),
		hasher:  hasher,
		storage: storage,
	}, nil
}

// Codec returns the token codec, mostly for request authentication and tests
func (s *AuthService) Codec() *TokenCodec {
	return s.codec
}

// Register creates a user with the default GUEST role and issues a token pair
// There are no earlier tokens to supersede, so the refresh token is just stored
func (s *AuthService) Register(ctx context.Context, email string, login string, password string) (models.TokenPair, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("can't use this as password. Err: %w", err)
	}

	user, err := s.storage.User().CreateUser(ctx, login, email, hash, []string{models.RoleGuest})
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := s.ledger.Store(ctx, pair.Refresh, user); err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Login verifies credentials and issues a fresh token pair
// Superseding old tokens and storing the new one commit atomically,
// so a crash in between can't leave the ledger half switched
func (s *AuthService) Login(ctx context.Context, login string, password string) (models.TokenPair, error) {
	user, err := s.Verify(ctx, login, password)
	if err != nil {
		return models.TokenPair{}, err
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	err = s.storage.InTx(ctx, func(tx repository.Storage) error {
		ledger := s.ledger.withRepo(tx.Refresh())

		if err := ledger.Supersede(ctx, user); err != nil {
			return err
		}
		return ledger.Store(ctx, pair.Refresh, user)
	})
	if err != nil {
		return models.TokenPair{}, err
	}

	return pair, nil
}

// Verify checks login credentials against the stored identity
// Unknown login and wrong password both come back as
// apperrors.ErrAuthenticationFailed so callers can't enumerate users
func (s *AuthService) Verify(ctx context.Context, login string, password string) (models.User, error) {
	user, err := s.storage.User().GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Burn comparable time for unknown logins too
			_ = s.hasher.Compare(dummyHash, password)
			return models.User{}, apperrors.ErrAuthenticationFailed
		}
		return models.User{}, err
	}

	if err := s.hasher.Compare(user.HashedPassword, password); err != nil {
		return models.User{}, apperrors.ErrAuthenticationFailed
	}

	return user, nil
}

// Refresh exchanges a valid refresh token for a new access token
// The refresh token itself is not rotated: the same string is echoed back
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return models.TokenPair{}, err
	}

	user, err := s.storage.User().GetUserByLogin(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			// Don't leak that the subject is gone
			return models.TokenPair{}, fmt.Errorf("%w: unknown subject", apperrors.ErrAuthenticationFailed)
		}
		return models.TokenPair{}, err
	}

	if _, err := s.ledger.Validate(ctx, refreshToken); err != nil {
		return models.TokenPair{}, err
	}

	access, err := s.codec.IssueAccess(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refreshToken}, nil
}

// Logout revokes the refresh token after validating it
// Validation and revocation share one transaction, so a refresh racing
// with logout can't slip through after the flag is set
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.storage.InTx(ctx, func(tx repository.Storage) error {
		ledger := s.ledger.withRepo(tx.Refresh())

		if _, err := ledger.Validate(ctx, refreshToken); err != nil {
			return err
		}
		return ledger.Revoke(ctx, refreshToken)
	})
}

// AssignRole appends a role to the user role set
// Assigning an already held role fails with apperrors.ErrRoleAlreadyAssigned
func (s *AuthService) AssignRole(ctx context.Context, login string, role string) (models.User, error) {
	user, err := s.storage.User().GetUserByLogin(ctx, login)
	if err != nil {
		return models.User{}, err
	}

	if user.HasRole(role) {
		return models.User{}, fmt.Errorf("user %q: %w", login, apperrors.ErrRoleAlreadyAssigned)
	}

	return s.storage.User().AddRole(ctx, user.ID, role)
}

// Identify resolves the user behind an access token
// Expired tokens return apperrors.ErrTokenExpired: the caller decides whether
// that means "reject" or just "not logged in"
func (s *AuthService) Identify(ctx context.Context, accessToken string) (models.User, error) {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return models.User{}, err
	}

	if s.codec.IsExpired(claims) {
		return models.User{}, apperrors.ErrTokenExpired
	}

	user, err := s.storage.User().GetUserByLogin(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: unknown subject", apperrors.ErrAuthenticationFailed)
		}
		return models.User{}, err
	}

	return user, nil
}

// EnsureDefaultAdmin creates the bootstrap administrator account when missing
// Harmless to call on every start
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, password string) error {
	_, err := s.storage.User().GetUserByLogin(ctx, defaultAdminLogin)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, apperrors.ErrUserNotFound):
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("can't hash default admin password. Err: %w", err)
		}

		_, err = s.storage.User().CreateUser(ctx, defaultAdminLogin, defaultAdminEmail, hash, []string{models.RoleAdmin})
		if errors.Is(err, apperrors.ErrUserAlreadyExists) {
			// Lost the race to another instance, that's fine
			return nil
		}
		return err
	default:
		return err
	}
}

func (s *AuthService) issuePair(user models.User) (models.TokenPair, error) {
	access, err := s.codec.IssueAccess(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	refresh, err := s.codec.IssueRefresh(user)
	if err != nil {
		return models.TokenPair{}, err
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Bcrypt hash of an unguessable throwaway password, compared against when the
// login is unknown so both failure paths cost about the same
var dummyHash = func() string {
	hash, err := DefaultHasher.Hash("dummy password to equalize timing")
	if err != nil {
		panic(err)
	}
	return hash
}()
