package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	// Bad login or password. Never tells which one was wrong
	ErrAuthenticationFailed = errors.New("authentication failed")

	ErrMalformedToken   = errors.New("token is malformed")
	ErrUnsupportedToken = errors.New("token signing method is not supported")
	ErrInvalidToken     = errors.New("token is invalid")

	ErrTokenExpired        = errors.New("token is expired")
	ErrTokenNotFound       = errors.New("refresh token not found")
	ErrTokenAlreadyRevoked = errors.New("token already revoked")

	ErrRoleAlreadyAssigned = errors.New("role already assigned")
)
