package models

import (
	"time"
)

// One stored refresh token row
// The token string itself is the lookup key
type RefreshToken struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	Revoked   bool
}

// Token pair issued by AuthService and returned to the user
type TokenPair struct {
	Access  string
	Refresh string
}
