package models

import (
	"slices"
	"time"
)

// Known role names. Stored as plain strings so new roles don't require a migration
const (
	RoleGuest   = "GUEST"
	RoleAdmin   = "ADMIN"
	RolePremium = "PREMIUM_USER"
)

type User struct {
	ID        int64
	CreatedAt time.Time
	Login     string
	Email     string

	// Bcrypt hash of the user password
	// Must never be logged or rendered to responses
	HashedPassword string

	// Role names, unique, at least one after registration
	Roles []string
}

func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Principal is the narrow read-only view of a user that token issuing
// and request authentication work with. It carries no credentials
type Principal struct {
	username    string
	authorities []string
}

func (u User) Principal() Principal {
	return Principal{
		username:    u.Login,
		authorities: slices.Clone(u.Roles),
	}
}

func (p Principal) Username() string {
	return p.username
}

// Granted role names
func (p Principal) Authorities() []string {
	return p.authorities
}
