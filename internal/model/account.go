// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import (
	"fmt"
	"time"
)

// Role is the authorization level of an account.
//
// CLOSED ENUMERATION:
// Role is a string type with exactly two valid values. Code that branches on
// a role should switch over RoleAdmin and RoleUser and treat anything else as
// a programming error; ParseRole is the only way a raw string from the
// database becomes a Role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleUser:
		return RoleUser, nil
	default:
		return "", fmt.Errorf("model: unknown role %q", s)
	}
}

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Account is a local login.
//
// PasswordHash holds whatever the configured hasher produced: a hex SHA-256
// digest by default, or a bcrypt string when the bcrypt scheme is enabled.
// It is never serialised to JSON.
type Account struct {
	ID           int64     `json:"-"        db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-"        db:"password_hash"`
	Role         Role      `json:"role"     db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// IsAdmin is a small convenience used by views and policy checks.
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}
