package models

import (
	"time"
)

// Role represents user roles in the system
type Role string

const (
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

// BaseAll is the base code granting visibility over every depot. Admin
// accounts always carry it.
const BaseAll = "ALL"

// User represents a driver or administrator account. PasswordHash is kept
// locally so login keeps working when the remote auth service is unreachable;
// it therefore must survive the stored JSON form. Handlers blank it before
// writing a user to an HTTP response (see Sanitized).
type User struct {
	Envelope     `bson:",inline"`
	Name         string     `json:"name" bson:"name"`
	Email        string     `json:"email" bson:"email"`
	Username     string     `json:"username" bson:"username"`
	Role         Role       `json:"role" bson:"role"`
	Base         string     `json:"base" bson:"base"`
	PasswordHash string     `json:"passwordHash,omitempty" bson:"password_hash"`
	LastLogin    *time.Time `json:"lastLogin,omitempty" bson:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updatedAt" bson:"updated_at"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Base     string `json:"base"`
}

// LoginResponse represents a successful login response
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Base     string `json:"base"`
	Exp      int64  `json:"exp"`
}

// IsValidRole checks if a role is valid
func IsValidRole(role Role) bool {
	switch role {
	case RoleDriver, RoleAdmin:
		return true
	default:
		return false
	}
}

// Sanitized returns a copy of the user safe for HTTP responses: the
// password hash is stripped. Storage and sync payloads keep the hash.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// IsAdmin reports whether the user has administrator privileges.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanSeeBase reports whether the user may read records scoped to the given
// base. Admins see everything; drivers see only their own depot.
func (u *User) CanSeeBase(base string) bool {
	if u.Role == RoleAdmin || u.Base == BaseAll {
		return true
	}
	return u.Base == base
}
