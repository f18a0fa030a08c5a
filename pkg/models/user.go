package models

import (
	"time"
)

// User is an account that can sign in and own records.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Role         string     `json:"role"` // 'admin', 'programmer'
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Role constants for user roles.
const (
	RoleAdmin      = "admin"
	RoleProgrammer = "programmer"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleProgrammer}

// IsValidRole checks if the given role is valid.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// Ownership returns the ownership view of the user record. Users own themselves.
func (u *User) Ownership() OwnedRecord {
	return OwnedRecord{Entity: EntityUser, ID: u.ID, OwnerID: u.ID}
}

// Principal is the authenticated actor performing a request.
type Principal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
