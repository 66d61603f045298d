package models

import (
	"strings"
	"time"
)

// User is a housing office staff account
type User struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Email              string    `json:"email" db:"email"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	Role               RoleType  `json:"role" db:"role"`
	IsActive           bool      `json:"isActive" db:"is_active"`
	MustChangePassword bool      `json:"mustChangePassword" db:"must_change_password"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// IsActiveManager reports whether the user counts toward last-manager protection.
func (u *User) IsActiveManager() bool {
	return u != nil && u.IsActive && u.Role == RoleManager
}

// NormalizeEmail lower-cases and trims an email for uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
