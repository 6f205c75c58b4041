package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role names as stored in the roles table.
const (
	RoleUser     = "ROLE_USER"
	RoleEmployee = "ROLE_EMPLOYEE"
	RoleManager  = "ROLE_MANAGER"
	RoleAdmin    = "ROLE_ADMIN"
)

// User represents an account holder. The personal discount fields drive the
// user component of cart pricing; a percentage of 0 means no personal
// discount and carries no date bounds.
type User struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	Email             string     `json:"email" db:"email"`
	PasswordHash      string     `json:"-" db:"password_hash"`
	Username          string     `json:"username" db:"username"`
	Roles             []string   `json:"roles"`
	Flagged           bool       `json:"flagged" db:"flagged"`
	DiscountPct       float64    `json:"discount_percentage" db:"discount_percentage"`
	DiscountStartDate *time.Time `json:"discount_start_date,omitempty" db:"discount_start_date"`
	DiscountEndDate   *time.Time `json:"discount_end_date,omitempty" db:"discount_end_date"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of the named roles.
func (u *User) HasAnyRole(names ...string) bool {
	for _, n := range names {
		if u.HasRole(n) {
			return true
		}
	}
	return false
}

// Role is a grantable role record.
type Role struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name string    `json:"name" db:"name"`
}

// RefreshToken is a long-lived credential exchanged for new access tokens.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Revoked   bool      `json:"revoked" db:"revoked"`
}
