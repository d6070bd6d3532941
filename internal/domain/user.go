package domain

import (
	"strings"
	"time"
)

// Role is the normalized account role.
type Role string

const (
	RoleStudent    Role = "STUDENT"
	RoleInstructor Role = "INSTRUCTOR"
	RoleAdmin      Role = "ADMIN"
	RoleUnknown    Role = "UNKNOWN"
)

// ParseRole maps a raw role name from the backend onto the closed Role set.
// Anything unrecognized becomes RoleUnknown.
func ParseRole(raw string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent
	case RoleInstructor:
		return RoleInstructor
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleUnknown
	}
}

// Known reports whether r is one of the three assignable roles.
func (r Role) Known() bool {
	return r == RoleStudent || r == RoleInstructor || r == RoleAdmin
}

// User represents the identity profile of an account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	RoleName     string    `json:"role_name"`
	ProfileImage *string   `json:"profile_image,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Role Role `json:"role"`
}

// Normalized returns a copy of u with Role derived from RoleName.
func (u User) Normalized() User {
	return User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		RoleName:     u.RoleName,
		ProfileImage: u.ProfileImage,
		CreatedAt:    u.CreatedAt,
		Role:         ParseRole(u.RoleName),
	}
}

// UserSummary is a row of the admin user listing.
type UserSummary struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	RoleName  string    `json:"role_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
