// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's permission level. Values match roles.name.
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"` // Never serialize the hash
	Role         Role      `db:"role" json:"role"`
	TOTPSecret   *string   `db:"totp_secret" json:"-"` // Nullable; set during 2FA setup
	TOTPEnabled  bool      `db:"totp_enabled" json:"totp_enabled"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	LastSeen     time.Time `db:"last_seen" json:"last_seen"`
}

// IsAdmin returns true if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Needs2FASetup returns true if the user has not completed 2FA enrollment.
func (u *User) Needs2FASetup() bool {
	return !u.TOTPEnabled
}

// RequiresSecondFactor reports whether a fresh login must pass a TOTP check
// before the session is fully trusted. Admins always need it; regular users
// only once they have enrolled.
func (u *User) RequiresSecondFactor() bool {
	return u.IsAdmin() || u.TOTPEnabled
}

// Profile is the public view of a user with relation counts. IsFollowing
// is set only when a signed-in viewer looks at someone else.
type Profile struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Username    string    `db:"username" json:"username"`
	LastSeen    time.Time `db:"last_seen" json:"last_seen"`
	Followers   int       `db:"followers" json:"followers"`
	Following   int       `db:"following" json:"following"`
	Posts       int       `db:"posts" json:"posts"`
	IsFollowing *bool     `db:"-" json:"is_following,omitempty"`
}
