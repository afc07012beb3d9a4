// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides database access methods for all Agora entities.
// Each store struct wraps a *sqlx.DB and exposes typed query methods.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"agora/internal/models"
)

const userColumns = `
	SELECT u.id, u.username, u.email, u.password_hash, r.name AS role,
	       u.totp_secret, u.totp_enabled, u.created_at, u.last_seen
	FROM users u
	JOIN roles r ON r.id = u.role_id`

// UserStore handles all user-related database operations.
type UserStore struct {
	db *sqlx.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// FindByID retrieves a user by their UUID. Returns nil if not found.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, "find user by id", userColumns+` WHERE u.id = $1`, id)
}

// FindByUsername retrieves a user by username. Returns nil if not found.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, "find user by username", userColumns+` WHERE u.username = $1`, username)
}

// FindByEmail retrieves a user by their email address. Returns nil if not found.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, "find user by email", userColumns+` WHERE u.email = $1`, email)
}

// FindByLogin retrieves a user by email when login contains "@" and by
// username otherwise. Returns nil if not found.
func (s *UserStore) FindByLogin(ctx context.Context, login string) (*models.User, error) {
	if strings.Contains(login, "@") {
		return s.FindByEmail(ctx, login)
	}
	return s.FindByUsername(ctx, login)
}

func (s *UserStore) findOne(ctx context.Context, op, query string, arg any) (*models.User, error) {
	u := &models.User{}
	err := s.db.GetContext(ctx, u, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// List returns all users ordered by creation date.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.SelectContext(ctx, &users, userColumns+` ORDER BY u.created_at ASC`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Create inserts a new user with a bcrypt-hashed password. Duplicate
// usernames and emails are reported as ErrUsernameTaken / ErrEmailTaken.
func (s *UserStore) Create(ctx context.Context, username, email, password string, role models.Role) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var id uuid.UUID
	err = s.db.GetContext(ctx, &id, `
		INSERT INTO users (username, email, password_hash, role_id)
		VALUES ($1, $2, $3, (SELECT id FROM roles WHERE name = $4))
		RETURNING id
	`, username, email, string(hash), string(role))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", duplicateUserErr(err))
	}
	return s.FindByID(ctx, id)
}

// UpdateProfile changes a user's username and email.
func (s *UserStore) UpdateProfile(ctx context.Context, userID uuid.UUID, username, email string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET username = $1, email = $2 WHERE id = $3
	`, username, email, userID)
	if err != nil {
		return fmt.Errorf("update profile: %w", duplicateUserErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPassword replaces a user's password hash.
func (s *UserStore) SetPassword(ctx context.Context, userID uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $1 WHERE id = $2
	`, string(hash), userID); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// TouchLastSeen records activity for a user.
func (s *UserStore) TouchLastSeen(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_seen = NOW() WHERE id = $1`, userID); err != nil {
		return fmt.Errorf("touch last seen: %w", err)
	}
	return nil
}

// SetTOTPSecret saves the TOTP secret for a user (during 2FA setup).
func (s *UserStore) SetTOTPSecret(ctx context.Context, userID uuid.UUID, secret string) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = $1 WHERE id = $2
	`, secret, userID); err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active for a user (after successful code verification).
func (s *UserStore) EnableTOTP(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_enabled = TRUE WHERE id = $1
	`, userID); err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}

// ResetTOTP clears the TOTP secret and disables 2FA for a user.
func (s *UserStore) ResetTOTP(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `
		UPDATE users SET totp_secret = NULL, totp_enabled = FALSE WHERE id = $1
	`, userID); err != nil {
		return fmt.Errorf("reset totp: %w", err)
	}
	return nil
}

// Profile returns the public profile of a user with follower, following
// and visible root post counts. Returns nil if the user does not exist.
func (s *UserStore) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p := &models.Profile{}
	err := s.db.GetContext(ctx, p, `
		SELECT u.id, u.username, u.last_seen,
		       (SELECT COUNT(*) FROM followers f WHERE f.followed_id = u.id) AS followers,
		       (SELECT COUNT(*) FROM followers f WHERE f.follower_id = u.id) AS following,
		       (SELECT COUNT(*) FROM posts p
		         WHERE p.author_id = u.id AND p.type = 'root' AND NOT p.hidden) AS posts
		FROM users u WHERE u.id = $1
	`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("user profile: %w", err)
	}
	return p, nil
}

// CheckPassword verifies a plaintext password against the user's stored hash.
func (s *UserStore) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

// duplicateUserErr maps unique violations on users to sentinel errors.
func duplicateUserErr(err error) error {
	switch constraint, ok := uniqueViolation(err); {
	case ok && constraint == "users_username_key":
		return ErrUsernameTaken
	case ok && constraint == "users_email_key":
		return ErrEmailTaken
	}
	return err
}
