// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// FollowStore manages the directed follow graph between users. At most one
// edge exists per ordered pair and self-edges are rejected here, so callers
// never need to repeat those checks.
type FollowStore struct {
	db *sqlx.DB
}

// NewFollowStore creates a new FollowStore with the given database connection.
func NewFollowStore(db *sqlx.DB) *FollowStore {
	return &FollowStore{db: db}
}

// Follow creates the edge follower -> followed.
func (s *FollowStore) Follow(ctx context.Context, follower, followed uuid.UUID) error {
	if err := s.checkPair(ctx, follower, followed); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO followers (follower_id, followed_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, follower, followed)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyFollowing
	}
	return nil
}

// Unfollow removes the edge follower -> followed.
func (s *FollowStore) Unfollow(ctx context.Context, follower, followed uuid.UUID) error {
	if err := s.checkPair(ctx, follower, followed); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM followers WHERE follower_id = $1 AND followed_id = $2
	`, follower, followed)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFollowing
	}
	return nil
}

// checkPair rejects self-edges and unknown targets.
func (s *FollowStore) checkPair(ctx context.Context, follower, followed uuid.UUID) error {
	if follower == followed {
		return ErrSelfFollow
	}
	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, followed); err != nil {
		return fmt.Errorf("check follow target: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

// IsFollowing reports whether the edge follower -> followed exists.
func (s *FollowStore) IsFollowing(ctx context.Context, follower, followed uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM followers WHERE follower_id = $1 AND followed_id = $2)
	`, follower, followed)
	if err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	return exists, nil
}

// FollowedIDs returns the ids of every user that follower follows.
func (s *FollowStore) FollowedIDs(ctx context.Context, follower uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := s.db.SelectContext(ctx, &ids, `
		SELECT followed_id FROM followers WHERE follower_id = $1 ORDER BY created_at
	`, follower); err != nil {
		return nil, fmt.Errorf("followed ids: %w", err)
	}
	return ids, nil
}
