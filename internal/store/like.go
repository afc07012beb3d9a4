// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// LikeStore manages (user, post) like edges with toggle semantics.
type LikeStore struct {
	db *sqlx.DB
}

// NewLikeStore creates a new LikeStore with the given database connection.
func NewLikeStore(db *sqlx.DB) *LikeStore {
	return &LikeStore{db: db}
}

// Like records that userID likes postID. The post must be visible and must
// not be authored by userID.
func (s *LikeStore) Like(ctx context.Context, userID, postID uuid.UUID) error {
	authorID, err := s.visibleAuthor(ctx, postID)
	if err != nil {
		return err
	}
	if authorID == userID {
		return ErrSelfLike
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO likes (user_id, post_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, userID, postID)
	if err != nil {
		return fmt.Errorf("like: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyLiked
	}
	return nil
}

// Unlike removes userID's like from postID.
func (s *LikeStore) Unlike(ctx context.Context, userID, postID uuid.UUID) error {
	if _, err := s.visibleAuthor(ctx, postID); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM likes WHERE user_id = $1 AND post_id = $2`, userID, postID)
	if err != nil {
		return fmt.Errorf("unlike: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotLiked
	}
	return nil
}

// Count returns the number of likes on a post.
func (s *LikeStore) Count(ctx context.Context, postID uuid.UUID) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM likes WHERE post_id = $1`, postID); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return n, nil
}

func (s *LikeStore) visibleAuthor(ctx context.Context, postID uuid.UUID) (uuid.UUID, error) {
	var authorID uuid.UUID
	err := s.db.GetContext(ctx, &authorID, `SELECT author_id FROM posts WHERE id = $1 AND NOT hidden`, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, ErrPostNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("like target: %w", err)
	}
	return authorID, nil
}
