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

	"agora/internal/models"
)

// postColumns selects a post with its author and like count. Callers
// append WHERE/ORDER clauses against the aliases p, u and r.
const postColumns = `
	SELECT p.id, p.type, p.refer_to, p.title, p.content, p.author_id,
	       u.username AS author_username, r.name AS author_role,
	       p.hidden, p.created_at,
	       (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS likes
	FROM posts p
	JOIN users u ON u.id = p.author_id
	JOIN roles r ON r.id = u.role_id`

// newestFirst is the deterministic feed order.
const newestFirst = ` ORDER BY p.created_at DESC, p.id DESC`

// Actor identifies who is changing a post's visibility.
type Actor struct {
	ID    uuid.UUID
	Admin bool
}

// PostStore handles root posts and replies in the self-referential posts
// table. Hidden posts are invisible to every read method except FindByID.
type PostStore struct {
	db *sqlx.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sqlx.DB) *PostStore {
	return &PostStore{db: db}
}

// Create publishes a new root post.
func (s *PostStore) Create(ctx context.Context, authorID uuid.UUID, title, content string) (*models.Post, error) {
	var id uuid.UUID
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO posts (type, title, content, author_id)
		VALUES ('root', $1, $2, $3)
		RETURNING id
	`, title, content, authorID)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return s.FindByID(ctx, id)
}

// CreateReply publishes a comment or answer under parentID. The parent must
// be visible and must accept replies of kind typ.
func (s *PostStore) CreateReply(ctx context.Context, authorID, parentID uuid.UUID, typ models.PostType, title, content string) (*models.Post, error) {
	if !typ.Valid() || typ == models.PostTypeRoot {
		return nil, ErrInvalidPostType
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create reply begin: %w", err)
	}
	defer tx.Rollback()

	// Lock the parent so it cannot be hidden between the check and the insert.
	var parent struct {
		Type   models.PostType `db:"type"`
		Hidden bool            `db:"hidden"`
	}
	err = tx.GetContext(ctx, &parent, `SELECT type, hidden FROM posts WHERE id = $1 FOR SHARE`, parentID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && parent.Hidden) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("create reply parent: %w", err)
	}
	if !parent.Type.Accepts(typ) {
		return nil, ErrReplyNotAllowed
	}

	var id uuid.UUID
	if err := tx.GetContext(ctx, &id, `
		INSERT INTO posts (type, refer_to, title, content, author_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, typ, parentID, title, content, authorID); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create reply commit: %w", err)
	}
	return s.FindByID(ctx, id)
}

// FindByID retrieves a post regardless of visibility. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p := &models.Post{}
	err := s.db.GetContext(ctx, p, postColumns+` WHERE p.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// FindVisible retrieves a post that is not hidden. Returns nil if the post
// is absent or hidden.
func (s *PostStore) FindVisible(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := s.FindByID(ctx, id)
	if err != nil || p == nil || p.Hidden {
		return nil, err
	}
	return p, nil
}

// ListRoots returns one page of visible root posts, newest first.
func (s *PostStore) ListRoots(ctx context.Context, limit, offset int) ([]models.Post, error) {
	var posts []models.Post
	err := s.db.SelectContext(ctx, &posts,
		postColumns+` WHERE p.type = 'root' AND NOT p.hidden`+newestFirst+` LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list roots: %w", err)
	}
	return posts, nil
}

// ListRootsByAuthors returns one page of visible root posts written by any
// of authorIDs, newest first. An empty author set yields no posts.
func (s *PostStore) ListRootsByAuthors(ctx context.Context, authorIDs []uuid.UUID, limit, offset int) ([]models.Post, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		postColumns+` WHERE p.type = 'root' AND NOT p.hidden AND p.author_id IN (?)`+newestFirst+` LIMIT ? OFFSET ?`,
		authorIDs, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list roots by authors: %w", err)
	}

	var posts []models.Post
	if err := s.db.SelectContext(ctx, &posts, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list roots by authors: %w", err)
	}
	return posts, nil
}

// ChildrenOf returns the visible direct replies of every post in parentIDs,
// oldest first. One query serves a whole level of a reply tree.
func (s *PostStore) ChildrenOf(ctx context.Context, parentIDs []uuid.UUID) ([]models.Post, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(
		postColumns+` WHERE p.refer_to IN (?) AND NOT p.hidden ORDER BY p.created_at ASC, p.id ASC`,
		parentIDs)
	if err != nil {
		return nil, fmt.Errorf("children of: %w", err)
	}

	var posts []models.Post
	if err := s.db.SelectContext(ctx, &posts, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("children of: %w", err)
	}
	return posts, nil
}

// SetHidden hides or unhides a post. The author may always change their own
// post; anyone else must be an admin, and admins cannot moderate posts
// written by other admins.
func (s *PostStore) SetHidden(ctx context.Context, postID uuid.UUID, hidden bool, by Actor) error {
	p, err := s.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrPostNotFound
	}

	if p.AuthorID != by.ID {
		if !by.Admin {
			return ErrNotPostOwner
		}
		if p.AuthorRole == models.RoleAdmin {
			return ErrAuthorIsAdmin
		}
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE posts SET hidden = $1 WHERE id = $2`, hidden, postID); err != nil {
		return fmt.Errorf("set hidden: %w", err)
	}
	return nil
}
