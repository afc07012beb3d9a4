// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package feed composes paginated pages of root posts, each with its full
// reply tree attached.
package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agora/internal/models"
	"agora/internal/thread"
)

var (
	// ErrInvalidPage is returned for page numbers below 1.
	ErrInvalidPage = errors.New("invalid page")
	// ErrNoSuchPage is returned when a page holds no posts.
	ErrNoSuchPage = errors.New("no such page")
)

// Posts lists visible root posts, newest first.
type Posts interface {
	ListRoots(ctx context.Context, limit, offset int) ([]models.Post, error)
	ListRootsByAuthors(ctx context.Context, authorIDs []uuid.UUID, limit, offset int) ([]models.Post, error)
}

// Follows resolves whom a user follows.
type Follows interface {
	FollowedIDs(ctx context.Context, follower uuid.UUID) ([]uuid.UUID, error)
}

// Trees assembles reply trees for a batch of posts.
type Trees interface {
	Trees(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]*models.PostView, error)
}

var _ Trees = (*thread.Assembler)(nil)

// Composer builds feed pages.
type Composer struct {
	posts    Posts
	follows  Follows
	trees    Trees
	pageSize int
}

// NewComposer creates a Composer serving pages of pageSize posts.
func NewComposer(posts Posts, follows Follows, trees Trees, pageSize int) *Composer {
	return &Composer{posts: posts, follows: follows, trees: trees, pageSize: pageSize}
}

// Global returns a page of every visible root post.
func (c *Composer) Global(ctx context.Context, page int) ([]*models.PostView, error) {
	return c.compose(ctx, page, func(limit, offset int) ([]models.Post, error) {
		return c.posts.ListRoots(ctx, limit, offset)
	})
}

// Followed returns a page of root posts written by users that userID follows.
func (c *Composer) Followed(ctx context.Context, userID uuid.UUID, page int) ([]*models.PostView, error) {
	return c.compose(ctx, page, func(limit, offset int) ([]models.Post, error) {
		ids, err := c.follows.FollowedIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		return c.posts.ListRootsByAuthors(ctx, ids, limit, offset)
	})
}

// ByAuthor returns a page of root posts written by authorID.
func (c *Composer) ByAuthor(ctx context.Context, authorID uuid.UUID, page int) ([]*models.PostView, error) {
	return c.compose(ctx, page, func(limit, offset int) ([]models.Post, error) {
		return c.posts.ListRootsByAuthors(ctx, []uuid.UUID{authorID}, limit, offset)
	})
}

func (c *Composer) compose(ctx context.Context, page int, list func(limit, offset int) ([]models.Post, error)) ([]*models.PostView, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}

	roots, err := list(c.pageSize, (page-1)*c.pageSize)
	if err != nil {
		return nil, fmt.Errorf("feed page %d: %w", page, err)
	}
	if len(roots) == 0 {
		return nil, ErrNoSuchPage
	}

	ids := make([]uuid.UUID, len(roots))
	for i := range roots {
		ids[i] = roots[i].ID
	}
	forest, err := c.trees.Trees(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("feed page %d trees: %w", page, err)
	}

	views := make([]*models.PostView, len(roots))
	for i := range roots {
		v := models.NewPostView(&roots[i])
		v.Replies = forest[roots[i].ID]
		views[i] = v
	}
	return views, nil
}
