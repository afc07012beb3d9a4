// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package thread assembles the nested reply trees shown under posts.
// Replies are fetched one tree level at a time, so a tree of depth d costs
// d+1 queries no matter how many posts it holds.
package thread

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"agora/internal/models"
)

// ErrCycle is returned when the refer_to chain loops back on itself.
var ErrCycle = errors.New("reply graph contains a cycle")

// Source supplies the visible direct replies of a set of posts, ordered
// oldest first. store.PostStore satisfies it.
type Source interface {
	ChildrenOf(ctx context.Context, parentIDs []uuid.UUID) ([]models.Post, error)
}

// Assembler builds reply trees from a Source.
type Assembler struct {
	src Source
}

// New creates an Assembler reading from src.
func New(src Source) *Assembler {
	return &Assembler{src: src}
}

// Tree returns the ordered replies of postID, each carrying its own
// replies. The caller is responsible for checking that postID exists.
func (a *Assembler) Tree(ctx context.Context, postID uuid.UUID) ([]*models.PostView, error) {
	forest, err := a.Trees(ctx, []uuid.UUID{postID})
	if err != nil {
		return nil, err
	}
	return forest[postID], nil
}

// Trees assembles the replies of every id in postIDs at once. The result
// maps each requested id to its replies; ids without replies map to an
// empty slice. A requested id that is itself a reply to another requested
// id also appears, with its replies, inside that post's tree.
func (a *Assembler) Trees(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID][]*models.PostView, error) {
	forest := make(map[uuid.UUID][]*models.PostView, len(postIDs))
	nodes := make(map[uuid.UUID]*models.PostView)
	parentOf := make(map[uuid.UUID]uuid.UUID)
	var nested []*models.PostView // requested ids found below another requested id

	level := make([]uuid.UUID, 0, len(postIDs))
	for _, id := range postIDs {
		if _, ok := forest[id]; ok {
			continue
		}
		forest[id] = []*models.PostView{}
		level = append(level, id)
	}

	for depth := 0; len(level) > 0; depth++ {
		children, err := a.src.ChildrenOf(ctx, level)
		if err != nil {
			return nil, fmt.Errorf("thread level %d: %w", depth, err)
		}

		next := make([]uuid.UUID, 0, len(children))
		for i := range children {
			child := &children[i]
			if child.ReferTo == nil {
				continue
			}
			parent := *child.ReferTo
			if _, seen := nodes[child.ID]; seen || isAncestor(parentOf, parent, child.ID) {
				return nil, fmt.Errorf("post %s: %w", child.ID, ErrCycle)
			}
			parentOf[child.ID] = parent

			view := models.NewPostView(child)
			nodes[child.ID] = view
			if _, requested := forest[child.ID]; requested {
				// Its replies are already being collected under forest.
				nested = append(nested, view)
			} else {
				view.Replies = []*models.PostView{}
				next = append(next, child.ID)
			}

			if p, ok := nodes[parent]; ok && p.Replies != nil {
				p.Replies = append(p.Replies, view)
			} else {
				forest[parent] = append(forest[parent], view)
			}
		}
		level = next
	}

	for _, view := range nested {
		view.Replies = forest[view.ID]
	}
	return forest, nil
}

// isAncestor reports whether id lies on the parent chain starting at from.
// The chain is acyclic because a node is only linked after this check.
func isAncestor(parentOf map[uuid.UUID]uuid.UUID, from, id uuid.UUID) bool {
	for cur, ok := from, true; ok; cur, ok = parentOf[cur] {
		if cur == id {
			return true
		}
	}
	return false
}
