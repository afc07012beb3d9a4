// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"agora/internal/feed"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/store"
	"agora/internal/thread"
)

// likeOp is the signature shared by LikeStore.Like and LikeStore.Unlike.
type likeOp func(ctx context.Context, userID, postID uuid.UUID) error

// Posts groups the post, reply, like and feed handlers.
type Posts struct {
	postStore *store.PostStore
	likeStore *store.LikeStore
	trees     *thread.Assembler
	feed      *feed.Composer
}

// NewPosts creates a new Posts handler group.
func NewPosts(postStore *store.PostStore, likeStore *store.LikeStore, trees *thread.Assembler, composer *feed.Composer) *Posts {
	return &Posts{
		postStore: postStore,
		likeStore: likeStore,
		trees:     trees,
		feed:      composer,
	}
}

// Create publishes a root post by the caller.
func (p *Posts) Create(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := p.postStore.Create(r.Context(), sess.UserID, req.Title, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewPostView(post))
}

// Get returns a visible post with its full reply tree.
func (p *Posts) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", store.ErrPostNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	post, err := p.postStore.FindVisible(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if post == nil {
		writeError(w, r, store.ErrPostNotFound)
		return
	}

	replies, err := p.trees.Tree(r.Context(), post.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view := models.NewPostView(post)
	view.Replies = replies
	writeJSON(w, http.StatusOK, view)
}

// All returns a page of the global feed.
func (p *Posts) All(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views, err := p.feed.Global(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

// Followed returns a page of root posts by users the caller follows.
func (p *Posts) Followed(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views, err := p.feed.Followed(r.Context(), sess.UserID, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

// Comment replies to a root post.
func (p *Posts) Comment(w http.ResponseWriter, r *http.Request) {
	p.reply(w, r, models.PostTypeComment)
}

// Answer replies to a comment or another answer.
func (p *Posts) Answer(w http.ResponseWriter, r *http.Request) {
	p.reply(w, r, models.PostTypeAnswer)
}

func (p *Posts) reply(w http.ResponseWriter, r *http.Request, typ models.PostType) {
	sess := middleware.SessionFromCtx(r.Context())
	parentID, err := uuidParam(r, "id", store.ErrPostNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req postRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := p.postStore.CreateReply(r.Context(), sess.UserID, parentID, typ, req.Title, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewPostView(post))
}

// Like records the caller's like on a post.
func (p *Posts) Like(w http.ResponseWriter, r *http.Request) {
	p.toggleLike(w, r, p.likeStore.Like, "Liked")
}

// Unlike removes the caller's like from a post.
func (p *Posts) Unlike(w http.ResponseWriter, r *http.Request) {
	p.toggleLike(w, r, p.likeStore.Unlike, "Like removed")
}

// toggleLike runs op and answers with the post's like count afterwards.
func (p *Posts) toggleLike(w http.ResponseWriter, r *http.Request, op likeOp, done string) {
	sess := middleware.SessionFromCtx(r.Context())
	id, err := uuidParam(r, "id", store.ErrPostNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := op(r.Context(), sess.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	likes, err := p.likeStore.Count(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": done, "likes": likes})
}

// Hide hides one of the caller's own posts.
func (p *Posts) Hide(w http.ResponseWriter, r *http.Request) {
	p.setHidden(w, r, true, false)
}

// Unhide makes one of the caller's own posts visible again.
func (p *Posts) Unhide(w http.ResponseWriter, r *http.Request) {
	p.setHidden(w, r, false, false)
}

// setHidden is shared by the owner and admin moderation routes. asAdmin
// grants moderation of other users' posts; the store still refuses posts
// written by admins.
func (p *Posts) setHidden(w http.ResponseWriter, r *http.Request, hidden, asAdmin bool) {
	sess := middleware.SessionFromCtx(r.Context())
	id, err := uuidParam(r, "id", store.ErrPostNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor := store.Actor{ID: sess.UserID, Admin: asAdmin && sess.IsAdmin()}
	if err := p.postStore.SetHidden(r.Context(), id, hidden, actor); err != nil {
		writeError(w, r, err)
		return
	}

	if hidden {
		writeMessage(w, "Post hidden")
	} else {
		writeMessage(w, "Post visible")
	}
}
