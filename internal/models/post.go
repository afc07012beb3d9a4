// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// PostType distinguishes top-level posts from replies in the posts table.
type PostType string

const (
	PostTypeRoot    PostType = "root"
	PostTypeComment PostType = "comment"
	PostTypeAnswer  PostType = "answer"
)

// Valid reports whether t is one of the known post types.
func (t PostType) Valid() bool {
	switch t {
	case PostTypeRoot, PostTypeComment, PostTypeAnswer:
		return true
	}
	return false
}

// Accepts reports whether a post of type t may receive a reply of type
// child. Root posts take comments; comments and answers take answers.
func (t PostType) Accepts(child PostType) bool {
	switch child {
	case PostTypeComment:
		return t == PostTypeRoot
	case PostTypeAnswer:
		return t == PostTypeComment || t == PostTypeAnswer
	}
	return false
}

// Post is a row of the posts table joined with its author's username and
// like count.
type Post struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Type           PostType   `db:"type" json:"type"`
	ReferTo        *uuid.UUID `db:"refer_to" json:"refer_to,omitempty"`
	Title          string     `db:"title" json:"title"`
	Content        string     `db:"content" json:"content"`
	AuthorID       uuid.UUID  `db:"author_id" json:"author_id"`
	AuthorUsername string     `db:"author_username" json:"user"`
	AuthorRole     Role       `db:"author_role" json:"-"`
	Hidden         bool       `db:"hidden" json:"hidden"`
	Likes          int        `db:"likes" json:"likes"`
	CreatedAt      time.Time  `db:"created_at" json:"date"`
}

// PostView is the API representation of a post together with its nested
// replies. Root posts list their replies under "comments"; comments and
// answers list theirs under "answers".
type PostView struct {
	ID      uuid.UUID
	Type    PostType
	Title   string
	Content string
	User    string
	Date    time.Time
	Likes   int
	Replies []*PostView
}

// NewPostView builds a view of p without replies.
func NewPostView(p *Post) *PostView {
	return &PostView{
		ID:      p.ID,
		Type:    p.Type,
		Title:   p.Title,
		Content: p.Content,
		User:    p.AuthorUsername,
		Date:    p.CreatedAt,
		Likes:   p.Likes,
	}
}

// MarshalJSON writes the view with the reply key chosen by post type.
func (v *PostView) MarshalJSON() ([]byte, error) {
	replies := v.Replies
	if replies == nil {
		replies = []*PostView{}
	}

	out := map[string]any{
		"id":      v.ID,
		"title":   v.Title,
		"content": v.Content,
		"user":    v.User,
		"date":    v.Date,
		"likes":   v.Likes,
	}
	if v.Type == PostTypeRoot {
		out["comments"] = replies
	} else {
		out["answers"] = replies
	}
	return json.Marshal(out)
}
