// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

// TestPostTypeAccepts covers every parent/child combination of the reply rules.
func TestPostTypeAccepts(t *testing.T) {
	tests := []struct {
		parent PostType
		child  PostType
		want   bool
	}{
		{parent: PostTypeRoot, child: PostTypeComment, want: true},
		{parent: PostTypeRoot, child: PostTypeAnswer, want: false},
		{parent: PostTypeRoot, child: PostTypeRoot, want: false},
		{parent: PostTypeComment, child: PostTypeComment, want: false},
		{parent: PostTypeComment, child: PostTypeAnswer, want: true},
		{parent: PostTypeAnswer, child: PostTypeComment, want: false},
		{parent: PostTypeAnswer, child: PostTypeAnswer, want: true},
		{parent: PostTypeAnswer, child: PostType("bogus"), want: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.parent)+"<-"+string(tt.child), func(t *testing.T) {
			if got := tt.parent.Accepts(tt.child); got != tt.want {
				t.Errorf("%q.Accepts(%q) = %v, want %v", tt.parent, tt.child, got, tt.want)
			}
		})
	}
}

func TestPostTypeValid(t *testing.T) {
	for _, pt := range []PostType{PostTypeRoot, PostTypeComment, PostTypeAnswer} {
		if !pt.Valid() {
			t.Errorf("%q should be valid", pt)
		}
	}
	if PostType("post").Valid() {
		t.Error(`"post" should not be valid`)
	}
}

// TestPostViewMarshalJSON verifies the reply key switches with the post type
// and that a leaf serializes an empty list rather than null.
func TestPostViewMarshalJSON(t *testing.T) {
	answer := &PostView{ID: uuid.New(), Type: PostTypeAnswer, Title: "a", User: "bob"}
	comment := &PostView{ID: uuid.New(), Type: PostTypeComment, Title: "c", Replies: []*PostView{answer}}
	root := &PostView{
		ID:      uuid.New(),
		Type:    PostTypeRoot,
		Title:   "r",
		Date:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Likes:   2,
		Replies: []*PostView{comment},
	}

	raw, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := got["answers"]; ok {
		t.Error("root view must not carry an answers key")
	}
	comments, ok := got["comments"].([]any)
	if !ok || len(comments) != 1 {
		t.Fatalf("comments: got %v, want one entry", got["comments"])
	}
	if got["likes"].(float64) != 2 {
		t.Errorf("likes: got %v, want 2", got["likes"])
	}

	c := comments[0].(map[string]any)
	if c["id"] != comment.ID.String() {
		t.Errorf("comment id: got %v, want %s", c["id"], comment.ID)
	}
	answers, ok := c["answers"].([]any)
	if !ok || len(answers) != 1 {
		t.Fatalf("answers: got %v, want one entry", c["answers"])
	}

	leaf := answers[0].(map[string]any)
	if leaf["user"] != "bob" {
		t.Errorf("user: got %v, want bob", leaf["user"])
	}
	if list, ok := leaf["answers"].([]any); !ok || len(list) != 0 {
		t.Errorf("leaf answers: got %v, want []", leaf["answers"])
	}
}
