// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package thread

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"agora/internal/models"
)

// memSource is an in-memory Source that mirrors the store's filtering:
// hidden posts are dropped and children come back oldest first.
type memSource struct {
	posts []models.Post
	calls int
	fail  error
}

func (m *memSource) ChildrenOf(_ context.Context, parentIDs []uuid.UUID) ([]models.Post, error) {
	m.calls++
	if m.fail != nil {
		return nil, m.fail
	}
	want := make(map[uuid.UUID]bool, len(parentIDs))
	for _, id := range parentIDs {
		want[id] = true
	}
	var out []models.Post
	for _, p := range m.posts {
		if p.ReferTo != nil && want[*p.ReferTo] && !p.Hidden {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func (m *memSource) add(typ models.PostType, parent *models.Post, title string) *models.Post {
	p := models.Post{
		ID:             uuid.New(),
		Type:           typ,
		Title:          title,
		AuthorUsername: "alice",
		CreatedAt:      epoch.Add(time.Duration(len(m.posts)) * time.Minute),
	}
	if parent != nil {
		id := parent.ID
		p.ReferTo = &id
	}
	m.posts = append(m.posts, p)
	return &m.posts[len(m.posts)-1]
}

// TestTree_RootCommentAnswer builds the canonical R -> C -> Ans chain.
func TestTree_RootCommentAnswer(t *testing.T) {
	src := &memSource{posts: make([]models.Post, 0, 8)}
	r := src.add(models.PostTypeRoot, nil, "R")
	c := src.add(models.PostTypeComment, r, "C")
	ans := src.add(models.PostTypeAnswer, c, "Ans")

	tree, err := New(src).Tree(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(tree) != 1 || tree[0].ID != c.ID {
		t.Fatalf("root replies: got %v, want [C]", tree)
	}
	if len(tree[0].Replies) != 1 || tree[0].Replies[0].ID != ans.ID {
		t.Fatalf("comment replies: got %v, want [Ans]", tree[0].Replies)
	}
	leaf := tree[0].Replies[0]
	if leaf.Replies == nil || len(leaf.Replies) != 0 {
		t.Errorf("leaf replies: got %v, want empty non-nil", leaf.Replies)
	}
	if leaf.User != "alice" {
		t.Errorf("leaf user: got %q", leaf.User)
	}
	// Three levels: [R], [C], [Ans].
	if src.calls != 3 {
		t.Errorf("source calls: got %d, want 3", src.calls)
	}
}

func TestTree_OrderOldestFirst(t *testing.T) {
	src := &memSource{posts: make([]models.Post, 0, 8)}
	r := src.add(models.PostTypeRoot, nil, "R")
	first := src.add(models.PostTypeComment, r, "first")
	second := src.add(models.PostTypeComment, r, "second")
	third := src.add(models.PostTypeComment, r, "third")

	tree, err := New(src).Tree(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	want := []uuid.UUID{first.ID, second.ID, third.ID}
	if len(tree) != len(want) {
		t.Fatalf("got %d replies, want %d", len(tree), len(want))
	}
	for i, id := range want {
		if tree[i].ID != id {
			t.Errorf("reply %d: got %s, want %s", i, tree[i].Title, id)
		}
	}
}

func TestTree_HiddenSubtreeExcluded(t *testing.T) {
	src := &memSource{posts: make([]models.Post, 0, 8)}
	r := src.add(models.PostTypeRoot, nil, "R")
	visible := src.add(models.PostTypeComment, r, "visible")
	hidden := src.add(models.PostTypeComment, r, "hidden")
	src.add(models.PostTypeAnswer, hidden, "under hidden")
	hidden.Hidden = true

	tree, err := New(src).Tree(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(tree) != 1 || tree[0].ID != visible.ID {
		t.Fatalf("got %v, want only the visible comment", tree)
	}
	if len(tree[0].Replies) != 0 {
		t.Errorf("visible comment should have no replies, got %d", len(tree[0].Replies))
	}
}

func TestTree_NoReplies(t *testing.T) {
	src := &memSource{}
	tree, err := New(src).Tree(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if tree == nil || len(tree) != 0 {
		t.Errorf("got %v, want empty non-nil slice", tree)
	}
}

// TestTree_Cycle feeds a refer_to loop that the schema would never allow
// and expects an error instead of an endless walk.
func TestTree_Cycle(t *testing.T) {
	src := &memSource{posts: make([]models.Post, 0, 8)}
	a := src.add(models.PostTypeAnswer, nil, "a")
	b := src.add(models.PostTypeAnswer, a, "b")
	aParent := b.ID
	a.ReferTo = &aParent

	_, err := New(src).Tree(context.Background(), a.ID)
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("got %v, want ErrCycle", err)
	}
}

func TestTrees_BatchesLevels(t *testing.T) {
	src := &memSource{posts: make([]models.Post, 0, 16)}
	r1 := src.add(models.PostTypeRoot, nil, "R1")
	r2 := src.add(models.PostTypeRoot, nil, "R2")
	r3 := src.add(models.PostTypeRoot, nil, "R3")
	c1 := src.add(models.PostTypeComment, r1, "C1")
	src.add(models.PostTypeComment, r2, "C2")
	src.add(models.PostTypeAnswer, c1, "A1")

	forest, err := New(src).Trees(context.Background(), []uuid.UUID{r1.ID, r2.ID, r3.ID, r1.ID})
	if err != nil {
		t.Fatalf("Trees: %v", err)
	}
	if len(forest) != 3 {
		t.Fatalf("forest size: got %d, want 3", len(forest))
	}
	if len(forest[r1.ID]) != 1 || len(forest[r1.ID][0].Replies) != 1 {
		t.Errorf("R1 tree shape wrong: %v", forest[r1.ID])
	}
	if len(forest[r2.ID]) != 1 {
		t.Errorf("R2 replies: got %d, want 1", len(forest[r2.ID]))
	}
	if r3Tree, ok := forest[r3.ID]; !ok || len(r3Tree) != 0 {
		t.Errorf("R3 replies: got %v, want empty", r3Tree)
	}
	// Levels: roots, comments, answers.
	if src.calls != 3 {
		t.Errorf("source calls: got %d, want 3", src.calls)
	}
}

// TestTrees_RequestedDescendant asks for a root and one of its comments in
// the same batch. The comment gets its own tree and also stays in the root's.
func TestTrees_RequestedDescendant(t *testing.T) {
	src := &memSource{posts: make([]models.Post, 0, 8)}
	r := src.add(models.PostTypeRoot, nil, "R")
	c := src.add(models.PostTypeComment, r, "C")
	ans := src.add(models.PostTypeAnswer, c, "Ans")

	tests := []struct {
		name string
		ids  []uuid.UUID
	}{
		{"root first", []uuid.UUID{r.ID, c.ID}},
		{"comment first", []uuid.UUID{c.ID, r.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			forest, err := New(src).Trees(context.Background(), tt.ids)
			if err != nil {
				t.Fatalf("Trees: %v", err)
			}
			rTree := forest[r.ID]
			if len(rTree) != 1 || rTree[0].ID != c.ID {
				t.Fatalf("root replies: got %v, want [C]", rTree)
			}
			if len(rTree[0].Replies) != 1 || rTree[0].Replies[0].ID != ans.ID {
				t.Errorf("C inside root tree: got %v, want [Ans]", rTree[0].Replies)
			}
			if cTree := forest[c.ID]; len(cTree) != 1 || cTree[0].ID != ans.ID {
				t.Errorf("comment replies: got %v, want [Ans]", cTree)
			}
		})
	}
}

func TestTrees_SourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := New(&memSource{fail: boom}).Tree(context.Background(), uuid.New())
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want wrapped source error", err)
	}
}
