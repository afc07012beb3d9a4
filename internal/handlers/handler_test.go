// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Valkey are unavailable.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"agora/internal/database"
	"agora/internal/feed"
	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/session"
	"agora/internal/store"
	"agora/internal/thread"
)

// testPageSize keeps feed pages small so paging is easy to exercise.
const testPageSize = 3

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "agora")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "agora")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sqlx.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db.DB); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testValkeyClient returns a Redis client for handler tests on DB 15.
func testValkeyClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("VALKEY_HOST", "localhost")
	port := envOr("VALKEY_PORT", "6379")
	password := os.Getenv("VALKEY_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Valkey not reachable: %v", err)
	}

	t.Cleanup(func() {
		// Clean up test session keys.
		keys, _ := client.Keys(ctx, "session:*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB          *sqlx.DB
	Valkey      *redis.Client
	Sessions    *session.Store
	UserStore   *store.UserStore
	FollowStore *store.FollowStore
	PostStore   *store.PostStore
	LikeStore   *store.LikeStore
	Admin       *Admin
	Auth        *Auth
	Users       *Users
	Posts       *Posts
	Public      *Public

	usernames []string
}

// newTestEnv creates a complete test environment with all handler dependencies.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	vk := testValkeyClient(t)

	sessions := session.NewStore(vk, time.Minute, false)
	userStore := store.NewUserStore(db)
	followStore := store.NewFollowStore(db)
	postStore := store.NewPostStore(db)
	likeStore := store.NewLikeStore(db)
	trees := thread.New(postStore)
	composer := feed.NewComposer(postStore, followStore, trees, testPageSize)
	posts := NewPosts(postStore, likeStore, trees, composer)

	env := &testEnv{
		DB:          db,
		Valkey:      vk,
		Sessions:    sessions,
		UserStore:   userStore,
		FollowStore: followStore,
		PostStore:   postStore,
		LikeStore:   likeStore,
		Admin:       NewAdmin(sessions, userStore, posts),
		Auth:        NewAuth(sessions, userStore),
		Users:       NewUsers(sessions, userStore, followStore, composer),
		Posts:       posts,
		Public:      NewPublic(),
	}
	t.Cleanup(func() { cleanUsers(db, env.usernames...) })
	return env
}

// newUser creates a user named username. Every user made through env is
// removed, with everything it wrote, when the test ends.
func (env *testEnv) newUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	cleanUsers(env.DB, username)
	env.usernames = append(env.usernames, username)

	u, err := env.UserStore.Create(context.Background(), username, username+"@handler-test.local", "password123", role)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// cleanUsers removes test users, their posts and every edge touching them.
// Posts go in a single statement so replies between test users never block
// the delete.
func cleanUsers(db *sqlx.DB, usernames ...string) {
	const ids = `SELECT id FROM users WHERE username = ANY($1)`
	for _, stmt := range []string{
		`DELETE FROM likes WHERE user_id IN (` + ids + `) OR post_id IN (SELECT id FROM posts WHERE author_id IN (` + ids + `))`,
		`DELETE FROM followers WHERE follower_id IN (` + ids + `) OR followed_id IN (` + ids + `)`,
		`DELETE FROM posts WHERE author_id IN (` + ids + `)`,
		`DELETE FROM users WHERE username = ANY($1)`,
	} {
		db.Exec(stmt, usernames)
	}
}

// testSession creates a session.Data for a stored user.
func testSession(u *models.User, twoFADone bool) *session.Data {
	return &session.Data{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		TwoFADone: twoFADone,
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	return withChiURLParams(r, key, value)
}

// withChiURLParams adds chi URL parameters given as key/value pairs.
func withChiURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// withChiURLParamAndSession adds both chi URL param and session to a request.
func withChiURLParamAndSession(r *http.Request, key, value string, sess *session.Data) *http.Request {
	r = withChiURLParam(r, key, value)
	return r.WithContext(middleware.WithSession(r.Context(), sess))
}

// jsonBody encodes v as a request body.
func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

// decodeBody decodes a recorded JSON response into a generic map.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return got
}

// wantStatus fails the test when rec does not carry status.
func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
}
