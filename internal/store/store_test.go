// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"agora/internal/database"
	"agora/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "agora")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "agora")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db.DB); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// cleanUsers removes test users, their posts and every edge touching them.
// Posts go in a single statement so replies between test users never
// block the delete. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sqlx.DB, usernames ...string) {
	t.Helper()
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

// mustUser creates a regular test user and schedules its removal.
func mustUser(t *testing.T, db *sqlx.DB, username string) *models.User {
	t.Helper()
	return mustUserWithRole(t, db, username, models.RoleRegular)
}

func mustUserWithRole(t *testing.T, db *sqlx.DB, username string, role models.Role) *models.User {
	t.Helper()
	cleanUsers(t, db, username)
	t.Cleanup(func() { cleanUsers(t, db, username) })

	u, err := NewUserStore(db).Create(context.Background(), username, username+"@store-test.local", "password123", role)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}
