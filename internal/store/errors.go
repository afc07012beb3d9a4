// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by the stores. Handlers match them with
// errors.Is to choose a response status.
var (
	ErrUserNotFound  = errors.New("user does not exist")
	ErrUsernameTaken = errors.New("username already registered")
	ErrEmailTaken    = errors.New("email already registered")

	ErrSelfFollow       = errors.New("you can't follow yourself")
	ErrAlreadyFollowing = errors.New("you are already following this user")
	ErrNotFollowing     = errors.New("you aren't following this user")

	ErrPostNotFound    = errors.New("post does not exist")
	ErrReplyNotAllowed = errors.New("this post does not accept that kind of reply")
	ErrInvalidPostType = errors.New("invalid post type")
	ErrNotPostOwner    = errors.New("you can only change visibility of your own posts")
	ErrAuthorIsAdmin   = errors.New("author is admin")

	ErrSelfLike     = errors.New("you can't like your own post")
	ErrAlreadyLiked = errors.New("you already liked this post")
	ErrNotLiked     = errors.New("you haven't liked this post")
)

// uniqueViolation returns the constraint name when err is a PostgreSQL
// unique violation (SQLSTATE 23505).
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
