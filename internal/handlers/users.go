// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"agora/internal/feed"
	"agora/internal/middleware"
	"agora/internal/session"
	"agora/internal/store"
)

// Users groups the profile and follow-graph handlers.
type Users struct {
	sessions    *session.Store
	userStore   *store.UserStore
	followStore *store.FollowStore
	feed        *feed.Composer
}

// NewUsers creates a new Users handler group.
func NewUsers(sessions *session.Store, userStore *store.UserStore, followStore *store.FollowStore, composer *feed.Composer) *Users {
	return &Users{
		sessions:    sessions,
		userStore:   userStore,
		followStore: followStore,
		feed:        composer,
	}
}

// Profile returns a user's public profile with relation counts. A
// signed-in viewer also learns whether they follow the user.
func (u *Users) Profile(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", store.ErrUserNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	profile, err := u.userStore.Profile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if profile == nil {
		writeError(w, r, store.ErrUserNotFound)
		return
	}

	if sess := middleware.SessionFromCtx(r.Context()); sess != nil && sess.UserID != id {
		following, err := u.followStore.IsFollowing(r.Context(), sess.UserID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		profile.IsFollowing = &following
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": profile})
}

// Posts returns a page of a user's visible root posts with their trees.
func (u *Users) Posts(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id", store.ErrUserNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := u.userStore.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, store.ErrUserNotFound)
		return
	}

	views, err := u.feed.ByAuthor(r.Context(), id, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": views})
}

// UpdateProfile changes the caller's username and email.
func (u *Users) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := u.userStore.UpdateProfile(r.Context(), sess.UserID, req.Username, req.Email); err != nil {
		writeError(w, r, err)
		return
	}

	// Keep the session's copy of the username current.
	if sess.Username != req.Username {
		sess.Username = req.Username
		if err := u.sessions.Update(r.Context(), r, sess); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeMessage(w, "Profile updated")
}

// ChangePassword replaces the caller's password and ends their other sessions.
func (u *Users) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := u.userStore.SetPassword(r.Context(), sess.UserID, req.Password); err != nil {
		writeError(w, r, err)
		return
	}

	// Sign out every other device; the caller keeps this session.
	revoked, err := u.sessions.RevokeUser(r.Context(), sess.UserID, session.ID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("password changed", "user", sess.Username, "sessions_revoked", revoked)
	writeMessage(w, "Password changed")
}

// Follow makes the caller follow the user in the URL.
func (u *Users) Follow(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, err := uuidParam(r, "id", store.ErrUserNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := u.followStore.Follow(r.Context(), sess.UserID, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Followed successfully")
}

// Unfollow removes the caller's follow edge to the user in the URL.
func (u *Users) Unfollow(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	id, err := uuidParam(r, "id", store.ErrUserNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	err = u.followStore.Unfollow(r.Context(), sess.UserID, id)
	if errors.Is(err, store.ErrSelfFollow) {
		writeDetail(w, http.StatusBadRequest, "You can't unfollow yourself")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Unfollowed successfully")
}
