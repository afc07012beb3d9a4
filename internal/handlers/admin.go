// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the Agora API.
// Handlers are grouped by concern (auth, users, posts, admin, public) and
// receive their dependencies through the handler struct.
package handlers

import (
	"log/slog"
	"net/http"

	"agora/internal/middleware"
	"agora/internal/session"
	"agora/internal/store"
)

// Admin groups the moderation and user management handlers. Every route
// is mounted behind RequireAuth, Require2FA and RequireAdmin.
type Admin struct {
	sessions  *session.Store
	userStore *store.UserStore
	posts     *Posts
}

// NewAdmin creates a new Admin handler group. Post moderation shares the
// Posts visibility handler with the owner routes.
func NewAdmin(sessions *session.Store, userStore *store.UserStore, posts *Posts) *Admin {
	return &Admin{
		sessions:  sessions,
		userStore: userStore,
		posts:     posts,
	}
}

// HidePost hides any post not written by an admin.
func (a *Admin) HidePost(w http.ResponseWriter, r *http.Request) {
	slog.Info("admin hide post", "admin", middleware.SessionFromCtx(r.Context()).Username)
	a.posts.setHidden(w, r, true, true)
}

// UnhidePost restores any post not written by an admin.
func (a *Admin) UnhidePost(w http.ResponseWriter, r *http.Request) {
	slog.Info("admin unhide post", "admin", middleware.SessionFromCtx(r.Context()).Username)
	a.posts.setHidden(w, r, false, true)
}

// UsersList returns every account.
func (a *Admin) UsersList(w http.ResponseWriter, r *http.Request) {
	users, err := a.userStore.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": users})
}

// UserResetTwoFA resets another user's 2FA and signs them out everywhere,
// forcing re-setup on next login.
func (a *Admin) UserResetTwoFA(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	targetID, err := uuidParam(r, "id", store.ErrUserNotFound)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// Cannot reset your own 2FA.
	if targetID == sess.UserID {
		writeDetail(w, http.StatusForbidden, "Cannot reset your own 2FA")
		return
	}

	target, err := a.userStore.FindByID(r.Context(), targetID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if target == nil {
		writeError(w, r, store.ErrUserNotFound)
		return
	}

	if err := a.userStore.ResetTOTP(r.Context(), targetID); err != nil {
		writeError(w, r, err)
		return
	}

	// Sessions that already passed the old second factor must not outlive it.
	revoked, err := a.sessions.RevokeUser(r.Context(), targetID, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("2fa reset by admin", "admin", sess.Username, "target_user", targetID, "sessions_revoked", revoked)
	writeMessage(w, "Two-factor authentication reset")
}
