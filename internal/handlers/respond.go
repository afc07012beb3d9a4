// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"agora/internal/feed"
	"agora/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// inputError is a client input problem whose message is safe to echo.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

// badRequest builds an input error reported as 400 with msg as detail.
func badRequest(format string, args ...any) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

// errorStatus lists the domain errors with a dedicated status code. The
// sentinel text, capitalized, becomes the response detail.
var errorStatus = []struct {
	err    error
	status int
}{
	{store.ErrUserNotFound, http.StatusNotFound},
	{store.ErrPostNotFound, http.StatusNotFound},
	{feed.ErrNoSuchPage, http.StatusNotFound},

	{feed.ErrInvalidPage, http.StatusBadRequest},
	{store.ErrUsernameTaken, http.StatusBadRequest},
	{store.ErrEmailTaken, http.StatusBadRequest},
	{store.ErrSelfFollow, http.StatusBadRequest},
	{store.ErrAlreadyFollowing, http.StatusBadRequest},
	{store.ErrNotFollowing, http.StatusBadRequest},
	{store.ErrInvalidPostType, http.StatusBadRequest},

	{store.ErrReplyNotAllowed, http.StatusForbidden},
	{store.ErrNotPostOwner, http.StatusForbidden},
	{store.ErrAuthorIsAdmin, http.StatusForbidden},
	{store.ErrSelfLike, http.StatusForbidden},
	{store.ErrAlreadyLiked, http.StatusForbidden},
	{store.ErrNotLiked, http.StatusForbidden},
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeDetail writes an error body of the form {"detail": msg}.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// writeMessage writes a success body of the form {"message": msg}.
func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// writeError maps a domain error to its status code. Anything unknown is
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ie *inputError
	if errors.As(err, &ie) {
		writeDetail(w, http.StatusBadRequest, capitalize(ie.msg))
		return
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			writeDetail(w, e.status, capitalize(e.err.Error()))
			return
		}
	}

	slog.Error("request failed",
		"request_id", chimw.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeDetail(w, http.StatusInternalServerError, "Internal server error")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// decodeJSON reads a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("malformed JSON body")
	}
	return nil
}

// uuidParam parses a chi URL parameter as a UUID. A malformed id can never
// match a row, so it is reported with notFound.
func uuidParam(r *http.Request, name string, notFound error) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, notFound
	}
	return id, nil
}

// pageParam parses the {page} URL parameter.
func pageParam(r *http.Request) (int, error) {
	page, err := strconv.Atoi(chi.URLParam(r, "page"))
	if err != nil {
		return 0, feed.ErrInvalidPage
	}
	return page, nil
}
