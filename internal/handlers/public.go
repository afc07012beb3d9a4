package handlers

import (
	"net/http"

	"agora/internal/middleware"
)

// Public serves the unauthenticated informational endpoints.
type Public struct{}

// NewPublic creates a new Public handler group.
func NewPublic() *Public {
	return &Public{}
}

// Home greets the caller, naming them when a session is present.
func (p *Public) Home(w http.ResponseWriter, r *http.Request) {
	var user any
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		user = sess.Username
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Hello world!",
		"user":    user,
	})
}

// Health reports that the process is serving requests.
func (p *Public) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
