// Package router sets up all HTTP routes and middleware chains for the
// Agora API. It organizes routes into public, authenticated and admin groups
// with appropriate middleware stacks.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"agora/internal/handlers"
	"agora/internal/middleware"
	"agora/internal/session"
)

// Handlers bundles the handler groups mounted by New.
type Handlers struct {
	Admin  *handlers.Admin
	Auth   *handlers.Auth
	Users  *handlers.Users
	Posts  *handlers.Posts
	Public *handlers.Public
}

// Options tunes the edge middleware.
type Options struct {
	SecureCookies bool
	CORSOrigins   []string

	// TrustProxy rewrites RemoteAddr from forwarding headers. Only enable
	// it behind a proxy that overwrites them.
	TrustProxy bool

	// AuthLimiter throttles register and login per client IP. Nil disables it.
	AuthLimiter *middleware.RateLimiter
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessionStore *session.Store, h Handlers, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	if opts.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.CSRFHeaderName},
		AllowCredentials: true,
		MaxAge:           int((5 * time.Minute).Seconds()),
	}))
	r.Use(middleware.LoadSession(sessionStore))
	r.Use(middleware.NewCSRF(opts.SecureCookies))

	// Health check and greeting. No auth.
	r.Get("/health", h.Public.Health)
	r.Get("/", h.Public.Home)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/csrf", h.Auth.CSRFToken)

		r.Group(func(r chi.Router) {
			if opts.AuthLimiter != nil {
				r.Use(opts.AuthLimiter.Middleware)
			}
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
		})

		// Logout and 2FA require a session but NOT completed 2FA.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Post("/logout", h.Auth.Logout)
			r.Get("/2fa/setup", h.Auth.TwoFASetup)
			r.Post("/2fa/verify", h.Auth.TwoFAVerify)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/{id}", h.Users.Profile)
		r.Get("/{id}/posts/{page}", h.Users.Posts)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Put("/me", h.Users.UpdateProfile)
			r.Put("/me/password", h.Users.ChangePassword)
			r.Get("/{id}/follow", h.Users.Follow)
			r.Get("/{id}/unfollow", h.Users.Unfollow)
		})
	})

	r.Route("/posts", func(r chi.Router) {
		r.Get("/all/{page}", h.Posts.All)
		r.Get("/{id}", h.Posts.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Use(middleware.Require2FA)
			r.Post("/", h.Posts.Create)
			r.Get("/followed/{page}", h.Posts.Followed)
			r.Post("/{id}/comment", h.Posts.Comment)
			r.Post("/{id}/answer", h.Posts.Answer)
			r.Put("/{id}/like", h.Posts.Like)
			r.Delete("/{id}/like", h.Posts.Unlike)
			r.Post("/{id}/hide", h.Posts.Hide)
			r.Post("/{id}/unhide", h.Posts.Unhide)
		})
	})

	// Authenticated + 2FA-verified admin area.
	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Use(middleware.Require2FA)
		r.Use(middleware.RequireAdmin)

		r.Get("/users", h.Admin.UsersList)
		r.Post("/users/{id}/2fa/reset", h.Admin.UserResetTwoFA)
		r.Post("/posts/{id}/hide", h.Admin.HidePost)
		r.Post("/posts/{id}/unhide", h.Admin.UnhidePost)
	})

	return r
}
