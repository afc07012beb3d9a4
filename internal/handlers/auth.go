package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"agora/internal/middleware"
	"agora/internal/models"
	"agora/internal/session"
	"agora/internal/store"
)

// totpIssuer names the service in authenticator apps.
const totpIssuer = "Agora"

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	sessions  *session.Store
	userStore *store.UserStore
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions *session.Store, userStore *store.UserStore) *Auth {
	return &Auth{
		sessions:  sessions,
		userStore: userStore,
	}
}

// Register creates a regular account and signs the new user in.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("registration attempt", "username", req.Username, "email", req.Email)
	user, err := a.userStore.Create(r.Context(), req.Username, req.Email, req.Password, models.RoleRegular)
	if err != nil {
		slog.Warn("registration rejected", "username", req.Username, "error", err)
		writeError(w, r, err)
		return
	}

	if err := a.startSession(w, r, user); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Successful",
		"id":      user.ID,
	})
}

// Login checks credentials and starts a session. Admins and users with 2FA
// enabled get a partial session until they verify a TOTP code.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := a.userStore.FindByLogin(r.Context(), req.Login)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil || !a.userStore.CheckPassword(user, req.Password) {
		slog.Warn("invalid credentials", "login", req.Login)
		writeDetail(w, http.StatusBadRequest, "Invalid username, email or password")
		return
	}

	if err := a.userStore.TouchLastSeen(r.Context(), user.ID); err != nil {
		slog.Warn("touch last seen failed", "user", user.ID, "error", err)
	}
	if err := a.startSession(w, r, user); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("login", "username", user.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":             "Successful",
		"two_factor_required": user.RequiresSecondFactor(),
		"two_factor_setup":    user.RequiresSecondFactor() && user.Needs2FASetup(),
	})
}

func (a *Auth) startSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	_, err := a.sessions.Create(r.Context(), w, &session.Data{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		TwoFADone: !user.RequiresSecondFactor(),
	})
	return err
}

// TwoFASetup generates a fresh TOTP secret for the caller and returns it
// with a QR code. The secret only becomes active after TwoFAVerify.
func (a *Auth) TwoFASetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	user, err := a.userStore.FindByID(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, store.ErrUserNotFound)
		return
	}
	if user.TOTPEnabled {
		writeDetail(w, http.StatusBadRequest, "Two-factor authentication is already enabled")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Username,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.userStore.SetTOTPSecret(r.Context(), user.ID, key.Secret()); err != nil {
		writeError(w, r, err)
		return
	}

	qr, err := qrPNG(key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"secret":  key.Secret(),
		"qr_code": qr,
	})
}

// qrPNG renders the otpauth URL of key as a base64-encoded PNG.
func qrPNG(key *otp.Key) (string, error) {
	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

// TwoFAVerify validates a TOTP code. The first successful code enables 2FA
// for the account; every success completes the current session.
func (a *Auth) TwoFAVerify(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())

	var req codeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := a.userStore.FindByID(r.Context(), sess.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if user == nil {
		writeError(w, r, store.ErrUserNotFound)
		return
	}
	if user.TOTPSecret == nil {
		writeDetail(w, http.StatusBadRequest, "Two-factor authentication is not set up")
		return
	}
	if !totp.Validate(req.Code, *user.TOTPSecret) {
		slog.Warn("invalid totp code", "username", user.Username)
		writeDetail(w, http.StatusBadRequest, "Invalid code")
		return
	}

	if !user.TOTPEnabled {
		if err := a.userStore.EnableTOTP(r.Context(), user.ID); err != nil {
			writeError(w, r, err)
			return
		}
	}

	sess.TwoFADone = true
	if err := a.sessions.Update(r.Context(), r, sess); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Successful")
}

// Logout destroys the session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		slog.Info("logout", "username", sess.Username)
	}
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Successful")
}

// CSRFToken returns the caller's CSRF token for clients that cannot read
// the cookie, such as single-page apps served from another origin.
func (a *Auth) CSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"csrf_token": middleware.CSRFTokenFromCtx(r.Context()),
	})
}
