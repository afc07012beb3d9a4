// Package session provides Valkey-backed HTTP sessions for the Agora API.
//
// A session is a random id carried in an HttpOnly cookie. Its payload lives
// in Valkey under session:<id> and expires on its own. Each user also has an
// index set, session:user:<uuid>, listing their live session ids so that all
// of them can be revoked at once after a password change or a 2FA reset.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agora/internal/models"
)

const (
	// CookieName is the name of the session cookie sent to the client.
	CookieName = "agora_session"

	// DefaultTTL is used when the store is built with a non-positive TTL.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "session:"

	// userIndexPrefix shares keyPrefix; ids are hex so they never start with "user:".
	userIndexPrefix = keyPrefix + "user:"

	idLength = 32 // random bytes, 64 hex chars
)

// ErrNoSession is returned by Update when the request carries no session cookie.
var ErrNoSession = errors.New("no session cookie")

// Data is the session payload stored in Valkey.
type Data struct {
	UserID    uuid.UUID   `json:"user_id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	TwoFADone bool        `json:"two_fa_done"`
	CreatedAt time.Time   `json:"created_at"`
}

// IsAdmin returns true if the session belongs to an administrator.
func (d *Data) IsAdmin() bool {
	return d.Role == models.RoleAdmin
}

// Store manages session lifecycle in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store backed by the given Valkey client.
// A non-positive ttl falls back to DefaultTTL. secure sets the Secure flag
// on the cookie and should be on whenever the API is served over TLS.
func NewStore(client *redis.Client, ttl time.Duration, secure bool) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl, secure: secure}
}

func dataKey(id string) string { return keyPrefix + id }
func userIndexKey(userID uuid.UUID) string { return userIndexPrefix + userID.String() }

// ID returns the session id carried by the request, or "" if none.
func ID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// Create stores a new session for data.UserID, indexes it under the user
// and sets the cookie. It returns the new session id.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}
	data.CreatedAt = time.Now()

	if err := s.save(ctx, id, data); err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	s.setCookie(w, id, int(s.ttl.Seconds()))
	return id, nil
}

// Get loads the session named by the request cookie. A missing cookie or
// an expired session yields nil data and no error.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	id := ID(r)
	if id == "" {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, dataKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Update overwrites the payload of the request's session and restarts its TTL.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	id := ID(r)
	if id == "" {
		return fmt.Errorf("session update: %w", ErrNoSession)
	}
	if err := s.save(ctx, id, data); err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return nil
}

// save writes the payload and refreshes the user index in one transaction.
// The index lives as long as the newest session it lists.
func (s *Store) save(ctx context.Context, id string, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	idx := userIndexKey(data.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, dataKey(id), payload, s.ttl)
		pipe.SAdd(ctx, idx, id)
		pipe.Expire(ctx, idx, s.ttl)
		return nil
	})
	return err
}

// Destroy removes the request's session and expires the cookie. Without a
// cookie it does nothing. A failure to drop the id from the user index is
// logged but does not fail the logout.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := ID(r)
	if id == "" {
		return nil
	}

	payload, err := s.client.GetDel(ctx, dataKey(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return fmt.Errorf("session destroy: %w", err)
	default:
		var data Data
		if json.Unmarshal(payload, &data) == nil {
			if err := s.client.SRem(ctx, userIndexKey(data.UserID), id).Err(); err != nil {
				slog.Warn("session index cleanup failed", "error", err, "user_id", data.UserID)
			}
		}
	}

	s.setCookie(w, "", -1)
	return nil
}

// RevokeUser deletes every session of userID except keep, which may be ""
// to revoke all of them. It returns how many sessions were removed.
func (s *Store) RevokeUser(ctx context.Context, userID uuid.UUID, keep string) (int, error) {
	idx := userIndexKey(userID)
	ids, err := s.client.SMembers(ctx, idx).Result()
	if err != nil {
		return 0, fmt.Errorf("session revoke: %w", err)
	}

	var keys, gone []string
	for _, id := range ids {
		if id == keep {
			continue
		}
		keys = append(keys, dataKey(id))
		gone = append(gone, id)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	var removed *redis.IntCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, keys...)
		pipe.SRem(ctx, idx, toAny(gone)...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("session revoke: %w", err)
	}
	return int(removed.Val()), nil
}

func (s *Store) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// generateID creates a cryptographically random session identifier.
func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
