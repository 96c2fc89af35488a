// Package session keeps the server side of a login in Redis. Each access
// token's jti maps to the refresh token issued with it and the owning user.
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/pkg/config"
	redisclient "github.com/cyglobaltech/storefront-backend/pkg/redis"
)

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errNoAccessID          = errors.New("access id is required")
)

// Store is the Redis surface sessions need.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what auth middleware asks of sessions.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

type entry struct {
	UserID string `json:"uid"`
	Token  string `json:"token"`
}

type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager requires a refresh TTL longer than the access token lifetime.
func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	refresh := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case refresh <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case refresh <= access:
		return nil, fmt.Errorf("refresh token ttl %s does not outlive access token ttl %s", refresh, access)
	}
	return &Manager{store: store, ttl: refresh}, nil
}

// NewAccessID mints the jti that keys a session.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if blank(accessID) {
		return "", errNoAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	return m.open(ctx, accessID, userID.String())
}

// Rotate trades a refresh token for a new access id and refresh token. The
// old session is gone once this succeeds.
func (m *Manager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error) {
	if blank(oldAccessID) || blank(provided) {
		return "", "", ErrInvalidRefreshToken
	}
	oldKey := m.store.AccessSessionKey(oldAccessID)
	current, err := m.read(ctx, oldKey)
	if err != nil {
		return "", "", err
	}
	if current.UserID != userID.String() || subtle.ConstantTimeCompare([]byte(current.Token), []byte(provided)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	nextID := NewAccessID()
	token, err := m.open(ctx, nextID, current.UserID)
	if err != nil {
		return "", "", err
	}
	if err := m.store.Del(ctx, oldKey); err != nil {
		return "", "", err
	}
	return nextID, token, nil
}

// Revoke ends the session behind accessID.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errNoAccessID
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errNoAccessID
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case err == nil:
		return true, nil
	case redisclient.IsNil(err):
		return false, nil
	}
	return false, err
}

func (m *Manager) open(ctx context.Context, accessID, userID string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	payload, err := json.Marshal(entry{UserID: userID, Token: token})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// read treats missing and unreadable entries alike.
func (m *Manager) read(ctx context.Context, key string) (entry, error) {
	raw, err := m.store.Get(ctx, key)
	if redisclient.IsNil(err) {
		return entry{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return entry{}, err
	}
	var e entry
	if json.Unmarshal([]byte(raw), &e) != nil {
		return entry{}, ErrInvalidRefreshToken
	}
	return e, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
