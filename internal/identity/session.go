// Package identity carries the caller's session explicitly through request
// contexts. A Session exists only between a successful login and logout;
// nothing in the service looks up a "current user" any other way.
package identity

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/pkg/enums"
)

// GuestPrefix prefixes the cart identity of a caller with no login.
const GuestPrefix = "guest:"

var deviceIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidDeviceID reports whether id can name a device namespace.
func ValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}

// Session is the caller. A logged-in session has a UserID; a guest session
// carries only the DeviceID its cart belongs to.
type Session struct {
	UserID   uuid.UUID
	Email    string
	Role     enums.Role
	AccessID string
	DeviceID string
}

// Guest returns the session of an anonymous caller on deviceID.
func Guest(deviceID string) *Session {
	return &Session{DeviceID: deviceID}
}

type ctxKey struct{}

// WithSession returns a context carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session, if any.
func FromContext(ctx context.Context) (*Session, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}

// Active reports whether s identifies a logged-in user.
func (s *Session) Active() bool {
	return s != nil && s.UserID != uuid.Nil
}

// CartOwner is the key a blob cart is stored under: the user's email, the
// user id when the email is missing, or "guest:<device>" for anonymous
// callers. It is empty when s identifies nobody.
func (s *Session) CartOwner() string {
	switch {
	case s == nil:
		return ""
	case strings.TrimSpace(s.Email) != "":
		return strings.TrimSpace(s.Email)
	case s.UserID != uuid.Nil:
		return "user:" + s.UserID.String()
	case s.DeviceID != "":
		return GuestPrefix + s.DeviceID
	}
	return ""
}

// IsAdmin reports whether the role is exactly admin.
func (s *Session) IsAdmin() bool {
	return s.Active() && s.Role == enums.RoleAdmin
}
