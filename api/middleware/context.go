package middleware

import (
	"context"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	pkgAuth "github.com/cyglobaltech/storefront-backend/pkg/auth"
)

type contextKey string

const (
	ctxClaims   contextKey = "access_claims"
	ctxDeviceID contextKey = "device_id"
)

// SessionFromContext returns the authenticated session, or nil for guests.
func SessionFromContext(ctx context.Context) *identity.Session {
	sess, _ := identity.FromContext(ctx)
	return sess
}

func UserIDFromContext(ctx context.Context) string {
	if sess := SessionFromContext(ctx); sess.Active() {
		return sess.UserID.String()
	}
	return ""
}

// ClaimsFromContext returns the verified access token claims.
func ClaimsFromContext(ctx context.Context) *pkgAuth.AccessTokenClaims {
	if ctx == nil {
		return nil
	}
	claims, _ := ctx.Value(ctxClaims).(*pkgAuth.AccessTokenClaims)
	return claims
}

func DeviceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDeviceID).(string); ok {
		return v
	}
	return ""
}

// WithDeviceID injects the local store device into the context.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxDeviceID, deviceID)
}

// WithSession injects an authenticated session, as Auth does.
func WithSession(ctx context.Context, sess *identity.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return identity.WithSession(ctx, sess)
}
