package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cyglobaltech/storefront-backend/api/responses"
	"github.com/cyglobaltech/storefront-backend/internal/identity"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

const deviceIDHeader = "X-Device-Id"

var (
	errDeviceMissing = pkgerrors.New(pkgerrors.CodeValidation, "X-Device-Id header required")
	errDeviceInvalid = pkgerrors.New(pkgerrors.CodeValidation, "invalid X-Device-Id header")
)

// DeviceID scopes the request to the local credential namespace named by the
// X-Device-Id header. Requests without a usable header are rejected, so no
// two clients ever share a logged-in pointer by accident.
func DeviceID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID, present := deviceFromHeader(r)
			switch {
			case !present:
				responses.WriteError(r.Context(), logg, w, errDeviceMissing)
				return
			case !identity.ValidDeviceID(deviceID):
				responses.WriteError(r.Context(), logg, w, errDeviceInvalid)
				return
			}
			next.ServeHTTP(w, r.WithContext(withDevice(r, logg, deviceID)))
		})
	}
}

// GuestDevice binds anonymous callers to a guest session for the device in
// X-Device-Id. Logged-in callers pass through. A guest without the header
// gets no session and the cart policy decides what that means.
func GuestDevice(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionFromContext(r.Context()).Active() {
				next.ServeHTTP(w, r)
				return
			}
			deviceID, present := deviceFromHeader(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			if !identity.ValidDeviceID(deviceID) {
				responses.WriteError(r.Context(), logg, w, errDeviceInvalid)
				return
			}
			ctx := withDevice(r, logg, deviceID)
			next.ServeHTTP(w, r.WithContext(identity.WithSession(ctx, identity.Guest(deviceID))))
		})
	}
}

func deviceFromHeader(r *http.Request) (string, bool) {
	deviceID := strings.TrimSpace(r.Header.Get(deviceIDHeader))
	return deviceID, deviceID != ""
}

func withDevice(r *http.Request, logg *logger.Logger, deviceID string) context.Context {
	ctx := WithDeviceID(r.Context(), deviceID)
	if logg != nil {
		ctx = logg.WithDeviceID(ctx, deviceID)
	}
	return ctx
}
