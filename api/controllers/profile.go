package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/api/middleware"
	"github.com/cyglobaltech/storefront-backend/api/responses"
	"github.com/cyglobaltech/storefront-backend/api/validators"
	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/internal/users"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

type ProfileService interface {
	GetProfile(ctx context.Context, uid uuid.UUID) (*users.Profile, error)
	UpdateProfile(ctx context.Context, uid uuid.UUID, name, surname, phone string) error
	IsAdmin(ctx context.Context, sess *identity.Session) bool
}

type updateProfileRequest struct {
	Name    string `json:"name" validate:"required,max=80"`
	Surname string `json:"surname" validate:"required,max=80"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
}

func ProfileGet(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		profile, err := svc.GetProfile(r.Context(), sess.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if profile == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found"))
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// ProfileUpdate changes name, surname and phone only, then returns the stored
// profile.
func ProfileUpdate(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}

		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var body updateProfileRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		body.Name = strings.TrimSpace(body.Name)
		body.Surname = strings.TrimSpace(body.Surname)
		body.Phone = strings.TrimSpace(body.Phone)
		if body.Name == "" || body.Surname == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "name and surname are required"))
			return
		}
		if err := validators.Struct(body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateProfile(r.Context(), sess.UserID, body.Name, body.Surname, body.Phone); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.GetProfile(r.Context(), sess.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if profile == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "profile not found"))
			return
		}

		responses.WriteSuccess(w, profile)
	}
}

// ProfileAdminStatus reports whether the caller's stored profile is an admin.
func ProfileAdminStatus(svc ProfileService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "profile service unavailable"))
			return
		}
		isAdmin := svc.IsAdmin(r.Context(), middleware.SessionFromContext(r.Context()))
		responses.WriteSuccess(w, map[string]bool{"is_admin": isAdmin})
	}
}
