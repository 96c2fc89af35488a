package controllers

import (
	"context"
	"net/http"

	"github.com/cyglobaltech/storefront-backend/api/middleware"
	"github.com/cyglobaltech/storefront-backend/api/responses"
	"github.com/cyglobaltech/storefront-backend/api/validators"
	"github.com/cyglobaltech/storefront-backend/internal/auth"
	pkgAuth "github.com/cyglobaltech/storefront-backend/pkg/auth"
	"github.com/cyglobaltech/storefront-backend/pkg/config"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

// Successful logins and refreshes also return the access token here.
const tokenHeader = "X-Storefront-Token"

type PasswordResetter interface {
	RequestReset(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, token, newPassword string) error
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

var (
	errAuthDown  = pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
	errResetDown = pkgerrors.New(pkgerrors.CodeInternal, "password reset unavailable")
)

// AuthRegister checks the form rules before the field formats so the first
// failing rule is the one reported.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := failer(w, r, logg)
		if svc == nil {
			fail(errAuthDown)
			return
		}
		var body auth.RegisterRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			fail(err)
			return
		}
		if err := firstErr(auth.ValidateRegistration(body), validators.Struct(body)); err != nil {
			fail(err)
			return
		}
		profile, err := svc.Register(r.Context(), body)
		if err != nil {
			fail(err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, profile)
	}
}

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := failer(w, r, logg)
		if svc == nil {
			fail(errAuthDown)
			return
		}
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			fail(err)
			return
		}
		result, err := svc.Login(r.Context(), body)
		if err != nil {
			fail(err)
			return
		}
		w.Header().Set(tokenHeader, result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}

// AuthLogout ends the session of the presented access token.
func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := failer(w, r, logg)
		if svc == nil {
			fail(errAuthDown)
			return
		}
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}
		if err := svc.Logout(r.Context(), sess.AccessID); err != nil {
			fail(err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh accepts an expired access token as long as its signature and
// issuer check out.
func AuthRefresh(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := failer(w, r, logg)
		if svc == nil {
			fail(errAuthDown)
			return
		}
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			fail(err)
			return
		}
		token := middleware.BearerToken(r)
		if token == "" {
			fail(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}
		claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
		if err != nil {
			fail(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}
		pair, err := svc.Refresh(r.Context(), claims, body.RefreshToken)
		if err != nil {
			fail(err)
			return
		}
		w.Header().Set(tokenHeader, pair.AccessToken)
		responses.WriteSuccess(w, pair)
	}
}

// AuthPasswordReset mails a reset token to a registered address.
func AuthPasswordReset(svc PasswordResetter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := failer(w, r, logg)
		if svc == nil {
			fail(errResetDown)
			return
		}
		var body auth.ResetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			fail(err)
			return
		}
		if err := svc.RequestReset(r.Context(), body.Email); err != nil {
			fail(err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "reset_sent"})
	}
}

func AuthPasswordResetConfirm(svc PasswordResetter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := failer(w, r, logg)
		if svc == nil {
			fail(errResetDown)
			return
		}
		var body auth.ResetConfirmRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			fail(err)
			return
		}
		if err := svc.ConfirmReset(r.Context(), body.Token, body.Password); err != nil {
			fail(err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "password_updated"})
	}
}

// failer binds the error writer to one request.
func failer(w http.ResponseWriter, r *http.Request, logg *logger.Logger) func(error) {
	return func(err error) {
		responses.WriteError(r.Context(), logg, w, err)
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
