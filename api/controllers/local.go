package controllers

import (
	"context"
	"net/http"

	"github.com/cyglobaltech/storefront-backend/api/middleware"
	"github.com/cyglobaltech/storefront-backend/api/responses"
	"github.com/cyglobaltech/storefront-backend/api/validators"
	"github.com/cyglobaltech/storefront-backend/internal/auth"
	"github.com/cyglobaltech/storefront-backend/internal/localauth"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

// LocalDevice is one device's credential namespace.
type LocalDevice interface {
	Register(ctx context.Context, email, password, name, surname string) (bool, error)
	Login(ctx context.Context, email, password string) (bool, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*localauth.Record, error)
	ImportLegacy(ctx context.Context, raws []string) (localauth.ImportReport, error)
}

// LocalDeviceOpener resolves the namespace for a device id.
type LocalDeviceOpener func(deviceID string) (LocalDevice, error)

// LocalDevices adapts a credential store to LocalDeviceOpener.
func LocalDevices(store *localauth.Store) LocalDeviceOpener {
	if store == nil {
		return nil
	}
	return func(deviceID string) (LocalDevice, error) {
		device, err := store.Device(deviceID)
		if err != nil {
			return nil, err
		}
		return device, nil
	}
}

type localLoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type localImportRequest struct {
	Records []string `json:"records" validate:"required,min=1"`
}

type localUserResponse struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
}

type localMeResponse struct {
	LoggedIn bool               `json:"logged_in"`
	User     *localUserResponse `json:"user"`
}

// LocalRegister adds a record to the device namespace. Emails are matched
// exactly, so differently cased addresses are distinct users.
func LocalRegister(open LocalDeviceOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device, ok := openDevice(w, r, open, logg)
		if !ok {
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := auth.ValidateRegistration(body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := device.Register(r.Context(), body.Email, body.Password, body.Name, body.Surname)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !created {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "user already exists"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, localUserResponse{
			Email:   body.Email,
			Name:    body.Name,
			Surname: body.Surname,
		})
	}
}

func LocalLogin(open LocalDeviceOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device, ok := openDevice(w, r, open, logg)
		if !ok {
			return
		}

		var body localLoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		matched, err := device.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !matched {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_in", "email": body.Email})
	}
}

func LocalLogout(open LocalDeviceOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device, ok := openDevice(w, r, open, logg)
		if !ok {
			return
		}

		if err := device.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// LocalMe reports the device's logged-in user. A dangling pointer reads as
// logged out.
func LocalMe(open LocalDeviceOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device, ok := openDevice(w, r, open, logg)
		if !ok {
			return
		}

		rec, err := device.CurrentUser(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if rec == nil {
			responses.WriteSuccess(w, localMeResponse{})
			return
		}

		responses.WriteSuccess(w, localMeResponse{
			LoggedIn: true,
			User:     &localUserResponse{Email: rec.Email, Name: rec.Name, Surname: rec.Surname},
		})
	}
}

// LocalImport loads records kept in the old delimited format.
func LocalImport(open LocalDeviceOpener, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		device, ok := openDevice(w, r, open, logg)
		if !ok {
			return
		}

		var body localImportRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := device.ImportLegacy(r.Context(), body.Records)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}

func openDevice(w http.ResponseWriter, r *http.Request, open LocalDeviceOpener, logg *logger.Logger) (LocalDevice, bool) {
	if open == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "local credential store unavailable"))
		return nil, false
	}
	device, err := open(middleware.DeviceIDFromContext(r.Context()))
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return nil, false
	}
	return device, true
}
