package controllers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/cyglobaltech/storefront-backend/api/middleware"
	"github.com/cyglobaltech/storefront-backend/api/responses"
	"github.com/cyglobaltech/storefront-backend/api/validators"
	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/internal/printjobs"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	"github.com/cyglobaltech/storefront-backend/pkg/pagination"
)

const (
	printJobFilesField = "files"
	multipartMemoryCap = 8 << 20
)

type PrintJobService interface {
	Submit(ctx context.Context, sess *identity.Session, files []printjobs.File) (*printjobs.JobDTO, error)
	ListMine(ctx context.Context, sess *identity.Session, params pagination.Params) (*pagination.Page[printjobs.JobDTO], error)
	List(ctx context.Context, input printjobs.ListInput) (*pagination.Page[printjobs.JobDTO], error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PrintJobStatus) (*printjobs.JobDTO, error)
}

type updatePrintJobStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// PrintJobsSubmit accepts a multipart form with one or more "files" parts.
// The whole request body is capped at maxBytes.
func PrintJobsSubmit(svc PrintJobService, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "print service unavailable"))
			return
		}

		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			responses.WriteError(r.Context(), logg, w, printjobs.ErrLoginRequired)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(multipartMemoryCap); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation,
					fmt.Sprintf("upload exceeds %d MB", maxBytes>>20)))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}
		defer func() {
			if err := r.MultipartForm.RemoveAll(); err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "multipart temp files not removed")
			}
		}()

		files, closeAll, err := openParts(r.MultipartForm.File[printJobFilesField])
		defer func() {
			if cerr := closeAll(); cerr != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", cerr.Error()), "multipart parts not closed")
			}
		}()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read upload"))
			return
		}

		job, err := svc.Submit(r.Context(), sess, files)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, job)
	}
}

// PrintJobsListMine lists the caller's jobs, newest first.
func PrintJobsListMine(svc PrintJobService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "print service unavailable"))
			return
		}

		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListMine(r.Context(), middleware.SessionFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// AdminPrintJobsList lists every job, optionally filtered by ?status=.
func AdminPrintJobsList(svc PrintJobService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "print service unavailable"))
			return
		}

		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := printjobs.ListInput{Pagination: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.PrintJobStatus(raw)
			input.Status = &status
		}

		page, err := svc.List(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func AdminPrintJobUpdateStatus(svc PrintJobService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "print service unavailable"))
			return
		}

		id, err := parseUUIDParam(r, "jobId", "print job id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updatePrintJobStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		job, err := svc.UpdateStatus(r.Context(), id, enums.PrintJobStatus(strings.TrimSpace(body.Status)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, job)
	}
}

func openParts(headers []*multipart.FileHeader) ([]printjobs.File, func() error, error) {
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() error {
		var err error
		for _, f := range opened {
			err = multierr.Append(err, f.Close())
		}
		return err
	}

	files := make([]printjobs.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, printjobs.File{Name: fh.Filename, Size: fh.Size, Body: f})
	}
	return files, closeAll, nil
}
