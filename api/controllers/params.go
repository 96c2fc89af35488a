package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/api/validators"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/pagination"
)

const maxSearchLength = 120

func parsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := validators.PageLimit(r.URL.Query(), pagination.DefaultLimit, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func parseUUIDParam(r *http.Request, name, label string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+label)
	}
	return id, nil
}
