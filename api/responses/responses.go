// Package responses writes the JSON envelopes every storefront handler
// answers with: {"data": ...} on success and {"error": {...}} on failure.
package responses

import (
	"context"
	"encoding/json"
	"net/http"

	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

var encodeFailure = []byte(`{"error":{"code":"INTERNAL_ERROR","message":"internal server error"}}` + "\n")

func WriteSuccess(w http.ResponseWriter, data any) {
	WriteSuccessStatus(w, http.StatusOK, data)
}

func WriteSuccessStatus(w http.ResponseWriter, status int, data any) {
	send(w, status, Body{Data: data})
}

// WriteError answers with the status and public message registered for the
// error's code. Errors without a code are internal. Server side failures
// log at error with the trace; client mistakes log at warn.
func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	meta := pkgerrors.MetadataFor(typed.Code())

	problem := Problem{Code: string(typed.Code()), Message: meta.PublicMessage(typed)}
	if meta.DetailsAllowed {
		problem.Details = typed.Details()
	}

	if logg != nil {
		fields := pkgerrors.TraceOf(typed).Fields()
		if d, ok := typed.Details().(map[string]any); ok && d["step"] != nil {
			fields["step"] = d["step"]
		}
		fields["status"] = meta.HTTPStatus
		scoped := logg.WithFields(ctx, fields)
		if meta.HTTPStatus >= http.StatusInternalServerError {
			logg.Error(scoped, "request.error", typed)
		} else {
			logg.Warn(scoped, "request.rejected")
		}
	}

	send(w, meta.HTTPStatus, ErrorBody{Error: problem})
}

// send encodes before writing the header so a payload that cannot be
// encoded still yields a well formed 500.
func send(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		status, body = http.StatusInternalServerError, encodeFailure
	} else {
		body = append(body, '\n')
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
