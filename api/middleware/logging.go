package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	"github.com/cyglobaltech/storefront-backend/pkg/metrics"
)

// trackedWriter remembers the first status and counts body bytes.
type trackedWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *trackedWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *trackedWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *trackedWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *trackedWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// Logging records one line and one latency observation per request. Server
// errors log at warn.
func Logging(logg *logger.Logger, m *metrics.Storefront) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"method": r.Method, "path": r.URL.Path})
			}

			tw := &trackedWriter{ResponseWriter: w}
			next.ServeHTTP(tw, r.WithContext(ctx))

			status, elapsed := tw.code(), time.Since(start)
			route := routeLabel(r)
			m.ObserveRequest(r.Method, route, status, elapsed)
			if logg == nil {
				return
			}
			ctx = logg.WithFields(ctx, map[string]any{
				"route":       route,
				"status":      status,
				"bytes":       tw.bytes,
				"duration_ms": elapsed.Milliseconds(),
			})
			if status >= http.StatusInternalServerError {
				logg.Warn(ctx, "request.failed")
				return
			}
			logg.Info(ctx, "request.complete")
		})
	}
}

// routeLabel uses the chi pattern so ids in paths stay out of metric labels.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
