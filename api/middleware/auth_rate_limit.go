package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cyglobaltech/storefront-backend/api/responses"
	"github.com/cyglobaltech/storefront-backend/pkg/config"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

// Credential forms are small; anything past this is not searched for an email.
const maxThrottledBody = 16 << 10

type rateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Throttle caps attempts on one auth surface within a fixed window, counted
// per client IP and per submitted account email.
type Throttle struct {
	Surface  string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

// AuthThrottles are the storefront's credential surfaces.
type AuthThrottles struct {
	Login    Throttle
	Register Throttle
	Reset    Throttle
}

// NewAuthThrottles reads the throttles from configuration.
func NewAuthThrottles(cfg config.AuthRateLimitConfig) AuthThrottles {
	return AuthThrottles{
		Login:    Throttle{Surface: "login", Window: cfg.LoginWindow, PerIP: cfg.LoginIPLimit, PerEmail: cfg.LoginEmailLimit},
		Register: Throttle{Surface: "register", Window: cfg.RegisterWindow, PerIP: cfg.RegisterIPLimit, PerEmail: cfg.RegisterEmailLimit},
		Reset:    Throttle{Surface: "reset", Window: cfg.ResetWindow, PerIP: cfg.ResetIPLimit, PerEmail: cfg.ResetEmailLimit},
	}
}

func (t Throttle) active() bool {
	return t.Window > 0 && (t.PerIP > 0 || t.PerEmail > 0)
}

type attemptCounter struct {
	kind    string
	subject string
	limit   int
}

func (t Throttle) counters(ip, email string) []attemptCounter {
	var out []attemptCounter
	if t.PerIP > 0 && ip != "" {
		out = append(out, attemptCounter{kind: "ip", subject: ip, limit: t.PerIP})
	}
	if t.PerEmail > 0 && email != "" {
		out = append(out, attemptCounter{kind: "email", subject: emailDigest(email), limit: t.PerEmail})
	}
	return out
}

func (c attemptCounter) scope(surface string) string {
	return "auth:" + surface + ":" + c.kind + ":" + c.subject
}

// Middleware rejects callers that have used up either counter with 429 and a
// Retry-After of one window.
func (t Throttle) Middleware(store rateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !t.active() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var email string
			if t.PerEmail > 0 {
				email = peekEmail(r)
			}

			for _, c := range t.counters(clientIP(r), email) {
				allowed, attempts, err := store.FixedWindowAllow(ctx, c.scope(t.Surface), int64(c.limit), t.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "auth throttle"))
					return
				}
				if allowed {
					continue
				}
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"surface":  t.Surface,
						"counter":  c.kind,
						"attempts": attempts,
						"limit":    c.limit,
					}), "auth.throttled")
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(t.Window.Seconds())))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peekEmail reads the email field from the head of a JSON body and leaves the
// body intact for the handler.
func peekEmail(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	head, err := io.ReadAll(io.LimitReader(r.Body, maxThrottledBody))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if err != nil {
		return ""
	}
	var form struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(head, &form) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(form.Email))
}

// Raw addresses never reach the counter keys.
func emailDigest(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:12])
}
