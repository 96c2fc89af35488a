package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cyglobaltech/storefront-backend/api/responses"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

const defaultLimiterIdle = 10 * time.Minute

type callerLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// UploadLimiter throttles upload requests per caller with an in-process token
// bucket. Idle buckets are swept lazily on access.
type UploadLimiter struct {
	perMinute int
	limit     rate.Limit
	burst     int
	idle      time.Duration

	mu        sync.Mutex
	callers   map[string]*callerLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewUploadLimiter allows perMinute requests per caller with the given burst.
// A non-positive perMinute disables limiting.
func NewUploadLimiter(perMinute, burst int) *UploadLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &UploadLimiter{
		perMinute: perMinute,
		limit:     rate.Limit(float64(perMinute) / 60.0),
		burst:     burst,
		idle:      defaultLimiterIdle,
		callers:   map[string]*callerLimiter{},
		now:       time.Now,
	}
}

func (l *UploadLimiter) enabled() bool {
	return l != nil && l.limit > 0
}

// Middleware keys buckets by the session user, falling back to the client IP.
func (l *UploadLimiter) Middleware(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !l.enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := UserIDFromContext(r.Context())
			if key == "" {
				key = "ip:" + clientIP(r)
			}
			if l.allow(key) {
				next.ServeHTTP(w, r)
				return
			}

			if logg != nil {
				logg.Warn(logg.WithField(r.Context(), "caller", key), "upload.rate_limit.blocked")
			}
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfterSeconds()))
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many uploads, try again shortly"))
		})
	}
}

// Len reports how many caller buckets are held.
func (l *UploadLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.callers)
}

func (l *UploadLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idle {
		for k, c := range l.callers {
			if now.Sub(c.lastAccess) > l.idle {
				delete(l.callers, k)
			}
		}
		l.lastSweep = now
	}

	c, ok := l.callers[key]
	if !ok {
		c = &callerLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.callers[key] = c
	}
	c.lastAccess = now
	return c.limiter.AllowN(now, 1)
}

func (l *UploadLimiter) retryAfterSeconds() int {
	// Seconds until one token refills.
	secs := (60 + l.perMinute - 1) / l.perMinute
	if secs < 1 {
		return 1
	}
	return secs
}
