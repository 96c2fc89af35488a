package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cyglobaltech/storefront-backend/api/controllers"
	"github.com/cyglobaltech/storefront-backend/api/middleware"
	"github.com/cyglobaltech/storefront-backend/internal/auth"
	productsvc "github.com/cyglobaltech/storefront-backend/internal/products"
	"github.com/cyglobaltech/storefront-backend/internal/services"
	"github.com/cyglobaltech/storefront-backend/pkg/auth/session"
	"github.com/cyglobaltech/storefront-backend/pkg/config"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	"github.com/cyglobaltech/storefront-backend/pkg/metrics"
)

// RedisStore backs rate limiting and idempotent replays.
type RedisStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	middleware.IdempotencyStore
}

type profileService interface {
	controllers.ProfileService
	middleware.AdminChecker
}

// Dependencies is everything the router hands to controllers and middleware.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Metrics  *metrics.Storefront
	Gatherer prometheus.Gatherer
	Checks   map[string]controllers.Pinger

	Sessions session.AccessSessionChecker
	Redis    RedisStore

	Auth      auth.Service
	Reset     controllers.PasswordResetter
	Local     controllers.LocalDeviceOpener
	Products  productsvc.Service
	Cart      controllers.CartService
	Profiles  profileService
	PrintJobs controllers.PrintJobService
	Services  *services.Service
}

// NewRouter builds the storefront HTTP surface.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Checks, logg))
	})

	throttles := middleware.NewAuthThrottles(cfg.AuthRateLimit)
	loginThrottle := throttles.Login.Middleware(deps.Redis, logg)
	requireAuth := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	uploads := middleware.NewUploadLimiter(cfg.PrintJobs.UploadsPerMinute, cfg.PrintJobs.UploadBurst)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(loginThrottle).Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.With(throttles.Register.Middleware(deps.Redis, logg)).Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, cfg.JWT, logg))
		r.With(throttles.Reset.Middleware(deps.Redis, logg)).Post("/password-reset", controllers.AuthPasswordReset(deps.Reset, logg))
		r.Post("/password-reset/confirm", controllers.AuthPasswordResetConfirm(deps.Reset, logg))
		r.With(requireAuth).Post("/logout", controllers.AuthLogout(deps.Auth, logg))
	})

	r.Route("/api/v1/local", func(r chi.Router) {
		r.Use(middleware.DeviceID(logg))
		r.Post("/register", controllers.LocalRegister(deps.Local, logg))
		r.With(loginThrottle).Post("/login", controllers.LocalLogin(deps.Local, logg))
		r.Post("/logout", controllers.LocalLogout(deps.Local, logg))
		r.Get("/me", controllers.LocalMe(deps.Local, logg))
		r.With(middleware.Idempotent(middleware.LocalImportReplay, deps.Redis, logg)).Post("/import", controllers.LocalImport(deps.Local, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductsList(deps.Products, logg))
		r.Get("/categories", controllers.ProductCategories(deps.Products, logg))
		r.Get("/{productId}", controllers.ProductsGet(deps.Products, logg))
	})

	r.Route("/api/v1/services", func(r chi.Router) {
		r.Get("/", controllers.ServicesLinks(deps.Services, logg))
		r.Get("/repairs/{reference}", controllers.ServicesTrackRepair(deps.Services, logg))
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.GuestDevice(logg))
		r.Get("/", controllers.CartGet(deps.Cart, logg))
		r.Delete("/", controllers.CartClear(deps.Cart, logg))
		r.Post("/items", controllers.CartAddItem(deps.Cart, deps.Products, logg))
		r.Delete("/items/{key}", controllers.CartRemoveItem(deps.Cart, logg))
		r.With(middleware.Idempotent(middleware.CheckoutReplay, deps.Redis, logg)).Post("/checkout", controllers.CartCheckout(deps.Cart, logg))
	})

	r.Route("/api/v1/profile", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", controllers.ProfileGet(deps.Profiles, logg))
		r.Patch("/", controllers.ProfileUpdate(deps.Profiles, logg))
		r.Get("/admin", controllers.ProfileAdminStatus(deps.Profiles, logg))
	})

	r.Route("/api/v1/print-jobs", func(r chi.Router) {
		r.Use(requireAuth)
		r.With(uploads.Middleware(logg)).Post("/", controllers.PrintJobsSubmit(deps.PrintJobs, cfg.PrintJobs.MaxUploadBytes(), logg))
		r.Get("/", controllers.PrintJobsListMine(deps.PrintJobs, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireAdmin(deps.Profiles, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminProductsList(deps.Products, logg))
			r.With(middleware.Idempotent(middleware.ProductCreateReplay, deps.Redis, logg)).Post("/", controllers.AdminCreateProduct(deps.Products, logg))
			r.Patch("/{productId}", controllers.AdminUpdateProduct(deps.Products, logg))
			r.Delete("/{productId}", controllers.AdminDeleteProduct(deps.Products, logg))
		})

		r.Route("/print-jobs", func(r chi.Router) {
			r.Get("/", controllers.AdminPrintJobsList(deps.PrintJobs, logg))
			r.Patch("/{jobId}/status", controllers.AdminPrintJobUpdateStatus(deps.PrintJobs, logg))
		})
	})

	return r
}
