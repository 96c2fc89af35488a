package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/cyglobaltech/storefront-backend/api/controllers"
	"github.com/cyglobaltech/storefront-backend/api/routes"
	"github.com/cyglobaltech/storefront-backend/internal/auth"
	"github.com/cyglobaltech/storefront-backend/internal/cart"
	"github.com/cyglobaltech/storefront-backend/internal/localauth"
	"github.com/cyglobaltech/storefront-backend/internal/printjobs"
	productsvc "github.com/cyglobaltech/storefront-backend/internal/products"
	"github.com/cyglobaltech/storefront-backend/internal/services"
	"github.com/cyglobaltech/storefront-backend/internal/users"
	"github.com/cyglobaltech/storefront-backend/pkg/auth/session"
	"github.com/cyglobaltech/storefront-backend/pkg/config"
	"github.com/cyglobaltech/storefront-backend/pkg/db"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	"github.com/cyglobaltech/storefront-backend/pkg/instance"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	"github.com/cyglobaltech/storefront-backend/pkg/metrics"
	"github.com/cyglobaltech/storefront-backend/pkg/migrate"
	"github.com/cyglobaltech/storefront-backend/pkg/pubsub"
	"github.com/cyglobaltech/storefront-backend/pkg/redis"
	"github.com/cyglobaltech/storefront-backend/pkg/storage/gcs"
)

const shutdownTimeout = 15 * time.Second

type closer interface {
	Close() error
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var resources []closer
	defer func() {
		var closeErr error
		for i := len(resources) - 1; i >= 0; i-- {
			closeErr = multierr.Append(closeErr, resources[i].Close())
		}
		if closeErr != nil {
			logg.Error(context.Background(), "error closing resources", closeErr)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(ctx, logg, "database", err)
	resources = append(resources, dbClient)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	resources = append(resources, redisClient)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewStorefront(registry)

	checks := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	requireResource(ctx, logg, "session manager", err)

	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
		Metrics:        m,
	})
	requireResource(ctx, logg, "auth service", err)

	resetService, err := auth.NewRedisPasswordReset(redisClient, auth.PasswordResetParams{
		UserRepo:       userRepo,
		Notifier:       auth.LogNotifier{Logg: logg},
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	requireResource(ctx, logg, "password reset", err)

	localStore, err := localauth.NewStore(redisClient, logg, m)
	requireResource(ctx, logg, "local credential store", err)

	productService, err := productsvc.NewService(productsvc.NewRepository(dbClient.DB()), cfg.Catalog.PlaceholderImage)
	requireResource(ctx, logg, "product service", err)

	var cartStore cart.Store
	switch cfg.FeatureFlags.Backend() {
	case enums.CartBackendBlob:
		cartStore = cart.NewBlobStore(redisClient)
	default:
		cartStore = cart.NewDocumentStore(dbClient.DB())
	}
	cartService, err := cart.NewAccumulator(cartStore, cart.Options{
		PlaceholderImage: cfg.Catalog.PlaceholderImage,
		AtomicIncrement:  cfg.FeatureFlags.AtomicCartIncrement,
		Redirect: cart.PaymentRedirect{
			GatewayURL: cfg.Checkout.PaymentGatewayURL,
			Currency:   cfg.Checkout.Currency,
		},
	}, logg, m)
	requireResource(ctx, logg, "cart", err)

	profileService, err := users.NewService(userRepo, logg)
	requireResource(ctx, logg, "profile service", err)

	var printJobService controllers.PrintJobService
	if cfg.GCS.Enabled() {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		requireResource(ctx, logg, "gcs", err)
		resources = append(resources, gcsClient)
		checks["gcs"] = gcsClient

		params := printjobs.Params{
			Repo:        printjobs.NewRepository(dbClient.DB()),
			Storage:     gcsClient,
			Logger:      logg,
			Metrics:     m,
			PathPrefix:  cfg.PrintJobs.PathPrefix,
			MaxFiles:    cfg.PrintJobs.MaxFiles,
			MaxBytes:    cfg.PrintJobs.MaxUploadBytes(),
			Topic:       cfg.PubSub.PrintJobsTopic,
			Publish:     cfg.FeatureFlags.PublishPrintJobs,
			DownloadTTL: cfg.GCS.DownloadURLExpiry,
		}
		switch {
		case !cfg.FeatureFlags.PublishPrintJobs:
		case strings.TrimSpace(cfg.GCP.ProjectID) == "":
			logg.Warn(ctx, "gcp project not configured; print job events disabled")
		default:
			psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
			requireResource(ctx, logg, "pubsub", err)
			resources = append(resources, psClient)
			checks["pubsub"] = psClient
			params.Publisher = psClient
		}

		svc, err := printjobs.NewService(params)
		requireResource(ctx, logg, "print job service", err)
		printJobService = svc
	} else {
		logg.Warn(ctx, "gcs bucket not configured; print job uploads disabled")
	}

	router := routes.NewRouter(routes.Dependencies{
		Config:    cfg,
		Logger:    logg,
		Metrics:   m,
		Gatherer:  registry,
		Checks:    checks,
		Sessions:  sessionManager,
		Redis:     redisClient,
		Auth:      authService,
		Reset:     resetService,
		Local:     controllers.LocalDevices(localStore),
		Products:  productService,
		Cart:      cartService,
		Profiles:  profileService,
		PrintJobs: printJobService,
		Services:  services.NewService(cfg.Services),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     instance.GetID(),
		"cart_backend": cartService.Backend(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			return
		}
	case <-ctx.Done():
		logg.Info(logCtx, "shutting down api server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "graceful shutdown failed", err)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
