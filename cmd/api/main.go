package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/eshop/storefront/api/routes"
	"github.com/eshop/storefront/internal/cart"
	"github.com/eshop/storefront/internal/catalog"
	"github.com/eshop/storefront/internal/identity"
	"github.com/eshop/storefront/internal/orders"
	"github.com/eshop/storefront/internal/storefront"
	"github.com/eshop/storefront/internal/users"
	"github.com/eshop/storefront/pkg/auth/session"
	"github.com/eshop/storefront/pkg/config"
	"github.com/eshop/storefront/pkg/db"
	"github.com/eshop/storefront/pkg/env"
	"github.com/eshop/storefront/pkg/logger"
	"github.com/eshop/storefront/pkg/metrics"
	"github.com/eshop/storefront/pkg/migrate"
	"github.com/eshop/storefront/pkg/payment"
	"github.com/eshop/storefront/pkg/redis"
	"github.com/eshop/storefront/pkg/search"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = db.DriverSQLite
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		File:        cfg.App.LogFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storeMetrics := metrics.NewStorefront(registry)

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	identityService, err := identity.NewService(identity.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create identity service", err)
		os.Exit(1)
	}

	similarity := search.IsSimilar
	if cfg.FeatureFlags.EditDistanceSearch {
		similarity = search.WithinEditDistance
	}
	catalogService, err := catalog.NewService(catalog.ServiceParams{
		Repo:    catalog.NewRepository(dbClient.DB()),
		Matcher: search.NewMatcher(similarity),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:    orders.NewRepository(dbClient.DB()),
		Metrics: storeMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	var (
		payments payment.Backend
		keyID    string
	)
	if cfg.FeatureFlags.OnlinePayments {
		client, err := payment.NewClient(ctx, cfg.Payment, storeMetrics, logg)
		if err != nil {
			logg.Error(ctx, "failed to create payment client", err)
			os.Exit(1)
		}
		payments = client
		keyID = client.KeyID()
	}

	tabs, err := storefront.NewRegistry(storefront.RegistryParams{
		CartCache: cart.NewRedisCache(redisClient),
		Orders:    ordersService,
		Payments:  payments,
		KeyID:     keyID,
		StoreName: cfg.App.StoreName,
		Checkout:  cfg.Checkout,
		Metrics:   storeMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create tab registry", err)
		os.Exit(1)
	}

	addr := ":" + env.String("PORT", cfg.App.Port)
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":             cfg.App.Env,
		"addr":            addr,
		"online_payments": payments != nil,
	})
	logg.Info(serverCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			identityService,
			catalogService,
			ordersService,
			tabs,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(serverCtx, "api server shutdown failed", err)
		}
		logg.Info(serverCtx, "api server shutting down gracefully")
	}
}
