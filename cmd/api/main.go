package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dcastellanos/storefront-backend/api/controllers"
	"github.com/dcastellanos/storefront-backend/api/routes"
	"github.com/dcastellanos/storefront-backend/internal/commissions"
	"github.com/dcastellanos/storefront-backend/internal/orders"
	"github.com/dcastellanos/storefront-backend/internal/products"
	"github.com/dcastellanos/storefront-backend/internal/vendors"
	"github.com/dcastellanos/storefront-backend/pkg/backend"
	"github.com/dcastellanos/storefront-backend/pkg/config"
	"github.com/dcastellanos/storefront-backend/pkg/db"
	"github.com/dcastellanos/storefront-backend/pkg/kvstore"
	"github.com/dcastellanos/storefront-backend/pkg/logger"
	"github.com/dcastellanos/storefront-backend/pkg/metrics"
	"github.com/dcastellanos/storefront-backend/pkg/migrate"
)

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

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	store, err := kvstore.NewRedis(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis kv store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis kv store", err)
		}
	}()

	backendClient, err := backend.NewClient(cfg.Backend, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create backend client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)

	vendorsSvc, err := vendors.NewService(vendors.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create vendors service", err)
		os.Exit(1)
	}

	productsSvc, err := products.NewService(products.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create products service", err)
		os.Exit(1)
	}

	commissionsSvc, err := commissions.NewService(context.Background(), vendorsSvc, store, logg, engineMetrics, cfg.Engine.DefaultCommissionRate)
	if err != nil {
		logg.Error(context.Background(), "failed to create commissions service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(context.Background(), backendClient, commissionsSvc, store, logg, engineMetrics, cfg.Engine.ReturnReasonMinLen)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"kvstore":  store,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, readiness, registry, ordersSvc, commissionsSvc, vendorsSvc, productsSvc),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
