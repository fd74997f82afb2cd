package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tundeabiodun/handyfix-backend/api/routes"
	"github.com/tundeabiodun/handyfix-backend/internal/auth"
	"github.com/tundeabiodun/handyfix-backend/internal/ledger"
	"github.com/tundeabiodun/handyfix-backend/internal/marketplace"
	"github.com/tundeabiodun/handyfix-backend/internal/orders"
	"github.com/tundeabiodun/handyfix-backend/internal/users"
	"github.com/tundeabiodun/handyfix-backend/pkg/config"
	"github.com/tundeabiodun/handyfix-backend/pkg/db"
	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/logger"
	"github.com/tundeabiodun/handyfix-backend/pkg/metrics"
	"github.com/tundeabiodun/handyfix-backend/pkg/migrate"
	"github.com/tundeabiodun/handyfix-backend/pkg/redis"
	"github.com/tundeabiodun/handyfix-backend/pkg/storage"
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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	// sqlite dev deployments build their schema from the models directly
	if cfg.FeatureFlags.UseSQLite && cfg.FeatureFlags.AutoMigrate {
		if err := dbClient.DB().AutoMigrate(&models.User{}, &models.Order{}, &models.Transaction{}); err != nil {
			logg.Error(context.Background(), "failed to auto-migrate sqlite schema", err)
			os.Exit(1)
		}
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	fileStore, err := storage.NewLocalStore(cfg.Uploads)
	if err != nil {
		logg.Error(context.Background(), "failed to prepare uploads storage", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(usersRepo, fileStore)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledgerRepo, dbClient, cfg.Fees)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:       ordersRepo,
		Users:      usersRepo,
		Ledger:     ledgerService,
		Files:      fileStore,
		TxRunner:   dbClient,
		FeesConfig: cfg.Fees,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	marketplaceService, err := marketplace.NewService(ordersRepo, usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create marketplace service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

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
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:             cfg,
			Logger:             logg,
			DB:                 dbClient,
			Redis:              redisClient,
			HTTPMetrics:        httpMetrics,
			MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			AuthService:        authService,
			UsersService:       usersService,
			LedgerService:      ledgerService,
			OrdersService:      ordersService,
			MarketplaceService: marketplaceService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
