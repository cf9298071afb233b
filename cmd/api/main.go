package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/swanstudios/training-storefront/api/routes"
	cartsvc "github.com/swanstudios/training-storefront/internal/cart"
	"github.com/swanstudios/training-storefront/internal/catalog"
	checkoutsvc "github.com/swanstudios/training-storefront/internal/checkout"
	"github.com/swanstudios/training-storefront/pkg/config"
	"github.com/swanstudios/training-storefront/pkg/db"
	"github.com/swanstudios/training-storefront/pkg/logger"
	"github.com/swanstudios/training-storefront/pkg/migrate"
	"github.com/swanstudios/training-storefront/pkg/outbox"
	"github.com/swanstudios/training-storefront/pkg/redis"
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

	catalogLoader, err := catalog.NewReadThroughCache(
		catalog.NewRepository(dbClient.DB()),
		redisClient,
		cfg.Redis.CatalogCacheTTL,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to build catalog loader", err)
		os.Exit(1)
	}

	cartRepo := cartsvc.NewRepository(dbClient.DB(), cfg.DB.LockTimeout)
	resolver, err := cartsvc.NewTotalsResolver(cartRepo, catalogLoader, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create totals resolver", err)
		os.Exit(1)
	}
	cartService, err := cartsvc.NewService(cartRepo, dbClient, catalogLoader, resolver, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}
	checkoutService, err := checkoutsvc.NewService(
		cartRepo,
		dbClient,
		catalogLoader,
		outbox.NewService(logg),
		cfg.Payment,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
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
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, cartService, checkoutService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
