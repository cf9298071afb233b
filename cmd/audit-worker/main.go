package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swanstudios/training-storefront/internal/audit"
	cartsvc "github.com/swanstudios/training-storefront/internal/cart"
	"github.com/swanstudios/training-storefront/internal/catalog"
	"github.com/swanstudios/training-storefront/internal/cron"
	"github.com/swanstudios/training-storefront/pkg/config"
	"github.com/swanstudios/training-storefront/pkg/db"
	"github.com/swanstudios/training-storefront/pkg/logger"
	"github.com/swanstudios/training-storefront/pkg/metrics"
	"github.com/swanstudios/training-storefront/pkg/migrate"
	"github.com/swanstudios/training-storefront/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "audit-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "audit-worker"

	logg = logger.New(logger.Options{
		ServiceName: "audit-worker",
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

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogLoader, err := catalog.NewReadThroughCache(catalogRepo, redisClient, cfg.Redis.CatalogCacheTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build catalog loader", err)
		os.Exit(1)
	}

	cartRepo := cartsvc.NewRepository(dbClient.DB(), cfg.DB.LockTimeout)

	scanner, err := audit.NewScanner(cartRepo, catalogLoader, cfg.Audit, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build drift scanner", err)
		os.Exit(1)
	}

	auditMetrics := metrics.NewAuditMetrics(prometheus.DefaultRegisterer)
	driftJob, err := cron.NewDriftAuditJob(scanner, auditMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to build drift audit job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("audit-worker"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(driftJob),
		Lock:     lock,
		Interval: cfg.Audit.ScanInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting audit worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "audit worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "audit worker shutting down gracefully")
}
