package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/warehouse/internal/catalog"
	"github.com/angelmondragon/warehouse/internal/cron"
	"github.com/angelmondragon/warehouse/internal/inventory"
	"github.com/angelmondragon/warehouse/pkg/config"
	"github.com/angelmondragon/warehouse/pkg/db"
	"github.com/angelmondragon/warehouse/pkg/logger"
	"github.com/angelmondragon/warehouse/pkg/metrics"
	"github.com/angelmondragon/warehouse/pkg/migrate"
	"github.com/angelmondragon/warehouse/pkg/redis"
)

type app struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       *db.Client
	redis    *redis.Client
	registry *prometheus.Registry

	ledgerMetrics *metrics.LedgerMetrics
	jobMetrics    *metrics.JobMetrics

	catalog catalog.Service
	ledger  inventory.Service

	// auditLock is shared by every scheduler this process builds.
	auditLock cron.Lock
}

// bootstrap opens the database and, when configured, Redis, then wires the
// services on top of them.
func bootstrap(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*app, error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	if err := migrate.MaybeAutoRun(ctx, cfg, logg, dbClient); err != nil {
		return nil, multierr.Append(fmt.Errorf("auto migrate: %w", err), dbClient.Close())
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("bootstrap redis: %w", err), dbClient.Close())
		}
	} else {
		logg.Info(ctx, "redis not configured; product cache and distributed lock disabled")
	}

	a, err := newApp(cfg, logg, dbClient, redisClient)
	if err != nil {
		closeErr := dbClient.Close()
		if redisClient != nil {
			closeErr = multierr.Append(closeErr, redisClient.Close())
		}
		return nil, multierr.Append(err, closeErr)
	}
	return a, nil
}

// newApp wires services over already opened clients. redisClient may be nil.
func newApp(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	var cache catalog.Cache
	if redisClient != nil {
		cache = redisClient
	}
	catalogSvc, err := catalog.NewService(catalog.ServiceParams{
		Repo:     catalog.NewRepository(dbClient.DB()),
		Cache:    cache,
		CacheTTL: cfg.Inventory.ProductCacheTTL,
		Logger:   logg,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	ledger, err := inventory.NewService(inventory.ServiceParams{
		Repo:      inventory.NewRepository(dbClient.DB()),
		Catalog:   catalogSvc,
		TxRunner:  dbClient,
		Metrics:   ledgerMetrics,
		Logger:    logg,
		BatchSize: cfg.Inventory.ValuationBatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}

	var auditLock cron.Lock = &cron.LocalLock{}
	if redisClient != nil {
		auditLock, err = cron.NewRedisLock(redisClient, redisClient.LockKey(lockScope, cfg.App.Env), 2*cfg.Inventory.AuditInterval)
		if err != nil {
			return nil, fmt.Errorf("audit lock: %w", err)
		}
	}

	return &app{
		cfg:           cfg,
		logg:          logg,
		db:            dbClient,
		redis:         redisClient,
		registry:      registry,
		ledgerMetrics: ledgerMetrics,
		jobMetrics:    metrics.NewJobMetrics(registry),
		catalog:       catalogSvc,
		ledger:        ledger,
		auditLock:     auditLock,
	}, nil
}

func (a *app) close() error {
	var err error
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
	}
	return multierr.Append(err, a.db.Close())
}
