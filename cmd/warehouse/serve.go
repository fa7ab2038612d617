package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/warehouse/api/controllers"
	"github.com/angelmondragon/warehouse/api/routes"
	"github.com/angelmondragon/warehouse/internal/cron"
)

const (
	lockScope       = "audit"
	shutdownTimeout = 10 * time.Second
)

// scheduler builds the audit job runner. Without Redis the lock only guards
// this process.
func (a *app) scheduler() (*cron.Service, error) {
	stockReport, err := cron.NewStockReportJob(cron.StockReportJobParams{
		Logger:    a.logg,
		Ledger:    a.ledger,
		Metrics:   a.ledgerMetrics,
		Threshold: a.cfg.Inventory.LowStockThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("stock report job: %w", err)
	}
	audit, err := cron.NewConsistencyAuditJob(cron.ConsistencyAuditJobParams{
		Logger:    a.logg,
		Catalog:   a.catalog,
		Inventory: a.ledger,
	})
	if err != nil {
		return nil, fmt.Errorf("consistency audit job: %w", err)
	}

	registry, err := cron.NewRegistry(stockReport, audit)
	if err != nil {
		return nil, err
	}

	return cron.NewService(cron.ServiceParams{
		Logger:   a.logg,
		Registry: registry,
		Lock:     a.auditLock,
		Metrics:  a.jobMetrics,
		Interval: a.cfg.Inventory.AuditInterval,
	})
}

func (a *app) handler() http.Handler {
	deps := map[string]controllers.Pinger{"database": a.db}
	deps["redis"] = nil
	if a.redis != nil {
		deps["redis"] = a.redis
	}
	return routes.NewRouter(a.cfg, a.logg, deps, a.registry)
}

// serve runs the operations HTTP server and the audit scheduler until ctx is
// canceled or either of them fails.
func (a *app) serve(ctx context.Context) error {
	scheduler, err := a.scheduler()
	if err != nil {
		return err
	}
	server := &http.Server{
		Addr:              net.JoinHostPort("", a.cfg.App.Port),
		Handler:           a.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logg.Info(a.logg.WithField(gctx, "addr", server.Addr), "ops server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		err := scheduler.Run(gctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("audit scheduler: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	a.logg.Info(ctx, "warehouse shutting down gracefully")
	return err
}
