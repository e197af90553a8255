package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gabrielkrapp/mosaic/internal/adapter/httpserver"
	"github.com/gabrielkrapp/mosaic/internal/adapter/metrics"
	"github.com/gabrielkrapp/mosaic/internal/adapter/store"
	"github.com/gabrielkrapp/mosaic/internal/app"
	"github.com/gabrielkrapp/mosaic/internal/lease"
	"github.com/gabrielkrapp/mosaic/internal/platform/config"
	"github.com/gabrielkrapp/mosaic/internal/platform/logging"
	"github.com/gabrielkrapp/mosaic/internal/platform/version"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "backend", cfg.StoreBackend, "version", info.Version, "commit", info.Commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	storeMetrics := metrics.NewStoreMetrics(reg)
	leaseMetrics := metrics.NewLeaseMetrics(reg)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	handle, err := store.Open(ctx, cfg, clock, storeMetrics)
	if err != nil {
		slog.Error("Failed to open lease store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := handle.Close(); err != nil {
			slog.Error("Failed to close lease store", "error", err)
		}
	}()

	repo := lease.NewRepository(handle.Store, clock,
		lease.WithKeyPrefix(cfg.LeaseKeyPrefix),
		lease.WithObserver(leaseMetrics),
	)
	reconciler := lease.NewReconciler(repo)
	appSvc := app.NewService(repo, reconciler, clock, cfg.MaxLeaseDuration(), leaseMetrics)
	occupancy := app.NewOccupancyTicker(repo, leaseMetrics, clock, app.DefaultOccupancyInterval)

	healthChecks := []httpserver.HealthCheck{
		{Name: "lease_store", Check: handle.Store.Ping, Degradable: true},
	}
	srv := httpserver.NewServer(cfg, appSvc, healthChecks, httpserver.Observability{
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metrics.Handler(reg),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		occupancy.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
