package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"zipcode_map/internal/adapters"
	"zipcode_map/internal/events"
	apphttp "zipcode_map/internal/http"
	"zipcode_map/internal/http/router"
	"zipcode_map/internal/lookup"
	"zipcode_map/internal/page"
	"zipcode_map/internal/zipcode"
	"zipcode_map/platform/config"
	"zipcode_map/platform/logger"
	"zipcode_map/platform/metrics"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var appMetrics *metrics.Metrics
	if cfg.IsMetricsEnabled() {
		appMetrics = metrics.New()
	}

	eventBus := events.NewInMemoryBus(log)

	// ========================================================================
	// Domain Modules
	// ========================================================================

	zipcodeModule := zipcode.NewModule(cfg, log, appMetrics)
	lookup.RegisterMetrics(eventBus, appMetrics, zipcodeModule.Catalogue())

	// Wire place fetcher: zipcode → lookup (for page controllers)
	placeFetcher := adapters.NewPlaceFetcherAdapter(zipcodeModule.Service())
	pageModule := page.NewModule(cfg, zipcodeModule.Catalogue(), placeFetcher, eventBus, log, appMetrics)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:                cfg,
		Logger:                log,
		Metrics:               appMetrics,
		ContentSecurityPolicy: page.ContentSecurityPolicy(cfg),
		Modules: []apphttp.Module{
			zipcodeModule,
			pageModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// SSE streams only end when their page is closed.
		pageModule.Store().Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	eventBus.Wait()
	log.Info("server stopped")
}
