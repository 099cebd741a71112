package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/cron"
	v1 "github.com/jaennil/guide_helper/backend/tileengine/internal/infrastructure/http/v1"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/cache"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/state"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/repository/store"
	"github.com/jaennil/guide_helper/backend/tileengine/internal/usecase"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/config"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/http_server"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/logger"
	"github.com/jaennil/guide_helper/backend/tileengine/pkg/telemetry"
	"github.com/mileusna/crontab"
)

func Run(cfg *config.Config) {
	l := logger.NewZapLogger(cfg.Logger)
	defer l.Sync()

	l.Info("app config", "cfg", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
		l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	// Sources and their backends
	sourceConfigs, err := usecase.LoadSourceConfigs(cfg.Source)
	if err != nil {
		l.Fatal("failed to load sources", "error", err)
	}

	layers, err := store.NewLayers(cfg.Disk, cfg.Redis, l)
	if err != nil {
		l.Fatal("failed to initialize tile layers", "error", err)
	}
	defer layers.Close()

	catalog := usecase.NewCatalog()
	registry := store.NewRegistry()
	defer registry.Close()

	for _, sc := range sourceConfigs {
		src, err := usecase.NewSource(sc)
		if err != nil {
			l.Fatal("invalid source", "error", err)
		}
		if err := catalog.Add(src); err != nil {
			l.Fatal("invalid source catalog", "error", err)
		}

		s, err := store.NewSourceStore(sc, cfg.Provider.UserAgent, layers, l)
		if err != nil {
			l.Fatal("failed to initialize tile store", "source", sc.ID, "error", err)
		}
		registry.Register(sc.ID, s)
	}

	// Durable state
	stateStore, err := state.NewSQLiteStore(cfg.State.Path, l)
	if err != nil {
		l.Fatal("failed to initialize state store", "error", err)
	}
	defer stateStore.Close()

	mru := usecase.LastSources()
	if err := mru.Restore(ctx, stateStore); err != nil {
		l.Warn("failed to restore recent sources", "error", err)
	}

	// Engine
	tileCache := cache.NewLRUCache(cfg.Provider.CacheBudgetBytes, l,
		cache.WithLowMemoryFraction(cfg.Provider.LowMemoryFraction))

	provider := usecase.NewAsyncTileProvider(registry, tileCache, catalog, usecase.ProviderConfig{
		Workers:      cfg.Provider.Workers,
		MaxAttempts:  cfg.Provider.MaxAttempts,
		Backoff:      cfg.Provider.Backoff,
		FetchTimeout: cfg.Provider.FetchTimeout,
	}, l)
	provider.Start(ctx)

	events := usecase.NewBroadcaster(64)
	invalidator := usecase.NewInvalidator(cfg.Provider.RedrawWindow, events, l)

	facade := usecase.NewTileDeliveryFacade(
		tileCache,
		provider,
		usecase.NewFallbackResolver(l),
		catalog,
		registry,
		mru,
		invalidator,
		usecase.FacadeConfig{FailureThreshold: cfg.Provider.FailureThreshold},
		l,
	)
	if err := facade.SetSource(cfg.Source.ID); err != nil {
		l.Fatal("failed to select source", "error", err)
	}

	// Periodic jobs
	ctab := crontab.New()
	cronService := cron.NewService(facade, mru, stateStore, l)
	if err := cronService.Start(ctx, ctab, cfg.State.SaveSchedule); err != nil {
		l.Fatal("failed to schedule jobs", "error", err)
	}

	// Initialize the HTTP handler
	validate := validator.New()
	h := handler.NewHandler(validate, facade, catalog, events)
	router := v1.NewRouter(h, l, cfg.Telemetry.Enabled)

	httpServer := http_server.NewServer(ctx, cfg.HTTP.Server, router)

	go func() {
		l.Info("starting http server...", "address", httpServer.Addr)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("http server failed", "error", err)
		}
		l.Info("http server stopped", "address", httpServer.Addr)
	}()

	<-ctx.Done()
	l.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	l.Info("shutting down http server...", "address", httpServer.Addr)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		l.Error("http server shutdown failed", "error", err)
	} else {
		l.Info("http_server shutdown completed")
	}

	ctab.Shutdown()
	invalidator.Stop()
	provider.Stop()
	facade.Clear()

	if err := mru.Save(shutdownCtx, stateStore); err != nil {
		l.Error("failed to save recent sources", "error", err)
	}

	l.Info("application shutdown completed")
}
