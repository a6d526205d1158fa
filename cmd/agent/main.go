package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/packfinderz-field/api/routes"
	"github.com/angelmondragon/packfinderz-field/internal/connectivity"
	"github.com/angelmondragon/packfinderz-field/internal/queue"
	syncengine "github.com/angelmondragon/packfinderz-field/internal/sync"
	"github.com/angelmondragon/packfinderz-field/pkg/config"
	"github.com/angelmondragon/packfinderz-field/pkg/db"
	"github.com/angelmondragon/packfinderz-field/pkg/instance"
	"github.com/angelmondragon/packfinderz-field/pkg/logger"
	"github.com/angelmondragon/packfinderz-field/pkg/metrics"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "agent"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "agent",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.Storage, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	repo, err := queue.NewRepository(dbClient.DB(), cfg.Storage.QueueKey)
	if err != nil {
		logg.Error(ctx, "failed to create queue repository", err)
		os.Exit(1)
	}

	store, err := queue.NewStore(queue.StoreParams{
		Repo:   repo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create queue store", err)
		os.Exit(1)
	}

	// Entries left in syncing by a crashed process are replayable again.
	if _, err := store.ResetStuckSyncing(ctx); err != nil {
		logg.Error(ctx, "failed to reset stuck entries", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()

	engine, err := syncengine.NewEngine(syncengine.EngineParams{
		Store:    store,
		Replayer: syncengine.NewHTTPReplayer(cfg.Remote),
		Logger:   logg,
		Metrics:  metrics.NewSyncMetrics(registry),
	})
	if err != nil {
		logg.Error(ctx, "failed to create sync engine", err)
		os.Exit(1)
	}

	monitor, err := connectivity.NewMonitor(connectivity.MonitorParams{
		Engine:   engine,
		Store:    store,
		Logger:   logg,
		Debounce: cfg.Sync.Debounce,
	})
	if err != nil {
		logg.Error(ctx, "failed to create connectivity monitor", err)
		os.Exit(1)
	}
	monitor.Start(ctx, nil)

	addr := ":" + cfg.App.Port
	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(runCtx, "starting field agent")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, store, engine, monitor, registry),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(runCtx, "agent server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "failed to shut down agent server", err)
		}
		logg.Info(context.Background(), "agent shutting down gracefully")
	}
}
