// Command notifier is the ChildTrack parent notification daemon. It polls
// the backend for attendance, events and guardian requests, presents new
// facts as local notifications and serves a local companion API.
//
// Usage:
//
//	notifier
//	API_PORT=8088 STORE_DRIVER=redis notifier

// @title ChildTrack Parent Notifier API
// @version 1.0.0
// @description Local companion API for the parent notification engine: delivered-notification inbox, tap routing, poll status and persisted check-state.
// @host localhost:8088
// @BasePath /api/v1
// @schemes http
// @contact.name ChildTrack
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/childtrack/parent-notifier/internal/api"
	"github.com/childtrack/parent-notifier/internal/api/handler"
	"github.com/childtrack/parent-notifier/internal/cache"
	"github.com/childtrack/parent-notifier/internal/checkstate"
	"github.com/childtrack/parent-notifier/internal/childtrack"
	"github.com/childtrack/parent-notifier/internal/config"
	"github.com/childtrack/parent-notifier/internal/kvstore"
	"github.com/childtrack/parent-notifier/internal/listener"
	"github.com/childtrack/parent-notifier/internal/localnotify"
	"github.com/childtrack/parent-notifier/internal/maintenance"
	"github.com/childtrack/parent-notifier/internal/notifications"
	"github.com/childtrack/parent-notifier/internal/platform"
	"github.com/childtrack/parent-notifier/internal/session"

	_ "github.com/childtrack/parent-notifier/docs" // swagger docs
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Open the persistent store
	logger.Info("Opening store...", "driver", cfg.StoreDriver)
	store, err := kvstore.Open(ctx, cfg)
	if err != nil {
		logger.Error("Failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	sessions := session.New(store)
	state := checkstate.New(store, cfg.StorePrefix)

	client := childtrack.NewClient(childtrack.Options{
		BaseURL: cfg.BackendURL,
		Paths: childtrack.Paths{
			Attendance: cfg.AttendancePath,
			Events:     cfg.EventsPath,
			Guardians:  cfg.GuardiansPath,
			Login:      cfg.LoginPath,
		},
		Timeout:           cfg.HTTPTimeout,
		RequestsPerMinute: cfg.APIRequestsPerMinute,
		MaxPages:          cfg.MaxPages,
		Token:             sessions.Token,
		Logger:            logger,
	})

	center := localnotify.New(localnotify.Options{
		Permission: platform.Permission(cfg.NotificationPermission),
		Logger:     logger,
	})

	svc := notifications.NewService(notifications.ServiceOptions{
		Presenter: center,
		Fetcher:   client,
		Parents:   sessions,
		State:     state,
		Interval:  cfg.PollInterval,
		Location:  loc,
		Logger:    logger,
	})

	recorder := listener.NewRouteRecorder(0)
	if !svc.Initialize(ctx) {
		logger.Warn("Notifications disabled; serving API only")
	}
	svc.SetupListeners(recorder)

	// Initialize cache
	appCache := cache.New(true)
	defer appCache.Close()

	// Start maintenance tickers (inbox retention, store health)
	mcfg := maintenance.DefaultConfig()
	mcfg.PruneInterval = cfg.MaintenanceInterval
	mcfg.InboxRetention = cfg.InboxRetention
	runner := maintenance.NewRunner(maintenance.Targets{Inbox: center, Cache: appCache, Store: store}, mcfg, logger)
	go runner.Start(ctx)

	// Create router
	router := api.NewRouter(handler.Deps{
		Service:  svc,
		Center:   center,
		Recorder: recorder,
		Store:    store,
		Cache:    appCache,
		Config:   cfg,
		Logger:   logger,
	}, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTPTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting ChildTrack notifier API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://%s/docs/", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			cancel()
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	svc.RemoveListeners()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	// Close the store only once in-flight poll cycles have finished.
	closeWhenIdle(shutdownCtx, svc.Wait, store, logger)
	logger.Info("Notifier stopped")
}
