// Package main is the entry point for the EcoShore risk API server.
//
// It loads configuration, connects to the historical store when a database
// URL is configured (the service runs fine without one), restores any
// persisted model artifacts, and serves the prediction, training, and
// health endpoints over the core chassis.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"ecoshore/internal/api/handlers"
	"ecoshore/internal/artifacts"
	"ecoshore/internal/config"
	"ecoshore/internal/core"
	"ecoshore/internal/db"
	"ecoshore/internal/engine"
	"ecoshore/internal/training"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("ecoshore risk service starting",
		"environment", cfg.Environment,
		"version", cfg.Version,
		"port", cfg.Server.Port,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The historical store is optional. A missing URL or failed connection
	// degrades training to synthetic data; it never blocks startup.
	var repo training.HistoryReader
	if cfg.Database.URL != "" {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Warn("historical store unavailable, training will use synthetic data",
				"error", err,
			)
		} else {
			defer pool.Close()
			repo = db.NewHistoryRepository(pool)
		}
	} else {
		logger.Info("no database configured, training will use synthetic data")
	}

	store, err := artifacts.NewStore(cfg.Models.Dir, logger)
	if err != nil {
		return fmt.Errorf("initializing model store: %w", err)
	}

	eng := engine.New(store, logger)
	eng.LoadModels()

	provider := training.NewProvider(repo, cfg.Training.SyntheticSamples, logger)
	pipeline := training.NewPipeline(provider, store, eng, logger)

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	predictHandler := handlers.NewPredictHandler(eng, srv.Validator, logger)
	trainHandler := handlers.NewTrainHandler(pipeline, logger)
	healthHandler := handlers.NewHealthHandler(eng, cfg.Service, cfg.Version)

	srv.RouteRegistrars = append(srv.RouteRegistrars,
		predictHandler.RegisterRoutes,
		healthHandler.RegisterRoutes,
		func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(srv.TrainSecretMiddleware)
				trainHandler.RegisterRoutes(r)
			})
		},
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// runHTTPServer starts the server with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newLogger creates the application-wide structured JSON logger.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}
