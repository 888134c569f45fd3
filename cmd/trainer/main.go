// Package main is a one-shot training CLI. It runs the full training
// pipeline once (fetch or synthesize data, fit, evaluate, persist) and
// prints the summary, then exits. Useful for seeding model artifacts
// before the API server first starts, and for scheduled retraining jobs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"ecoshore/internal/artifacts"
	"ecoshore/internal/config"
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

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	logger.Info("training run starting",
		"environment", cfg.Environment,
		"models_dir", cfg.Models.Dir,
	)

	ctx := context.Background()

	var repo training.HistoryReader
	if cfg.Database.URL != "" {
		pool, err := db.NewPool(ctx, cfg.Database)
		if err != nil {
			logger.Warn("historical store unavailable, using synthetic data", "error", err)
		} else {
			defer pool.Close()
			repo = db.NewHistoryRepository(pool)
		}
	}

	store, err := artifacts.NewStore(cfg.Models.Dir, logger)
	if err != nil {
		return fmt.Errorf("initializing model store: %w", err)
	}

	// The engine is only a reload target here; no predictions are served.
	eng := engine.New(store, logger)

	provider := training.NewProvider(repo, cfg.Training.SyntheticSamples, logger)
	pipeline := training.NewPipeline(provider, store, eng, logger)

	summary, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("training run failed: %w", err)
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	fmt.Println(string(out))

	return nil
}
