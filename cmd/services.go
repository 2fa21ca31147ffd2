package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/sunglasses/internal/config"
	"github.com/kozaktomas/sunglasses/internal/database/postgres"
	"github.com/kozaktomas/sunglasses/internal/landmarks"
	"github.com/kozaktomas/sunglasses/internal/overlay"
	"github.com/kozaktomas/sunglasses/internal/pipeline"
	"github.com/kozaktomas/sunglasses/internal/progress"
)

// startProvider creates the configured landmark provider and loads it in the
// background until ctx ends. Load has no deadline of its own: a provider that
// comes up late still resolves, and each batch bounds its own wait with
// Pipeline.ProviderTimeout.
func startProvider(ctx context.Context, cfg *config.Config) (landmarks.Provider, error) {
	provider, err := landmarks.New(cfg.Detector.Provider, landmarks.Config{
		URL:            cfg.Detector.URL,
		Command:        cfg.Detector.Command,
		RequestTimeout: cfg.Detector.RequestTimeout,
		HealthInterval: cfg.Detector.HealthInterval,
	})
	if err != nil {
		return nil, err
	}

	go func() {
		if err := provider.Load(ctx); err != nil {
			slog.Warn("landmark provider failed to load", "provider", cfg.Detector.Provider, "error", err)
			return
		}
		slog.Info("landmark provider ready", "provider", cfg.Detector.Provider)
	}()
	return provider, nil
}

// loadOverlay creates an overlay store and loads the configured asset in the
// background. A failure leaves the store unresolved and batches run without it.
func loadOverlay(path string) *overlay.Store {
	store := overlay.NewStore(slog.Default())
	go func() {
		if err := store.LoadDefault(path); err != nil {
			slog.Error("failed to load overlay", "error", err)
		}
	}()
	return store
}

func newPipeline(cfg *config.Config, provider landmarks.Provider, store *overlay.Store) *pipeline.Pipeline {
	return pipeline.New(provider, store, pipeline.Options{
		ProviderTimeout:  cfg.Pipeline.ProviderTimeout,
		OverlayTimeout:   cfg.Pipeline.OverlayTimeout,
		MaxDetectionSize: cfg.Pipeline.MaxDetectionSize,
		Logger:           slog.Default(),
	})
}

// openProgressBackend returns the configured progress backend and a function
// releasing its connections.
func openProgressBackend(ctx context.Context, cfg *config.Config) (progress.Backend, func(), error) {
	noop := func() {}
	switch cfg.Progress.Backend {
	case "", "file":
		return progress.NewFileBackend(cfg.Progress.Dir), noop, nil
	case "memory":
		return progress.NewMemoryBackend(), noop, nil
	case "redis":
		if cfg.Progress.RedisURL == "" {
			return nil, nil, fmt.Errorf("REDIS_URL is required for the redis progress backend")
		}
		client, err := progress.DialRedis(ctx, cfg.Progress.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return progress.NewRedisBackend(client, cfg.Progress.RedisPrefix), func() { client.Close() }, nil
	case "postgres":
		if cfg.Database.URL == "" {
			return nil, nil, fmt.Errorf("DATABASE_URL is required for the postgres progress backend")
		}
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		return postgres.NewProgressRepository(pool), func() { pool.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown progress backend %q (want file, memory, redis or postgres)", cfg.Progress.Backend)
	}
}

// openTracker opens the progress backend and loads the stored record.
func openTracker(ctx context.Context, cfg *config.Config) (*progress.Tracker, func(), error) {
	backend, closeBackend, err := openProgressBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	tracker := progress.NewTracker(ctx, backend, progress.Options{Logger: slog.Default()})
	return tracker, closeBackend, nil
}
