// Package factories builds the collaborators shared by the CLI and the API
// from a loaded configuration.
package factories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/cache"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/comparison"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/config"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/generation"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/observability"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/prompts"
	"github.com/spherical-ai/spherical/libs/comparison-engine/internal/storage"
)

// Options selects which services Build creates.
type Options struct {
	ServiceName string
	Generation  bool // generator and response cache
	History     bool // run store
}

// Services bundles what a comparison command needs.
type Services struct {
	Config    *config.Config
	Logger    *observability.Logger
	Topics    *prompts.Library
	Generator generation.Generator
	Runs      *storage.RunStore

	closers []func() error
}

// Build creates the requested services. Close releases everything opened.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Services, error) {
	s := &Services{
		Config: cfg,
		Logger: NewLogger(cfg, opts.ServiceName),
	}

	topics, err := prompts.LoadFile(cfg.Prompts.Path)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	s.Topics = topics

	if opts.Generation {
		if err := cfg.ValidateGeneration(); err != nil {
			return nil, err
		}

		gen, closeGen, err := NewGenerator(ctx, cfg, s.Logger)
		if err != nil {
			return nil, err
		}
		s.Generator = gen
		s.closers = append(s.closers, closeGen)
	}

	if opts.History {
		runs, db, err := OpenRunStore(ctx, cfg)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		s.Runs = runs
		s.closers = append(s.closers, db.Close)
	}

	return s, nil
}

// Pipeline creates a comparison pipeline over the configured generator.
func (s *Services) Pipeline(opts ...comparison.Option) *comparison.Pipeline {
	base := []comparison.Option{
		comparison.WithLogger(s.Logger),
		comparison.WithTopics(s.Topics),
	}
	return comparison.NewPipeline(s.Config.PipelineConfig(), s.Generator, append(base, opts...)...)
}

// Close releases every opened resource.
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// NewLogger creates the logger described by the observability settings.
func NewLogger(cfg *config.Config, service string) *observability.Logger {
	if service == "" {
		service = cfg.Observability.ServiceName
	}
	return observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: service,
	})
}

// NewCache creates the configured response cache.
func NewCache(cfg *config.Config) (cache.Client, error) {
	switch cfg.Cache.Driver {
	case "redis":
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return client, nil
	case "memory":
		return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
}

// NewGenerator creates the configured backend, wrapped in the response cache
// when caching is enabled. The returned func closes the cache.
func NewGenerator(ctx context.Context, cfg *config.Config, logger *observability.Logger) (generation.Generator, func() error, error) {
	var gen generation.Generator

	switch cfg.Generation.Backend {
	case config.BackendBedrock:
		client, err := generation.NewBedrockClient(ctx, generation.BedrockConfig{
			Region:         cfg.Generation.Bedrock.Region,
			ConnectTimeout: cfg.Generation.Bedrock.ConnectTimeout,
			ReadTimeout:    cfg.Generation.Bedrock.ReadTimeout,
			MaxAttempts:    cfg.Generation.Bedrock.MaxAttempts,
		})
		if err != nil {
			return nil, nil, err
		}
		gen = client
	case config.BackendOpenRouter:
		gen = generation.NewOpenRouterClient(generation.OpenRouterConfig{
			APIKey:  cfg.Generation.OpenRouter.APIKey,
			Model:   cfg.Generation.OpenRouter.Model,
			BaseURL: cfg.Generation.OpenRouter.BaseURL,
			Timeout: cfg.Generation.OpenRouter.Timeout,
			Logger:  logger,
		})
	default:
		return nil, nil, fmt.Errorf("unsupported generation backend: %s", cfg.Generation.Backend)
	}

	if !cfg.Cache.Enabled {
		return gen, func() error { return nil }, nil
	}

	c, err := NewCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	return generation.NewCachedGenerator(gen, c, cfg.Cache.TTL, logger), c.Close, nil
}

// OpenRunStore opens the history database and migrates the runs table.
func OpenRunStore(ctx context.Context, cfg *config.Config) (*storage.RunStore, *sql.DB, error) {
	opts := storage.OpenOptions{
		Driver: cfg.Database.Driver,
		DSN:    cfg.DatabaseDSN(),
	}
	if cfg.Database.Driver == "sqlite" {
		opts.MaxOpenConns = cfg.Database.SQLite.MaxOpenConns
	} else {
		opts.MaxOpenConns = cfg.Database.Postgres.MaxOpenConns
		opts.MaxIdleConns = cfg.Database.Postgres.MaxIdleConns
		opts.ConnMaxLifetime = cfg.Database.Postgres.ConnMaxLifetime
	}

	db, err := storage.Open(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Database.Driver == "sqlite" && cfg.Database.SQLite.JournalMode != "" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode="+cfg.Database.SQLite.JournalMode); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("set journal mode: %w", err)
		}
	}

	runs := storage.NewRunStore(db)
	if err := runs.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	return runs, db, nil
}
