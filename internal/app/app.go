// Package app wires the storefront services from configuration. The API
// server and the operator CLI share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/market-v/storefront/internal/assistant"
	"github.com/market-v/storefront/internal/cache"
	"github.com/market-v/storefront/internal/catalog"
	"github.com/market-v/storefront/internal/comparison"
	"github.com/market-v/storefront/internal/config"
	"github.com/market-v/storefront/internal/llm"
	"github.com/market-v/storefront/internal/observability"
)

// App holds the wired services.
type App struct {
	Config  *config.Config
	Logger  *observability.Logger
	Metrics *observability.Metrics

	DB        *sql.DB
	Cache     cache.Client
	Catalog   *catalog.Service
	Generator llm.Generator

	Sessions   *assistant.SessionManager
	Chat       *assistant.Controller
	Comparison *comparison.Engine
}

// Options selects optional parts of the wiring.
type Options struct {
	// SkipGenerator leaves Generator, Chat and Comparison nil. Catalog-only
	// commands use it so they work without an AI credential.
	SkipGenerator bool
	// Migrate applies pending catalog migrations after connecting.
	Migrate bool
}

// Build connects to the database and cache and assembles the services.
func Build(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts Options) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	if cfg.Observability.MetricsEnabled {
		a.Metrics = observability.NewMetrics()
	}

	db, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DB = db

	if opts.Migrate {
		applied, err := catalog.NewMigrator(db, cfg.Database.Driver).Up(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate catalog: %w", err)
		}
		if len(applied) > 0 {
			logger.Info().Strs("migrations", applied).Msg("Applied catalog migrations")
		}
	}

	a.Cache, err = OpenCache(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Catalog = catalog.NewService(catalog.NewRepository(db, cfg.Database.Driver), a.Cache, catalog.ServiceConfig{
		SnapshotTTL: cfg.Cache.TTL,
	}, logger)

	if opts.SkipGenerator {
		return a, nil
	}

	a.Generator, err = llm.New(ctx, cfg.LLM.Provider, llm.Config{
		Endpoint:   cfg.LLM.Endpoint,
		Credential: cfg.LLM.Credential,
		Model:      cfg.LLM.Model,
		Timeout:    cfg.LLM.Timeout,
		MaxRetries: cfg.LLM.MaxRetries,
		RateLimit:  cfg.LLM.RateLimit,
		RateBurst:  cfg.LLM.RateBurst,
	}, logger, a.Metrics)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create %s generator: %w", cfg.LLM.Provider, err)
	}

	companyInfo, err := assistant.LoadCompanyInfo(cfg.Assistant.CompanyInfoPath)
	if err != nil {
		a.Close()
		return nil, err
	}

	timeout := cfg.Assistant.CallTimeout
	a.Sessions = assistant.NewSessionManager(cfg.Assistant.SessionTTL)
	a.Chat = assistant.NewController(assistant.ControllerConfig{
		Analyzer:    assistant.NewAnalyzer(a.Generator, timeout, logger, a.Metrics),
		Searcher:    assistant.NewOrchestrator(a.Catalog, timeout, logger, a.Metrics),
		Generator:   a.Generator,
		StoreName:   cfg.Assistant.StoreName,
		CompanyInfo: companyInfo,
		CallTimeout: timeout,
		Logger:      logger,
		Metrics:     a.Metrics,
	})
	a.Comparison = comparison.NewEngine(a.Catalog, a.Generator, a.Cache, comparison.Config{
		CallTimeout: timeout,
		CacheTTL:    cfg.Comparison.CacheTTL,
	}, logger, a.Metrics)

	return a, nil
}

// Close releases the database and cache.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

// OpenDatabase opens the configured catalog database.
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	opts := catalog.OpenOptions{MaxOpenConns: cfg.Database.SQLite.MaxOpenConns}
	if cfg.Database.Driver == "postgres" {
		opts = catalog.OpenOptions{
			MaxOpenConns:    cfg.Database.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Database.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.Postgres.ConnMaxLifetime,
		}
	}
	return catalog.Open(ctx, cfg.Database.Driver, cfg.DatabaseDSN(), opts)
}

// OpenCache creates the configured cache client.
func OpenCache(ctx context.Context, cfg *config.Config) (cache.Client, error) {
	if cfg.Cache.Driver == "redis" {
		c, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			PoolSize: cfg.Cache.Redis.PoolSize,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return c, nil
	}
	return cache.NewMemoryClient(cfg.Cache.MaxEntries), nil
}
