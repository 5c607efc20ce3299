// Package app wires configuration, storage, the pipeline and the HTTP surface together.
package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"quant-warehouse/api"
	"quant-warehouse/cache"
	"quant-warehouse/config"
	"quant-warehouse/database"
	"quant-warehouse/database/analytics"
	"quant-warehouse/database/market"
	"quant-warehouse/features"
	"quant-warehouse/ingest"
	"quant-warehouse/validation"
)

// App represents the main application
type App struct {
	config     *config.Config
	log        *zap.Logger
	db         *database.Database
	redis      *cache.RedisClient
	queryCache *cache.QueryCache
	metrics    *Metrics
	pipeline   *Pipeline
}

// New connects to PostgreSQL and Redis and builds the pipeline. Redis is optional: when it is
// unreachable the API serves every request from the database.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	log.Info("Connecting to database", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.Name))
	db, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.NewRedisClient(ctx, cfg.Redis, log)
	queryCache := cache.NewQueryCache(redisClient, cfg.Redis.CacheTTL)

	metrics := NewMetrics()
	store := database.NewWarehouse(db.DB(), cfg.Pipeline.BatchSize, log)
	validator := validation.New(validation.OptionsFromConfig(cfg.Pipeline), log)
	builder := features.NewBuilder(features.ParamsFromConfig(cfg.Pipeline), log)

	return &App{
		config:     cfg,
		log:        log,
		db:         db,
		redis:      redisClient,
		queryCache: queryCache,
		metrics:    metrics,
		pipeline:   NewPipeline(store, validator, builder, metrics, log).WithCache(queryCache),
	}, nil
}

// ReadBatch reads the configured source directory
func ReadBatch(ctx context.Context, src config.SourceConfig) (*ingest.Batch, error) {
	reader := ingest.NewBatchReader(src.Format)
	if reader == nil {
		return nil, fmt.Errorf("unsupported source format %q", src.Format)
	}
	batch, err := reader.Read(ctx, src.DataDir)
	if err != nil {
		return nil, fmt.Errorf("read batch from %s: %w", src.DataDir, err)
	}
	return batch, nil
}

// Validate reads the configured batch and checks it without touching storage
func Validate(ctx context.Context, cfg *config.Config, log *zap.Logger) (*validation.Report, error) {
	batch, err := ReadBatch(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}
	return validation.New(validation.OptionsFromConfig(cfg.Pipeline), log).Validate(batch), nil
}

// Load reads the configured batch and runs the pipeline once
func (a *App) Load(ctx context.Context) (*RunResult, error) {
	batch, err := ReadBatch(ctx, a.config.Source)
	if err != nil {
		return nil, err
	}
	source := fmt.Sprintf("%s:%s", strings.ToLower(a.config.Source.Format), a.config.Source.DataDir)
	return a.pipeline.Run(ctx, batch, source)
}

// Serve runs the HTTP API, plus scheduled reloads when PIPELINE_INTERVAL is set, until ctx is
// cancelled
func (a *App) Serve(ctx context.Context) error {
	gdb := a.db.DB()
	server := api.NewServer(market.NewRepository(gdb), analytics.NewRepository(gdb), a.config.API, a.log)
	server.SetHealthChecker(a.db)
	server.SetCache(a.queryCache)
	server.SetMetricsHandler(a.metrics.Handler())

	var scheduler *Scheduler
	if interval := a.config.Pipeline.Interval; interval > 0 {
		scheduler = NewScheduler(interval, func(ctx context.Context) error {
			_, err := a.Load(ctx)
			return err
		}, a.log)
		go scheduler.Start(ctx)
	}

	err := server.Start(ctx)

	if scheduler != nil {
		a.log.Info("Stopping scheduled reloads")
		scheduler.Stop()
	}
	return err
}

// Close releases the database and Redis connections
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Error closing redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Error closing database", zap.Error(err))
		} else {
			a.log.Info("Database connection closed")
		}
	}
}
