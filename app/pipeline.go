package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/features"
	"quant-warehouse/ingest"
	"quant-warehouse/validation"
)

const tracerName = "quant-warehouse/pipeline"

// Invalidator drops cached query results after a committed run
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// RunResult describes one pipeline run. Run is nil unless the transaction committed.
type RunResult struct {
	RunID  string
	Report *validation.Report
	Run    *models.PipelineRun
}

// Pipeline validates a batch and replace-loads it together with every derived table in a
// single transaction
type Pipeline struct {
	store     database.Store
	validator *validation.Validator
	builder   *features.Builder
	metrics   *Metrics
	cache     Invalidator
	tracer    trace.Tracer
	log       *zap.Logger
	now       func() time.Time
}

// NewPipeline creates a pipeline over an explicit store handle
func NewPipeline(store database.Store, v *validation.Validator, b *features.Builder, m *Metrics, log *zap.Logger) *Pipeline {
	if m == nil {
		m = NewMetrics()
	}
	return &Pipeline{
		store:     store,
		validator: v,
		builder:   b,
		metrics:   m,
		tracer:    otel.Tracer(tracerName),
		log:       log.With(zap.String("component", "pipeline")),
		now:       time.Now,
	}
}

// WithCache sets the cache invalidated after each committed run
func (p *Pipeline) WithCache(c Invalidator) *Pipeline {
	p.cache = c
	return p
}

// Run executes one load. A batch with validation errors returns a *validation.ValidationError
// and never reaches the store. Any storage or compute failure rolls the transaction back and
// returns a *database.LoadError naming the failed stage.
func (p *Pipeline) Run(ctx context.Context, batch *ingest.Batch, source string) (*RunResult, error) {
	runID := uuid.NewString()
	log := p.log.With(zap.String("run_id", runID))
	started := p.now()

	ctx, span := p.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("run.source", source),
		),
	)
	defer span.End()

	result := &RunResult{RunID: runID}
	log.Info("Pipeline run started", zap.String("source", source))

	_, vspan := p.tracer.Start(ctx, "pipeline.validate")
	result.Report = p.validator.Validate(batch)
	vspan.End()
	p.metrics.ObserveValidation(result.Report)

	if err := result.Report.Err(); err != nil {
		p.finish(span, log, StatusInvalid, started, err)
		return result, err
	}

	if err := p.stage(ctx, database.StageSchema, p.store.InitSchema); err != nil {
		p.finish(span, log, statusOf(err), started, err)
		return result, err
	}

	input := toModels(batch)
	var run *models.PipelineRun
	err := p.store.WithinTx(ctx, func(tx database.Tx) error {
		var err error
		run, err = p.load(ctx, tx, input, runID, source, started, result.Report)
		return err
	})
	if err != nil {
		err = database.NewLoadError(database.StageCommit, err)
		p.finish(span, log, statusOf(err), started, err)
		return result, err
	}

	result.Run = run
	p.metrics.ObserveCommit(run)
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx); err != nil {
			log.Warn("Failed to invalidate query cache", zap.Error(err))
		}
	}
	p.finish(span, log, StatusSuccess, started, nil)
	log.Info("Pipeline run committed",
		zap.Int("symbols", run.Symbols),
		zap.Int("bars", run.Bars),
		zap.Int("trades", run.Trades),
		zap.Int("feature_rows", run.FeatureRows),
		zap.Int("correlations", run.Correlations),
		zap.Int("signals", run.Signals),
		zap.Int("market_events", run.MarketEvents),
		zap.Int("warnings", run.Warnings),
		zap.Int64("duration_ms", run.DurationMs),
	)
	return result, nil
}

// load runs every step inside the transaction and returns the audit row
func (p *Pipeline) load(ctx context.Context, tx database.Tx, in features.Input, runID, source string, started time.Time, report *validation.Report) (*models.PipelineRun, error) {
	err := p.stage(ctx, database.StageRawLoad, func(ctx context.Context) error {
		if err := tx.ReplaceSymbols(ctx, in.Symbols); err != nil {
			return err
		}
		if err := tx.ReplaceBars(ctx, in.Bars); err != nil {
			return err
		}
		if err := tx.ReplaceTrades(ctx, in.Trades); err != nil {
			return err
		}
		if err := tx.ReplaceNewsSentiment(ctx, in.News); err != nil {
			return err
		}
		return tx.ReplaceTreasuryYields(ctx, in.Yields)
	})
	if err != nil {
		return nil, err
	}

	// Features are computed from what the store returns, not from the batch
	var stored features.Input
	err = p.stage(ctx, database.StageReadBack, func(ctx context.Context) error {
		var err error
		if stored.Symbols, err = tx.Symbols(ctx); err != nil {
			return err
		}
		if stored.Bars, err = tx.Bars(ctx); err != nil {
			return err
		}
		if stored.Trades, err = tx.Trades(ctx); err != nil {
			return err
		}
		if stored.News, err = tx.NewsSentiment(ctx); err != nil {
			return err
		}
		stored.Yields, err = tx.TreasuryYields(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	var fs *models.FeatureSet
	err = p.stage(ctx, database.StageCompute, func(ctx context.Context) error {
		var err error
		fs, err = p.builder.Build(ctx, stored)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, database.StageDerived, func(ctx context.Context) error {
		return tx.ReplaceDerived(ctx, fs)
	})
	if err != nil {
		return nil, err
	}

	finished := p.now()
	run := &models.PipelineRun{
		RunID:        runID,
		StartedAt:    started.UTC(),
		FinishedAt:   finished.UTC(),
		DurationMs:   finished.Sub(started).Milliseconds(),
		Source:       source,
		Symbols:      len(stored.Symbols),
		Bars:         len(stored.Bars),
		Trades:       len(stored.Trades),
		News:         len(stored.News),
		Yields:       len(stored.Yields),
		FeatureRows:  len(fs.ReturnsRSI),
		VWAPRows:     len(fs.VWAPVolume),
		DailyRows:    len(fs.Daily),
		Correlations: len(fs.Correlations),
		Signals:      len(fs.Signals),
		MarketEvents: len(fs.MarketEvents),
		Warnings:     report.WarningCount(),
	}
	err = p.stage(ctx, database.StageAudit, func(ctx context.Context) error {
		return tx.SaveRun(ctx, run)
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// stage runs fn in a child span and tags its failure with the stage name
func (p *Pipeline) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		return database.NewLoadError(name, err)
	}
	return nil
}

func (p *Pipeline) finish(span trace.Span, log *zap.Logger, status string, started time.Time, err error) {
	elapsed := p.now().Sub(started)
	p.metrics.ObserveRun(status, elapsed)
	span.SetAttributes(
		attribute.String("run.status", status),
		attribute.Float64("run.duration_seconds", elapsed.Seconds()),
	)
	if err == nil {
		span.SetStatus(codes.Ok, "run committed")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, fmt.Sprintf("run %s", status))
	log.Error("Pipeline run failed", zap.String("status", status), zap.Error(err))
}

func statusOf(err error) string {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		return StatusInvalid
	case database.IsConflict(err):
		return StatusConflict
	default:
		return StatusFailed
	}
}
