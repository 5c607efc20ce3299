// Package api serves the read-only HTTP query surface over the warehouse.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"quant-warehouse/cache"
	"quant-warehouse/config"
	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/database/types"
)

// MarketRepository reads the loaded input tables
type MarketRepository interface {
	GetSymbols(ctx context.Context, sector string, limit int) ([]models.Symbol, error)
	GetSymbol(ctx context.Context, ticker string) (*models.Symbol, error)
	GetBars(ctx context.Context, ticker string, from, to *time.Time, limit int) ([]models.Bar, error)
	GetTrades(ctx context.Context, ticker, side string, limit int) ([]models.Trade, error)
	GetLatestYields(ctx context.Context) ([]models.TreasuryYield, error)
	GetYields(ctx context.Context, maturity string, limit int) ([]models.TreasuryYield, error)
	GetHighImpactNews(ctx context.Context, limit int) ([]models.NewsSentiment, error)
	GetLatestRun(ctx context.Context) (*models.PipelineRun, error)
	CountSymbols(ctx context.Context) (int64, error)
}

// AnalyticsRepository reads the derived tables
type AnalyticsRepository interface {
	GetReturnsRSI(ctx context.Context, symbol string, limit int) ([]models.FeatureReturnsRSI, error)
	GetVWAPVolume(ctx context.Context, symbol string, limit int) ([]models.FeatureVWAPVolume, error)
	GetDailyMetrics(ctx context.Context, symbol string, limit int) ([]models.DailyMetric, error)
	GetLatestPrices(ctx context.Context) ([]types.LatestPrice, error)
	GetTopPerformers(ctx context.Context, days, limit int) ([]types.Performance, error)
	GetRSISignals(ctx context.Context) ([]types.RSISignal, error)
	GetVolumeLeaders(ctx context.Context, limit int) ([]types.VolumeLeader, error)
	GetCorrelations(ctx context.Context, symbol string, minAbs float64, limit int) ([]models.StockCorrelation, error)
	GetSentimentSignals(ctx context.Context, signalType string, limit int) ([]models.SentimentSignal, error)
	GetSentimentAggregates(ctx context.Context, limit int) ([]models.SentimentAggregate, error)
	GetSentimentSummary(ctx context.Context) (*types.SentimentSummary, error)
	GetMarketEvents(ctx context.Context, severity string, limit int) ([]models.MarketEvent, error)
}

// HealthChecker reports database reachability
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Server handles HTTP API requests
type Server struct {
	market    MarketRepository
	analytics AnalyticsRepository
	health    HealthChecker
	cache     *cache.QueryCache
	metrics   http.Handler
	cfg       config.APIConfig
	log       *zap.Logger
}

// NewServer creates a new API server instance
func NewServer(market MarketRepository, analytics AnalyticsRepository, cfg config.APIConfig, log *zap.Logger) *Server {
	return &Server{
		market:    market,
		analytics: analytics,
		cfg:       cfg,
		log:       log.With(zap.String("component", "api")),
	}
}

// SetHealthChecker sets the database check used by /health
func (s *Server) SetHealthChecker(h HealthChecker) {
	s.health = h
}

// SetCache sets the query cache. Without one every request reads the database.
func (s *Server) SetCache(c *cache.QueryCache) {
	s.cache = c
}

// SetMetricsHandler exposes h at /metrics
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.metrics = h
}

// Router builds the HTTP handler with all routes and middleware
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(newRateLimiter(s.cfg.RateLimitPerMinute, s.log).Handler)
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// Market data
		r.Get("/symbols", s.handleGetSymbols)
		r.Get("/symbols/{ticker}", s.handleGetSymbol)
		r.Get("/bars/{ticker}", s.handleGetBars)
		r.Get("/trades/{ticker}", s.handleGetTrades)
		r.Get("/runs/latest", s.handleGetLatestRun)

		// Derived features
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/rsi/{ticker}", s.handleGetReturnsRSI)
			r.Get("/vwap/{ticker}", s.handleGetVWAPVolume)
			r.Get("/daily/{ticker}", s.handleGetDailyMetrics)
			r.Get("/latest", s.handleGetLatestPrices)
			r.Get("/performance", s.handleGetTopPerformers)
			r.Get("/signals", s.handleGetRSISignals)
			r.Get("/volume", s.handleGetVolumeLeaders)
			r.Get("/correlations", s.handleGetCorrelations)
		})

		// Sentiment and Treasury
		r.Route("/sentiment", func(r chi.Router) {
			r.Get("/signals", s.handleGetSentimentSignals)
			r.Get("/aggregates", s.handleGetSentimentAggregates)
			r.Get("/summary", s.handleGetSentimentSummary)
			r.Get("/news/high-impact", s.handleGetHighImpactNews)
		})
		r.Get("/treasury/yields/latest", s.handleGetLatestYields)
		r.Get("/treasury/yields/{maturity}", s.handleGetYields)
		r.Get("/market-events", s.handleGetMarketEvents)
	})

	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	s.log.Info("API server stopped")
	return nil
}
