package analytics

import (
	"context"
	"fmt"
	"strings"

	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/database/types"

	"gorm.io/gorm"
)

// Repository handles read queries over the derived tables
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new analytics repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ============================================================================
// Per-symbol feature series
// ============================================================================

// GetReturnsRSI retrieves the newest returns/RSI rows of a symbol
func (r *Repository) GetReturnsRSI(ctx context.Context, symbol string, limit int) ([]models.FeatureReturnsRSI, error) {
	var rows []models.FeatureReturnsRSI
	err := r.db.WithContext(ctx).Where("symbol = ?", strings.ToUpper(symbol)).Order("ts DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetReturnsRSI: %w", err)
	}
	return rows, nil
}

// GetVWAPVolume retrieves the newest VWAP/volume rows of a symbol
func (r *Repository) GetVWAPVolume(ctx context.Context, symbol string, limit int) ([]models.FeatureVWAPVolume, error) {
	var rows []models.FeatureVWAPVolume
	err := r.db.WithContext(ctx).Where("symbol = ?", strings.ToUpper(symbol)).Order("ts DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetVWAPVolume: %w", err)
	}
	return rows, nil
}

// GetDailyMetrics retrieves the newest daily rollups of a symbol
func (r *Repository) GetDailyMetrics(ctx context.Context, symbol string, limit int) ([]models.DailyMetric, error) {
	var rows []models.DailyMetric
	err := r.db.WithContext(ctx).Where("symbol = ?", strings.ToUpper(symbol)).Order("date DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetDailyMetrics: %w", err)
	}
	return rows, nil
}

// ============================================================================
// Cross-symbol views
// ============================================================================

// GetLatestPrices returns the most recent feature row of every symbol
func (r *Repository) GetLatestPrices(ctx context.Context) ([]types.LatestPrice, error) {
	var rows []types.LatestPrice
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (symbol) symbol, name, ts, price, return_1d_pct, rsi_14, rsi_signal
		FROM features_returns_rsi
		ORDER BY symbol, ts DESC
	`).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetLatestPrices: %w", err)
	}
	return rows, nil
}

// GetTopPerformers ranks symbols by summed daily return over the last days of loaded history.
// The window ends at the newest loaded timestamp, not at wall-clock time.
func (r *Repository) GetTopPerformers(ctx context.Context, days, limit int) ([]types.Performance, error) {
	var rows []types.Performance
	err := r.db.WithContext(ctx).Raw(`
		WITH bounds AS (
			SELECT MAX(ts) AS max_ts FROM features_returns_rsi
		),
		recent AS (
			SELECT f.symbol, f.name, f.ts, f.price, f.return_1d_pct
			FROM features_returns_rsi f, bounds b
			WHERE f.ts >= b.max_ts - make_interval(days => ?)
		)
		SELECT symbol,
			name,
			(ARRAY_AGG(price ORDER BY ts ASC))[1] AS start_price,
			(ARRAY_AGG(price ORDER BY ts DESC))[1] AS end_price,
			COALESCE(SUM(return_1d_pct), 0) AS total_return_pct,
			COUNT(*) AS trading_days
		FROM recent
		GROUP BY symbol, name
		ORDER BY total_return_pct DESC, symbol
		LIMIT ?
	`, days, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetTopPerformers: %w", err)
	}
	return rows, nil
}

// GetRSISignals returns symbols whose latest RSI is not neutral, overbought first
func (r *Repository) GetRSISignals(ctx context.Context) ([]types.RSISignal, error) {
	var rows []types.RSISignal
	err := r.db.WithContext(ctx).Raw(`
		WITH latest AS (
			SELECT DISTINCT ON (symbol) symbol, name, ts, price, rsi_14, rsi_signal
			FROM features_returns_rsi
			ORDER BY symbol, ts DESC
		)
		SELECT * FROM latest
		WHERE rsi_signal <> ?
		ORDER BY CASE rsi_signal WHEN ? THEN 1 ELSE 2 END, symbol
	`, database.RSINeutral, database.RSIOverbought).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetRSISignals: %w", err)
	}
	return rows, nil
}

// GetVolumeLeaders returns the latest reading of the symbols with the highest volume ratio
func (r *Repository) GetVolumeLeaders(ctx context.Context, limit int) ([]types.VolumeLeader, error) {
	var rows []types.VolumeLeader
	err := r.db.WithContext(ctx).Raw(`
		WITH latest AS (
			SELECT DISTINCT ON (symbol) symbol, name, ts, price, volume, volume_ratio, volume_category, vwap_position
			FROM features_vwap_volume
			ORDER BY symbol, ts DESC
		)
		SELECT * FROM latest
		WHERE volume_ratio IS NOT NULL
		ORDER BY volume_ratio DESC, symbol
		LIMIT ?
	`, limit).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetVolumeLeaders: %w", err)
	}
	return rows, nil
}

// GetCorrelations lists correlation pairs by descending absolute coefficient.
// symbol restricts the result to pairs containing it; minAbs filters weak pairs.
func (r *Repository) GetCorrelations(ctx context.Context, symbol string, minAbs float64, limit int) ([]models.StockCorrelation, error) {
	var rows []models.StockCorrelation
	query := r.db.WithContext(ctx).Where("ABS(correlation) >= ?", minAbs)
	if symbol != "" {
		s := strings.ToUpper(symbol)
		query = query.Where("symbol_a = ? OR symbol_b = ?", s, s)
	}
	err := query.Order("ABS(correlation) DESC").Order("symbol_a").Order("symbol_b").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("GetCorrelations: %w", err)
	}
	return rows, nil
}

// ============================================================================
// Sentiment and Treasury
// ============================================================================

// GetSentimentSignals retrieves the newest sentiment signals, optionally by type
func (r *Repository) GetSentimentSignals(ctx context.Context, signalType string, limit int) ([]models.SentimentSignal, error) {
	var rows []models.SentimentSignal
	query := r.db.WithContext(ctx)
	if signalType != "" {
		query = query.Where("signal_type = ?", strings.ToUpper(signalType))
	}
	if err := query.Order("ts DESC").Order("signal_id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("GetSentimentSignals: %w", err)
	}
	return rows, nil
}

// GetSentimentAggregates retrieves the newest hourly sentiment aggregates
func (r *Repository) GetSentimentAggregates(ctx context.Context, limit int) ([]models.SentimentAggregate, error) {
	var rows []models.SentimentAggregate
	if err := r.db.WithContext(ctx).Order("hour DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("GetSentimentAggregates: %w", err)
	}
	return rows, nil
}

// GetSentimentSummary summarises the loaded news sentiment
func (r *Repository) GetSentimentSummary(ctx context.Context) (*types.SentimentSummary, error) {
	db := r.db.WithContext(ctx)
	summary := &types.SentimentSummary{ByLabel: make(map[string]int64)}

	var totals struct {
		TotalNews      int64
		HighImpactNews int64
		AvgSentiment   *float64
	}
	err := db.Model(&models.NewsSentiment{}).
		Select("COUNT(*) AS total_news, COUNT(*) FILTER (WHERE is_high_impact) AS high_impact_news, AVG(sentiment_score) AS avg_sentiment").
		Scan(&totals).Error
	if err != nil {
		return nil, fmt.Errorf("GetSentimentSummary: %w", err)
	}
	summary.TotalNews = totals.TotalNews
	summary.HighImpactNews = totals.HighImpactNews
	summary.AvgSentiment = totals.AvgSentiment

	if summary.TotalNews > 0 {
		var first, last models.NewsSentiment
		if err := db.Order("ts ASC").First(&first).Error; err != nil {
			return nil, fmt.Errorf("GetSentimentSummary first: %w", err)
		}
		if err := db.Order("ts DESC").First(&last).Error; err != nil {
			return nil, fmt.Errorf("GetSentimentSummary last: %w", err)
		}
		summary.FirstTs = &first.Ts
		summary.LastTs = &last.Ts
	}

	var labels []struct {
		Label string
		Count int64
	}
	err = db.Model(&models.NewsSentiment{}).
		Select("COALESCE(sentiment_label, 'unlabelled') AS label, COUNT(*) AS count").
		Group("label").
		Scan(&labels).Error
	if err != nil {
		return nil, fmt.Errorf("GetSentimentSummary labels: %w", err)
	}
	for _, l := range labels {
		summary.ByLabel[l.Label] = l.Count
	}
	return summary, nil
}

// GetMarketEvents retrieves the newest market events, optionally by severity
func (r *Repository) GetMarketEvents(ctx context.Context, severity string, limit int) ([]models.MarketEvent, error) {
	var rows []models.MarketEvent
	query := r.db.WithContext(ctx)
	if severity != "" {
		query = query.Where("severity = ?", strings.ToLower(severity))
	}
	if err := query.Order("ts DESC").Order("event_id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("GetMarketEvents: %w", err)
	}
	return rows, nil
}
