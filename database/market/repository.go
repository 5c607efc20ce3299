package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"

	"gorm.io/gorm"
)

// Repository reads the loaded input tables
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new market data repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSymbols lists symbols by market cap, optionally filtered by sector
func (r *Repository) GetSymbols(ctx context.Context, sector string, limit int) ([]models.Symbol, error) {
	var symbols []models.Symbol
	query := r.db.WithContext(ctx).Order("market_cap DESC NULLS LAST").Order("ticker")
	if sector != "" {
		query = query.Where("sector = ?", sector)
	}
	if err := query.Limit(limit).Find(&symbols).Error; err != nil {
		return nil, fmt.Errorf("GetSymbols: %w", err)
	}
	return symbols, nil
}

// GetSymbol retrieves one symbol by ticker. Returns a NotFoundError for unknown tickers.
func (r *Repository) GetSymbol(ctx context.Context, ticker string) (*models.Symbol, error) {
	var symbol models.Symbol
	err := r.db.WithContext(ctx).Where("ticker = ?", strings.ToUpper(ticker)).First(&symbol).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, database.NewNotFoundErrorWithID("symbol", ticker)
		}
		return nil, fmt.Errorf("GetSymbol: %w", err)
	}
	return &symbol, nil
}

// GetBars retrieves the newest bars of a ticker within an optional time range
func (r *Repository) GetBars(ctx context.Context, ticker string, from, to *time.Time, limit int) ([]models.Bar, error) {
	var bars []models.Bar
	query := r.db.WithContext(ctx).
		Table("bars b").
		Select("b.*").
		Joins("JOIN symbols s ON s.symbol_id = b.symbol_id").
		Where("s.ticker = ?", strings.ToUpper(ticker))
	if from != nil {
		query = query.Where("b.ts >= ?", *from)
	}
	if to != nil {
		query = query.Where("b.ts <= ?", *to)
	}
	if err := query.Order("b.ts DESC").Limit(limit).Find(&bars).Error; err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}
	return bars, nil
}

// GetTrades retrieves the newest trades of a ticker, optionally filtered by side
func (r *Repository) GetTrades(ctx context.Context, ticker, side string, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	query := r.db.WithContext(ctx).
		Table("trades t").
		Select("t.*").
		Joins("JOIN symbols s ON s.symbol_id = t.symbol_id").
		Where("s.ticker = ?", strings.ToUpper(ticker))
	if side != "" {
		query = query.Where("t.side = ?", strings.ToUpper(side))
	}
	if err := query.Order("t.ts DESC").Order("t.id DESC").Limit(limit).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("GetTrades: %w", err)
	}
	return trades, nil
}

// GetLatestYields returns the newest observation of every maturity
func (r *Repository) GetLatestYields(ctx context.Context) ([]models.TreasuryYield, error) {
	var yields []models.TreasuryYield
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (maturity) ts, maturity, yield_rate, source
		FROM treasury_yields
		ORDER BY maturity, ts DESC
	`).Scan(&yields).Error
	if err != nil {
		return nil, fmt.Errorf("GetLatestYields: %w", err)
	}
	return yields, nil
}

// GetYields retrieves the yield history of one maturity, newest first
func (r *Repository) GetYields(ctx context.Context, maturity string, limit int) ([]models.TreasuryYield, error) {
	var yields []models.TreasuryYield
	err := r.db.WithContext(ctx).
		Where("maturity = ?", strings.ToUpper(maturity)).
		Order("ts DESC").
		Limit(limit).
		Find(&yields).Error
	if err != nil {
		return nil, fmt.Errorf("GetYields: %w", err)
	}
	return yields, nil
}

// GetHighImpactNews retrieves the newest high-impact news records
func (r *Repository) GetHighImpactNews(ctx context.Context, limit int) ([]models.NewsSentiment, error) {
	var news []models.NewsSentiment
	err := r.db.WithContext(ctx).
		Where("is_high_impact = ?", true).
		Order("ts DESC").
		Limit(limit).
		Find(&news).Error
	if err != nil {
		return nil, fmt.Errorf("GetHighImpactNews: %w", err)
	}
	return news, nil
}

// GetLatestRun returns the audit row of the most recent committed pipeline run
func (r *Repository) GetLatestRun(ctx context.Context) (*models.PipelineRun, error) {
	var run models.PipelineRun
	err := r.db.WithContext(ctx).Order("started_at DESC").First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, database.NewNotFoundErrorWithID("pipeline run", nil)
		}
		return nil, fmt.Errorf("GetLatestRun: %w", err)
	}
	return &run, nil
}

// CountSymbols is used by the health check
func (r *Repository) CountSymbols(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Symbol{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("CountSymbols: %w", err)
	}
	return count, nil
}
