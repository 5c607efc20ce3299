package models

import "time"

// ============================================================================
// Input tables
// ============================================================================

// Symbol is one tradable instrument.
//
// Key Fields:
//   - SymbolID: source identifier, referenced by bars and trades
//   - Ticker: unique exchange ticker, used as the symbol key of every derived table
//   - Exchange/Currency: default to NASDAQ/USD when the source leaves them empty
type Symbol struct {
	SymbolID  int64   `gorm:"primaryKey;autoIncrement:false" json:"symbol_id"`
	Ticker    string  `gorm:"size:16;uniqueIndex;not null" json:"ticker"`
	Name      string  `gorm:"type:text;not null" json:"name"`
	Sector    *string `gorm:"type:text" json:"sector,omitempty"`
	Industry  *string `gorm:"type:text" json:"industry,omitempty"`
	MarketCap *int64  `json:"market_cap,omitempty"`
	Exchange  string  `gorm:"size:16;not null;default:NASDAQ" json:"exchange"`
	Currency  string  `gorm:"size:8;not null;default:USD" json:"currency"`
}

// TableName specifies the table name for Symbol
func (Symbol) TableName() string {
	return "symbols"
}

// Bar is one OHLCV record. (SymbolID, Ts) is unique.
type Bar struct {
	SymbolID int64     `gorm:"primaryKey;autoIncrement:false" json:"symbol_id"`
	Ts       time.Time `gorm:"primaryKey" json:"ts"`
	Open     float64   `gorm:"not null" json:"open"`
	High     float64   `gorm:"not null" json:"high"`
	Low      float64   `gorm:"not null" json:"low"`
	Close    float64   `gorm:"not null" json:"close"`
	Volume   int64     `gorm:"not null" json:"volume"`
}

// TableName specifies the table name for Bar
func (Bar) TableName() string {
	return "bars"
}

// Trade is one executed trade. Side is BUY, SELL or UNKNOWN.
type Trade struct {
	ID       int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	SymbolID int64     `gorm:"index:idx_trades_symbol_ts;not null" json:"symbol_id"`
	Ts       time.Time `gorm:"index:idx_trades_symbol_ts;not null" json:"ts"`
	Price    float64   `gorm:"not null" json:"price"`
	Size     int64     `gorm:"not null" json:"size"`
	Side     string    `gorm:"size:8;not null" json:"side"`
}

// TableName specifies the table name for Trade
func (Trade) TableName() string {
	return "trades"
}

// NewsSentiment is one pre-scored news record
type NewsSentiment struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	NewsID         *int64    `gorm:"index" json:"news_id,omitempty"`
	Ts             time.Time `gorm:"index;not null" json:"ts"`
	Headline       *string   `gorm:"type:text" json:"headline,omitempty"`
	Source         *string   `gorm:"type:text" json:"source,omitempty"`
	SentimentScore float64   `gorm:"not null" json:"sentiment_score"`
	SentimentLabel *string   `gorm:"size:16" json:"sentiment_label,omitempty"` // risk-on, risk-off, neutral
	IsHighImpact   bool      `gorm:"not null" json:"is_high_impact"`
}

// TableName specifies the table name for NewsSentiment
func (NewsSentiment) TableName() string {
	return "news_sentiment"
}

// TreasuryYield is one yield observation for a maturity (e.g. 2Y, 10Y)
type TreasuryYield struct {
	Ts        time.Time `gorm:"primaryKey" json:"ts"`
	Maturity  string    `gorm:"primaryKey;size:8" json:"maturity"`
	YieldRate float64   `gorm:"not null" json:"yield_rate"`
	Source    *string   `gorm:"type:text" json:"source,omitempty"`
}

// TableName specifies the table name for TreasuryYield
func (TreasuryYield) TableName() string {
	return "treasury_yields"
}

// ============================================================================
// Derived tables (replaced wholesale on every pipeline run)
// ============================================================================

// FeatureReturnsRSI holds returns and RSI per (symbol, ts).
// Nil pointers mean "no value": not enough history or a guarded division.
type FeatureReturnsRSI struct {
	Symbol      string    `gorm:"primaryKey;size:16" json:"symbol"`
	Ts          time.Time `gorm:"primaryKey" json:"ts"`
	Name        string    `gorm:"type:text" json:"name"`
	Price       float64   `gorm:"not null" json:"price"`
	Return1dPct *float64  `gorm:"column:return_1d_pct" json:"return_1d_pct"`
	Return5dPct *float64  `gorm:"column:return_5d_pct" json:"return_5d_pct"`
	LogReturn1d *float64  `gorm:"column:log_return_1d" json:"log_return_1d"`
	RSI14       *float64  `gorm:"column:rsi_14" json:"rsi_14"`
	RSI28       *float64  `gorm:"column:rsi_28" json:"rsi_28"`
	RSISignal   string    `gorm:"column:rsi_signal;size:16;not null" json:"rsi_signal"` // OVERBOUGHT, OVERSOLD, NEUTRAL
}

// TableName specifies the table name for FeatureReturnsRSI
func (FeatureReturnsRSI) TableName() string {
	return "features_returns_rsi"
}

// FeatureVWAPVolume holds VWAP and volume metrics per (symbol, ts)
type FeatureVWAPVolume struct {
	Symbol         string    `gorm:"primaryKey;size:16" json:"symbol"`
	Ts             time.Time `gorm:"primaryKey" json:"ts"`
	Name           string    `gorm:"type:text" json:"name"`
	Price          float64   `gorm:"not null" json:"price"`
	Volume         int64     `gorm:"not null" json:"volume"`
	VWAP           *float64  `gorm:"column:vwap" json:"vwap"`
	AvgVolume20    *float64  `gorm:"column:avg_volume_20" json:"avg_volume_20"`
	VolumeRatio    *float64  `gorm:"column:volume_ratio" json:"volume_ratio"`
	VolumeCategory *string   `gorm:"column:volume_category;size:16" json:"volume_category"`
	VolumeTrend    *string   `gorm:"column:volume_trend;size:16" json:"volume_trend"`
	PriceVsVWAPPct *float64  `gorm:"column:price_vs_vwap_pct" json:"price_vs_vwap_pct"`
	VWAPPosition   *string   `gorm:"column:vwap_position;size:16" json:"vwap_position"`
}

// TableName specifies the table name for FeatureVWAPVolume
func (FeatureVWAPVolume) TableName() string {
	return "features_vwap_volume"
}

// DailyMetric is the rollup of one symbol's bars and trades for one market date
type DailyMetric struct {
	Symbol           string    `gorm:"primaryKey;size:16" json:"symbol"`
	Date             time.Time `gorm:"primaryKey;type:date" json:"date"`
	Name             string    `gorm:"type:text" json:"name"`
	Sector           *string   `gorm:"type:text" json:"sector,omitempty"`
	Open             float64   `json:"open"`
	High             float64   `json:"high"`
	Low              float64   `json:"low"`
	Close            float64   `json:"close"`
	DailyReturnPct   *float64  `gorm:"column:daily_return_pct" json:"daily_return_pct"`
	IntradayRangePct *float64  `gorm:"column:intraday_range_pct" json:"intraday_range_pct"`
	TotalVolume      int64     `json:"total_volume"`
	NumTrades        int64     `json:"num_trades"`
	BuyVolume        int64     `json:"buy_volume"`
	SellVolume       int64     `json:"sell_volume"`
	BuyRatioPct      *float64  `gorm:"column:buy_ratio_pct" json:"buy_ratio_pct"`
}

// TableName specifies the table name for DailyMetric
func (DailyMetric) TableName() string {
	return "daily_metrics"
}

// StockCorrelation is one canonical pair (SymbolA < SymbolB) of the correlation matrix
type StockCorrelation struct {
	SymbolA     string  `gorm:"primaryKey;size:16" json:"symbol_a"`
	SymbolB     string  `gorm:"primaryKey;size:16" json:"symbol_b"`
	Correlation float64 `gorm:"not null" json:"correlation"`
	SampleSize  int     `gorm:"not null" json:"sample_size"`
}

// TableName specifies the table name for StockCorrelation
func (StockCorrelation) TableName() string {
	return "stock_correlations"
}

// SentimentSignal is a Treasury trade signal emitted from a high-impact news record
type SentimentSignal struct {
	SignalID    int64     `gorm:"primaryKey;autoIncrement:false" json:"signal_id"`
	Ts          time.Time `gorm:"index;not null" json:"ts"`
	SignalType  string    `gorm:"size:32;not null" json:"signal_type"` // BUY_TREASURIES, SELL_TREASURIES
	Strength    float64   `gorm:"not null" json:"strength"`
	SourceValue float64   `gorm:"not null" json:"source_value"`
	NewsID      *int64    `json:"news_id,omitempty"`
}

// TableName specifies the table name for SentimentSignal
func (SentimentSignal) TableName() string {
	return "sentiment_signals"
}

// MarketEvent is a notable day-over-day Treasury yield move
type MarketEvent struct {
	EventID     int64     `gorm:"primaryKey;autoIncrement:false" json:"event_id"`
	Ts          time.Time `gorm:"index;not null" json:"ts"`
	EventType   string    `gorm:"size:32;not null" json:"event_type"` // MAJOR_MOVE, SIGNIFICANT_MOVE, YIELD_MOVE
	Severity    string    `gorm:"size:8;not null" json:"severity"`    // high, medium, low
	Maturity    string    `gorm:"size:8;not null" json:"maturity"`
	Change1d    float64   `gorm:"column:change_1d" json:"change_1d"`
	Description string    `gorm:"type:text" json:"description"`
}

// TableName specifies the table name for MarketEvent
func (MarketEvent) TableName() string {
	return "market_events"
}

// SentimentAggregate summarises news sentiment per hour
type SentimentAggregate struct {
	Hour         time.Time `gorm:"primaryKey" json:"hour"`
	NewsCount    int64     `json:"news_count"`
	AvgSentiment float64   `json:"avg_sentiment"`
	RiskOnCount  int64     `json:"risk_on_count"`
	RiskOffCount int64     `json:"risk_off_count"`
	NeutralCount int64     `json:"neutral_count"`
}

// TableName specifies the table name for SentimentAggregate
func (SentimentAggregate) TableName() string {
	return "sentiment_aggregates"
}

// PipelineRun is the audit row of one committed pipeline run
type PipelineRun struct {
	RunID        string    `gorm:"primaryKey;size:36" json:"run_id"`
	StartedAt    time.Time `gorm:"index;not null" json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	DurationMs   int64     `json:"duration_ms"`
	Source       string    `gorm:"type:text" json:"source"`
	Symbols      int       `json:"symbols"`
	Bars         int       `json:"bars"`
	Trades       int       `json:"trades"`
	News         int       `json:"news"`
	Yields       int       `json:"yields"`
	FeatureRows  int       `json:"feature_rows"`
	VWAPRows     int       `json:"vwap_rows"`
	DailyRows    int       `json:"daily_rows"`
	Correlations int       `json:"correlations"`
	Signals      int       `json:"signals"`
	MarketEvents int       `json:"market_events"`
	Warnings     int       `json:"warnings"`
}

// TableName specifies the table name for PipelineRun
func (PipelineRun) TableName() string {
	return "pipeline_runs"
}

// FeatureSet is every derived table produced by one pipeline run
type FeatureSet struct {
	ReturnsRSI          []FeatureReturnsRSI
	VWAPVolume          []FeatureVWAPVolume
	Daily               []DailyMetric
	Correlations        []StockCorrelation
	Signals             []SentimentSignal
	MarketEvents        []MarketEvent
	SentimentAggregates []SentimentAggregate
}
