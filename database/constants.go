package database

// Query limits shared by the repositories and the HTTP layer
const (
	DefaultSymbolLimit  = 100
	MaxSymbolLimit      = 1000
	DefaultSeriesLimit  = 30
	MaxSeriesLimit      = 1000
	MaxDailyLimit       = 365
	DefaultBarLimit     = 100
	MaxBarLimit         = 10000
	DefaultTopLimit     = 10
	MaxTopLimit         = 100
	DefaultLookbackDays = 30
	MaxLookbackDays     = 365
)

// RSI signal labels
const (
	RSIOverbought = "OVERBOUGHT"
	RSIOversold   = "OVERSOLD"
	RSINeutral    = "NEUTRAL"
)

// Volume categories by volume_ratio
const (
	VolumeVeryLow  = "VERY_LOW"
	VolumeLow      = "LOW"
	VolumeNormal   = "NORMAL"
	VolumeHigh     = "HIGH"
	VolumeVeryHigh = "VERY_HIGH"
)

// Volume trend labels
const (
	TrendIncreasing = "INCREASING"
	TrendDecreasing = "DECREASING"
	TrendStable     = "STABLE"
)

// VWAP position labels
const (
	AboveVWAP = "ABOVE_VWAP"
	BelowVWAP = "BELOW_VWAP"
	AtVWAP    = "AT_VWAP"
)

// Sentiment signal types
const (
	SignalBuyTreasuries  = "BUY_TREASURIES"
	SignalSellTreasuries = "SELL_TREASURIES"
)

// Market event types and severities
const (
	EventMajorMove       = "MAJOR_MOVE"
	EventSignificantMove = "SIGNIFICANT_MOVE"
	EventYieldMove       = "YIELD_MOVE"

	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)
