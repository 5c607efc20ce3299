// Package ingest reads raw market batches (symbols, bars, trades, news sentiment, Treasury
// yields) from a source directory. Every field is a pointer: nil means the cell was empty,
// which the validator reports as a NULL in a required column.
package ingest

import (
	"errors"
	"time"
)

// Dataset names one input table of a batch
type Dataset string

const (
	DatasetSymbols Dataset = "symbols"
	DatasetBars    Dataset = "bars"
	DatasetTrades  Dataset = "trades"
	DatasetNews    Dataset = "news_sentiment"
	DatasetYields  Dataset = "treasury_yields"
)

// RequiredColumns lists the columns a source must declare for each dataset
var RequiredColumns = map[Dataset][]string{
	DatasetSymbols: {"symbol_id", "ticker", "name"},
	DatasetBars:    {"symbol_id", "ts", "open", "high", "low", "close", "volume"},
	DatasetTrades:  {"symbol_id", "ts", "price", "size", "side"},
	DatasetNews:    {"ts", "sentiment_score", "is_high_impact"},
	DatasetYields:  {"ts", "maturity", "yield_rate"},
}

// ErrNonFinite marks a numeric cell holding NaN or Inf
var ErrNonFinite = errors.New("non-finite number")

// Trade sides
const (
	SideBuy     = "BUY"
	SideSell    = "SELL"
	SideUnknown = "UNKNOWN"
)

// Sentiment labels
const (
	LabelRiskOn  = "risk-on"
	LabelRiskOff = "risk-off"
	LabelNeutral = "neutral"
)

// RawSymbol is one instrument as delivered by the source
type RawSymbol struct {
	SymbolID  *int64  `csv:"symbol_id" validate:"required"`
	Ticker    *string `csv:"ticker" validate:"required"`
	Name      *string `csv:"name" validate:"required"`
	Sector    *string `csv:"sector"`
	Industry  *string `csv:"industry"`
	MarketCap *int64  `csv:"market_cap" validate:"omitempty,gte=0"`
	Exchange  *string `csv:"exchange"`
	Currency  *string `csv:"currency"`
}

// RawBar is one OHLCV bar
type RawBar struct {
	SymbolID *int64     `csv:"symbol_id" validate:"required"`
	Ts       *time.Time `csv:"ts" validate:"required"`
	Open     *float64   `csv:"open" validate:"required,finite,gt=0"`
	High     *float64   `csv:"high" validate:"required,finite"`
	Low      *float64   `csv:"low" validate:"required,finite"`
	Close    *float64   `csv:"close" validate:"required,finite"`
	Volume   *int64     `csv:"volume" validate:"required,gte=0"`
}

// RawTrade is one executed trade
type RawTrade struct {
	SymbolID *int64     `csv:"symbol_id" validate:"required"`
	Ts       *time.Time `csv:"ts" validate:"required"`
	Price    *float64   `csv:"price" validate:"required,finite,gt=0"`
	Size     *int64     `csv:"size" validate:"required,gt=0"`
	Side     *string    `csv:"side" validate:"required,oneof=BUY SELL UNKNOWN"`
}

// RawNews is one scored news record
type RawNews struct {
	NewsID     *int64     `csv:"news_id"`
	Ts         *time.Time `csv:"ts" validate:"required"`
	Headline   *string    `csv:"headline"`
	Source     *string    `csv:"source"`
	Score      *float64   `csv:"sentiment_score" validate:"required,finite,gte=-1,lte=1"`
	Label      *string    `csv:"sentiment_label" validate:"omitempty,oneof=risk-on risk-off neutral"`
	HighImpact *bool      `csv:"is_high_impact" validate:"required"`
}

// RawYield is one Treasury yield observation
type RawYield struct {
	Ts        *time.Time `csv:"ts" validate:"required"`
	Maturity  *string    `csv:"maturity" validate:"required"`
	YieldRate *float64   `csv:"yield_rate" validate:"required,finite"`
	Source    *string    `csv:"source"`
}

// CellError records a value that could not be parsed into its column type
type CellError struct {
	Dataset Dataset
	Row     int
	Column  string
	Value   string
	Err     error
}

// Batch is one complete set of raw records to validate and load
type Batch struct {
	Symbols []RawSymbol
	Bars    []RawBar
	Trades  []RawTrade
	News    []RawNews
	Yields  []RawYield

	// Columns holds the header each source declared; a dataset absent from the map skips the
	// column presence check (e.g. batches built in code).
	Columns map[Dataset][]string

	// Malformed lists cells that were present but unparseable; they are read as nil.
	Malformed []CellError
}

// Counts returns the number of records per dataset
func (b *Batch) Counts() map[Dataset]int {
	return map[Dataset]int{
		DatasetSymbols: len(b.Symbols),
		DatasetBars:    len(b.Bars),
		DatasetTrades:  len(b.Trades),
		DatasetNews:    len(b.News),
		DatasetYields:  len(b.Yields),
	}
}
