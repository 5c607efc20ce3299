// Package features derives the analytical tables from loaded market data: returns and RSI,
// VWAP and volume metrics, daily rollups, return correlations, sentiment signals and Treasury
// market events. Every engine is a pure function of its input; nil pointers in the output mean
// "no value" and never hold NaN or infinities.
package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"quant-warehouse/config"
	models "quant-warehouse/database/models_pkg"
)

// Params configures the engines
type Params struct {
	// RSIPeriods fill the rsi_14 and rsi_28 columns in order; the first drives rsi_signal
	RSIPeriods            []int
	AvgVolumeWindow       int
	VWAPMode              string // session | rolling
	VWAPWindow            int
	Location              *time.Location
	MinCorrelationOverlap int
	SignalThreshold       float64
	MaxWorkers            int
}

// DefaultParams returns the standard indicator settings
func DefaultParams() Params {
	return Params{
		RSIPeriods:            []int{14, 28},
		AvgVolumeWindow:       20,
		VWAPMode:              VWAPSession,
		VWAPWindow:            20,
		Location:              time.UTC,
		MinCorrelationOverlap: 20,
		SignalThreshold:       0.3,
		MaxWorkers:            4,
	}
}

// ParamsFromConfig builds engine parameters from the pipeline configuration
func ParamsFromConfig(p config.PipelineConfig) Params {
	return Params{
		RSIPeriods:            p.RSIPeriods,
		AvgVolumeWindow:       p.AvgVolumeWindow,
		VWAPMode:              strings.ToLower(p.VWAPMode),
		VWAPWindow:            p.VWAPWindow,
		Location:              p.Location(),
		MinCorrelationOverlap: p.MinCorrelationOverlap,
		SignalThreshold:       p.SignalThreshold,
		MaxWorkers:            p.MaxWorkers,
	}
}

// Series is one symbol's bars in strictly increasing time order
type Series struct {
	Symbol models.Symbol
	Bars   []models.Bar
}

// GroupBars splits bars into one Series per symbol, ordered by ticker. Bars are sorted by time
// and a repeated timestamp keeps the first bar seen. Symbols without bars get an empty Series.
// A bar referencing an unknown symbol is an error.
func GroupBars(symbols []models.Symbol, bars []models.Bar) ([]Series, error) {
	index := make(map[int64]int, len(symbols))
	series := make([]Series, len(symbols))

	ordered := make([]models.Symbol, len(symbols))
	copy(ordered, symbols)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Ticker < ordered[j].Ticker })
	for i, s := range ordered {
		series[i].Symbol = s
		index[s.SymbolID] = i
	}

	for _, b := range bars {
		i, ok := index[b.SymbolID]
		if !ok {
			return nil, fmt.Errorf("bar at %s references unknown symbol_id %d", b.Ts.Format(time.RFC3339), b.SymbolID)
		}
		series[i].Bars = append(series[i].Bars, b)
	}

	for i := range series {
		bs := series[i].Bars
		sort.SliceStable(bs, func(a, b int) bool { return bs[a].Ts.Before(bs[b].Ts) })
		out := bs[:0]
		for _, b := range bs {
			if len(out) > 0 && out[len(out)-1].Ts.Equal(b.Ts) {
				continue
			}
			out = append(out, b)
		}
		series[i].Bars = out
	}
	return series, nil
}

// GroupTrades indexes trades by symbol_id, keeping their order
func GroupTrades(trades []models.Trade) map[int64][]models.Trade {
	out := make(map[int64][]models.Trade)
	for _, t := range trades {
		out[t.SymbolID] = append(out[t.SymbolID], t)
	}
	return out
}

// sessionDate returns the calendar date of ts in loc as a UTC midnight
func sessionDate(ts time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// value returns a pointer to v, or nil when v is NaN or infinite
func value(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func label(s string) *string {
	return &s
}
