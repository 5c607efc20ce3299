package features

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	models "quant-warehouse/database/models_pkg"
)

// Input is the loaded data the derived tables are computed from
type Input struct {
	Symbols []models.Symbol
	Bars    []models.Bar
	Trades  []models.Trade
	News    []models.NewsSentiment
	Yields  []models.TreasuryYield
}

// ErrNonFinite is returned by Build when an input row holds NaN or Inf
var ErrNonFinite = errors.New("non-finite input value")

// Builder computes every derived table for one pipeline run
type Builder struct {
	params Params
	log    *zap.Logger
}

// NewBuilder creates a feature builder
func NewBuilder(params Params, log *zap.Logger) *Builder {
	if params.MaxWorkers <= 0 {
		params.MaxWorkers = 1
	}
	return &Builder{params: params, log: log.With(zap.String("component", "features"))}
}

type symbolResult struct {
	returns []models.FeatureReturnsRSI
	vwap    []models.FeatureVWAPVolume
	daily   []models.DailyMetric
}

// Build runs the per-symbol engines concurrently, then the cross-symbol ones. Output order is
// deterministic: per-symbol rows by (ticker, ts).
func (b *Builder) Build(ctx context.Context, in Input) (*models.FeatureSet, error) {
	if err := checkFinite(in); err != nil {
		return nil, err
	}
	series, err := GroupBars(in.Symbols, in.Bars)
	if err != nil {
		return nil, err
	}
	tradesBySymbol := GroupTrades(in.Trades)

	results := make([]symbolResult, len(series))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.params.MaxWorkers)
	for i := range series {
		s := series[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = symbolResult{
				returns: ComputeReturnsRSI(s, b.params.RSIPeriods),
				vwap:    ComputeVWAPVolume(s, b.params),
				daily:   ComputeDailyMetrics(s, tradesBySymbol[s.Symbol.SymbolID], b.params.Location),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("per-symbol features: %w", err)
	}

	fs := &models.FeatureSet{}
	for _, r := range results {
		fs.ReturnsRSI = append(fs.ReturnsRSI, r.returns...)
		fs.VWAPVolume = append(fs.VWAPVolume, r.vwap...)
		fs.Daily = append(fs.Daily, r.daily...)
	}

	fs.Correlations = ComputeCorrelations(DailyLogReturns(fs.ReturnsRSI, b.params.Location), b.params.MinCorrelationOverlap).Pairs()
	fs.Signals = ComputeSentimentSignals(in.News, b.params.SignalThreshold)
	fs.SentimentAggregates = ComputeSentimentAggregates(in.News)
	fs.MarketEvents = ComputeMarketEvents(in.Yields)

	b.log.Debug("Features computed",
		zap.Int("symbols", len(series)),
		zap.Int("returns_rsi", len(fs.ReturnsRSI)),
		zap.Int("vwap_volume", len(fs.VWAPVolume)),
		zap.Int("daily", len(fs.Daily)),
		zap.Int("correlations", len(fs.Correlations)),
		zap.Int("signals", len(fs.Signals)),
		zap.Int("market_events", len(fs.MarketEvents)),
	)
	return fs, nil
}

// checkFinite rejects inputs no engine can compute with
func checkFinite(in Input) error {
	for _, bar := range in.Bars {
		for _, v := range [...]float64{bar.Open, bar.High, bar.Low, bar.Close} {
			if !finite(v) {
				return fmt.Errorf("%w: bar of symbol_id %d at %s", ErrNonFinite, bar.SymbolID, bar.Ts.Format(time.RFC3339))
			}
		}
	}
	for _, t := range in.Trades {
		if !finite(t.Price) {
			return fmt.Errorf("%w: trade price of symbol_id %d at %s", ErrNonFinite, t.SymbolID, t.Ts.Format(time.RFC3339))
		}
	}
	for _, n := range in.News {
		if !finite(n.SentimentScore) {
			return fmt.Errorf("%w: sentiment score at %s", ErrNonFinite, n.Ts.Format(time.RFC3339))
		}
	}
	for _, y := range in.Yields {
		if !finite(y.YieldRate) {
			return fmt.Errorf("%w: %s yield at %s", ErrNonFinite, y.Maturity, y.Ts.Format(time.RFC3339))
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
