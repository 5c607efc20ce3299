package app

import (
	"strings"
	"time"

	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/features"
	"quant-warehouse/ingest"
)

// Defaults applied to symbols that leave exchange or currency empty
const (
	defaultExchange = "NASDAQ"
	defaultCurrency = "USD"
)

// toModels converts a validated batch into storage rows. Required fields are non-nil once the
// batch has passed validation; a nil required field here maps to the zero value.
func toModels(b *ingest.Batch) features.Input {
	in := features.Input{
		Symbols: make([]models.Symbol, 0, len(b.Symbols)),
		Bars:    make([]models.Bar, 0, len(b.Bars)),
		Trades:  make([]models.Trade, 0, len(b.Trades)),
		News:    make([]models.NewsSentiment, 0, len(b.News)),
		Yields:  make([]models.TreasuryYield, 0, len(b.Yields)),
	}

	for _, s := range b.Symbols {
		in.Symbols = append(in.Symbols, models.Symbol{
			SymbolID:  deref(s.SymbolID),
			Ticker:    strings.TrimSpace(deref(s.Ticker)),
			Name:      deref(s.Name),
			Sector:    s.Sector,
			Industry:  s.Industry,
			MarketCap: s.MarketCap,
			Exchange:  orDefault(s.Exchange, defaultExchange),
			Currency:  orDefault(s.Currency, defaultCurrency),
		})
	}
	for _, r := range b.Bars {
		in.Bars = append(in.Bars, models.Bar{
			SymbolID: deref(r.SymbolID),
			Ts:       utc(r.Ts),
			Open:     deref(r.Open),
			High:     deref(r.High),
			Low:      deref(r.Low),
			Close:    deref(r.Close),
			Volume:   deref(r.Volume),
		})
	}
	for _, t := range b.Trades {
		in.Trades = append(in.Trades, models.Trade{
			SymbolID: deref(t.SymbolID),
			Ts:       utc(t.Ts),
			Price:    deref(t.Price),
			Size:     deref(t.Size),
			Side:     deref(t.Side),
		})
	}
	for _, n := range b.News {
		in.News = append(in.News, models.NewsSentiment{
			NewsID:         n.NewsID,
			Ts:             utc(n.Ts),
			Headline:       n.Headline,
			Source:         n.Source,
			SentimentScore: deref(n.Score),
			SentimentLabel: n.Label,
			IsHighImpact:   deref(n.HighImpact),
		})
	}
	for _, y := range b.Yields {
		in.Yields = append(in.Yields, models.TreasuryYield{
			Ts:        utc(y.Ts),
			Maturity:  strings.ToUpper(strings.TrimSpace(deref(y.Maturity))),
			YieldRate: deref(y.YieldRate),
			Source:    y.Source,
		})
	}
	return in
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func orDefault(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return *p
}

func utc(p *time.Time) time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.UTC()
}
