package features

import (
	"time"

	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/ingest"
)

type tradeDay struct {
	count      int64
	buyVolume  int64
	sellVolume int64
}

// ComputeDailyMetrics rolls one symbol's bars and trades up to one row per market date.
// Only dates with at least one bar produce a row; trades on other dates are ignored.
func ComputeDailyMetrics(s Series, trades []models.Trade, loc *time.Location) []models.DailyMetric {
	if len(s.Bars) == 0 {
		return nil
	}

	byDay := make(map[time.Time]*tradeDay)
	for _, t := range trades {
		day := sessionDate(t.Ts, loc)
		td, ok := byDay[day]
		if !ok {
			td = &tradeDay{}
			byDay[day] = td
		}
		td.count++
		switch t.Side {
		case ingest.SideBuy:
			td.buyVolume += t.Size
		case ingest.SideSell:
			td.sellVolume += t.Size
		}
	}

	var rows []models.DailyMetric
	var cur *models.DailyMetric
	flush := func() {
		if cur == nil {
			return
		}
		if cur.Open != 0 {
			cur.IntradayRangePct = value((cur.High - cur.Low) / cur.Open * 100)
		}
		if n := len(rows); n > 0 {
			cur.DailyReturnPct = pctChange(cur.Close, rows[n-1].Close)
		}
		if td := byDay[cur.Date]; td != nil {
			cur.NumTrades = td.count
			cur.BuyVolume = td.buyVolume
			cur.SellVolume = td.sellVolume
			if total := td.buyVolume + td.sellVolume; total > 0 {
				cur.BuyRatioPct = value(float64(td.buyVolume) / float64(total) * 100)
			}
		}
		rows = append(rows, *cur)
	}

	for _, bar := range s.Bars {
		day := sessionDate(bar.Ts, loc)
		if cur == nil || !cur.Date.Equal(day) {
			flush()
			cur = &models.DailyMetric{
				Symbol: s.Symbol.Ticker,
				Name:   s.Symbol.Name,
				Sector: s.Symbol.Sector,
				Date:   day,
				Open:   bar.Open,
				High:   bar.High,
				Low:    bar.Low,
			}
		}
		if bar.High > cur.High {
			cur.High = bar.High
		}
		if bar.Low < cur.Low {
			cur.Low = bar.Low
		}
		cur.Close = bar.Close
		cur.TotalVolume += bar.Volume
	}
	flush()
	return rows
}
