package features

import (
	"time"

	models "quant-warehouse/database/models_pkg"
)

var day0 = time.Date(2024, 1, 1, 16, 0, 0, 0, time.UTC)

// dailySeries builds one bar per day with the given closes and a constant volume
func dailySeries(ticker string, closes ...float64) Series {
	s := Series{Symbol: models.Symbol{SymbolID: 1, Ticker: ticker, Name: ticker + " Corp"}}
	for i, c := range closes {
		s.Bars = append(s.Bars, models.Bar{
			SymbolID: 1,
			Ts:       day0.AddDate(0, 0, i),
			Open:     c, High: c, Low: c, Close: c,
			Volume: 1000,
		})
	}
	return s
}

func ptr(v float64) *float64 { return &v }
