package api

import (
	"context"
	"net/http"
	"strings"

	"quant-warehouse/cache"
	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/database/types"
	"quant-warehouse/helpers"
)

// handleGetReturnsRSI returns the newest returns/RSI rows of a ticker
func (s *Server) handleGetReturnsRSI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := tickerParam(r)
	limit := getLimit(r, database.DefaultSeriesLimit, database.MaxSeriesLimit)

	if err := s.requireSymbol(ctx, ticker); err != nil {
		s.handleError(w, r, err)
		return
	}
	rows, err := cached(ctx, s, cache.QueryKey("rsi", ticker, limit), func(ctx context.Context) ([]models.FeatureReturnsRSI, error) {
		return s.analytics.GetReturnsRSI(ctx, ticker, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetVWAPVolume returns the newest VWAP/volume rows of a ticker
func (s *Server) handleGetVWAPVolume(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := tickerParam(r)
	limit := getLimit(r, database.DefaultSeriesLimit, database.MaxSeriesLimit)

	if err := s.requireSymbol(ctx, ticker); err != nil {
		s.handleError(w, r, err)
		return
	}
	rows, err := cached(ctx, s, cache.QueryKey("vwap", ticker, limit), func(ctx context.Context) ([]models.FeatureVWAPVolume, error) {
		return s.analytics.GetVWAPVolume(ctx, ticker, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetDailyMetrics returns the newest daily rollups of a ticker
func (s *Server) handleGetDailyMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := tickerParam(r)
	limit := getLimit(r, database.DefaultSeriesLimit, database.MaxDailyLimit)

	if err := s.requireSymbol(ctx, ticker); err != nil {
		s.handleError(w, r, err)
		return
	}
	rows, err := cached(ctx, s, cache.QueryKey("daily", ticker, limit), func(ctx context.Context) ([]models.DailyMetric, error) {
		return s.analytics.GetDailyMetrics(ctx, ticker, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetLatestPrices returns every symbol's most recent price and RSI
func (s *Server) handleGetLatestPrices(w http.ResponseWriter, r *http.Request) {
	rows, err := cached(r.Context(), s, cache.QueryKey("latest"), func(ctx context.Context) ([]types.LatestPrice, error) {
		rows, err := s.analytics.GetLatestPrices(ctx)
		for i := range rows {
			rows[i].Price = helpers.Round(rows[i].Price, 2)
			rows[i].Return1dPct = helpers.RoundPtr(rows[i].Return1dPct, 2)
			rows[i].RSI14 = helpers.RoundPtr(rows[i].RSI14, 2)
		}
		return rows, err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetTopPerformers ranks symbols by return over ?days=
func (s *Server) handleGetTopPerformers(w http.ResponseWriter, r *http.Request) {
	one, maxDays := 1, database.MaxLookbackDays
	days := getIntParam(r, "days", database.DefaultLookbackDays, &one, &maxDays)
	limit := getLimit(r, database.DefaultTopLimit, database.MaxTopLimit)

	rows, err := cached(r.Context(), s, cache.QueryKey("performance", days, limit), func(ctx context.Context) ([]types.Performance, error) {
		rows, err := s.analytics.GetTopPerformers(ctx, days, limit)
		for i := range rows {
			rows[i].StartPrice = helpers.Round(rows[i].StartPrice, 2)
			rows[i].EndPrice = helpers.Round(rows[i].EndPrice, 2)
			rows[i].TotalReturnPct = helpers.Round(rows[i].TotalReturnPct, 2)
		}
		return rows, err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetRSISignals lists symbols whose latest RSI is overbought or oversold
func (s *Server) handleGetRSISignals(w http.ResponseWriter, r *http.Request) {
	rows, err := cached(r.Context(), s, cache.QueryKey("rsi-signals"), func(ctx context.Context) ([]types.RSISignal, error) {
		rows, err := s.analytics.GetRSISignals(ctx)
		for i := range rows {
			rows[i].Price = helpers.Round(rows[i].Price, 2)
			rows[i].RSI14 = helpers.RoundPtr(rows[i].RSI14, 2)
		}
		return rows, err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetVolumeLeaders lists the highest current volume ratios
func (s *Server) handleGetVolumeLeaders(w http.ResponseWriter, r *http.Request) {
	limit := getLimit(r, database.DefaultTopLimit, database.MaxTopLimit)

	rows, err := cached(r.Context(), s, cache.QueryKey("volume", limit), func(ctx context.Context) ([]types.VolumeLeader, error) {
		rows, err := s.analytics.GetVolumeLeaders(ctx, limit)
		for i := range rows {
			rows[i].Price = helpers.Round(rows[i].Price, 2)
			rows[i].VolumeRatio = helpers.RoundPtr(rows[i].VolumeRatio, 2)
		}
		return rows, err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetCorrelations lists correlation pairs, optionally for one ?symbol= and above ?min_abs=
func (s *Server) handleGetCorrelations(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("symbol")))
	minAbs := getFloatParam(r, "min_abs", 0)
	if minAbs < 0 || minAbs > 1 {
		minAbs = 0
	}
	limit := getLimit(r, database.DefaultSymbolLimit, database.MaxSymbolLimit)

	rows, err := cached(r.Context(), s, cache.QueryKey("correlations", symbol, minAbs, limit), func(ctx context.Context) ([]models.StockCorrelation, error) {
		rows, err := s.analytics.GetCorrelations(ctx, symbol, minAbs, limit)
		for i := range rows {
			rows[i].Correlation = helpers.Round(rows[i].Correlation, 4)
		}
		return rows, err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}
