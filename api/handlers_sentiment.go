package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"quant-warehouse/cache"
	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/database/types"
	"quant-warehouse/helpers"
)

// handleGetSentimentSignals lists Treasury signals, optionally by ?type=
func (s *Server) handleGetSentimentSignals(w http.ResponseWriter, r *http.Request) {
	signalType := strings.ToUpper(r.URL.Query().Get("type"))
	switch signalType {
	case "", database.SignalBuyTreasuries, database.SignalSellTreasuries:
	default:
		s.handleError(w, r, fmt.Errorf("%w: type must be %s or %s", errBadRequest, database.SignalBuyTreasuries, database.SignalSellTreasuries))
		return
	}
	limit := getLimit(r, database.DefaultBarLimit, database.MaxSymbolLimit)

	rows, err := cached(r.Context(), s, cache.QueryKey("sentiment-signals", signalType, limit), func(ctx context.Context) ([]models.SentimentSignal, error) {
		return s.analytics.GetSentimentSignals(ctx, signalType, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetSentimentAggregates lists hourly sentiment aggregates, newest first
func (s *Server) handleGetSentimentAggregates(w http.ResponseWriter, r *http.Request) {
	limit := getLimit(r, database.DefaultBarLimit, database.MaxSymbolLimit)

	rows, err := cached(r.Context(), s, cache.QueryKey("sentiment-aggregates", limit), func(ctx context.Context) ([]models.SentimentAggregate, error) {
		rows, err := s.analytics.GetSentimentAggregates(ctx, limit)
		for i := range rows {
			rows[i].AvgSentiment = helpers.Round(rows[i].AvgSentiment, 4)
		}
		return rows, err
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetSentimentSummary describes the loaded news sentiment
func (s *Server) handleGetSentimentSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := cached(r.Context(), s, cache.QueryKey("sentiment-summary"), func(ctx context.Context) (*types.SentimentSummary, error) {
		summary, err := s.analytics.GetSentimentSummary(ctx)
		if err != nil {
			return nil, err
		}
		summary.AvgSentiment = helpers.RoundPtr(summary.AvgSentiment, 4)
		return summary, nil
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, summary)
}

// handleGetHighImpactNews lists the newest high-impact news records
func (s *Server) handleGetHighImpactNews(w http.ResponseWriter, r *http.Request) {
	limit := getLimit(r, database.DefaultBarLimit, database.MaxSymbolLimit)

	rows, err := cached(r.Context(), s, cache.QueryKey("high-impact-news", limit), func(ctx context.Context) ([]models.NewsSentiment, error) {
		return s.market.GetHighImpactNews(ctx, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetLatestYields returns the newest yield of every maturity
func (s *Server) handleGetLatestYields(w http.ResponseWriter, r *http.Request) {
	rows, err := cached(r.Context(), s, cache.QueryKey("yields-latest"), func(ctx context.Context) ([]models.TreasuryYield, error) {
		return s.market.GetLatestYields(ctx)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetYields returns the yield history of one maturity
func (s *Server) handleGetYields(w http.ResponseWriter, r *http.Request) {
	maturity := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "maturity")))
	limit := getLimit(r, database.DefaultSeriesLimit, database.MaxSeriesLimit)

	rows, err := cached(r.Context(), s, cache.QueryKey("yields", maturity, limit), func(ctx context.Context) ([]models.TreasuryYield, error) {
		return s.market.GetYields(ctx, maturity, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetMarketEvents lists Treasury market events, optionally by ?severity=
func (s *Server) handleGetMarketEvents(w http.ResponseWriter, r *http.Request) {
	severity := strings.ToLower(r.URL.Query().Get("severity"))
	switch severity {
	case "", database.SeverityHigh, database.SeverityMedium, database.SeverityLow:
	default:
		s.handleError(w, r, fmt.Errorf("%w: severity must be high, medium or low", errBadRequest))
		return
	}
	limit := getLimit(r, database.DefaultBarLimit, database.MaxSymbolLimit)

	rows, err := cached(r.Context(), s, cache.QueryKey("market-events", severity, limit), func(ctx context.Context) ([]models.MarketEvent, error) {
		return s.analytics.GetMarketEvents(ctx, severity, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}
