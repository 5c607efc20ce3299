package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"quant-warehouse/cache"
	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/ingest"
)

type healthResponse struct {
	Status   string              `json:"status"`
	Database string              `json:"database"`
	Cache    string              `json:"cache"`
	Symbols  int64               `json:"symbols"`
	LastRun  *models.PipelineRun `json:"last_run"`
	Time     time.Time           `json:"time"`
}

// handleHealth reports database reachability and the last committed run
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := healthResponse{Status: "healthy", Database: "connected", Cache: "disabled", Time: time.Now().UTC()}
	if s.cache.Enabled() {
		resp.Cache = "enabled"
	}

	if s.health != nil {
		if err := s.health.Ping(ctx); err != nil {
			s.log.Warn("Health check failed")
			resp.Status = "unhealthy"
			resp.Database = "unreachable"
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, resp)
			return
		}
	}

	count, err := s.market.CountSymbols(ctx)
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	resp.Symbols = count

	run, err := s.market.GetLatestRun(ctx)
	switch {
	case err == nil:
		resp.LastRun = run
	case !database.IsNotFound(err):
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, resp)
}

// handleGetSymbols lists instruments, optionally by sector
func (s *Server) handleGetSymbols(w http.ResponseWriter, r *http.Request) {
	sector := r.URL.Query().Get("sector")
	limit := getLimit(r, database.DefaultSymbolLimit, database.MaxSymbolLimit)

	rows, err := cached(r.Context(), s, cache.QueryKey("symbols", sector, limit), func(ctx context.Context) ([]models.Symbol, error) {
		return s.market.GetSymbols(ctx, sector, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetSymbol returns one instrument; unknown tickers are 404
func (s *Server) handleGetSymbol(w http.ResponseWriter, r *http.Request) {
	ticker := tickerParam(r)
	symbol, err := cached(r.Context(), s, cache.QueryKey("symbol-detail", ticker), func(ctx context.Context) (*models.Symbol, error) {
		return s.market.GetSymbol(ctx, ticker)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, symbol)
}

// handleGetBars returns the newest bars of a ticker within ?from= / ?to=
func (s *Server) handleGetBars(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := tickerParam(r)
	from, err := getTimeParam(r, "from")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	to, err := getTimeParam(r, "to")
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	limit := getLimit(r, database.DefaultBarLimit, database.MaxBarLimit)

	if err := s.requireSymbol(ctx, ticker); err != nil {
		s.handleError(w, r, err)
		return
	}
	key := cache.QueryKey("bars", ticker, formatTime(from), formatTime(to), limit)
	rows, err := cached(ctx, s, key, func(ctx context.Context) ([]models.Bar, error) {
		return s.market.GetBars(ctx, ticker, from, to, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetTrades returns the newest trades of a ticker, optionally by ?side=
func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ticker := tickerParam(r)
	side := strings.ToUpper(r.URL.Query().Get("side"))
	switch side {
	case "", ingest.SideBuy, ingest.SideSell, ingest.SideUnknown:
	default:
		s.handleError(w, r, fmt.Errorf("%w: side must be BUY, SELL or UNKNOWN", errBadRequest))
		return
	}
	limit := getLimit(r, database.DefaultBarLimit, database.MaxBarLimit)

	if err := s.requireSymbol(ctx, ticker); err != nil {
		s.handleError(w, r, err)
		return
	}
	rows, err := cached(ctx, s, cache.QueryKey("trades", ticker, side, limit), func(ctx context.Context) ([]models.Trade, error) {
		return s.market.GetTrades(ctx, ticker, side, limit)
	})
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, listOf(rows))
}

// handleGetLatestRun returns the audit row of the last committed run
func (s *Server) handleGetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.market.GetLatestRun(r.Context())
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	respondJSON(w, r, run)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
