package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quant-warehouse/config"
	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/database/types"
)

type mockMarket struct{ mock.Mock }

func (m *mockMarket) GetSymbols(ctx context.Context, sector string, limit int) ([]models.Symbol, error) {
	args := m.Called(ctx, sector, limit)
	rows, _ := args.Get(0).([]models.Symbol)
	return rows, args.Error(1)
}

func (m *mockMarket) GetSymbol(ctx context.Context, ticker string) (*models.Symbol, error) {
	args := m.Called(ctx, ticker)
	s, _ := args.Get(0).(*models.Symbol)
	return s, args.Error(1)
}

func (m *mockMarket) GetBars(ctx context.Context, ticker string, from, to *time.Time, limit int) ([]models.Bar, error) {
	args := m.Called(ctx, ticker, from, to, limit)
	rows, _ := args.Get(0).([]models.Bar)
	return rows, args.Error(1)
}

func (m *mockMarket) GetTrades(ctx context.Context, ticker, side string, limit int) ([]models.Trade, error) {
	args := m.Called(ctx, ticker, side, limit)
	rows, _ := args.Get(0).([]models.Trade)
	return rows, args.Error(1)
}

func (m *mockMarket) GetLatestYields(ctx context.Context) ([]models.TreasuryYield, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]models.TreasuryYield)
	return rows, args.Error(1)
}

func (m *mockMarket) GetYields(ctx context.Context, maturity string, limit int) ([]models.TreasuryYield, error) {
	args := m.Called(ctx, maturity, limit)
	rows, _ := args.Get(0).([]models.TreasuryYield)
	return rows, args.Error(1)
}

func (m *mockMarket) GetHighImpactNews(ctx context.Context, limit int) ([]models.NewsSentiment, error) {
	args := m.Called(ctx, limit)
	rows, _ := args.Get(0).([]models.NewsSentiment)
	return rows, args.Error(1)
}

func (m *mockMarket) GetLatestRun(ctx context.Context) (*models.PipelineRun, error) {
	args := m.Called(ctx)
	run, _ := args.Get(0).(*models.PipelineRun)
	return run, args.Error(1)
}

func (m *mockMarket) CountSymbols(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockAnalytics struct{ mock.Mock }

func (m *mockAnalytics) GetReturnsRSI(ctx context.Context, symbol string, limit int) ([]models.FeatureReturnsRSI, error) {
	args := m.Called(ctx, symbol, limit)
	rows, _ := args.Get(0).([]models.FeatureReturnsRSI)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetVWAPVolume(ctx context.Context, symbol string, limit int) ([]models.FeatureVWAPVolume, error) {
	args := m.Called(ctx, symbol, limit)
	rows, _ := args.Get(0).([]models.FeatureVWAPVolume)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetDailyMetrics(ctx context.Context, symbol string, limit int) ([]models.DailyMetric, error) {
	args := m.Called(ctx, symbol, limit)
	rows, _ := args.Get(0).([]models.DailyMetric)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetLatestPrices(ctx context.Context) ([]types.LatestPrice, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]types.LatestPrice)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetTopPerformers(ctx context.Context, days, limit int) ([]types.Performance, error) {
	args := m.Called(ctx, days, limit)
	rows, _ := args.Get(0).([]types.Performance)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetRSISignals(ctx context.Context) ([]types.RSISignal, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]types.RSISignal)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetVolumeLeaders(ctx context.Context, limit int) ([]types.VolumeLeader, error) {
	args := m.Called(ctx, limit)
	rows, _ := args.Get(0).([]types.VolumeLeader)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetCorrelations(ctx context.Context, symbol string, minAbs float64, limit int) ([]models.StockCorrelation, error) {
	args := m.Called(ctx, symbol, minAbs, limit)
	rows, _ := args.Get(0).([]models.StockCorrelation)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetSentimentSignals(ctx context.Context, signalType string, limit int) ([]models.SentimentSignal, error) {
	args := m.Called(ctx, signalType, limit)
	rows, _ := args.Get(0).([]models.SentimentSignal)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetSentimentAggregates(ctx context.Context, limit int) ([]models.SentimentAggregate, error) {
	args := m.Called(ctx, limit)
	rows, _ := args.Get(0).([]models.SentimentAggregate)
	return rows, args.Error(1)
}

func (m *mockAnalytics) GetSentimentSummary(ctx context.Context) (*types.SentimentSummary, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*types.SentimentSummary)
	return s, args.Error(1)
}

func (m *mockAnalytics) GetMarketEvents(ctx context.Context, severity string, limit int) ([]models.MarketEvent, error) {
	args := m.Called(ctx, severity, limit)
	rows, _ := args.Get(0).([]models.MarketEvent)
	return rows, args.Error(1)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(rateLimit int) (*Server, *mockMarket, *mockAnalytics) {
	market := &mockMarket{}
	analytics := &mockAnalytics{}
	cfg := config.APIConfig{RateLimitPerMinute: rateLimit, ShutdownTimeout: time.Second}
	return NewServer(market, analytics, cfg, zap.NewNop()), market, analytics
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestUnknownTickerIsNotFound(t *testing.T) {
	for _, path := range []string{"/symbols/zzzz", "/bars/ZZZZ", "/analytics/rsi/ZZZZ", "/analytics/daily/ZZZZ"} {
		t.Run(path, func(t *testing.T) {
			s, market, analytics := newTestServer(0)
			market.On("GetSymbol", mock.Anything, "ZZZZ").Return(nil, database.NewNotFoundErrorWithID("symbol", "ZZZZ"))

			rec := get(t, s.Router(), path)

			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"error":"symbol not found: ZZZZ"}`, rec.Body.String())
			analytics.AssertNotCalled(t, "GetReturnsRSI", mock.Anything, mock.Anything, mock.Anything)
			market.AssertNotCalled(t, "GetBars", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestKnownTickerWithoutHistoryIsEmptyList(t *testing.T) {
	s, market, analytics := newTestServer(0)
	market.On("GetSymbol", mock.Anything, "AAPL").Return(&models.Symbol{SymbolID: 1, Ticker: "AAPL"}, nil)
	analytics.On("GetReturnsRSI", mock.Anything, "AAPL", database.DefaultSeriesLimit).Return(nil, nil)

	rec := get(t, s.Router(), "/analytics/rsi/aapl")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	analytics.AssertExpectations(t)
}

func TestBadParameters(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"invalid from timestamp", "/bars/AAPL?from=yesterday"},
		{"invalid trade side", "/trades/AAPL?side=HOLD"},
		{"invalid signal type", "/sentiment/signals?type=HOLD_TREASURIES"},
		{"invalid severity", "/market-events?severity=extreme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, market, analytics := newTestServer(0)

			rec := get(t, s.Router(), tt.path)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			market.AssertExpectations(t)
			analytics.AssertExpectations(t)
		})
	}
}

func TestGetBars_PassesRangeAndLimit(t *testing.T) {
	s, market, _ := newTestServer(0)
	from := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := []models.Bar{{SymbolID: 1, Ts: from, Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100}}
	market.On("GetSymbol", mock.Anything, "AAPL").Return(&models.Symbol{SymbolID: 1, Ticker: "AAPL"}, nil)
	market.On("GetBars", mock.Anything, "AAPL", &from, (*time.Time)(nil), 5).Return(bars, nil)

	rec := get(t, s.Router(), "/bars/AAPL?from=2024-01-02&limit=5")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Bar
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 1)
	market.AssertExpectations(t)
}

func TestLimitOutOfRangeFallsBackToDefault(t *testing.T) {
	s, _, analytics := newTestServer(0)
	analytics.On("GetVolumeLeaders", mock.Anything, database.DefaultTopLimit).Return(nil, nil)

	rec := get(t, s.Router(), "/analytics/volume?limit=100000")

	assert.Equal(t, http.StatusOK, rec.Code)
	analytics.AssertExpectations(t)
}

func TestCorrelationsAreRounded(t *testing.T) {
	s, _, analytics := newTestServer(0)
	analytics.On("GetCorrelations", mock.Anything, "MSFT", 0.5, 5).Return([]models.StockCorrelation{
		{SymbolA: "AAPL", SymbolB: "MSFT", Correlation: 0.876543, SampleSize: 60},
	}, nil)

	rec := get(t, s.Router(), "/analytics/correlations?symbol=msft&min_abs=0.5&limit=5")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"symbol_a":"AAPL","symbol_b":"MSFT","correlation":0.8765,"sample_size":60}]`, rec.Body.String())
}

func TestRepositoryFailureIsInternalError(t *testing.T) {
	s, _, analytics := newTestServer(0)
	analytics.On("GetLatestPrices", mock.Anything).Return(nil, errors.New("connection reset"))

	rec := get(t, s.Router(), "/analytics/latest")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	t.Run("healthy without runs", func(t *testing.T) {
		s, market, _ := newTestServer(0)
		s.SetHealthChecker(pingFunc(func(context.Context) error { return nil }))
		market.On("CountSymbols", mock.Anything).Return(int64(3), nil)
		market.On("GetLatestRun", mock.Anything).Return(nil, database.NewNotFoundErrorWithID("pipeline run", nil))

		rec := get(t, s.Router(), "/health")

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "disabled", body["cache"])
		assert.EqualValues(t, 3, body["symbols"])
		assert.Nil(t, body["last_run"])
	})

	t.Run("database unreachable", func(t *testing.T) {
		s, market, _ := newTestServer(0)
		s.SetHealthChecker(pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") }))

		rec := get(t, s.Router(), "/health")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"unhealthy"`)
		market.AssertNotCalled(t, "CountSymbols", mock.Anything)
	})
}

func TestLatestRunNotFound(t *testing.T) {
	s, market, _ := newTestServer(0)
	market.On("GetLatestRun", mock.Anything).Return(nil, database.NewNotFoundErrorWithID("pipeline run", nil))

	rec := get(t, s.Router(), "/runs/latest")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"pipeline run not found"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	s, _, analytics := newTestServer(1)
	analytics.On("GetRSISignals", mock.Anything).Return(nil, nil)
	h := s.Router()

	assert.Equal(t, http.StatusOK, get(t, h, "/analytics/signals").Code)
	rec := get(t, h, "/analytics/signals")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	s, _, _ := newTestServer(0)
	s.SetMetricsHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("quant_warehouse_pipeline_runs_total 1\n"))
	}))

	rec := get(t, s.Router(), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pipeline_runs_total")
}

func TestCORSPreflight(t *testing.T) {
	s, _, _ := newTestServer(0)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/symbols", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
