package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"quant-warehouse/database"
	"quant-warehouse/ingest"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errBadRequest marks invalid query parameters
var errBadRequest = errors.New("bad request")

// getIntParam retrieves an integer query parameter with default value and optional range validation
func getIntParam(r *http.Request, key string, defaultVal int, minVal, maxVal *int) int {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}

	if minVal != nil && val < *minVal {
		return defaultVal
	}
	if maxVal != nil && val > *maxVal {
		return defaultVal
	}

	return val
}

// getLimit reads ?limit= in [1, max]
func getLimit(r *http.Request, defaultVal, max int) int {
	one := 1
	return getIntParam(r, "limit", defaultVal, &one, &max)
}

// getFloatParam retrieves a float query parameter with default value
func getFloatParam(r *http.Request, key string, defaultVal float64) float64 {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultVal
	}

	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return defaultVal
	}

	return val
}

// getTimeParam parses an optional timestamp query parameter
func getTimeParam(r *http.Request, key string) (*time.Time, error) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return nil, nil
	}
	ts, err := ingest.ParseTimestamp(valStr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s timestamp %q", errBadRequest, key, valStr)
	}
	return &ts, nil
}

// tickerParam returns the upper-cased {ticker} path parameter
func tickerParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "ticker")))
}

// listOf renders an empty slice instead of null
func listOf[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

// cached serves a query from the query cache, loading and storing it on a miss. The snapshot
// is resolved once, so a result loaded across a reload is written under the old snapshot.
func cached[T any](ctx context.Context, s *Server, query string, load func(ctx context.Context) (T, error)) (T, error) {
	entry := s.cache.Resolve(ctx, query)

	var out T
	if entry.Get(ctx, &out) {
		return out, nil
	}
	out, err := load(ctx)
	if err != nil {
		return out, err
	}
	if err := entry.Set(ctx, out); err != nil {
		s.log.Debug("Query cache write failed", zap.String("key", entry.Key()), zap.Error(err))
	}
	return out, nil
}

func respondJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, v)
}

// respondWithError logs the error and sends a JSON error response
// Use this to avoid exposing internal errors while still logging them
func (s *Server) respondWithError(w http.ResponseWriter, r *http.Request, code int, message string, err error) {
	fields := []zap.Field{zap.Int("status", code), zap.String("path", r.URL.Path)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if code >= http.StatusInternalServerError {
		s.log.Error(message, fields...)
	} else {
		s.log.Debug(message, fields...)
	}
	render.Status(r, code)
	render.JSON(w, r, errorResponse{Error: message})
}

// handleError maps repository errors to HTTP responses
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *database.NotFoundError
	switch {
	case errors.As(err, &nf):
		s.respondWithError(w, r, http.StatusNotFound, nf.Error(), nil)
	case errors.Is(err, errBadRequest):
		s.respondWithError(w, r, http.StatusBadRequest, err.Error(), nil)
	default:
		s.respondWithError(w, r, http.StatusInternalServerError, "internal server error", err)
	}
}

// requireSymbol returns a NotFoundError for tickers the warehouse does not know
func (s *Server) requireSymbol(ctx context.Context, ticker string) error {
	_, err := cached(ctx, s, "symbol:"+ticker, func(ctx context.Context) (bool, error) {
		if _, err := s.market.GetSymbol(ctx, ticker); err != nil {
			return false, err
		}
		return true, nil
	})
	return err
}
