package features

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
)

// Yield move thresholds, in percentage points (0.08 = 8 bps)
var (
	minEventMove    = decimal.RequireFromString("0.08")
	significantMove = decimal.RequireFromString("0.10")
	majorMove       = decimal.RequireFromString("0.15")
)

// YieldChange is the change of one maturity's yield versus its previous observation
type YieldChange struct {
	Ts       time.Time
	Maturity string
	Yield    float64
	Change1d decimal.Decimal
}

// ComputeYieldChanges returns change_1d for every observation that has a predecessor of the
// same maturity. NaN and Inf yields are skipped. Output is ordered by (ts, maturity).
func ComputeYieldChanges(yields []models.TreasuryYield) []YieldChange {
	byMaturity := make(map[string][]models.TreasuryYield)
	for _, y := range yields {
		if math.IsNaN(y.YieldRate) || math.IsInf(y.YieldRate, 0) {
			continue
		}
		byMaturity[y.Maturity] = append(byMaturity[y.Maturity], y)
	}

	var out []YieldChange
	for maturity, ys := range byMaturity {
		sort.SliceStable(ys, func(i, j int) bool { return ys[i].Ts.Before(ys[j].Ts) })
		for i := 1; i < len(ys); i++ {
			change := decimal.NewFromFloat(ys[i].YieldRate).Sub(decimal.NewFromFloat(ys[i-1].YieldRate))
			out = append(out, YieldChange{Ts: ys[i].Ts, Maturity: maturity, Yield: ys[i].YieldRate, Change1d: change})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Ts.Equal(out[j].Ts) {
			return out[i].Ts.Before(out[j].Ts)
		}
		return out[i].Maturity < out[j].Maturity
	})
	return out
}

// classifyMove maps an absolute yield change to an event type and severity
func classifyMove(abs decimal.Decimal) (string, string) {
	switch {
	case abs.GreaterThanOrEqual(majorMove):
		return database.EventMajorMove, database.SeverityHigh
	case abs.GreaterThanOrEqual(significantMove):
		return database.EventSignificantMove, database.SeverityMedium
	default:
		return database.EventYieldMove, database.SeverityLow
	}
}

// ComputeMarketEvents turns yield moves of at least 8 bps into market events
func ComputeMarketEvents(yields []models.TreasuryYield) []models.MarketEvent {
	var events []models.MarketEvent
	for _, c := range ComputeYieldChanges(yields) {
		abs := c.Change1d.Abs()
		if abs.LessThan(minEventMove) {
			continue
		}
		kind, severity := classifyMove(abs)

		direction := "down"
		if c.Change1d.IsPositive() {
			direction = "up"
		}
		bps := abs.Mul(decimal.NewFromInt(100)).Round(1)

		change, _ := c.Change1d.Float64()
		events = append(events, models.MarketEvent{
			EventID:     int64(len(events) + 1),
			Ts:          c.Ts,
			EventType:   kind,
			Severity:    severity,
			Maturity:    c.Maturity,
			Change1d:    change,
			Description: fmt.Sprintf("%s Treasury yield %s %s bps", c.Maturity, direction, bps.StringFixed(1)),
		})
	}
	return events
}
