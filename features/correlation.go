package features

import (
	"math"
	"sort"
	"time"

	models "quant-warehouse/database/models_pkg"
)

// DailyReturns maps symbol -> market date -> mean log return of that date
type DailyReturns map[string]map[time.Time]float64

// DailyLogReturns averages the non-null log_return_1d of each symbol per market date
func DailyLogReturns(rows []models.FeatureReturnsRSI, loc *time.Location) DailyReturns {
	type acc struct {
		sum float64
		n   int
	}
	sums := make(map[string]map[time.Time]*acc)
	for _, r := range rows {
		if r.LogReturn1d == nil {
			continue
		}
		days, ok := sums[r.Symbol]
		if !ok {
			days = make(map[time.Time]*acc)
			sums[r.Symbol] = days
		}
		day := sessionDate(r.Ts, loc)
		a, ok := days[day]
		if !ok {
			a = &acc{}
			days[day] = a
		}
		a.sum += *r.LogReturn1d
		a.n++
	}

	out := make(DailyReturns, len(sums))
	for sym, days := range sums {
		out[sym] = make(map[time.Time]float64, len(days))
		for day, a := range days {
			out[sym][day] = a.sum / float64(a.n)
		}
	}
	return out
}

// CorrelationMatrix holds canonical pairs sorted by descending absolute correlation
type CorrelationMatrix struct {
	pairs []models.StockCorrelation
	index map[[2]string]int
}

// Pairs returns the rows of the matrix, symbol_a < symbol_b
func (m *CorrelationMatrix) Pairs() []models.StockCorrelation {
	return m.pairs
}

// Get returns the correlation of a and b in either order
func (m *CorrelationMatrix) Get(a, b string) (float64, bool) {
	if a > b {
		a, b = b, a
	}
	i, ok := m.index[[2]string{a, b}]
	if !ok {
		return 0, false
	}
	return m.pairs[i].Correlation, true
}

// ComputeCorrelations computes Pearson correlation for every pair of symbols over their common
// dates. Pairs with fewer than minOverlap common dates, or with a constant series, are omitted.
func ComputeCorrelations(returns DailyReturns, minOverlap int) *CorrelationMatrix {
	symbols := make([]string, 0, len(returns))
	for s := range returns {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var pairs []models.StockCorrelation
	for i := 0; i < len(symbols); i++ {
		for j := i + 1; j < len(symbols); j++ {
			a, b := returns[symbols[i]], returns[symbols[j]]

			days := make([]time.Time, 0, len(a))
			for day := range a {
				if _, ok := b[day]; ok {
					days = append(days, day)
				}
			}
			if len(days) < minOverlap {
				continue
			}
			sort.Slice(days, func(x, y int) bool { return days[x].Before(days[y]) })

			x := make([]float64, len(days))
			y := make([]float64, len(days))
			for k, day := range days {
				x[k], y[k] = a[day], b[day]
			}

			corr, ok := pearson(x, y)
			if !ok {
				continue
			}
			pairs = append(pairs, models.StockCorrelation{
				SymbolA:     symbols[i],
				SymbolB:     symbols[j],
				Correlation: corr,
				SampleSize:  len(days),
			})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].Correlation), math.Abs(pairs[j].Correlation)
		if ai != aj {
			return ai > aj
		}
		if pairs[i].SymbolA != pairs[j].SymbolA {
			return pairs[i].SymbolA < pairs[j].SymbolA
		}
		return pairs[i].SymbolB < pairs[j].SymbolB
	})

	m := &CorrelationMatrix{pairs: pairs, index: make(map[[2]string]int, len(pairs))}
	for i, p := range pairs {
		m.index[[2]string{p.SymbolA, p.SymbolB}] = i
	}
	return m
}

// pearson returns the correlation coefficient clamped to [-1, 1]. ok is false when either
// series has zero variance.
func pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n < 2 || len(y) != n {
		return 0, false
	}

	var meanX, meanY float64
	for i := 0; i < n; i++ {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= float64(n)
	meanY /= float64(n)

	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-meanX, y[i]-meanY
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}

	r := sxy / math.Sqrt(sxx*syy)
	if math.IsNaN(r) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, r)), true
}
