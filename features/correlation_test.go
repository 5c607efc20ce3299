package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	models "quant-warehouse/database/models_pkg"
)

// returnsOver builds n daily returns starting at day0 using f(i)
func returnsOver(n int, f func(i int) float64) map[time.Time]float64 {
	out := make(map[time.Time]float64, n)
	for i := 0; i < n; i++ {
		out[sessionDate(day0.AddDate(0, 0, i), time.UTC)] = f(i)
	}
	return out
}

func wave(i int) float64 { return math.Sin(float64(i)) / 100 }

func TestComputeCorrelations_MinimumOverlap(t *testing.T) {
	returns := DailyReturns{
		"AAA": returnsOver(15, wave),
		"BBB": returnsOver(15, func(i int) float64 { return 2 * wave(i) }),
	}

	m := ComputeCorrelations(returns, 20)
	assert.Empty(t, m.Pairs())
	_, ok := m.Get("AAA", "BBB")
	assert.False(t, ok)
}

func TestComputeCorrelations_PairsAndSymmetry(t *testing.T) {
	returns := DailyReturns{
		"MSFT": returnsOver(25, func(i int) float64 { return 2 * wave(i) }),
		"AAPL": returnsOver(25, wave),
		"XOM":  returnsOver(25, func(i int) float64 { return -wave(i) }),
		"GLD":  returnsOver(25, func(i int) float64 { return math.Cos(float64(i)*0.7) / 100 }),
	}

	m := ComputeCorrelations(returns, 20)
	pairs := m.Pairs()
	require.Len(t, pairs, 6)

	for i, p := range pairs {
		assert.Less(t, p.SymbolA, p.SymbolB)
		assert.Equal(t, 25, p.SampleSize)
		assert.GreaterOrEqual(t, p.Correlation, -1.0)
		assert.LessOrEqual(t, p.Correlation, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, math.Abs(pairs[i-1].Correlation), math.Abs(p.Correlation))
		}

		ab, ok := m.Get(p.SymbolA, p.SymbolB)
		require.True(t, ok)
		ba, ok := m.Get(p.SymbolB, p.SymbolA)
		require.True(t, ok)
		assert.Equal(t, ab, ba)
	}

	c, _ := m.Get("AAPL", "MSFT")
	assert.InDelta(t, 1.0, c, 1e-9)
	c, _ = m.Get("XOM", "AAPL")
	assert.InDelta(t, -1.0, c, 1e-9)
}

func TestComputeCorrelations_PartialOverlapAndZeroVariance(t *testing.T) {
	a := returnsOver(30, wave)
	b := returnsOver(30, func(i int) float64 { return wave(i) + 0.001*float64(i%3) })
	// Drop 12 of b's days: 18 common days remain
	for i := 0; i < 12; i++ {
		delete(b, sessionDate(day0.AddDate(0, 0, i), time.UTC))
	}
	returns := DailyReturns{
		"A":    a,
		"B":    b,
		"FLAT": returnsOver(30, func(int) float64 { return 0.001 }),
	}

	m := ComputeCorrelations(returns, 20)
	assert.Empty(t, m.Pairs())

	m = ComputeCorrelations(returns, 18)
	require.Len(t, m.Pairs(), 1)
	assert.Equal(t, "A", m.Pairs()[0].SymbolA)
	assert.Equal(t, "B", m.Pairs()[0].SymbolB)
	assert.Equal(t, 18, m.Pairs()[0].SampleSize)
}

func TestPearson(t *testing.T) {
	r, ok := pearson([]float64{1, 2, 3, 4, 5}, []float64{2, 4, 5, 4, 5})
	require.True(t, ok)
	assert.InDelta(t, 6/math.Sqrt(60), r, 1e-12)

	_, ok = pearson([]float64{1, 1, 1}, []float64{1, 2, 3})
	assert.False(t, ok)
	_, ok = pearson([]float64{1}, []float64{1})
	assert.False(t, ok)
}

func TestDailyLogReturns(t *testing.T) {
	d := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	rows := []models.FeatureReturnsRSI{
		{Symbol: "A", Ts: d, LogReturn1d: nil},
		{Symbol: "A", Ts: d.Add(time.Hour), LogReturn1d: ptr(0.01)},
		{Symbol: "A", Ts: d.Add(2 * time.Hour), LogReturn1d: ptr(0.03)},
		{Symbol: "A", Ts: d.AddDate(0, 0, 1), LogReturn1d: ptr(-0.02)},
	}

	got := DailyLogReturns(rows, time.UTC)
	require.Len(t, got["A"], 2)
	assert.InDelta(t, 0.02, got["A"][time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)], 1e-12)
	assert.InDelta(t, -0.02, got["A"][time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)], 1e-12)
}
