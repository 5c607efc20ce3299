package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
)

func barsAt(closes []float64, volumes []int64, times []time.Time) Series {
	s := Series{Symbol: models.Symbol{SymbolID: 1, Ticker: "V", Name: "V Inc"}}
	for i := range closes {
		s.Bars = append(s.Bars, models.Bar{SymbolID: 1, Ts: times[i], Open: closes[i], High: closes[i], Low: closes[i], Close: closes[i], Volume: volumes[i]})
	}
	return s
}

func TestComputeVWAPVolume_AverageVolumeUsesAvailableHistory(t *testing.T) {
	s := dailySeries("V", 10, 11, 12)
	s.Bars[0].Volume, s.Bars[1].Volume, s.Bars[2].Volume = 100, 200, 300

	rows := ComputeVWAPVolume(s, DefaultParams())
	require.Len(t, rows, 3)

	assert.InDelta(t, 100, *rows[0].AvgVolume20, 1e-9)
	assert.InDelta(t, 150, *rows[1].AvgVolume20, 1e-9)
	assert.InDelta(t, 200, *rows[2].AvgVolume20, 1e-9)

	assert.InDelta(t, 1.0, *rows[0].VolumeRatio, 1e-9)
	assert.InDelta(t, 200.0/150.0, *rows[1].VolumeRatio, 1e-9)
	assert.InDelta(t, 1.5, *rows[2].VolumeRatio, 1e-9)
	assert.Equal(t, database.VolumeHigh, *rows[2].VolumeCategory)

	assert.Nil(t, rows[0].VolumeTrend)
	require.NotNil(t, rows[2].VolumeTrend)
	assert.Equal(t, database.TrendIncreasing, *rows[2].VolumeTrend)
}

func TestComputeVWAPVolume_TrailingWindow(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 50
	}
	s := dailySeries("V", closes...)
	for i := range s.Bars {
		s.Bars[i].Volume = int64(100 * (i + 1))
	}

	rows := ComputeVWAPVolume(s, DefaultParams())
	// Bar 24 averages bars 5..24: volumes 600..2500
	assert.InDelta(t, 1550, *rows[24].AvgVolume20, 1e-9)
	for _, r := range rows {
		require.NotNil(t, r.VolumeRatio)
		assert.GreaterOrEqual(t, *r.VolumeRatio, 0.0)
	}
}

func TestComputeVWAPVolume_SessionReset(t *testing.T) {
	d1 := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	s := barsAt(
		[]float64{10, 20, 30},
		[]int64{100, 300, 100},
		[]time.Time{d1, d1.Add(time.Hour), d1.AddDate(0, 0, 1)},
	)

	rows := ComputeVWAPVolume(s, DefaultParams())
	assert.InDelta(t, 10, *rows[0].VWAP, 1e-9)
	assert.InDelta(t, 17.5, *rows[1].VWAP, 1e-9)
	assert.InDelta(t, 30, *rows[2].VWAP, 1e-9)

	// 20 vs 17.5 is +14.29%
	assert.Equal(t, database.AboveVWAP, *rows[1].VWAPPosition)
	assert.InDelta(t, (20-17.5)/17.5*100, *rows[1].PriceVsVWAPPct, 1e-9)
	assert.Equal(t, database.AtVWAP, *rows[2].VWAPPosition)
}

func TestComputeVWAPVolume_SessionUsesMarketTimezone(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	// 20:00 and 03:00 UTC the next day are the same New York session
	t1 := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	s := barsAt([]float64{10, 20}, []int64{100, 100}, []time.Time{t1, t1.Add(7 * time.Hour)})

	p := DefaultParams()
	p.Location = est
	rows := ComputeVWAPVolume(s, p)
	assert.InDelta(t, 15, *rows[1].VWAP, 1e-9)

	rows = ComputeVWAPVolume(s, DefaultParams())
	assert.InDelta(t, 20, *rows[1].VWAP, 1e-9)
}

func TestComputeVWAPVolume_RollingMode(t *testing.T) {
	s := dailySeries("V", 10, 20, 30)
	s.Bars[0].Volume, s.Bars[1].Volume, s.Bars[2].Volume = 100, 300, 100

	p := DefaultParams()
	p.VWAPMode = VWAPRolling
	p.VWAPWindow = 2
	rows := ComputeVWAPVolume(s, p)

	assert.InDelta(t, 10, *rows[0].VWAP, 1e-9)
	assert.InDelta(t, 17.5, *rows[1].VWAP, 1e-9)
	assert.InDelta(t, 22.5, *rows[2].VWAP, 1e-9)
}

func TestComputeVWAPVolume_ZeroVolume(t *testing.T) {
	s := dailySeries("V", 10, 11)
	s.Bars[0].Volume, s.Bars[1].Volume = 0, 0

	rows := ComputeVWAPVolume(s, DefaultParams())
	for _, r := range rows {
		assert.Nil(t, r.VWAP)
		assert.Nil(t, r.PriceVsVWAPPct)
		assert.Nil(t, r.VWAPPosition)
		assert.Nil(t, r.VolumeRatio)
		assert.Nil(t, r.VolumeCategory)
		assert.Nil(t, r.VolumeTrend)
		require.NotNil(t, r.AvgVolume20)
		assert.Equal(t, 0.0, *r.AvgVolume20)
	}
}

func TestComputeVWAPVolume_StableTrend(t *testing.T) {
	rows := ComputeVWAPVolume(dailySeries("V", 1, 2, 3, 4, 5, 6, 7, 8), DefaultParams())
	assert.Nil(t, rows[0].VolumeTrend)
	for _, r := range rows[1:] {
		require.NotNil(t, r.VolumeTrend)
		assert.Equal(t, database.TrendStable, *r.VolumeTrend)
		assert.Equal(t, database.VolumeNormal, *r.VolumeCategory)
	}
}

func TestVolumeCategory(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, database.VolumeVeryLow},
		{0.49, database.VolumeVeryLow},
		{0.5, database.VolumeLow},
		{0.79, database.VolumeLow},
		{0.8, database.VolumeNormal},
		{1.49, database.VolumeNormal},
		{1.5, database.VolumeHigh},
		{2.99, database.VolumeHigh},
		{3.0, database.VolumeVeryHigh},
		{10, database.VolumeVeryHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VolumeCategory(tt.ratio), "ratio %v", tt.ratio)
	}
}

func TestVWAPPositionAndTrend(t *testing.T) {
	assert.Equal(t, database.AboveVWAP, VWAPPosition(1.01))
	assert.Equal(t, database.AtVWAP, VWAPPosition(1))
	assert.Equal(t, database.AtVWAP, VWAPPosition(-1))
	assert.Equal(t, database.BelowVWAP, VWAPPosition(-1.01))

	assert.Equal(t, database.TrendIncreasing, VolumeTrend(0.11))
	assert.Equal(t, database.TrendStable, VolumeTrend(0.1))
	assert.Equal(t, database.TrendStable, VolumeTrend(-0.1))
	assert.Equal(t, database.TrendDecreasing, VolumeTrend(-0.11))
}
