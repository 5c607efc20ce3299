package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
)

func news(id int64, ts time.Time, score float64, highImpact bool, lbl string) models.NewsSentiment {
	n := models.NewsSentiment{NewsID: &id, Ts: ts, SentimentScore: score, IsHighImpact: highImpact}
	if lbl != "" {
		n.SentimentLabel = &lbl
	}
	return n
}

func TestSignalType(t *testing.T) {
	tests := []struct {
		score float64
		want  string
		ok    bool
	}{
		{0.3, database.SignalBuyTreasuries, true},
		{0.95, database.SignalBuyTreasuries, true},
		{0.29, "", false},
		{0, "", false},
		{-0.29, "", false},
		{-0.3, database.SignalSellTreasuries, true},
		{-1, database.SignalSellTreasuries, true},
	}
	for _, tt := range tests {
		got, ok := SignalType(tt.score, 0.3)
		assert.Equal(t, tt.ok, ok, "score %v", tt.score)
		assert.Equal(t, tt.want, got, "score %v", tt.score)
	}
}

func TestComputeSentimentSignals(t *testing.T) {
	h := time.Date(2024, 4, 1, 13, 0, 0, 0, time.UTC)
	input := []models.NewsSentiment{
		news(5, h.Add(time.Hour), -0.6, true, "risk-off"),
		news(2, h, 0.4, true, "risk-on"),
		news(1, h, 0.8, false, "risk-on"), // not high impact
		news(3, h, 0.1, true, "neutral"),  // inside the band
		news(4, h, 0.3, true, "risk-on"),
	}

	signals := ComputeSentimentSignals(input, 0.3)
	require.Len(t, signals, 3)

	assert.Equal(t, int64(1), signals[0].SignalID)
	assert.Equal(t, int64(2), *signals[0].NewsID)
	assert.Equal(t, database.SignalBuyTreasuries, signals[0].SignalType)
	assert.InDelta(t, 0.4, signals[0].Strength, 1e-12)

	assert.Equal(t, int64(4), *signals[1].NewsID)

	assert.Equal(t, int64(3), signals[2].SignalID)
	assert.Equal(t, database.SignalSellTreasuries, signals[2].SignalType)
	assert.InDelta(t, 0.6, signals[2].Strength, 1e-12)
	assert.InDelta(t, -0.6, signals[2].SourceValue, 1e-12)

	// Recomputing from the same records in another order yields the same signals
	reversed := make([]models.NewsSentiment, len(input))
	for i := range input {
		reversed[len(input)-1-i] = input[i]
	}
	assert.Equal(t, signals, ComputeSentimentSignals(reversed, 0.3))
}

func TestComputeSentimentAggregates(t *testing.T) {
	h := time.Date(2024, 4, 1, 13, 0, 0, 0, time.UTC)
	input := []models.NewsSentiment{
		news(1, h.Add(5*time.Minute), 0.5, true, "risk-on"),
		news(2, h.Add(50*time.Minute), -0.1, false, "neutral"),
		news(3, h.Add(70*time.Minute), -0.4, true, "risk-off"),
		news(4, h.Add(80*time.Minute), 0.2, false, ""),
	}

	aggs := ComputeSentimentAggregates(input)
	require.Len(t, aggs, 2)

	assert.Equal(t, h, aggs[0].Hour)
	assert.Equal(t, int64(2), aggs[0].NewsCount)
	assert.InDelta(t, 0.2, aggs[0].AvgSentiment, 1e-12)
	assert.Equal(t, int64(1), aggs[0].RiskOnCount)
	assert.Equal(t, int64(1), aggs[0].NeutralCount)

	assert.Equal(t, h.Add(time.Hour), aggs[1].Hour)
	assert.Equal(t, int64(2), aggs[1].NewsCount)
	assert.InDelta(t, -0.1, aggs[1].AvgSentiment, 1e-12)
	assert.Equal(t, int64(1), aggs[1].RiskOffCount)
	assert.Equal(t, int64(0), aggs[1].RiskOnCount)
}
