package features

import (
	"math"
	"sort"
	"time"

	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
	"quant-warehouse/ingest"
)

// SignalType maps a sentiment score to a Treasury signal. ok is false inside the neutral band.
func SignalType(score, threshold float64) (string, bool) {
	switch {
	case score >= threshold:
		return database.SignalBuyTreasuries, true
	case score <= -threshold:
		return database.SignalSellTreasuries, true
	default:
		return "", false
	}
}

// sortNews orders records by (ts, news_id) with missing ids last
func sortNews(news []models.NewsSentiment) []models.NewsSentiment {
	sorted := make([]models.NewsSentiment, len(news))
	copy(sorted, news)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Ts.Equal(b.Ts) {
			return a.Ts.Before(b.Ts)
		}
		switch {
		case a.NewsID == nil:
			return false
		case b.NewsID == nil:
			return true
		default:
			return *a.NewsID < *b.NewsID
		}
	})
	return sorted
}

// ComputeSentimentSignals emits one signal per high-impact record whose score reaches the
// threshold. Signal ids run 1..n in (ts, news_id) order, so the same input always produces the
// same signals.
func ComputeSentimentSignals(news []models.NewsSentiment, threshold float64) []models.SentimentSignal {
	var signals []models.SentimentSignal
	for _, n := range sortNews(news) {
		if !n.IsHighImpact {
			continue
		}
		kind, ok := SignalType(n.SentimentScore, threshold)
		if !ok {
			continue
		}
		signals = append(signals, models.SentimentSignal{
			SignalID:    int64(len(signals) + 1),
			Ts:          n.Ts,
			SignalType:  kind,
			Strength:    math.Abs(n.SentimentScore),
			SourceValue: n.SentimentScore,
			NewsID:      n.NewsID,
		})
	}
	return signals
}

// ComputeSentimentAggregates summarises news per UTC hour, oldest first
func ComputeSentimentAggregates(news []models.NewsSentiment) []models.SentimentAggregate {
	type acc struct {
		agg models.SentimentAggregate
		sum float64
	}
	byHour := make(map[time.Time]*acc)
	for _, n := range news {
		hour := n.Ts.UTC().Truncate(time.Hour)
		a, ok := byHour[hour]
		if !ok {
			a = &acc{agg: models.SentimentAggregate{Hour: hour}}
			byHour[hour] = a
		}
		a.agg.NewsCount++
		a.sum += n.SentimentScore
		if n.SentimentLabel == nil {
			continue
		}
		switch *n.SentimentLabel {
		case ingest.LabelRiskOn:
			a.agg.RiskOnCount++
		case ingest.LabelRiskOff:
			a.agg.RiskOffCount++
		case ingest.LabelNeutral:
			a.agg.NeutralCount++
		}
	}

	out := make([]models.SentimentAggregate, 0, len(byHour))
	for _, a := range byHour {
		a.agg.AvgSentiment = a.sum / float64(a.agg.NewsCount)
		out = append(out, a.agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour.Before(out[j].Hour) })
	return out
}
