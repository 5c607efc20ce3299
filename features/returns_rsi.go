package features

import (
	"math"

	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
)

// RSI thresholds for rsi_signal
const (
	RSIOverboughtLevel = 70.0
	RSIOversoldLevel   = 30.0
)

// RSI is Wilder's relative strength index as a streaming iterator.
// The first value is produced after period price changes: the seed averages are the simple
// means of those changes, then avg = (avg*(period-1) + x) / period.
type RSI struct {
	period  int
	steps   int
	avgGain float64
	avgLoss float64
}

// NewRSI creates an RSI iterator for period
func NewRSI(period int) *RSI {
	return &RSI{period: period}
}

// Next consumes one price change and returns the RSI once enough history exists
func (r *RSI) Next(change float64) (float64, bool) {
	gain := math.Max(change, 0)
	loss := math.Max(-change, 0)
	r.steps++

	p := float64(r.period)
	switch {
	case r.steps < r.period:
		r.avgGain += gain
		r.avgLoss += loss
		return 0, false
	case r.steps == r.period:
		r.avgGain = (r.avgGain + gain) / p
		r.avgLoss = (r.avgLoss + loss) / p
	default:
		r.avgGain = (r.avgGain*(p-1) + gain) / p
		r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	}
	return rsiFromAverages(r.avgGain, r.avgLoss), true
}

// rsiFromAverages applies RSI = 100 - 100/(1+RS). A zero average loss gives 100, including a
// flat series where the average gain is zero as well.
func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// RSISignal classifies an RSI reading; a missing reading is neutral
func RSISignal(rsi *float64) string {
	switch {
	case rsi == nil:
		return database.RSINeutral
	case *rsi > RSIOverboughtLevel:
		return database.RSIOverbought
	case *rsi < RSIOversoldLevel:
		return database.RSIOversold
	default:
		return database.RSINeutral
	}
}

// pctChange returns (cur-prev)/prev*100, or nil when prev is not positive
func pctChange(cur, prev float64) *float64 {
	if prev <= 0 {
		return nil
	}
	return value((cur - prev) / prev * 100)
}

// ComputeReturnsRSI derives returns and RSI for one symbol. Fewer than two bars yield no rows.
func ComputeReturnsRSI(s Series, periods []int) []models.FeatureReturnsRSI {
	bars := s.Bars
	if len(bars) < 2 {
		return nil
	}

	iters := make([]*RSI, 0, 2)
	for i, p := range periods {
		if i == 2 {
			break
		}
		iters = append(iters, NewRSI(p))
	}

	rows := make([]models.FeatureReturnsRSI, len(bars))
	for t, bar := range bars {
		price := bar.Close
		row := models.FeatureReturnsRSI{
			Symbol: s.Symbol.Ticker,
			Name:   s.Symbol.Name,
			Ts:     bar.Ts,
			Price:  price,
		}

		if t >= 1 {
			prev := bars[t-1].Close
			row.Return1dPct = pctChange(price, prev)
			if prev > 0 && price > 0 {
				row.LogReturn1d = value(math.Log(price / prev))
			}

			rsis := make([]*float64, len(iters))
			for i, it := range iters {
				if v, ok := it.Next(price - prev); ok {
					rsis[i] = value(v)
				}
			}
			if len(rsis) > 0 {
				row.RSI14 = rsis[0]
			}
			if len(rsis) > 1 {
				row.RSI28 = rsis[1]
			}
		}
		if t >= 5 {
			row.Return5dPct = pctChange(price, bars[t-5].Close)
		}
		row.RSISignal = RSISignal(row.RSI14)
		rows[t] = row
	}
	return rows
}
