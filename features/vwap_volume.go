package features

import (
	"time"

	"quant-warehouse/database"
	models "quant-warehouse/database/models_pkg"
)

// VWAP modes
const (
	VWAPSession = "session"
	VWAPRolling = "rolling"
)

// Thresholds for volume_trend and vwap_position
const (
	volumeTrendLookback  = 5
	volumeTrendThreshold = 0.1
	vwapBandPct          = 1.0
)

// VolumeCategory classifies a volume ratio
func VolumeCategory(ratio float64) string {
	switch {
	case ratio < 0.5:
		return database.VolumeVeryLow
	case ratio < 0.8:
		return database.VolumeLow
	case ratio < 1.5:
		return database.VolumeNormal
	case ratio < 3.0:
		return database.VolumeHigh
	default:
		return database.VolumeVeryHigh
	}
}

// VWAPPosition classifies price_vs_vwap_pct
func VWAPPosition(pct float64) string {
	switch {
	case pct > vwapBandPct:
		return database.AboveVWAP
	case pct < -vwapBandPct:
		return database.BelowVWAP
	default:
		return database.AtVWAP
	}
}

// VolumeTrend classifies the short-term slope of the volume ratio
func VolumeTrend(slope float64) string {
	switch {
	case slope > volumeTrendThreshold:
		return database.TrendIncreasing
	case slope < -volumeTrendThreshold:
		return database.TrendDecreasing
	default:
		return database.TrendStable
	}
}

// window is a fixed-size trailing sum
type window struct {
	size int
	vals []float64
	pos  int
	sum  float64
}

func newWindow(size int) *window {
	return &window{size: size, vals: make([]float64, 0, size)}
}

func (w *window) push(v float64) {
	if len(w.vals) < w.size {
		w.vals = append(w.vals, v)
	} else {
		w.sum -= w.vals[w.pos]
		w.vals[w.pos] = v
		w.pos = (w.pos + 1) % w.size
	}
	w.sum += v
}

func (w *window) mean() float64 {
	return w.sum / float64(len(w.vals))
}

// vwapState accumulates Σ(price·volume) and Σvolume, either per session or over a trailing window
type vwapState struct {
	mode    string
	loc     *time.Location
	session time.Time
	pv, vol float64
	pvWin   *window
	volWin  *window
}

func newVWAPState(mode string, size int, loc *time.Location) *vwapState {
	st := &vwapState{mode: mode, loc: loc}
	if mode == VWAPRolling {
		st.pvWin = newWindow(size)
		st.volWin = newWindow(size)
	}
	return st
}

// next adds one bar and returns the VWAP, or nil while the volume sum is zero
func (st *vwapState) next(ts time.Time, price float64, volume int64) *float64 {
	pv, vol := price*float64(volume), float64(volume)

	var num, den float64
	if st.mode == VWAPRolling {
		st.pvWin.push(pv)
		st.volWin.push(vol)
		num, den = st.pvWin.sum, st.volWin.sum
	} else {
		if day := sessionDate(ts, st.loc); !day.Equal(st.session) {
			st.session, st.pv, st.vol = day, 0, 0
		}
		st.pv += pv
		st.vol += vol
		num, den = st.pv, st.vol
	}
	if den == 0 {
		return nil
	}
	return value(num / den)
}

// ComputeVWAPVolume derives VWAP and volume metrics for one symbol. Price is the bar close.
func ComputeVWAPVolume(s Series, p Params) []models.FeatureVWAPVolume {
	bars := s.Bars
	if len(bars) == 0 {
		return nil
	}

	vwap := newVWAPState(p.VWAPMode, p.VWAPWindow, p.Location)
	avgVol := newWindow(p.AvgVolumeWindow)
	ratios := make([]*float64, len(bars))

	rows := make([]models.FeatureVWAPVolume, len(bars))
	for t, bar := range bars {
		row := models.FeatureVWAPVolume{
			Symbol: s.Symbol.Ticker,
			Name:   s.Symbol.Name,
			Ts:     bar.Ts,
			Price:  bar.Close,
			Volume: bar.Volume,
		}

		row.VWAP = vwap.next(bar.Ts, bar.Close, bar.Volume)
		if row.VWAP != nil {
			if pct := value((bar.Close - *row.VWAP) / *row.VWAP * 100); pct != nil {
				row.PriceVsVWAPPct = pct
				row.VWAPPosition = label(VWAPPosition(*pct))
			}
		}

		avgVol.push(float64(bar.Volume))
		avg := avgVol.mean()
		row.AvgVolume20 = value(avg)
		if avg > 0 {
			ratios[t] = value(float64(bar.Volume) / avg)
		}
		row.VolumeRatio = ratios[t]
		if ratios[t] != nil {
			row.VolumeCategory = label(VolumeCategory(*ratios[t]))

			k := t
			if k > volumeTrendLookback {
				k = volumeTrendLookback
			}
			if k > 0 && ratios[t-k] != nil {
				slope := (*ratios[t] - *ratios[t-k]) / float64(k)
				row.VolumeTrend = label(VolumeTrend(slope))
			}
		}
		rows[t] = row
	}
	return rows
}
