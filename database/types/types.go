package types

import "time"

// LatestPrice is the most recent feature row of one symbol
type LatestPrice struct {
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Ts          time.Time `json:"ts"`
	Price       float64   `json:"price"`
	Return1dPct *float64  `gorm:"column:return_1d_pct" json:"return_1d_pct"`
	RSI14       *float64  `gorm:"column:rsi_14" json:"rsi_14"`
	RSISignal   string    `gorm:"column:rsi_signal" json:"rsi_signal"`
}

// Performance is a symbol's cumulative daily return over a lookback window
type Performance struct {
	Symbol         string  `json:"symbol"`
	Name           string  `json:"name"`
	StartPrice     float64 `json:"start_price"`
	EndPrice       float64 `json:"end_price"`
	TotalReturnPct float64 `json:"total_return_pct"`
	TradingDays    int64   `json:"trading_days"`
}

// RSISignal is a symbol whose latest RSI reading is overbought or oversold
type RSISignal struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name"`
	Ts        time.Time `json:"ts"`
	Price     float64   `json:"price"`
	RSI14     *float64  `gorm:"column:rsi_14" json:"rsi_14"`
	RSISignal string    `gorm:"column:rsi_signal" json:"rsi_signal"`
}

// VolumeLeader is a symbol's latest volume and VWAP reading
type VolumeLeader struct {
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	Ts             time.Time `json:"ts"`
	Price          float64   `json:"price"`
	Volume         int64     `json:"volume"`
	VolumeRatio    *float64  `json:"volume_ratio"`
	VolumeCategory *string   `json:"volume_category"`
	VWAPPosition   *string   `gorm:"column:vwap_position" json:"vwap_position"`
}

// SentimentSummary describes the loaded news sentiment
type SentimentSummary struct {
	TotalNews      int64            `json:"total_news"`
	HighImpactNews int64            `json:"high_impact_news"`
	AvgSentiment   *float64         `json:"avg_sentiment"`
	FirstTs        *time.Time       `json:"first_ts"`
	LastTs         *time.Time       `json:"last_ts"`
	ByLabel        map[string]int64 `json:"by_label"`
}
