package model

import "strconv"

// KlineQuery identifies one kline request: pair, candle interval and the
// maximum number of candles to return.
type KlineQuery struct {
	Symbol   string `json:"symbol"`   // e.g. ETHUSDT
	Interval string `json:"interval"` // e.g. 5m, 1h
	Limit    int    `json:"limit"`
}

// Key returns "symbol:interval:limit", used for cache keys and log fields.
func (q KlineQuery) Key() string {
	return q.Symbol + ":" + q.Interval + ":" + strconv.Itoa(q.Limit)
}
