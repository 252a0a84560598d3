package model

import (
	"context"
	"time"
)

// ── Ports ──
// These interfaces decouple the fetch/enrich flows from the concrete
// exchange client and storage backends.

// RawKline is one provider-native kline tuple:
// [openTime, open, high, low, close, volume, closeTime, ...].
// Elements are strings or json.Number as decoded from the response body.
type RawKline []any

// KlineFetcher retrieves raw klines from a remote market data source.
type KlineFetcher interface {
	// FetchKlines performs a single request and returns the whole response,
	// or an error with no partial result.
	FetchKlines(ctx context.Context, q KlineQuery) ([]RawKline, error)
}

// CandleSink persists a complete candle sequence for one query.
type CandleSink interface {
	// WriteCandles stores the full sequence. Implementations overwrite
	// any previous content for the same query.
	WriteCandles(ctx context.Context, q KlineQuery, candles []Candle) error

	// Name identifies the sink in logs and metrics ("json", "sqlite").
	Name() string
}

// CandleReader loads previously persisted candles, oldest first.
type CandleReader interface {
	ReadCandles(ctx context.Context, q KlineQuery) ([]Candle, error)
}

// ChartCache stores encoded enriched series keyed by an opaque string.
type ChartCache interface {
	// Get returns (nil, false, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
}
