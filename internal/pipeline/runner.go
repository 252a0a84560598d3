// Package pipeline wires the fetch, normalize, enrich and persist steps into
// the two single-shot flows: FetchAndPersist and FetchAndEnrich.
//
// Both flows are all-or-nothing. The fetch completes in full before anything
// downstream runs, and any error aborts the run with no partial result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"klinefeed/internal/enrich"
	"klinefeed/internal/indicator"
	"klinefeed/internal/logger"
	"klinefeed/internal/marketdata/binance"
	"klinefeed/internal/metrics"
	"klinefeed/internal/model"
	"klinefeed/internal/store"
)

// Runner executes fetch flows against one market data source.
type Runner struct {
	fetcher model.KlineFetcher
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New creates a Runner. m and log may be nil.
func New(fetcher model.KlineFetcher, m *metrics.Metrics, log *slog.Logger) *Runner {
	if m == nil {
		m = metrics.NewMetrics()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{fetcher: fetcher, metrics: m, log: log}
}

// FetchAndPersist fetches q, normalizes every tuple with all seven fields
// required and writes the sequence to sink. The sink is not touched unless
// fetch and normalization both succeed.
func (r *Runner) FetchAndPersist(ctx context.Context, q model.KlineQuery, sink model.CandleSink) ([]model.Candle, error) {
	ctx = r.ensureRunID(ctx)

	candles, err := r.fetchCandles(ctx, q, binance.ShapeFull)
	if err != nil {
		return nil, r.fail(ctx, "fetch-and-persist", q, err)
	}

	start := time.Now()
	if err := sink.WriteCandles(ctx, q, candles); err != nil {
		return nil, r.fail(ctx, "fetch-and-persist", q, err)
	}
	r.metrics.SinkWriteDur.WithLabelValues(sink.Name()).Observe(time.Since(start).Seconds())
	r.metrics.CandlesTotal.WithLabelValues("persist").Add(float64(len(candles)))

	r.log.Info("candles persisted", append(logger.Attrs(ctx),
		slog.String("query", q.Key()),
		slog.String("sink", sink.Name()),
		slog.Int("candles", len(candles)),
	)...)
	return candles, nil
}

// FetchAndEnrich fetches q, normalizes it (volume required) and attaches
// the moving averages in specs.
func (r *Runner) FetchAndEnrich(ctx context.Context, q model.KlineQuery, specs []indicator.Spec) ([]model.EnrichedCandle, error) {
	ctx = r.ensureRunID(ctx)

	candles, err := r.fetchCandles(ctx, q, binance.ShapeOHLCV)
	if err != nil {
		return nil, r.fail(ctx, "fetch-and-enrich", q, err)
	}
	out, err := r.Enrich(ctx, q, candles, specs)
	if err != nil {
		return nil, r.fail(ctx, "fetch-and-enrich", q, err)
	}
	return out, nil
}

// Enrich runs the enrichment step on already-loaded candles and records
// timing. Used directly when candles come from storage instead of the API.
func (r *Runner) Enrich(ctx context.Context, q model.KlineQuery, candles []model.Candle, specs []indicator.Spec) ([]model.EnrichedCandle, error) {
	start := time.Now()
	out, err := enrich.Enrich(candles, specs)
	if err != nil {
		return nil, err
	}
	r.metrics.EnrichDur.Observe(time.Since(start).Seconds())
	r.metrics.CandlesTotal.WithLabelValues("enrich").Add(float64(len(out)))

	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name()
	}
	r.log.Debug("candles enriched", append(logger.Attrs(ctx),
		slog.String("query", q.Key()),
		slog.Int("candles", len(out)),
		slog.Any("indicators", names),
	)...)
	return out, nil
}

func (r *Runner) fetchCandles(ctx context.Context, q model.KlineQuery, shape binance.Shape) ([]model.Candle, error) {
	start := time.Now()
	raw, err := r.fetcher.FetchKlines(ctx, q)
	r.metrics.FetchDur.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	r.log.Debug("klines fetched", append(logger.Attrs(ctx),
		slog.String("query", q.Key()),
		slog.Int("klines", len(raw)),
		slog.Duration("took", time.Since(start)),
	)...)

	return binance.Normalize(raw, shape)
}

func (r *Runner) ensureRunID(ctx context.Context) context.Context {
	if logger.RunID(ctx) != "" {
		return ctx
	}
	return logger.WithRunID(ctx, logger.NewRunID())
}

func (r *Runner) fail(ctx context.Context, op string, q model.KlineQuery, err error) error {
	kind := ErrorKind(err)
	r.metrics.FetchErrors.WithLabelValues(kind).Inc()
	r.log.Error(op+" failed", append(logger.Attrs(ctx),
		slog.String("query", q.Key()),
		slog.String("kind", kind),
		slog.String("error", err.Error()),
	)...)
	return fmt.Errorf("%s %s: %w", op, q.Key(), err)
}

// ErrorKind classifies err into the failure taxonomy used for metrics and
// HTTP status mapping: transport, parse, shape, invalid_period, write,
// canceled or other.
func ErrorKind(err error) string {
	var (
		te *binance.TransportError
		pe *binance.ParseError
		se *binance.ShapeError
		we *store.WriteError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &we):
		return "write"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &se):
		return "shape"
	case errors.Is(err, indicator.ErrInvalidPeriod):
		return "invalid_period"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
