package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds all Prometheus metrics for kline fetching and enrichment.
// Each instance owns its registry so commands and tests never collide on
// the global default registry.
type Metrics struct {
	Registry *prometheus.Registry

	FetchDur     prometheus.Histogram
	FetchErrors  *prometheus.CounterVec // labels: kind
	CandlesTotal *prometheus.CounterVec // labels: op=persist|enrich

	EnrichDur    prometheus.Histogram
	SinkWriteDur *prometheus.HistogramVec // labels: sink

	// Chart cache
	CacheRequests     *prometheus.CounterVec // labels: result=hit|miss|error
	CacheBreakerState prometheus.Gauge       // 0=closed, 1=open, 2=half-open
}

// NewMetrics creates and registers all metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		FetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "klinefeed_fetch_duration_seconds",
			Help:    "Klines REST request latency, including body read",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "klinefeed_fetch_errors_total",
			Help: "Failed runs by error kind (transport, parse, shape, invalid_period, write)",
		}, []string{"kind"}),
		CandlesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "klinefeed_candles_total",
			Help: "Candles processed by operation",
		}, []string{"op"}),

		EnrichDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "klinefeed_enrich_duration_seconds",
			Help:    "Moving-average computation and alignment latency per run",
			Buckets: []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		SinkWriteDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "klinefeed_sink_write_duration_seconds",
			Help:    "Candle sink write latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"sink"}),

		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "klinefeed_cache_requests_total",
			Help: "Chart cache lookups by result",
		}, []string{"result"}),
		CacheBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "klinefeed_cache_circuit_breaker_state",
			Help: "Redis cache circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
	}

	m.Registry.MustRegister(
		m.FetchDur,
		m.FetchErrors,
		m.CandlesTotal,
		m.EnrichDur,
		m.SinkWriteDur,
		m.CacheRequests,
		m.CacheBreakerState,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Push sends the current values to a Pushgateway under job.
// One-shot commands use this since nothing scrapes them.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	return push.New(gatewayURL, job).Gatherer(m.Registry).PushContext(ctx)
}
