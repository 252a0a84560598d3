// Package api provides the HTTP handlers for the chart server.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"klinefeed/internal/metrics"
	"klinefeed/internal/model"
	"klinefeed/internal/pipeline"
)

// Options configures the chart handlers.
type Options struct {
	Runner *pipeline.Runner
	// Defaults fill in symbol, interval and limit when the request omits them.
	Defaults   model.KlineQuery
	Indicators string

	// Cache is optional; nil disables read-through caching.
	Cache    model.ChartCache
	CacheTTL time.Duration

	Metrics *metrics.Metrics
	Health  *metrics.HealthStatus
	Log     *slog.Logger
}

// NewRouter sets up HTTP routes for the API server.
func NewRouter(opts Options) *http.ServeMux {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetrics()
	}
	if opts.Health == nil {
		opts.Health = metrics.NewHealthStatus()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/chart", &chartHandler{opts: opts})
	mux.Handle("/healthz", opts.Health)
	mux.Handle("/metrics", opts.Metrics.Handler())
	return mux
}
