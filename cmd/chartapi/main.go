// cmd/chartapi serves enriched chart data over HTTP, with an optional Redis
// read-through cache.
//
// Endpoints:
//
//	GET /api/v1/chart?symbol=ETHUSDT&interval=5m&limit=200&indicators=EMA:20,EMA:50
//	GET /healthz
//	GET /metrics
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"klinefeed/config"
	"klinefeed/internal/api"
	"klinefeed/internal/logger"
	"klinefeed/internal/marketdata/binance"
	"klinefeed/internal/metrics"
	"klinefeed/internal/pipeline"
	redisstore "klinefeed/internal/store/redis"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load("", config.Defaults{Limit: 200})
	log := logger.Init("chartapi", logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()

	opts := api.Options{
		Runner:     pipeline.New(binance.NewClient(binance.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout}), prom, log),
		Defaults:   cfg.Query(),
		Indicators: cfg.Indicators,
		CacheTTL:   cfg.CacheTTL,
		Metrics:    prom,
		Health:     health,
		Log:        log,
	}

	// ---- Optional Redis cache ----
	if cfg.RedisAddr != "" {
		cache, err := redisstore.NewCache(redisstore.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn("redis cache disabled", slog.String("error", err.Error()))
		} else {
			defer cache.Close()
			cache.Breaker().OnStateChange = func(from, to redisstore.State) {
				log.Warn("cache circuit breaker", slog.String("from", from.String()), slog.String("to", to.String()))
				prom.CacheBreakerState.Set(float64(to))
			}
			health.CheckRedis(ctx, cache.Client())
			health.StartLivenessChecker(ctx, cache.Client(), 10*time.Second)
			opts.Cache = cache
			log.Info("redis cache enabled", slog.String("addr", cfg.RedisAddr), slog.Duration("ttl", cfg.CacheTTL))
		}
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serving", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		log.Error("server error", slog.String("error", err.Error()))
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
