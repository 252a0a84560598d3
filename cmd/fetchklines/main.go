// cmd/fetchklines fetches one batch of spot klines and persists the full
// 7-field candles to a JSON file, SQLite, or both.
//
// Usage:
//
//	go run ./cmd/fetchklines --symbol=ETHUSDT --interval=5m --limit=288 --out=eth_usdt_5m.json
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"klinefeed/config"
	"klinefeed/internal/logger"
	"klinefeed/internal/marketdata/binance"
	"klinefeed/internal/metrics"
	"klinefeed/internal/model"
	"klinefeed/internal/pipeline"
	"klinefeed/internal/store"
	"klinefeed/internal/store/jsonfile"
	sqlitestore "klinefeed/internal/store/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load("", config.Defaults{Limit: 288, OutputPath: "eth_usdt_5m.json"})

	flag.StringVar(&cfg.Symbol, "symbol", cfg.Symbol, "Trading pair symbol")
	flag.StringVar(&cfg.Interval, "interval", cfg.Interval, "Kline interval (1m, 5m, 1h, ...)")
	flag.IntVar(&cfg.Limit, "limit", cfg.Limit, "Number of klines to fetch (1..1000)")
	flag.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "JSON output file")
	flag.StringVar(&cfg.Sink, "sink", cfg.Sink, "Destination: json, sqlite or both")
	flag.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "SQLite database path")
	flag.Parse()
	cfg.Symbol = strings.ToUpper(cfg.Symbol)

	log := logger.Init("fetchklines", logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sink, closeSink, err := openSink(cfg)
	if err != nil {
		log.Error("sink init failed", slog.String("error", err.Error()))
		return 1
	}
	defer closeSink()

	prom := metrics.NewMetrics()
	client := binance.NewClient(binance.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout})
	runner := pipeline.New(client, prom, log)

	q := cfg.Query()
	log.Info("fetching klines",
		slog.String("url", client.KlinesURL(q)),
		slog.String("sink", sink.Name()),
	)

	candles, runErr := runner.FetchAndPersist(ctx, q, sink)
	pushMetrics(cfg, prom, log)
	if runErr != nil {
		// Already logged by the runner.
		return 1
	}

	if len(candles) == 0 {
		log.Warn("exchange returned no klines", slog.String("query", q.Key()))
		return 0
	}
	first, last := candles[0], candles[len(candles)-1]
	log.Info("done",
		slog.Int("candles", len(candles)),
		slog.Time("from", first.Time()),
		slog.Time("to", last.Time()),
	)
	return 0
}

// openSink builds the sink named by cfg.Sink. With both, the writes are
// staged together and committed only when both staged cleanly.
func openSink(cfg *config.Config) (model.CandleSink, func(), error) {
	var (
		sinks   store.MultiSink
		closers []func()
	)
	if cfg.Sink == config.SinkSQLite || cfg.Sink == config.SinkBoth {
		if dir := filepath.Dir(cfg.SQLitePath); dir != "" {
			os.MkdirAll(dir, 0o755)
		}
		w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, w)
		closers = append(closers, func() { w.Close() })
	}
	// Committed after SQLite: its rename is the step least likely to fail.
	if cfg.Sink == config.SinkJSON || cfg.Sink == config.SinkBoth {
		sinks = append(sinks, jsonfile.New(cfg.OutputPath))
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(sinks) == 1 {
		return sinks[0], closeAll, nil
	}
	return sinks, closeAll, nil
}

func pushMetrics(cfg *config.Config, prom *metrics.Metrics, log *slog.Logger) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := prom.Push(ctx, cfg.PushgatewayURL, "fetchklines"); err != nil {
		log.Warn("metrics push failed", slog.String("error", err.Error()))
	}
}
