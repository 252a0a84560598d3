// cmd/chartdata prints enriched chart data (OHLCV plus moving averages) as
// JSON on stdout. Candles come from the exchange, or from the SQLite
// database or JSON file filled by fetchklines.
//
// Usage:
//
//	go run ./cmd/chartdata --symbol=ETHUSDT --interval=5m --limit=200 --indicators=EMA:20,EMA:50
//	go run ./cmd/chartdata --source=sqlite --db=data/klines.db
//	go run ./cmd/chartdata --source=json --out=eth_usdt_5m.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"klinefeed/config"
	"klinefeed/internal/indicator"
	"klinefeed/internal/logger"
	"klinefeed/internal/marketdata/binance"
	"klinefeed/internal/model"
	"klinefeed/internal/pipeline"
	"klinefeed/internal/store/jsonfile"
	sqlitestore "klinefeed/internal/store/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load("", config.Defaults{Limit: 200})

	source := flag.String("source", "binance", "Candle source: binance, sqlite or json")
	pretty := flag.Bool("pretty", false, "Indent JSON output")
	flag.StringVar(&cfg.Symbol, "symbol", cfg.Symbol, "Trading pair symbol")
	flag.StringVar(&cfg.Interval, "interval", cfg.Interval, "Kline interval")
	flag.IntVar(&cfg.Limit, "limit", cfg.Limit, "Number of candles (1..1000)")
	flag.StringVar(&cfg.Indicators, "indicators", cfg.Indicators, "Indicator specs: TYPE:PERIOD,... (SMA, EMA, SMMA)")
	flag.StringVar(&cfg.SQLitePath, "db", cfg.SQLitePath, "SQLite database path (source=sqlite)")
	flag.StringVar(&cfg.OutputPath, "out", cfg.OutputPath, "JSON file written by fetchklines (source=json)")
	flag.Parse()
	cfg.Symbol = strings.ToUpper(cfg.Symbol)

	// stdout carries the data; logs go to stderr.
	log := logger.InitWriter(os.Stderr, "chartdata", logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", slog.String("error", err.Error()))
		return 2
	}
	specs, err := cfg.Specs()
	if err != nil {
		log.Error("invalid indicators", slog.String("error", err.Error()))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := binance.NewClient(binance.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout})
	runner := pipeline.New(client, nil, log)
	q := cfg.Query()

	var out []model.EnrichedCandle
	switch *source {
	case "binance":
		out, err = runner.FetchAndEnrich(ctx, q, specs)
	case "sqlite":
		out, err = enrichFromSQLite(ctx, runner, cfg.SQLitePath, q, specs)
	case "json":
		out, err = enrichStored(ctx, runner, jsonfile.New(cfg.OutputPath), q, specs)
	default:
		log.Error("unknown source", slog.String("source", *source))
		return 2
	}
	if err != nil {
		log.Error("chart data failed", slog.String("error", err.Error()))
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func enrichFromSQLite(ctx context.Context, runner *pipeline.Runner, path string, q model.KlineQuery, specs []indicator.Spec) ([]model.EnrichedCandle, error) {
	reader, err := sqlitestore.NewReader(path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return enrichStored(ctx, runner, reader, q, specs)
}

// enrichStored enriches candles saved by fetchklines. A JSON file holds a
// single series, so only its last q.Limit candles are used.
func enrichStored(ctx context.Context, runner *pipeline.Runner, reader model.CandleReader, q model.KlineQuery, specs []indicator.Spec) ([]model.EnrichedCandle, error) {
	candles, err := reader.ReadCandles(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(candles) > q.Limit {
		candles = candles[len(candles)-q.Limit:]
	}
	return runner.Enrich(ctx, q, candles, specs)
}
