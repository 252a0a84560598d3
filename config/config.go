package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"klinefeed/internal/indicator"
	"klinefeed/internal/marketdata/binance"
	"klinefeed/internal/model"
)

// Sink names accepted by SINK.
const (
	SinkJSON   = "json"
	SinkSQLite = "sqlite"
	SinkBoth   = "both"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Market data source
	BaseURL  string
	Symbol   string
	Interval string
	Limit    int
	Timeout  time.Duration

	// Enrichment: "TYPE:PERIOD,..." (e.g. "EMA:20,EMA:50")
	Indicators string

	// Persistence
	Sink       string
	OutputPath string
	SQLitePath string

	// Chart cache
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Observability
	HTTPAddr       string
	PushgatewayURL string
	LogLevel       string
}

// Defaults are the per-command values used when the environment is silent.
type Defaults struct {
	Limit      int
	OutputPath string
}

// Load reads an optional .env file (envFile, or ".env" when empty) and then
// the environment. Variables already set in the environment win over the file.
func Load(envFile string, d Defaults) *Config {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[config] could not load %s: %v", envFile, err)
	}

	if d.Limit <= 0 {
		d.Limit = 200
	}
	if d.OutputPath == "" {
		d.OutputPath = "eth_usdt_5m.json"
	}

	return &Config{
		BaseURL:  getEnv("KLINES_BASE_URL", binance.DefaultBaseURL),
		Symbol:   strings.ToUpper(getEnv("KLINES_SYMBOL", "ETHUSDT")),
		Interval: getEnv("KLINES_INTERVAL", "5m"),
		Limit:    getEnvInt("KLINES_LIMIT", d.Limit),
		Timeout:  getEnvDuration("KLINES_TIMEOUT", 15*time.Second),

		Indicators: getEnv("INDICATORS", "EMA:20,EMA:50,EMA:100,EMA:200"),

		Sink:       strings.ToLower(getEnv("SINK", SinkJSON)),
		OutputPath: getEnv("OUTPUT_PATH", d.OutputPath),
		SQLitePath: getEnv("SQLITE_PATH", "data/klines.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 30*time.Second),

		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		PushgatewayURL: getEnv("PUSHGATEWAY_URL", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
}

// Query returns the kline request described by the config.
func (c *Config) Query() model.KlineQuery {
	return model.KlineQuery{Symbol: c.Symbol, Interval: c.Interval, Limit: c.Limit}
}

// Specs parses Indicators.
func (c *Config) Specs() ([]indicator.Spec, error) {
	return indicator.ParseSpecs(c.Indicators)
}

// Validate checks the fields every command relies on.
func (c *Config) Validate() error {
	if err := ValidateQuery(c.Query()); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("KLINES_TIMEOUT must be positive, got %v", c.Timeout)
	}
	switch c.Sink {
	case SinkJSON, SinkSQLite, SinkBoth:
	default:
		return fmt.Errorf("SINK must be json, sqlite or both, got %q", c.Sink)
	}
	if _, err := c.Specs(); err != nil {
		return fmt.Errorf("INDICATORS: %w", err)
	}
	return nil
}

// validIntervals lists the kline intervals the exchange accepts.
var validIntervals = map[string]bool{
	"1s": true, "1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// ValidateQuery checks symbol, interval and limit bounds.
func ValidateQuery(q model.KlineQuery) error {
	if q.Symbol == "" {
		return errors.New("symbol is required")
	}
	if !validIntervals[q.Interval] {
		return fmt.Errorf("unsupported interval %q", q.Interval)
	}
	if q.Limit <= 0 || q.Limit > binance.MaxLimit {
		return fmt.Errorf("limit must be in 1..%d, got %d", binance.MaxLimit, q.Limit)
	}
	return nil
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
