// Package binance fetches spot klines from the Binance REST API and
// normalizes the positional kline tuples into model.Candle records.
package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"klinefeed/internal/model"
)

const (
	// DefaultBaseURL is the public Binance spot REST endpoint.
	DefaultBaseURL = "https://api.binance.com"

	klinesPath     = "/api/v3/klines"
	defaultTimeout = 15 * time.Second

	// MaxLimit is the largest limit the klines endpoint accepts.
	MaxLimit = 1000
)

// Config configures the REST client.
type Config struct {
	BaseURL    string        // default: https://api.binance.com
	Timeout    time.Duration // default: 15s
	HTTPClient *http.Client  // optional; Timeout is ignored when set
}

// Client is a minimal Binance spot REST client for the klines endpoint.
// It never retries: one call is one request.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client, filling defaults for unset fields.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
	}
}

// KlinesURL builds the request URL for q.
func (c *Client) KlinesURL(q model.KlineQuery) string {
	v := url.Values{}
	v.Set("symbol", q.Symbol)
	v.Set("interval", q.Interval)
	v.Set("limit", strconv.Itoa(q.Limit))
	return c.baseURL + klinesPath + "?" + v.Encode()
}

// FetchKlines performs one GET and decodes the full response body.
// Connection failures and non-2xx statuses yield *TransportError; a body that
// is not a JSON array of arrays yields *ParseError.
func (c *Client) FetchKlines(ctx context.Context, q model.KlineQuery) ([]model.RawKline, error) {
	endpoint := c.KlinesURL(q)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: endpoint, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &TransportError{URL: endpoint, StatusCode: res.StatusCode, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &TransportError{
			URL:        endpoint,
			StatusCode: res.StatusCode,
			Message:    apiErrorMessage(body),
			Err:        fmt.Errorf("unexpected status %s", res.Status),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw []model.RawKline
	if err := dec.Decode(&raw); err != nil {
		return nil, &ParseError{Index: -1, Err: err}
	}
	return raw, nil
}

// apiErrorMessage extracts "msg" from a Binance error body
// ({"code":-1121,"msg":"Invalid symbol."}), falling back to a short excerpt.
func apiErrorMessage(body []byte) string {
	var apiErr struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
		return fmt.Sprintf("%s (code %d)", apiErr.Msg, apiErr.Code)
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
