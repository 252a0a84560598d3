package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"klinefeed/config"
	"klinefeed/internal/indicator"
	"klinefeed/internal/logger"
	"klinefeed/internal/model"
	"klinefeed/internal/pipeline"
)

type chartHandler struct {
	opts Options
}

// ServeHTTP handles GET /api/v1/chart?symbol=&interval=&limit=&indicators=.
func (h *chartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	q, specs, err := h.parseRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := logger.WithRunID(r.Context(), logger.NewRunID())
	key := cacheKey(q, specs)

	if body, ok := h.cached(r, key); ok {
		w.Header().Set("X-Cache", "HIT")
		writeJSON(w, body)
		return
	}

	out, err := h.opts.Runner.FetchAndEnrich(ctx, q, specs)
	kind := pipeline.ErrorKind(err)
	if kind != "invalid_period" && kind != "canceled" {
		h.opts.Health.RecordFetch(err)
	}
	if err != nil {
		writeError(w, statusFor(kind), err)
		return
	}

	body, err := json.Marshal(out)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if h.opts.Cache != nil {
		if err := h.opts.Cache.Set(ctx, key, body, h.opts.CacheTTL); err != nil {
			h.opts.Log.Warn("chart cache store failed", append(logger.Attrs(ctx),
				slog.String("key", key), slog.String("error", err.Error()))...)
		}
	}
	w.Header().Set("X-Cache", "MISS")
	writeJSON(w, body)
}

func (h *chartHandler) parseRequest(r *http.Request) (model.KlineQuery, []indicator.Spec, error) {
	v := r.URL.Query()
	q := h.opts.Defaults
	if s := v.Get("symbol"); s != "" {
		q.Symbol = strings.ToUpper(s)
	}
	if s := v.Get("interval"); s != "" {
		q.Interval = s
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, nil, fmt.Errorf("invalid limit %q", s)
		}
		q.Limit = n
	}
	if err := config.ValidateQuery(q); err != nil {
		return q, nil, err
	}

	raw := h.opts.Indicators
	if s := v.Get("indicators"); s != "" {
		raw = s
	}
	specs, err := indicator.ParseSpecs(raw)
	if err != nil {
		return q, nil, err
	}
	return q, specs, nil
}

// cached returns the stored body for key. Cache failures count as misses.
func (h *chartHandler) cached(r *http.Request, key string) ([]byte, bool) {
	if h.opts.Cache == nil {
		return nil, false
	}
	body, ok, err := h.opts.Cache.Get(r.Context(), key)
	switch {
	case err != nil:
		h.opts.Metrics.CacheRequests.WithLabelValues("error").Inc()
		h.opts.Log.Warn("chart cache lookup failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	case !ok:
		h.opts.Metrics.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	h.opts.Metrics.CacheRequests.WithLabelValues("hit").Inc()
	return body, true
}

// cacheKey is SYMBOL:INTERVAL:LIMIT followed by the indicator names.
func cacheKey(q model.KlineQuery, specs []indicator.Spec) string {
	var b strings.Builder
	b.WriteString(q.Key())
	for _, s := range specs {
		b.WriteByte(':')
		b.WriteString(s.Name())
	}
	return b.String()
}

func statusFor(kind string) int {
	switch kind {
	case "invalid_period":
		return http.StatusBadRequest
	case "transport", "parse", "shape":
		return http.StatusBadGateway
	case "canceled":
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(body)
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}
