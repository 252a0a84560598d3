package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"klinefeed/internal/model"
)

// Reader provides read-only access to stored klines for offline enrichment.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadCandles returns the newest q.Limit candles for q.Symbol/q.Interval,
// ordered by open time ascending. A non-positive limit reads everything.
func (r *Reader) ReadCandles(ctx context.Context, q model.KlineQuery) ([]model.Candle, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT open_time, open, high, low, close, volume, close_time FROM (
			SELECT open_time, open, high, low, close, volume, close_time
			FROM klines
			WHERE symbol = ? AND interval = ?
			ORDER BY open_time DESC
			LIMIT ?
		) ORDER BY open_time ASC
	`, q.Symbol, q.Interval, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query klines: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var (
			c                    model.Candle
			open, high, low, cls string
			volume               sql.NullString
			closeTime            sql.NullInt64
		)
		if err := rows.Scan(&c.OpenTime, &open, &high, &low, &cls, &volume, &closeTime); err != nil {
			return nil, fmt.Errorf("sqlite scan klines: %w", err)
		}
		prices := []struct {
			s   string
			dst *decimal.Decimal
		}{{open, &c.Open}, {high, &c.High}, {low, &c.Low}, {cls, &c.Close}}
		for _, p := range prices {
			d, err := decimal.NewFromString(p.s)
			if err != nil {
				return nil, fmt.Errorf("sqlite kline %d: %w", c.OpenTime, err)
			}
			*p.dst = d
		}
		if volume.Valid {
			d, err := decimal.NewFromString(volume.String)
			if err != nil {
				return nil, fmt.Errorf("sqlite kline %d volume: %w", c.OpenTime, err)
			}
			c.Volume = decimal.NewNullDecimal(d)
		}
		c.CloseTime = closeTime.Int64
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
