package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents one exchange kline normalized to decimal prices.
// OpenTime and CloseTime are epoch milliseconds as sent by the exchange.
// Volume and CloseTime are optional: Volume.Valid is false and CloseTime is 0
// when the source tuple did not carry them.
type Candle struct {
	OpenTime  int64
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.NullDecimal
	CloseTime int64
}

// Time returns the candle open time as a UTC time.Time.
func (c Candle) Time() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// candleJSON is the persisted shape: numbers stay numbers, not quoted strings.
type candleJSON struct {
	OpenTime  int64        `json:"openTime"`
	Open      json.Number  `json:"open"`
	High      json.Number  `json:"high"`
	Low       json.Number  `json:"low"`
	Close     json.Number  `json:"close"`
	Volume    *json.Number `json:"volume,omitempty"`
	CloseTime int64        `json:"closeTime,omitempty"`
}

// MarshalJSON encodes the candle as
// {openTime, open, high, low, close, volume, closeTime}.
func (c Candle) MarshalJSON() ([]byte, error) {
	out := candleJSON{
		OpenTime:  c.OpenTime,
		Open:      json.Number(c.Open.String()),
		High:      json.Number(c.High.String()),
		Low:       json.Number(c.Low.String()),
		Close:     json.Number(c.Close.String()),
		CloseTime: c.CloseTime,
	}
	if c.Volume.Valid {
		v := json.Number(c.Volume.Decimal.String())
		out.Volume = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the persisted shape written by MarshalJSON.
func (c *Candle) UnmarshalJSON(data []byte) error {
	var in candleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	fields := []struct {
		name string
		raw  json.Number
		dst  *decimal.Decimal
	}{
		{"open", in.Open, &c.Open},
		{"high", in.High, &c.High},
		{"low", in.Low, &c.Low},
		{"close", in.Close, &c.Close},
	}
	for _, f := range fields {
		d, err := decimal.NewFromString(f.raw.String())
		if err != nil {
			return fmt.Errorf("candle %s: %w", f.name, err)
		}
		*f.dst = d
	}
	c.Volume = decimal.NullDecimal{}
	if in.Volume != nil {
		d, err := decimal.NewFromString(in.Volume.String())
		if err != nil {
			return fmt.Errorf("candle volume: %w", err)
		}
		c.Volume = decimal.NewNullDecimal(d)
	}
	c.OpenTime = in.OpenTime
	c.CloseTime = in.CloseTime
	return nil
}

// Closes extracts the closing-price series in candle order.
func Closes(candles []Candle) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
