package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// IndicatorValue is one named moving-average value attached to a candle.
// Value.Valid is false while the indicator is still warming up.
type IndicatorValue struct {
	Name  string
	Value decimal.NullDecimal
}

// EnrichedCandle is a candle with its open time as time.Time and zero or more
// aligned indicator values, in the order they were requested.
type EnrichedCandle struct {
	Time       time.Time
	Open       decimal.Decimal
	High       decimal.Decimal
	Low        decimal.Decimal
	Close      decimal.Decimal
	Volume     decimal.NullDecimal
	Indicators []IndicatorValue
}

// Indicator looks up an indicator value by name.
func (e EnrichedCandle) Indicator(name string) (decimal.NullDecimal, bool) {
	for _, iv := range e.Indicators {
		if iv.Name == name {
			return iv.Value, true
		}
	}
	return decimal.NullDecimal{}, false
}

// MarshalJSON flattens indicators next to the OHLC fields:
// {"time":..., "open":..., ..., "ema20": 2301.5, "ema200": null}.
// Prices are encoded as JSON numbers.
func (e EnrichedCandle) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(name string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	fields := []struct {
		name string
		v    any
	}{
		{"time", e.Time},
		{"open", json.Number(e.Open.String())},
		{"high", json.Number(e.High.String())},
		{"low", json.Number(e.Low.String())},
		{"close", json.Number(e.Close.String())},
	}
	if e.Volume.Valid {
		fields = append(fields, struct {
			name string
			v    any
		}{"volume", json.Number(e.Volume.Decimal.String())})
	}
	for _, f := range fields {
		if err := writeField(f.name, f.v); err != nil {
			return nil, err
		}
	}
	for _, iv := range e.Indicators {
		var v any
		if iv.Value.Valid {
			v = json.Number(iv.Value.Decimal.String())
		}
		if err := writeField(iv.Name, v); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
