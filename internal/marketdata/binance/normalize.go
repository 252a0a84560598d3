package binance

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"klinefeed/internal/model"
)

// Shape is the number of leading tuple fields a caller requires.
// Fields past the shape are still read when present.
type Shape int

const (
	ShapeOHLC  Shape = 5 // openTime, open, high, low, close
	ShapeOHLCV Shape = 6 // + volume
	ShapeFull  Shape = 7 // + closeTime
)

// Kline tuple positions.
const (
	idxOpenTime = iota
	idxOpen
	idxHigh
	idxLow
	idxClose
	idxVolume
	idxCloseTime
)

var fieldNames = [...]string{"openTime", "open", "high", "low", "close", "volume", "closeTime"}

// Normalize maps provider tuples positionally into candles, one per tuple and
// in the same order. It fails with *ShapeError when a tuple is shorter than
// shape and with *ParseError when a field is not numeric; on failure no
// candles are returned.
func Normalize(raw []model.RawKline, shape Shape) ([]model.Candle, error) {
	if shape < ShapeOHLC {
		shape = ShapeOHLC
	}

	out := make([]model.Candle, 0, len(raw))
	for i, k := range raw {
		if len(k) < int(shape) {
			return nil, &ShapeError{Index: i, Got: len(k), Want: int(shape)}
		}

		var c model.Candle
		var err error
		if c.OpenTime, err = intField(k, i, idxOpenTime); err != nil {
			return nil, err
		}
		prices := []*decimal.Decimal{&c.Open, &c.High, &c.Low, &c.Close}
		for j, dst := range prices {
			if *dst, err = decimalField(k, i, idxOpen+j); err != nil {
				return nil, err
			}
		}
		if len(k) > idxVolume {
			v, err := decimalField(k, i, idxVolume)
			if err != nil {
				return nil, err
			}
			c.Volume = decimal.NewNullDecimal(v)
		}
		if len(k) > idxCloseTime {
			if c.CloseTime, err = intField(k, i, idxCloseTime); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func decimalField(k model.RawKline, i, f int) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := k[f].(type) {
	case string:
		d, err = decimal.NewFromString(v)
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			err = errors.New("not a finite number")
		} else {
			d = decimal.NewFromFloat(v)
		}
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}
	if err != nil {
		return decimal.Zero, &ParseError{Index: i, Field: fieldNames[f], Value: k[f], Err: err}
	}
	return d, nil
}

func intField(k model.RawKline, i, f int) (int64, error) {
	var (
		n   int64
		err error
	)
	switch v := k[f].(type) {
	case json.Number:
		n, err = v.Int64()
	case string:
		n, err = strconv.ParseInt(v, 10, 64)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			err = errors.New("not an integer")
		}
		n = int64(v)
	default:
		err = fmt.Errorf("unexpected type %T", v)
	}
	if err != nil {
		return 0, &ParseError{Index: i, Field: fieldNames[f], Value: k[f], Err: err}
	}
	return n, nil
}
