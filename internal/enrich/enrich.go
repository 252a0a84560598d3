// Package enrich attaches moving-average series to a candle sequence.
//
// Every indicator is computed independently over the same closing-price
// series and then aligned back onto the candle index space with Align.
package enrich

import (
	"fmt"

	"github.com/shopspring/decimal"

	"klinefeed/internal/indicator"
	"klinefeed/internal/model"
)

// Align maps a trailing-window series of a period-P indicator onto n source
// positions. The value computed over window [i-P+1, i] belongs to position i,
// so output i is series[i-(P-1)] when i >= P-1 and not-available otherwise.
// Positions without a corresponding series element are also not-available.
func Align(series []decimal.Decimal, period, n int) []decimal.NullDecimal {
	out := make([]decimal.NullDecimal, n)
	shift := period - 1
	for i := range out {
		j := i - shift
		if j < 0 || j >= len(series) {
			continue
		}
		out[i] = decimal.NewNullDecimal(series[j])
	}
	return out
}

// Enrich returns one EnrichedCandle per input candle, in input order, each
// carrying the aligned value of every spec under spec.Name(). Any invalid
// spec fails the whole call and no partial output is returned.
func Enrich(candles []model.Candle, specs []indicator.Spec) ([]model.EnrichedCandle, error) {
	closes := model.Closes(candles)

	aligned := make([][]decimal.NullDecimal, len(specs))
	for k, spec := range specs {
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("enrich %s: %w", spec.Name(), err)
		}
		series, err := indicator.Compute(spec, closes)
		if err != nil {
			return nil, fmt.Errorf("enrich %s: %w", spec.Name(), err)
		}
		aligned[k] = Align(series, spec.Period, len(candles))
	}

	out := make([]model.EnrichedCandle, len(candles))
	for i, c := range candles {
		ivs := make([]model.IndicatorValue, len(specs))
		for k, spec := range specs {
			ivs[k] = model.IndicatorValue{Name: spec.Name(), Value: aligned[k][i]}
		}
		out[i] = model.EnrichedCandle{
			Time:       c.Time(),
			Open:       c.Open,
			High:       c.High,
			Low:        c.Low,
			Close:      c.Close,
			Volume:     c.Volume,
			Indicators: ivs,
		}
	}
	return out, nil
}
