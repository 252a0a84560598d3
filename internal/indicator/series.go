package indicator

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidPeriod is returned when a non-positive period is requested.
var ErrInvalidPeriod = errors.New("invalid period")

// SMASeries returns the simple moving average of every complete window of period
// values, oldest first. The result has max(0, len(values)-period+1) elements.
func SMASeries(values []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	return series(values, period, func(p int) Indicator { return NewSMA(p) })
}

// EMASeries returns the exponential moving average series seeded with the SMA of
// the first period values. Same length rule as SMA.
func EMASeries(values []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	return series(values, period, func(p int) Indicator { return NewEMA(p) })
}

// SMMASeries returns the Wilder-smoothed moving average series. Same length rule as SMA.
func SMMASeries(values []decimal.Decimal, period int) ([]decimal.Decimal, error) {
	return series(values, period, func(p int) Indicator { return NewSMMA(p) })
}

// series feeds values through a fresh streaming indicator and collects one
// output per update once the indicator is ready.
func series(values []decimal.Decimal, period int, newInd func(int) Indicator) ([]decimal.Decimal, error) {
	if period <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPeriod, period)
	}
	if period > len(values) {
		return []decimal.Decimal{}, nil
	}

	ind := newInd(period)
	out := make([]decimal.Decimal, 0, len(values)-period+1)
	for _, v := range values {
		ind.Update(v)
		if ind.Ready() {
			out = append(out, ind.Value())
		}
	}
	return out, nil
}
