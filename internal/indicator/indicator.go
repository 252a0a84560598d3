// Package indicator provides moving-average calculations over closing prices.
//
// Each indicator exists in two forms: a streaming implementation of the
// Indicator interface that is fed one price at a time, and a pure series
// function (SMASeries, EMASeries, SMMASeries) that runs the streaming form over a whole slice
// and returns one value per complete window.
package indicator

import "github.com/shopspring/decimal"

// Precision is the number of decimal places recursive averages (EMA, SMMA)
// keep after each update. decimal.Mul is exact, so without rounding the
// running value gains digits on every step.
const Precision int32 = 16

// Indicator is the interface for all streaming moving averages.
type Indicator interface {
	// Name returns the indicator kind (e.g., "SMA", "EMA").
	Name() string

	// Update feeds the next closing price.
	Update(price decimal.Decimal)

	// Value returns the current value. Returns zero until Ready.
	Value() decimal.Decimal

	// Ready returns true once a full period of prices has been seen.
	Ready() bool

	// Reset clears accumulated state so the instance can be reused.
	Reset()
}
