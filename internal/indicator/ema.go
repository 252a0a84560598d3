package indicator

import "github.com/shopspring/decimal"

// EMA calculates Exponential Moving Average.
// The first value is the SMA of the first period prices; after that
// EMA = price*k + prev*(1-k) with k = 2/(period+1).
// O(1) per update, no window storage needed.
type EMA struct {
	period     int
	multiplier decimal.Decimal
	current    decimal.Decimal
	count      int
	sum        decimal.Decimal
}

// NewEMA creates a new EMA indicator with the given period.
// period must be positive; use Spec.Validate or the series functions to check.
func NewEMA(period int) *EMA {
	return &EMA{
		period:     period,
		multiplier: decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1))),
	}
}

func (e *EMA) Name() string { return "EMA" }

func (e *EMA) Update(price decimal.Decimal) {
	e.count++

	if e.count <= e.period {
		// Accumulate for initial SMA seed
		e.sum = e.sum.Add(price)
		if e.count == e.period {
			e.current = e.sum.Div(decimal.NewFromInt(int64(e.period))).Round(Precision)
		}
		return
	}

	e.current = price.Mul(e.multiplier).Add(e.current.Mul(decimal.NewFromInt(1).Sub(e.multiplier))).Round(Precision)
}

func (e *EMA) Value() decimal.Decimal { return e.current }
func (e *EMA) Ready() bool            { return e.count >= e.period }

// Reset clears the EMA state for reuse.
func (e *EMA) Reset() {
	e.current = decimal.Zero
	e.count = 0
	e.sum = decimal.Zero
}
