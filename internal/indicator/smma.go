package indicator

import "github.com/shopspring/decimal"

// SMMA calculates Smoothed Moving Average (Wilder-style smoothing).
// First value is SMA(period), then SMMA = (prev*(period-1) + price) / period.
type SMMA struct {
	period  int
	count   int
	sum     decimal.Decimal
	current decimal.Decimal
}

// NewSMMA creates a new SMMA indicator with the given period.
func NewSMMA(period int) *SMMA {
	return &SMMA{period: period}
}

func (s *SMMA) Name() string { return "SMMA" }

func (s *SMMA) Update(price decimal.Decimal) {
	s.count++
	p := decimal.NewFromInt(int64(s.period))

	if s.count <= s.period {
		s.sum = s.sum.Add(price)
		if s.count == s.period {
			s.current = s.sum.Div(p).Round(Precision)
		}
		return
	}

	s.current = s.current.Mul(decimal.NewFromInt(int64(s.period - 1))).Add(price).Div(p).Round(Precision)
}

func (s *SMMA) Value() decimal.Decimal { return s.current }
func (s *SMMA) Ready() bool            { return s.count >= s.period }

// Reset clears the SMMA state for reuse.
func (s *SMMA) Reset() {
	s.count = 0
	s.sum = decimal.Zero
	s.current = decimal.Zero
}
