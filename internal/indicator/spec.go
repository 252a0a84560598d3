package indicator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind selects the moving-average formula.
type Kind string

const (
	KindSMA  Kind = "SMA"
	KindEMA  Kind = "EMA"
	KindSMMA Kind = "SMMA"
)

// Spec specifies a single moving average to compute.
type Spec struct {
	Kind   Kind
	Period int
}

// Name returns the output field name, e.g. "ema20", "sma50".
func (s Spec) Name() string {
	return strings.ToLower(string(s.Kind)) + strconv.Itoa(s.Period)
}

// Validate checks the kind and period.
func (s Spec) Validate() error {
	switch s.Kind {
	case KindSMA, KindEMA, KindSMMA:
	default:
		return fmt.Errorf("unknown indicator kind %q", s.Kind)
	}
	if s.Period <= 0 {
		return fmt.Errorf("%s: %w: %d", s.Kind, ErrInvalidPeriod, s.Period)
	}
	return nil
}

// DefaultSpecs is the chart indicator set: EMA 20/50/100/200.
func DefaultSpecs() []Spec {
	return []Spec{
		{Kind: KindEMA, Period: 20},
		{Kind: KindEMA, Period: 50},
		{Kind: KindEMA, Period: 100},
		{Kind: KindEMA, Period: 200},
	}
}

// Compute runs the series function matching spec.Kind over values.
func Compute(spec Spec, values []decimal.Decimal) ([]decimal.Decimal, error) {
	switch spec.Kind {
	case KindSMA:
		return SMASeries(values, spec.Period)
	case KindEMA:
		return EMASeries(values, spec.Period)
	case KindSMMA:
		return SMMASeries(values, spec.Period)
	default:
		return nil, fmt.Errorf("unknown indicator kind %q", spec.Kind)
	}
}

// ParseSpecs parses "TYPE:PERIOD,TYPE:PERIOD,..." (e.g. "EMA:20,SMA:50").
// An empty string yields DefaultSpecs. Unlike a lenient config loader,
// any malformed entry is an error.
func ParseSpecs(s string) ([]Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultSpecs(), nil
	}

	var specs []Spec
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		tokens := strings.SplitN(part, ":", 2)
		if len(tokens) != 2 {
			return nil, fmt.Errorf("indicator spec %q: want TYPE:PERIOD", part)
		}
		period, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
		if err != nil {
			return nil, fmt.Errorf("indicator spec %q: %w: %v", part, ErrInvalidPeriod, err)
		}
		spec := Spec{
			Kind:   Kind(strings.ToUpper(strings.TrimSpace(tokens[0]))),
			Period: period,
		}
		if err := spec.Validate(); err != nil {
			return nil, fmt.Errorf("indicator spec %q: %w", part, err)
		}
		if seen[spec.Name()] {
			continue
		}
		seen[spec.Name()] = true
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("no indicator specs in %q", s)
	}
	return specs, nil
}
