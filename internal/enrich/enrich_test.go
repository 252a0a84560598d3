package enrich

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"klinefeed/internal/indicator"
	"klinefeed/internal/model"
)

const fiveMinMs = int64(5 * time.Minute / time.Millisecond)

func makeCandles(closes ...int64) []model.Candle {
	px := make([]decimal.Decimal, len(closes))
	for i, c := range closes {
		px[i] = decimal.NewFromInt(c)
	}
	return candlesAt(px)
}

func candlesAt(closes []decimal.Decimal) []model.Candle {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	out := make([]model.Candle, len(closes))
	for i, px := range closes {
		out[i] = model.Candle{
			OpenTime:  base + int64(i)*fiveMinMs,
			Open:      px,
			High:      px.Add(decimal.NewFromInt(1)),
			Low:       px.Sub(decimal.NewFromInt(1)),
			Close:     px,
			Volume:    decimal.NewNullDecimal(decimal.NewFromInt(10)),
			CloseTime: base + int64(i+1)*fiveMinMs - 1,
		}
	}
	return out
}

func TestAlign(t *testing.T) {
	series := []decimal.Decimal{decimal.NewFromInt(2), decimal.NewFromInt(3), decimal.NewFromInt(4)}
	got := Align(series, 3, 5)

	if len(got) != 5 {
		t.Fatalf("len=%d, want 5", len(got))
	}
	for i := 0; i < 2; i++ {
		if got[i].Valid {
			t.Errorf("index %d: expected not-available, got %s", i, got[i].Decimal)
		}
	}
	for i, want := range []int64{2, 3, 4} {
		v := got[i+2]
		if !v.Valid || !v.Decimal.Equal(decimal.NewFromInt(want)) {
			t.Errorf("index %d: got %+v, want %d", i+2, v, want)
		}
	}
}

func TestAlign_EmptySeries(t *testing.T) {
	got := Align(nil, 10, 4)
	if len(got) != 4 {
		t.Fatalf("len=%d, want 4", len(got))
	}
	for i, v := range got {
		if v.Valid {
			t.Errorf("index %d: expected not-available", i)
		}
	}
}

func TestEnrich_SMAExample(t *testing.T) {
	// closes = [1,2,3,4,5], P=3 -> nil, nil, 2, 3, 4
	candles := makeCandles(1, 2, 3, 4, 5)
	out, err := Enrich(candles, []indicator.Spec{{Kind: indicator.KindSMA, Period: 3}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(candles) {
		t.Fatalf("len=%d, want %d", len(out), len(candles))
	}

	want := []*int64{nil, nil, ptr(2), ptr(3), ptr(4)}
	for i, w := range want {
		v, ok := out[i].Indicator("sma3")
		if !ok {
			t.Fatalf("index %d: sma3 missing", i)
		}
		if w == nil {
			if v.Valid {
				t.Errorf("index %d: expected not-available, got %s", i, v.Decimal)
			}
			continue
		}
		if !v.Valid || !v.Decimal.Equal(decimal.NewFromInt(*w)) {
			t.Errorf("index %d: got %+v, want %d", i, v, *w)
		}
	}
}

func TestEnrich_PreservesCandleFields(t *testing.T) {
	candles := makeCandles(10, 20, 30)
	out, err := Enrich(candles, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range candles {
		e := out[i]
		if !e.Time.Equal(c.Time()) || e.Time.Location() != time.UTC {
			t.Errorf("index %d: time %v, want %v UTC", i, e.Time, c.Time())
		}
		if !e.Close.Equal(c.Close) || !e.Open.Equal(c.Open) || !e.High.Equal(c.High) || !e.Low.Equal(c.Low) {
			t.Errorf("index %d: OHLC mismatch", i)
		}
		if len(e.Indicators) != 0 {
			t.Errorf("index %d: expected no indicators, got %d", i, len(e.Indicators))
		}
	}
	if out[1].Time.Sub(out[0].Time) != 5*time.Minute {
		t.Errorf("order not preserved: %v then %v", out[0].Time, out[1].Time)
	}
}

func TestEnrich_WarmupAndSeedPerPeriod(t *testing.T) {
	var closes []int64
	for i := 0; i < 60; i++ {
		closes = append(closes, int64(100+i%7))
	}
	candles := makeCandles(closes...)
	specs := []indicator.Spec{
		{Kind: indicator.KindEMA, Period: 20},
		{Kind: indicator.KindEMA, Period: 50},
		{Kind: indicator.KindEMA, Period: 100},
	}
	out, err := Enrich(candles, specs)
	if err != nil {
		t.Fatal(err)
	}

	for _, spec := range specs {
		for i := range out {
			v, _ := out[i].Indicator(spec.Name())
			wantValid := i >= spec.Period-1
			if v.Valid != wantValid {
				t.Fatalf("%s index %d: Valid=%v, want %v", spec.Name(), i, v.Valid, wantValid)
			}
		}
		if spec.Period > len(candles) {
			continue
		}
		// The first available value is the plain average of the first P closes.
		sum := decimal.Zero
		for _, c := range candles[:spec.Period] {
			sum = sum.Add(c.Close)
		}
		seed := sum.Div(decimal.NewFromInt(int64(spec.Period)))
		v, _ := out[spec.Period-1].Indicator(spec.Name())
		if !v.Decimal.Equal(seed) {
			t.Errorf("%s seed: got %s, want %s", spec.Name(), v.Decimal, seed)
		}
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	candles := makeCandles(5, 3, 8, 6, 9, 2, 7)
	specs := []indicator.Spec{{Kind: indicator.KindEMA, Period: 3}, {Kind: indicator.KindSMA, Period: 2}}

	a, err := Enrich(candles, specs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Enrich(candles, specs)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		ja, _ := a[i].MarshalJSON()
		jb, _ := b[i].MarshalJSON()
		if string(ja) != string(jb) {
			t.Errorf("index %d differs:\n%s\n%s", i, ja, jb)
		}
	}
}

func TestEnrich_InvalidPeriod(t *testing.T) {
	out, err := Enrich(makeCandles(1, 2, 3), []indicator.Spec{
		{Kind: indicator.KindEMA, Period: 2},
		{Kind: indicator.KindEMA, Period: 0},
	})
	if !errors.Is(err, indicator.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
	if out != nil {
		t.Errorf("expected no output on error, got %d records", len(out))
	}
}

func TestEnrich_EmptyInput(t *testing.T) {
	out, err := Enrich(nil, indicator.DefaultSpecs())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("expected empty output, got %d", len(out))
	}
}

func ptr(v int64) *int64 { return &v }

func TestEnrich_PeriodLongerThanInput(t *testing.T) {
	candles := makeCandles(10, 11, 12, 13, 14)
	specs := []indicator.Spec{{Kind: indicator.KindEMA, Period: 10}, {Kind: indicator.KindSMA, Period: 6}}

	out, err := Enrich(candles, specs)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(candles) {
		t.Fatalf("len=%d, want %d", len(out), len(candles))
	}
	for i, e := range out {
		for _, spec := range specs {
			v, ok := e.Indicator(spec.Name())
			if !ok || v.Valid {
				t.Errorf("index %d: %s = %+v, want present and not-available", i, spec.Name(), v)
			}
		}
		if !e.Close.Equal(candles[i].Close) {
			t.Errorf("index %d: close %s, want %s", i, e.Close, candles[i].Close)
		}
	}
}

// 200 candles with fractional prices and the default EMA 20/50/100/200 set,
// the shape of a default chart request.
func TestEnrich_DefaultChartSet(t *testing.T) {
	closes := make([]decimal.Decimal, 200)
	for i := range closes {
		closes[i] = decimal.RequireFromString(fmt.Sprintf("%d.%02d", 2300+i%17, (i*37)%100))
	}
	out, err := Enrich(candlesAt(closes), indicator.DefaultSpecs())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 200 {
		t.Fatalf("len=%d, want 200", len(out))
	}

	for _, spec := range indicator.DefaultSpecs() {
		for i := range out {
			v, _ := out[i].Indicator(spec.Name())
			if v.Valid != (i >= spec.Period-1) {
				t.Fatalf("%s index %d: Valid=%v", spec.Name(), i, v.Valid)
			}
			if v.Valid && v.Decimal.Exponent() < -indicator.Precision {
				t.Fatalf("%s index %d: %s has more than %d decimal places", spec.Name(), i, v.Decimal, indicator.Precision)
			}
		}
	}

	last, err := out[199].MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if len(last) > 400 {
		t.Errorf("last record is %d bytes: %s", len(last), last)
	}
}
