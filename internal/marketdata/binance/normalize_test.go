package binance

import (
	"encoding/json"
	"errors"
	"testing"

	"klinefeed/internal/model"
)

func TestNormalize_MixedRepresentations(t *testing.T) {
	raw := []model.RawKline{
		{json.Number("1000"), "1.5", json.Number("2.25"), 0.5, "1.75", "10", json.Number("1999")},
		{"2000", "1.75", "2", "1.5", "1.9", json.Number("12.5"), "2999"},
	}
	got, err := Normalize(raw, ShapeFull)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	c := got[0]
	if c.OpenTime != 1000 || c.CloseTime != 1999 {
		t.Errorf("times = %d/%d", c.OpenTime, c.CloseTime)
	}
	checks := map[string]string{
		"open": c.Open.String(), "high": c.High.String(), "low": c.Low.String(),
		"close": c.Close.String(), "volume": c.Volume.Decimal.String(),
	}
	want := map[string]string{"open": "1.5", "high": "2.25", "low": "0.5", "close": "1.75", "volume": "10"}
	for k, v := range want {
		if checks[k] != v {
			t.Errorf("%s = %s, want %s", k, checks[k], v)
		}
	}
	if got[1].OpenTime != 2000 || !got[1].Volume.Valid {
		t.Errorf("second candle = %+v", got[1])
	}
}

func TestNormalize_OptionalFields(t *testing.T) {
	raw := []model.RawKline{{json.Number("1000"), "1", "2", "0.5", "1.5"}}
	got, err := Normalize(raw, ShapeOHLC)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Volume.Valid {
		t.Error("volume should be absent")
	}
	if got[0].CloseTime != 0 {
		t.Errorf("closeTime = %d, want 0", got[0].CloseTime)
	}
}

func TestNormalize_ShapeError(t *testing.T) {
	// Second tuple lacks volume.
	raw := []model.RawKline{
		{json.Number("1000"), "1", "2", "0.5", "1.5", "10"},
		{json.Number("2000"), "1", "2", "0.5", "1.5"},
	}
	got, err := Normalize(raw, ShapeOHLCV)
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("expected *ShapeError, got %T: %v", err, err)
	}
	if se.Index != 1 || se.Got != 5 || se.Want != 6 {
		t.Errorf("ShapeError = %+v", se)
	}
	if got != nil {
		t.Errorf("expected no partial result, got %d candles", len(got))
	}
}

func TestNormalize_ParseError(t *testing.T) {
	tests := []struct {
		name  string
		k     model.RawKline
		field string
	}{
		{"bad price", model.RawKline{json.Number("1000"), "1", "abc", "0.5", "1.5"}, "high"},
		{"bad time", model.RawKline{"yesterday", "1", "2", "0.5", "1.5"}, "openTime"},
		{"fractional time", model.RawKline{1000.5, "1", "2", "0.5", "1.5"}, "openTime"},
		{"null close", model.RawKline{json.Number("1000"), "1", "2", "0.5", nil}, "close"},
		{"bool volume", model.RawKline{json.Number("1000"), "1", "2", "0.5", "1.5", true}, "volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize([]model.RawKline{tt.k}, ShapeOHLC)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
			if pe.Field != tt.field {
				t.Errorf("field = %s, want %s", pe.Field, tt.field)
			}
			if got != nil {
				t.Error("expected nil result")
			}
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	got, err := Normalize(nil, ShapeFull)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty, got %d", len(got))
	}
}
