// Package store holds sink plumbing shared by the concrete backends.
package store

import (
	"context"
	"fmt"

	"klinefeed/internal/model"
)

// WriteError reports that a sink could not persist a candle sequence.
type WriteError struct {
	Sink   string // "json", "sqlite"
	Target string // file path or database path
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s sink %s: %v", e.Sink, e.Target, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Stager is a sink that can prepare a write without making it visible.
// MultiSink stages every Stager before committing any of them.
type Stager interface {
	model.CandleSink
	Stage(ctx context.Context, q model.KlineQuery, candles []model.Candle) (Staged, error)
}

// Staged is a prepared write. Exactly one of Commit or Discard is called.
type Staged interface {
	Commit() error
	Discard()
}

// MultiSink writes one sequence to several sinks. Stagers are all staged
// first and committed in order only when every stage succeeded, so a stage
// failure in any sink leaves every destination unchanged. Plain sinks are
// written between staging and commit and stop the run on failure.
type MultiSink []model.CandleSink

func (m MultiSink) Name() string {
	name := ""
	for i, s := range m {
		if i > 0 {
			name += "+"
		}
		name += s.Name()
	}
	return name
}

func (m MultiSink) WriteCandles(ctx context.Context, q model.KlineQuery, candles []model.Candle) error {
	var staged []Staged
	discard := func() {
		for _, st := range staged {
			st.Discard()
		}
	}

	var plain []model.CandleSink
	for _, s := range m {
		stager, ok := s.(Stager)
		if !ok {
			plain = append(plain, s)
			continue
		}
		st, err := stager.Stage(ctx, q, candles)
		if err != nil {
			discard()
			return err
		}
		staged = append(staged, st)
	}

	for _, s := range plain {
		if err := s.WriteCandles(ctx, q, candles); err != nil {
			discard()
			return err
		}
	}

	for i, st := range staged {
		if err := st.Commit(); err != nil {
			for _, rest := range staged[i+1:] {
				rest.Discard()
			}
			return err
		}
	}
	return nil
}
