// Package jsonfile persists candle sequences as a pretty-printed JSON array.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"klinefeed/internal/model"
	"klinefeed/internal/store"
)

// Writer writes the whole sequence to Path, replacing any previous file.
// The new content is written to a temp file in the same directory and
// renamed into place, so a failed write leaves the old file untouched.
type Writer struct {
	path string
}

// New creates a JSON file writer for path.
func New(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Name() string { return "json" }

// WriteCandles encodes candles as {openTime, open, high, low, close, volume,
// closeTime} objects with two-space indentation and replaces the file.
func (w *Writer) WriteCandles(ctx context.Context, q model.KlineQuery, candles []model.Candle) error {
	st, err := w.Stage(ctx, q, candles)
	if err != nil {
		return err
	}
	return st.Commit()
}

// Stage writes the encoded sequence to a synced temp file next to the
// destination. The destination changes only on Commit.
func (w *Writer) Stage(ctx context.Context, _ model.KlineQuery, candles []model.Candle) (store.Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, w.fail(err)
	}
	if candles == nil {
		candles = []model.Candle{}
	}

	data, err := json.MarshalIndent(candles, "", "  ")
	if err != nil {
		return nil, w.fail(fmt.Errorf("encode: %w", err))
	}
	data = append(data, '\n')

	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, w.fail(err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(w.path)+".tmp-*")
	if err != nil {
		return nil, w.fail(err)
	}
	st := &stagedFile{w: w, tmp: tmp.Name(), n: len(candles)}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		st.Discard()
		return nil, w.fail(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		st.Discard()
		return nil, w.fail(err)
	}
	if err := tmp.Close(); err != nil {
		st.Discard()
		return nil, w.fail(err)
	}
	if err := os.Chmod(st.tmp, 0o644); err != nil {
		st.Discard()
		return nil, w.fail(err)
	}
	return st, nil
}

type stagedFile struct {
	w   *Writer
	tmp string
	n   int
}

// Commit renames the temp file over the destination.
func (s *stagedFile) Commit() error {
	if err := os.Rename(s.tmp, s.w.path); err != nil {
		s.Discard()
		return s.w.fail(err)
	}
	log.Printf("[jsonfile] wrote %d candles to %s", s.n, s.w.path)
	return nil
}

func (s *stagedFile) Discard() {
	os.Remove(s.tmp)
}

// ReadCandles loads the file written by WriteCandles. The query is ignored:
// a file holds exactly one series.
func (w *Writer) ReadCandles(_ context.Context, _ model.KlineQuery) ([]model.Candle, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", w.path, err)
	}
	var candles []model.Candle
	if err := json.Unmarshal(data, &candles); err != nil {
		return nil, fmt.Errorf("decode %s: %w", w.path, err)
	}
	return candles, nil
}

func (w *Writer) fail(err error) error {
	return &store.WriteError{Sink: w.Name(), Target: w.path, Err: err}
}
