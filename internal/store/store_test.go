package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"klinefeed/internal/model"
)

type stubSink struct {
	name   string
	err    error
	writes *[]string
}

func (s stubSink) Name() string { return s.name }

func (s stubSink) WriteCandles(ctx context.Context, q model.KlineQuery, candles []model.Candle) error {
	*s.writes = append(*s.writes, s.name)
	return s.err
}

func TestMultiSink_WritesInOrder(t *testing.T) {
	var writes []string
	m := MultiSink{stubSink{name: "json", writes: &writes}, stubSink{name: "sqlite", writes: &writes}}

	if err := m.WriteCandles(context.Background(), model.KlineQuery{}, nil); err != nil {
		t.Fatal(err)
	}
	if len(writes) != 2 || writes[0] != "json" || writes[1] != "sqlite" {
		t.Errorf("writes = %v", writes)
	}
	if m.Name() != "json+sqlite" {
		t.Errorf("Name() = %q", m.Name())
	}
}

func TestMultiSink_StopsAtFirstFailure(t *testing.T) {
	var writes []string
	failure := &WriteError{Sink: "json", Target: "out.json", Err: errors.New("read-only file system")}
	m := MultiSink{stubSink{name: "json", err: failure, writes: &writes}, stubSink{name: "sqlite", writes: &writes}}

	err := m.WriteCandles(context.Background(), model.KlineQuery{}, nil)
	var we *WriteError
	if !errors.As(err, &we) || we.Sink != "json" {
		t.Fatalf("expected json WriteError, got %v", err)
	}
	if len(writes) != 1 {
		t.Errorf("writes = %v, want only json", writes)
	}
	if got := err.Error(); got != "json sink out.json: read-only file system" {
		t.Errorf("Error() = %q", got)
	}
}

// stubStager records stage/commit/discard calls in a shared log.
type stubStager struct {
	name     string
	stageErr error
	log      *[]string
}

func (s stubStager) Name() string { return s.name }

func (s stubStager) WriteCandles(ctx context.Context, q model.KlineQuery, candles []model.Candle) error {
	return errors.New("WriteCandles must not be called on a stager inside MultiSink")
}

func (s stubStager) Stage(ctx context.Context, q model.KlineQuery, candles []model.Candle) (Staged, error) {
	*s.log = append(*s.log, "stage "+s.name)
	if s.stageErr != nil {
		return nil, s.stageErr
	}
	return stubStaged{s}, nil
}

type stubStaged struct{ s stubStager }

func (st stubStaged) Commit() error {
	*st.s.log = append(*st.s.log, "commit "+st.s.name)
	return nil
}

func (st stubStaged) Discard() { *st.s.log = append(*st.s.log, "discard "+st.s.name) }

func TestMultiSink_StagesAllBeforeCommit(t *testing.T) {
	var calls []string
	m := MultiSink{stubStager{name: "sqlite", log: &calls}, stubStager{name: "json", log: &calls}}

	if err := m.WriteCandles(context.Background(), model.KlineQuery{}, nil); err != nil {
		t.Fatal(err)
	}
	want := []string{"stage sqlite", "stage json", "commit sqlite", "commit json"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestMultiSink_StageFailureDiscardsEarlierSinks(t *testing.T) {
	var calls []string
	failure := &WriteError{Sink: "sqlite", Target: "klines.db", Err: errors.New("disk I/O error")}
	m := MultiSink{stubStager{name: "json", log: &calls}, stubStager{name: "sqlite", stageErr: failure, log: &calls}}

	err := m.WriteCandles(context.Background(), model.KlineQuery{}, nil)
	if !errors.Is(err, failure) {
		t.Fatalf("err = %v", err)
	}
	want := []string{"stage json", "stage sqlite", "discard json"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestMultiSink_PlainSinkFailureDiscardsStaged(t *testing.T) {
	var calls, writes []string
	m := MultiSink{
		stubStager{name: "json", log: &calls},
		stubSink{name: "remote", err: errors.New("refused"), writes: &writes},
	}

	if err := m.WriteCandles(context.Background(), model.KlineQuery{}, nil); err == nil {
		t.Fatal("expected error")
	}
	want := []string{"stage json", "discard json"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}
