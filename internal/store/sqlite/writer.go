package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"klinefeed/internal/model"
	"klinefeed/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/klines.db"
}

// Writer is a single-connection SQLite candle sink.
// Prices are stored as decimal strings so no precision is lost.
type Writer struct {
	db   *sql.DB
	path string
}

// New opens the database with WAL mode and creates the schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db, path: cfg.DBPath}, nil
}

func open(path string) (*sql.DB, error) {
	return sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS klines (
			symbol     TEXT    NOT NULL,
			interval   TEXT    NOT NULL,
			open_time  INTEGER NOT NULL,
			open       TEXT    NOT NULL,
			high       TEXT    NOT NULL,
			low        TEXT    NOT NULL,
			close      TEXT    NOT NULL,
			volume     TEXT,
			close_time INTEGER,
			PRIMARY KEY (symbol, interval, open_time)
		);
	`)
	return err
}

func (w *Writer) Name() string { return "sqlite" }

// WriteCandles upserts the whole sequence in a single transaction, keyed by
// (symbol, interval, open_time). Either every candle is stored or none is.
func (w *Writer) WriteCandles(ctx context.Context, q model.KlineQuery, candles []model.Candle) error {
	st, err := w.Stage(ctx, q, candles)
	if err != nil {
		return err
	}
	return st.Commit()
}

// Stage runs the upserts inside an open transaction. Nothing is visible to
// readers until Commit; Discard rolls back.
func (w *Writer) Stage(ctx context.Context, q model.KlineQuery, candles []model.Candle) (store.Staged, error) {
	start := time.Now()
	tx, err := w.insertBatch(ctx, q, candles)
	if err != nil {
		return nil, w.fail(err)
	}
	return &stagedTx{w: w, tx: tx, q: q, n: len(candles), start: start}, nil
}

type stagedTx struct {
	w     *Writer
	tx    *sql.Tx
	q     model.KlineQuery
	n     int
	start time.Time
}

func (s *stagedTx) Commit() error {
	if err := s.tx.Commit(); err != nil {
		return s.w.fail(err)
	}
	log.Printf("[sqlite] committed %d %s candles in %v", s.n, s.q.Key(), time.Since(s.start))
	return nil
}

func (s *stagedTx) Discard() {
	s.tx.Rollback()
}

func (w *Writer) fail(err error) error {
	return &store.WriteError{Sink: w.Name(), Target: w.path, Err: err}
}

// insertBatch inserts a batch of candles into a new transaction and returns
// it uncommitted. The transaction is rolled back on error.
func (w *Writer) insertBatch(ctx context.Context, q model.KlineQuery, candles []model.Candle) (*sql.Tx, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO klines (symbol, interval, open_time, open, high, low, close, volume, close_time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer stmt.Close()

	for _, c := range candles {
		var volume, closeTime any
		if c.Volume.Valid {
			volume = c.Volume.Decimal.String()
		}
		if c.CloseTime != 0 {
			closeTime = c.CloseTime
		}
		_, err := stmt.ExecContext(ctx, q.Symbol, q.Interval, c.OpenTime,
			c.Open.String(), c.High.String(), c.Low.String(), c.Close.String(), volume, closeTime)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	return tx, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}
