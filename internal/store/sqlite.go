package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Waknis/stat-arb-engine/internal/domain"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ SummaryStore = (*SQLiteStore)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	strategy   TEXT NOT NULL,
	start_ms   INTEGER NOT NULL,
	end_ms     INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	tickers    INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS summaries (
	run_id            TEXT NOT NULL REFERENCES runs(id),
	seq               INTEGER NOT NULL,
	ticker            TEXT NOT NULL,
	sharpe            REAL NOT NULL,
	max_drawdown      REAL NOT NULL,
	cumulative_return REAL NOT NULL,
	bars              INTEGER NOT NULL,
	trades            INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// SQLiteStore implements SummaryStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns
// a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// A single connection keeps writers serialized.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// SummaryStore implementation
// ---------------------------------------------------------------------------

// SaveRun inserts a run and its summary rows in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run, rows []domain.Summary) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, strategy, start_ms, end_ms, created_at, tickers) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.Start.UnixMilli(), run.End.UnixMilli(), run.CreatedAt.UnixMilli(), len(rows))
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO summaries (run_id, seq, ticker, sharpe, max_drawdown, cumulative_return, bars, trades)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range rows {
		if _, err := stmt.ExecContext(ctx, run.ID, i, r.Ticker, r.Sharpe, r.MaxDrawdown,
			r.CumulativeReturn, r.Bars, r.Trades); err != nil {
			return fmt.Errorf("inserting summary %s: %w", r.Ticker, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, strategy, start_ms, end_ms, created_at, tickers
		 FROM runs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                         Run
			startMs, endMs, createdMs int64
		)
		if err := rows.Scan(&r.ID, &r.Strategy, &startMs, &endMs, &createdMs, &r.Tickers); err != nil {
			return nil, err
		}
		r.Start = time.UnixMilli(startMs).UTC()
		r.End = time.UnixMilli(endMs).UTC()
		r.CreatedAt = time.UnixMilli(createdMs).UTC()
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListSummaries returns the summary rows of a run. An unknown run ID yields
// domain.ErrNoData.
func (s *SQLiteStore) ListSummaries(ctx context.Context, runID string) ([]domain.Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ticker, sharpe, max_drawdown, cumulative_return, bars, trades
		 FROM summaries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Summary
	for rows.Next() {
		var r domain.Summary
		if err := rows.Scan(&r.Ticker, &r.Sharpe, &r.MaxDrawdown, &r.CumulativeReturn, &r.Bars, &r.Trades); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		var n int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&n); err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("run %s: %w", runID, domain.ErrNoData)
		}
	}
	return out, nil
}
