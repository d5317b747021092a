// Package store defines storage interfaces for caching bars and recording
// backtest results.
package store

import (
	"context"
	"time"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

// BarStore persists and retrieves intraday OHLCV bars.
type BarStore interface {
	// WriteBars persists a batch of bars to storage, replacing bars that
	// share a symbol and timestamp.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol within [start, end),
	// ordered by timestamp.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in storage.
	ListSymbols(ctx context.Context) ([]string, error)
}

// Run describes one recorded backtest invocation.
type Run struct {
	ID        string
	Strategy  string
	Start     time.Time
	End       time.Time
	CreatedAt time.Time
	Tickers   int
}

// SummaryStore records backtest runs and their per-ticker summary rows.
type SummaryStore interface {
	// SaveRun inserts a run together with its summary rows.
	SaveRun(ctx context.Context, run Run, rows []domain.Summary) error

	// ListRuns returns the most recent runs, newest first, up to limit.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	// ListSummaries returns the summary rows of a run in ticker order of
	// insertion.
	ListSummaries(ctx context.Context, runID string) ([]domain.Summary, error)
}
