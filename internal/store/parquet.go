package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

// Compile-time interface check.
var _ BarStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore using one Parquet file per symbol and
// trading day.
type ParquetStore struct {
	DataDir   string
	Timeframe string // e.g. "1min"; part of the on-disk layout
}

// NewParquetStore creates a new ParquetStore rooted at the given data
// directory for bars of the given timeframe.
func NewParquetStore(dataDir, timeframe string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir, Timeframe: timeframe}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// BarRecord is the Parquet schema for intraday bar data.
type BarRecord struct {
	Symbol     string  `parquet:"symbol"`
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Volume     float64 `parquet:"volume"`
	TradeCount int64   `parquet:"trade_count"`
	VWAP       float64 `parquet:"vwap"`
}

// SummaryRecord is the Parquet schema for exported backtest summaries.
type SummaryRecord struct {
	RunID            string  `parquet:"run_id"`
	Ticker           string  `parquet:"ticker"`
	Sharpe           float64 `parquet:"sharpe"`
	MaxDrawdown      float64 `parquet:"max_drawdown"`
	CumulativeReturn float64 `parquet:"cumulative_return"`
	Bars             int64   `parquet:"bars"`
	Trades           int64   `parquet:"trades"`
}

// ---------------------------------------------------------------------------
// BarStore implementation
// ---------------------------------------------------------------------------

// WriteBars writes bars to Parquet files organized by symbol and UTC date,
// merging with any bars already on disk.
func (s *ParquetStore) WriteBars(_ context.Context, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	type key struct {
		symbol string
		date   string // YYYY-MM-DD
	}
	groups := make(map[key][]BarRecord)
	for _, b := range bars {
		k := key{symbol: strings.ToUpper(b.Symbol), date: b.Timestamp.UTC().Format("2006-01-02")}
		groups[k] = append(groups[k], BarRecord{
			Symbol:     k.symbol,
			Timestamp:  b.Timestamp.UnixMilli(),
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			TradeCount: b.TradeCount,
			VWAP:       b.VWAP,
		})
	}

	for k, records := range groups {
		day, _ := time.Parse("2006-01-02", k.date)
		path := s.barPath(k.symbol, day)

		// Read existing records to merge.
		existing, _ := readParquetFile[BarRecord](path)
		merged := mergeBarRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%s: %w", k.symbol, k.date, err)
		}
	}
	return nil
}

// ReadBars reads bars for the given symbol in [start, end).
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	first := time.Date(start.UTC().Year(), start.UTC().Month(), start.UTC().Day(), 0, 0, 0, 0, time.UTC)
	for d := first; d.Before(end); d = d.AddDate(0, 0, 1) {
		records, err := readParquetFile[BarRecord](s.barPath(symbol, d))
		if err != nil {
			// No file for this day.
			continue
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || !ts.Before(end) {
				continue
			}
			bars = append(bars, domain.Bar{
				Symbol:     r.Symbol,
				Timestamp:  ts,
				Open:       r.Open,
				High:       r.High,
				Low:        r.Low,
				Close:      r.Close,
				Volume:     r.Volume,
				TradeCount: r.TradeCount,
				VWAP:       r.VWAP,
			})
		}
	}
	return bars, nil
}

// ListSymbols lists all symbols that have cached bars for this timeframe.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.DataDir, "bars", s.Timeframe))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// ---------------------------------------------------------------------------
// Summary export
// ---------------------------------------------------------------------------

// WriteSummaries writes summary rows of a run to a single Parquet file at
// path, replacing any existing file.
func WriteSummaries(path, runID string, rows []domain.Summary) error {
	records := make([]SummaryRecord, len(rows))
	for i, r := range rows {
		records[i] = SummaryRecord{
			RunID:            runID,
			Ticker:           r.Ticker,
			Sharpe:           r.Sharpe,
			MaxDrawdown:      r.MaxDrawdown,
			CumulativeReturn: r.CumulativeReturn,
			Bars:             int64(r.Bars),
			Trades:           int64(r.Trades),
		}
	}
	return writeParquetFile(path, records)
}

// ReadSummaries reads a file written by WriteSummaries.
func ReadSummaries(path string) ([]domain.Summary, error) {
	records, err := readParquetFile[SummaryRecord](path)
	if err != nil {
		return nil, err
	}
	rows := make([]domain.Summary, len(records))
	for i, r := range records {
		rows[i] = domain.Summary{
			Ticker: r.Ticker,
			Metrics: domain.Metrics{
				Sharpe:           r.Sharpe,
				MaxDrawdown:      r.MaxDrawdown,
				CumulativeReturn: r.CumulativeReturn,
			},
			Bars:   int(r.Bars),
			Trades: int(r.Trades),
		}
	}
	return rows, nil
}

// ---------------------------------------------------------------------------
// Path helpers
// ---------------------------------------------------------------------------

// barPath returns the filesystem path for a bar Parquet file.
// Layout: <dataDir>/bars/<timeframe>/<SYMBOL>/<YYYY-MM-DD>.parquet
func (s *ParquetStore) barPath(symbol string, t time.Time) string {
	date := t.UTC().Format("2006-01-02")
	return filepath.Join(s.DataDir, "bars", s.Timeframe, strings.ToUpper(symbol), date+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeBarRecords deduplicates bar records by (symbol, timestamp), preferring
// new records over existing ones. Results are sorted by timestamp.
func mergeBarRecords(existing, incoming []BarRecord) []BarRecord {
	type key struct {
		symbol string
		ts     int64
	}
	seen := make(map[key]BarRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[key{r.Symbol, r.Timestamp}] = r
	}
	for _, r := range incoming {
		seen[key{r.Symbol, r.Timestamp}] = r
	}

	merged := make([]BarRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	return merged
}
