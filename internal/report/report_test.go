package report

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/store"
)

var sampleRows = []domain.Summary{
	{Ticker: "AAPL", Metrics: domain.Metrics{Sharpe: 1.234, MaxDrawdown: -0.0213, CumulativeReturn: 0.0105}, Bars: 1950, Trades: 42},
	{Ticker: "MSFT", Metrics: domain.Metrics{Sharpe: -0.5, MaxDrawdown: -0.05, CumulativeReturn: -0.031}, Bars: 1950, Trades: 17},
}

func TestFormatInt(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1234567, "1,234,567"},
		{-1950, "-1,950"},
	}
	for _, tt := range tests {
		if got := FormatInt(tt.n); got != tt.want {
			t.Errorf("FormatInt(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatMetrics(t *testing.T) {
	if got := FormatSharpe(1.234); got != "1.23" {
		t.Errorf("FormatSharpe(1.234) = %q, want 1.23", got)
	}
	if got := FormatPct(-0.0213); got != "-2.13%" {
		t.Errorf("FormatPct(-0.0213) = %q, want -2.13%%", got)
	}
	if got := FormatPct(-0.00001); got != "0.00%" {
		t.Errorf("FormatPct(-0.00001) = %q, want 0.00%%", got)
	}
	if got := FormatPct(math.NaN()); got != "-" {
		t.Errorf("FormatPct(NaN) = %q, want -", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	got := RenderMarkdown(sampleRows)
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("RenderMarkdown produced %d lines, want 4:\n%s", len(lines), got)
	}
	if lines[0] != "| ticker | sharpe | max_drawdown | cumulative_return |" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "|:-------|-------:|-------------:|------------------:|" {
		t.Errorf("separator = %q", lines[1])
	}
	if lines[2] != "| AAPL   |   1.23 |       -2.13% |             1.05% |" {
		t.Errorf("row 1 = %q", lines[2])
	}
	if lines[3] != "| MSFT   |  -0.50 |       -5.00% |            -3.10% |" {
		t.Errorf("row 2 = %q", lines[3])
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(sampleRows)
	for _, want := range []string{"TICKER", "SHARPE", "AAPL", "MSFT", "1.23", "-2.13%", "-3.10%", "1,950", "42"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderTable output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "AAPL") > strings.Index(out, "MSFT") {
		t.Error("RenderTable should keep row order")
	}
}

func TestRenderRuns(t *testing.T) {
	runs := []store.Run{{
		ID: "abc", Strategy: "vwap-reversion",
		Start:     time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Tickers:   3,
	}}
	out := RenderRuns(runs)
	for _, want := range []string{"abc", "vwap-reversion", "2024-03-04", "2024-03-08"} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderRuns output missing %q:\n%s", want, out)
		}
	}
}

func TestSortRows(t *testing.T) {
	rows := append([]domain.Summary(nil), sampleRows...)
	rows[0], rows[1] = rows[1], rows[0]

	if err := SortRows(rows, SortSharpe); err != nil {
		t.Fatalf("SortRows: %v", err)
	}
	if rows[0].Ticker != "AAPL" {
		t.Errorf("best Sharpe first: got %s", rows[0].Ticker)
	}
	if err := SortRows(rows, SortDD); err != nil || rows[0].Ticker != "AAPL" {
		t.Errorf("shallowest drawdown first: got %s, %v", rows[0].Ticker, err)
	}
	if err := SortRows(rows, SortTicker); err != nil || rows[1].Ticker != "MSFT" {
		t.Errorf("ticker order: got %v, %v", rows, err)
	}
	if err := SortRows(rows, "bogus"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("SortRows(bogus) = %v, want ErrInvalidInput", err)
	}
}
