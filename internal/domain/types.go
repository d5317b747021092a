// Package domain defines the core value types shared by the signal, simulation,
// scoring and data acquisition layers.
package domain

import (
	"errors"
	"time"
)

// Market identifies the exchange venue a symbol trades on.
type Market string

const (
	MarketUS Market = "us"
)

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// ErrInvalidInput reports a structural contract violation: misaligned series,
// out-of-order timestamps, or out-of-range parameters. Numerically degenerate
// but well-formed input never produces it.
var ErrInvalidInput = errors.New("invalid input")

// ErrNoData reports that a data source returned no bars for the requested
// symbol and range.
var ErrNoData = errors.New("no data")

// ---------------------------------------------------------------------------
// Market data
// ---------------------------------------------------------------------------

// Bar is one OHLCV record for a fixed time interval.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	TradeCount int64
	VWAP       float64 // interval VWAP as reported by the feed
}

// Closes returns the Close column of bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Close
	}
	return out
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

// Signal is a discrete directional view for one bar.
type Signal int8

const (
	SignalShort Signal = -1
	SignalFlat  Signal = 0
	SignalLong  Signal = 1
)

// String returns "long", "short" or "flat".
func (s Signal) String() string {
	switch s {
	case SignalLong:
		return "long"
	case SignalShort:
		return "short"
	default:
		return "flat"
	}
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Metrics holds the risk-adjusted scores of a single simulated equity curve.
type Metrics struct {
	Sharpe           float64
	MaxDrawdown      float64 // always <= 0
	CumulativeReturn float64
}

// Summary is the per-instrument result row of a backtest run.
type Summary struct {
	Ticker string
	Metrics
	Bars   int // bars evaluated
	Trades int // position changes
}
