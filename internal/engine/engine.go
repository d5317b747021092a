// Package engine turns a signal series into a simulated equity curve and
// scores the curve with risk-adjusted performance metrics.
package engine

import (
	"fmt"
	"math"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

// DefaultCostPerShare is the transaction cost charged per unit of position
// change (5 basis points).
const DefaultCostPerShare = 0.0005

// SimResult holds the per-period series produced by Simulate. Every slice has
// the length of the input price series.
type SimResult struct {
	Positions       []float64
	Returns         []float64 // price returns
	StrategyReturns []float64
	Equity          []float64
}

// Trades returns the number of periods in which the position changed.
func (r *SimResult) Trades() int {
	n := 0
	prev := 0.0
	for _, p := range r.Positions {
		if p != prev {
			n++
		}
		prev = p
	}
	return n
}

// Simulate fills each signal one bar later and compounds the resulting
// strategy returns into an equity curve that starts from 1.0.
//
// The position held during period t is signals[t-1]; the first period is
// always flat. Each change in position costs |delta| * costPerShare.
func Simulate(prices []float64, signals []domain.Signal, costPerShare float64) (*SimResult, error) {
	if len(prices) != len(signals) {
		return nil, fmt.Errorf("prices length %d, signals length %d: %w",
			len(prices), len(signals), domain.ErrInvalidInput)
	}
	if math.IsNaN(costPerShare) || costPerShare < 0 {
		return nil, fmt.Errorf("cost per share %v: %w", costPerShare, domain.ErrInvalidInput)
	}

	n := len(prices)
	res := &SimResult{
		Positions:       make([]float64, n),
		Returns:         make([]float64, n),
		StrategyReturns: make([]float64, n),
		Equity:          make([]float64, n),
	}

	equity := 1.0
	prevPos := 0.0
	for t := 0; t < n; t++ {
		pos := 0.0
		if t > 0 {
			pos = float64(signals[t-1])
			res.Returns[t] = pctChange(prices[t-1], prices[t])
		}

		r := pos*res.Returns[t] - math.Abs(pos-prevPos)*costPerShare
		res.Positions[t] = pos
		res.StrategyReturns[t] = r

		// Equity is absorbed at zero rather than flipping sign.
		equity *= math.Max(0, 1+r)
		res.Equity[t] = equity
		prevPos = pos
	}
	return res, nil
}

// pctChange returns cur/prev - 1, or 0 when the change is undefined.
func pctChange(prev, cur float64) float64 {
	if prev <= 0 || math.IsNaN(prev) || math.IsInf(prev, 0) || math.IsNaN(cur) || math.IsInf(cur, 0) {
		return 0
	}
	r := cur/prev - 1
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
