package engine

import (
	"fmt"
	"math"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

// SharpeLimit bounds the reported Sharpe ratio; short degenerate samples can
// otherwise produce arbitrarily large values.
const SharpeLimit = 10.0

// Sharpe returns the annualized Sharpe ratio of per-period returns.
//
//   - freq: return periods per year (e.g. 252*390 for one-minute bars).
//   - riskFree: annualized risk-free rate, de-annualized as riskFree/freq.
//
// NaN returns are ignored. The ratio is 0 when fewer than two defined
// returns remain, their standard deviation is zero, or freq is not positive.
func Sharpe(returns []float64, freq, riskFree float64) float64 {
	if freq <= 0 || math.IsNaN(freq) {
		return 0
	}

	var n, sum float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range returns {
		if math.IsNaN(r) {
			continue
		}
		n++
		sum += r
		lo, hi = math.Min(lo, r), math.Max(hi, r)
	}
	// Identical returns have zero variance even where the mean rounds.
	if n < 2 || lo == hi {
		return 0
	}
	mean := sum / n

	var ss float64
	for _, r := range returns {
		if math.IsNaN(r) {
			continue
		}
		ss += (r - mean) * (r - mean)
	}
	std := math.Sqrt(ss / (n - 1))
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return 0
	}

	s := (mean - riskFree/freq) / std * math.Sqrt(freq)
	if math.IsNaN(s) {
		return 0
	}
	return math.Max(-SharpeLimit, math.Min(SharpeLimit, s))
}

// MaxDrawdown returns the largest peak-to-trough decline of equity as a
// non-positive fraction (e.g. -0.25 for a 25% drawdown).
func MaxDrawdown(equity []float64) float64 {
	peak := math.Inf(-1)
	worst := 0.0
	for _, v := range equity {
		if math.IsNaN(v) {
			continue
		}
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := v/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

// CumulativeReturn returns the final equity value minus 1.
func CumulativeReturn(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	return equity[len(equity)-1] - 1.0
}

// Score computes all summary metrics for a simulated run.
func Score(returns, equity []float64, freq, riskFree float64) (domain.Metrics, error) {
	if len(returns) != len(equity) {
		return domain.Metrics{}, fmt.Errorf("returns length %d, equity length %d: %w",
			len(returns), len(equity), domain.ErrInvalidInput)
	}
	if freq <= 0 || math.IsNaN(freq) {
		return domain.Metrics{}, fmt.Errorf("frequency %v must be positive: %w", freq, domain.ErrInvalidInput)
	}
	return domain.Metrics{
		Sharpe:           Sharpe(returns, freq, riskFree),
		MaxDrawdown:      MaxDrawdown(equity),
		CumulativeReturn: CumulativeReturn(equity),
	}, nil
}
