// Package builtins provides the strategy implementations that ship with the
// engine.
package builtins

import (
	"github.com/Waknis/stat-arb-engine/internal/alpha"
	"github.com/Waknis/stat-arb-engine/internal/config"
	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*VWAPReversion)(nil)

// VWAPReversion fades deviations of Close from the cumulative VWAP once they
// exceed threshold rolling standard deviations.
type VWAPReversion struct {
	window    int
	threshold float64
}

// NewVWAPReversion creates a VWAPReversion with the given rolling window and
// z-score threshold.
func NewVWAPReversion(window int, threshold float64) *VWAPReversion {
	return &VWAPReversion{window: window, threshold: threshold}
}

// Name returns "vwap-reversion".
func (v *VWAPReversion) Name() string { return "vwap-reversion" }

// Generate delegates to alpha.MeanReversionSignal.
func (v *VWAPReversion) Generate(bars []domain.Bar) ([]domain.Signal, error) {
	return alpha.MeanReversionSignal(bars, v.window, v.threshold)
}

// Default SMA periods for the sma-cross strategy.
const (
	DefaultSMAShort = 10
	DefaultSMALong  = 30
)

// NewRegistry returns a Registry holding every built-in strategy, configured
// from the backtest section.
func NewRegistry(c config.BacktestConfig) *strategy.Registry {
	window := c.Window
	if window == 0 {
		window = alpha.DefaultWindow
	}
	reg := strategy.NewRegistry()
	reg.Register(NewVWAPReversion(window, c.Threshold))
	reg.Register(NewSMACross(DefaultSMAShort, max(DefaultSMALong, window)))
	return reg
}
