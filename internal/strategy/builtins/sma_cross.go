package builtins

import (
	"fmt"
	"math"

	"github.com/Waknis/stat-arb-engine/internal/alpha"
	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average trend filter on closes. It is
// long while the short-period SMA is above the long-period SMA and short
// while it is below.
type SMACross struct {
	shortPeriod int
	longPeriod  int
}

// NewSMACross creates a new SMACross strategy with the specified short and
// long moving average periods.
func NewSMACross(short, long int) *SMACross {
	return &SMACross{
		shortPeriod: short,
		longPeriod:  long,
	}
}

// Name returns "sma-cross".
func (s *SMACross) Name() string {
	return "sma-cross"
}

// Generate returns flat until both averages are defined, then the sign of
// short SMA minus long SMA.
func (s *SMACross) Generate(bars []domain.Bar) ([]domain.Signal, error) {
	if s.shortPeriod < 1 || s.longPeriod <= s.shortPeriod {
		return nil, fmt.Errorf("sma periods %d/%d: %w", s.shortPeriod, s.longPeriod, domain.ErrInvalidInput)
	}

	short := alpha.NewRolling(s.shortPeriod)
	long := alpha.NewRolling(s.longPeriod)
	out := make([]domain.Signal, len(bars))
	for i, b := range bars {
		short.Push(b.Close)
		long.Push(b.Close)

		fast, slow := short.Mean(), long.Mean()
		switch {
		case math.IsNaN(fast) || math.IsNaN(slow):
			out[i] = domain.SignalFlat
		case fast > slow:
			out[i] = domain.SignalLong
		case fast < slow:
			out[i] = domain.SignalShort
		default:
			out[i] = domain.SignalFlat
		}
	}
	return out, nil
}
