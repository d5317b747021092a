// Package alpha computes the VWAP mean-reversion signal from a bar series.
//
// Every function is pure: output is aligned one-to-one with the input bars
// and depends on nothing but the arguments. Undefined points are carried as
// NaN and resolved to a flat signal at classification time.
package alpha

import (
	"fmt"
	"math"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

const (
	DefaultWindow    = 30
	DefaultThreshold = 1.0
)

// VWAP returns the cumulative volume-weighted average price through each bar,
// sum(Close*Volume)/sum(Volume). Points where cumulative volume is still zero
// are NaN. A bar whose Close is not a positive finite price contributes
// neither price nor volume; the reference carries over it.
//
// The ratio is carried as a running weighted mean so a run of equal closes
// reproduces that close exactly.
func VWAP(bars []domain.Bar) []float64 {
	out := make([]float64, len(bars))
	var vwap, vol float64
	for i, b := range bars {
		if b.Volume > 0 && definedPrice(b.Close) {
			vol += b.Volume
			vwap += (b.Volume / vol) * (b.Close - vwap)
		}
		if vol == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = vwap
	}
	return out
}

// Deviation returns Close minus the cumulative VWAP for each bar. Bars with
// an undefined Close have an undefined deviation.
func Deviation(bars []domain.Bar) []float64 {
	ref := VWAP(bars)
	out := make([]float64, len(bars))
	for i, b := range bars {
		if math.IsNaN(ref[i]) || !definedPrice(b.Close) {
			out[i] = math.NaN()
			continue
		}
		out[i] = b.Close - ref[i]
	}
	return out
}

// ZScore returns the rolling z-score of series over a trailing window.
// The first window-1 points, windows containing an undefined value and
// zero-variance windows are NaN.
func ZScore(series []float64, window int) []float64 {
	out := make([]float64, len(series))
	r := NewRolling(window)
	for i, x := range series {
		r.Push(x)
		mean, std := r.Mean(), r.Std()
		if math.IsNaN(x) || math.IsNaN(mean) || math.IsNaN(std) || std == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (x - mean) / std
	}
	return out
}

// Classify maps a z-score to a signal. Only a strict breach of the threshold
// opens a view; NaN is flat.
func Classify(z, threshold float64) domain.Signal {
	switch {
	case math.IsNaN(z):
		return domain.SignalFlat
	case z < -threshold:
		return domain.SignalLong
	case z > threshold:
		return domain.SignalShort
	default:
		return domain.SignalFlat
	}
}

// MeanReversionSignal goes long when Close sits more than threshold rolling
// standard deviations below its VWAP deviation trend, short when above, and
// flat otherwise. Fewer bars than window yields an all-flat series.
func MeanReversionSignal(bars []domain.Bar, window int, threshold float64) ([]domain.Signal, error) {
	if err := validate(bars, window, threshold); err != nil {
		return nil, err
	}

	z := ZScore(Deviation(bars), window)
	out := make([]domain.Signal, len(bars))
	for i := range z {
		out[i] = Classify(z[i], threshold)
	}
	return out, nil
}

func definedPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 1)
}

func validate(bars []domain.Bar, window int, threshold float64) error {
	if window < 2 {
		return fmt.Errorf("window %d must be at least 2: %w", window, domain.ErrInvalidInput)
	}
	if math.IsNaN(threshold) || threshold < 0 {
		return fmt.Errorf("threshold %v must be non-negative: %w", threshold, domain.ErrInvalidInput)
	}
	for i, b := range bars {
		if math.IsNaN(b.Volume) || b.Volume < 0 {
			return fmt.Errorf("bar %d volume %v: %w", i, b.Volume, domain.ErrInvalidInput)
		}
		if i > 0 && !b.Timestamp.After(bars[i-1].Timestamp) {
			return fmt.Errorf("bar %d timestamp %s not after %s: %w",
				i, b.Timestamp.Format("2006-01-02 15:04:05"),
				bars[i-1].Timestamp.Format("2006-01-02 15:04:05"), domain.ErrInvalidInput)
		}
	}
	return nil
}
