package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

func TestSharpeHandComputed(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, 0}
	// mean 0.005, sample std sqrt(500e-6/3)
	std := math.Sqrt(500e-6 / 3)

	got := Sharpe(returns, 252, 0)
	want := 0.005 / std * math.Sqrt(252)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Sharpe(rf=0) = %v, want %v", got, want)
	}

	got = Sharpe(returns, 252, 0.05)
	want = (0.005 - 0.05/252) / std * math.Sqrt(252)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Sharpe(rf=0.05) = %v, want %v", got, want)
	}
}

func TestSharpeClamped(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.02, 0}
	if got := Sharpe(returns, 252*390, 0); got != SharpeLimit {
		t.Errorf("Sharpe = %v, want clamp at %v", got, SharpeLimit)
	}
	neg := []float64{-0.01, 0.01, -0.02, 0}
	if got := Sharpe(neg, 252*390, 0); got != -SharpeLimit {
		t.Errorf("Sharpe = %v, want clamp at %v", got, -SharpeLimit)
	}
}

func TestSharpeDegenerate(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name    string
		returns []float64
		freq    float64
	}{
		{"empty", nil, 252},
		{"single", []float64{0.01}, 252},
		{"all undefined", []float64{nan, nan, nan}, 252},
		{"zero variance", []float64{0, 0, 0, 0}, 252},
		{"constant non-zero", []float64{0.001, 0.001, 0.001, 0.001, 0.001, 0.001, 0.001}, 98280},
		{"zero freq", []float64{0.01, -0.02}, 0},
	}
	for _, tt := range tests {
		if got := Sharpe(tt.returns, tt.freq, 0); got != 0 {
			t.Errorf("%s: Sharpe = %v, want 0", tt.name, got)
		}
	}
}

func TestSharpeSkipsUndefined(t *testing.T) {
	a := Sharpe([]float64{0.01, math.NaN(), -0.01, 0.02, 0}, 252, 0)
	b := Sharpe([]float64{0.01, -0.01, 0.02, 0}, 252, 0)
	if a != b {
		t.Errorf("Sharpe with NaN = %v, without = %v, want equal", a, b)
	}
}

func TestMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		equity []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"flat", []float64{1, 1, 1}, 0},
		{"non-decreasing", []float64{1, 1.01, 1.01, 1.2}, 0},
		{"two dips", []float64{1, 1.2, 0.9, 1.3, 1.04}, -0.25},
		{"ruin", []float64{1, 0.5, 0}, -1},
	}
	for _, tt := range tests {
		got := MaxDrawdown(tt.equity)
		if math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("%s: MaxDrawdown = %v, want %v", tt.name, got, tt.want)
		}
		if got > 0 {
			t.Errorf("%s: MaxDrawdown = %v, want <= 0", tt.name, got)
		}
	}
}

func TestCumulativeReturn(t *testing.T) {
	curves := [][]float64{
		{1, 1.1, 0.95},
		{1},
		{1, 2, 3.5},
		{1, 0.4},
	}
	for _, eq := range curves {
		if got, want := CumulativeReturn(eq), eq[len(eq)-1]-1.0; got != want {
			t.Errorf("CumulativeReturn(%v) = %v, want %v", eq, got, want)
		}
	}
	if got := CumulativeReturn(nil); got != 0 {
		t.Errorf("CumulativeReturn(nil) = %v, want 0", got)
	}
}

func TestScore(t *testing.T) {
	res, err := Simulate([]float64{100, 110, 99}, []domain.Signal{0, 1, 1}, DefaultCostPerShare)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	m, err := Score(res.StrategyReturns, res.Equity, 252*390, 0)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if m.CumulativeReturn != res.Equity[2]-1.0 {
		t.Errorf("CumulativeReturn = %v, want %v", m.CumulativeReturn, res.Equity[2]-1.0)
	}
	if math.Abs(m.MaxDrawdown-(-0.10-DefaultCostPerShare)) > 1e-12 {
		t.Errorf("MaxDrawdown = %v, want %v", m.MaxDrawdown, -0.10-DefaultCostPerShare)
	}
	// Two zeros and one loss: negative mean, clamped after annualization.
	if m.Sharpe != -SharpeLimit {
		t.Errorf("Sharpe = %v, want %v", m.Sharpe, -SharpeLimit)
	}

	if _, err := Score([]float64{0}, []float64{1, 1}, 252, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("length mismatch: err = %v, want ErrInvalidInput", err)
	}
	if _, err := Score([]float64{0}, []float64{1}, 0, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("zero freq: err = %v, want ErrInvalidInput", err)
	}
}
