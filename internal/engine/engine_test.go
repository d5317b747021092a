package engine

import (
	"errors"
	"math"
	"testing"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

const tol = 1e-12

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSimulateScenario(t *testing.T) {
	prices := []float64{100, 110, 99}
	signals := []domain.Signal{0, 1, 1}
	c := DefaultCostPerShare

	res, err := Simulate(prices, signals, c)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	wantPos := []float64{0, 0, 1}
	wantRet := []float64{0, 0.10, -0.10}
	wantStrat := []float64{0, 0, -0.10 - c}
	wantEq := []float64{1, 1, 1 - 0.10 - c}
	for i := range prices {
		if res.Positions[i] != wantPos[i] {
			t.Errorf("Positions[%d] = %v, want %v", i, res.Positions[i], wantPos[i])
		}
		if !approxEqual(res.Returns[i], wantRet[i]) {
			t.Errorf("Returns[%d] = %v, want %v", i, res.Returns[i], wantRet[i])
		}
		if !approxEqual(res.StrategyReturns[i], wantStrat[i]) {
			t.Errorf("StrategyReturns[%d] = %v, want %v", i, res.StrategyReturns[i], wantStrat[i])
		}
		if !approxEqual(res.Equity[i], wantEq[i]) {
			t.Errorf("Equity[%d] = %v, want %v", i, res.Equity[i], wantEq[i])
		}
	}
	if res.Equity[0] != 1.0 {
		t.Errorf("Equity[0] = %v, want exactly 1", res.Equity[0])
	}
	if got := res.Trades(); got != 1 {
		t.Errorf("Trades() = %d, want 1", got)
	}
}

func TestSimulateNoLookAhead(t *testing.T) {
	prices := []float64{10, 11, 12, 11, 10, 9, 10, 11}
	signals := []domain.Signal{1, -1, 0, 1, 1, -1, 0, 1}

	res, err := Simulate(prices, signals, 0)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if res.Positions[0] != 0 {
		t.Errorf("Positions[0] = %v, want 0", res.Positions[0])
	}
	for i := 1; i < len(signals); i++ {
		if res.Positions[i] != float64(signals[i-1]) {
			t.Errorf("Positions[%d] = %v, want signal[%d] = %v", i, res.Positions[i], i-1, signals[i-1])
		}
	}
}

func TestSimulateCosts(t *testing.T) {
	prices := []float64{50, 50, 50, 50, 50}
	signals := []domain.Signal{1, -1, -1, 0, 0}
	c := 0.001

	res, err := Simulate(prices, signals, c)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	// Positions [0 1 -1 -1 0]: changes of 1, 2, 0, 1.
	want := []float64{0, -c, -2 * c, 0, -c}
	for i := range want {
		if !approxEqual(res.StrategyReturns[i], want[i]) {
			t.Errorf("StrategyReturns[%d] = %v, want %v", i, res.StrategyReturns[i], want[i])
		}
	}
	if got := res.Trades(); got != 3 {
		t.Errorf("Trades() = %d, want 3", got)
	}
}

func TestSimulateUndefinedPrices(t *testing.T) {
	prices := []float64{100, 0, 50, math.NaN(), 60}
	signals := []domain.Signal{1, 1, 1, 1, 1}

	res, err := Simulate(prices, signals, 0)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for i, r := range res.Returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			t.Errorf("Returns[%d] = %v, want finite", i, r)
		}
	}
	// 100 -> 0 is a genuine -100% move; 0 -> 50 and anything touching NaN are undefined.
	want := []float64{0, -1, 0, 0, 0}
	for i := range want {
		if res.Returns[i] != want[i] {
			t.Errorf("Returns[%d] = %v, want %v", i, res.Returns[i], want[i])
		}
	}
	for i, e := range res.Equity {
		if math.IsNaN(e) || e < 0 {
			t.Errorf("Equity[%d] = %v, want finite and non-negative", i, e)
		}
	}
}

func TestSimulateEquityNeverNegative(t *testing.T) {
	// A short position through a tripling price loses 200%.
	prices := []float64{10, 10, 30, 15}
	signals := []domain.Signal{-1, -1, -1, 0}

	res, err := Simulate(prices, signals, 0)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	for i, e := range res.Equity {
		if e < 0 {
			t.Errorf("Equity[%d] = %v, want >= 0", i, e)
		}
	}
	if res.Equity[len(res.Equity)-1] != 0 {
		t.Errorf("final equity = %v, want 0 after ruin", res.Equity[len(res.Equity)-1])
	}
}

func TestSimulateShortSeries(t *testing.T) {
	res, err := Simulate(nil, nil, DefaultCostPerShare)
	if err != nil {
		t.Fatalf("Simulate(empty): %v", err)
	}
	if len(res.Equity) != 0 {
		t.Errorf("len(Equity) = %d, want 0", len(res.Equity))
	}

	res, err = Simulate([]float64{42}, []domain.Signal{1}, DefaultCostPerShare)
	if err != nil {
		t.Fatalf("Simulate(single): %v", err)
	}
	if res.Equity[0] != 1 || res.StrategyReturns[0] != 0 {
		t.Errorf("single period = (%v, %v), want (1, 0)", res.Equity[0], res.StrategyReturns[0])
	}
}

func TestSimulateInvalidInput(t *testing.T) {
	if _, err := Simulate([]float64{1, 2}, []domain.Signal{0}, 0); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("length mismatch: err = %v, want ErrInvalidInput", err)
	}
	if _, err := Simulate([]float64{1}, []domain.Signal{0}, -0.1); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("negative cost: err = %v, want ErrInvalidInput", err)
	}
}
