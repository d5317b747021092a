package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Waknis/stat-arb-engine/internal/config"
	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/engine"
	"github.com/Waknis/stat-arb-engine/internal/gather"
	"github.com/Waknis/stat-arb-engine/internal/store"
	"github.com/Waknis/stat-arb-engine/internal/util"
)

// Params holds the simulation and scoring settings shared by every ticker of
// a run.
type Params struct {
	CostPerShare     float64
	RiskFreeRate     float64
	PeriodsPerYear   float64 // 0 derives it from BarMinutes
	BarMinutes       int
	RegularHoursOnly bool
	MaxWorkers       int
}

// ParamsFromConfig extracts Params from the backtest configuration section.
func ParamsFromConfig(c config.BacktestConfig) Params {
	return Params{
		CostPerShare:     c.CostPerShare,
		RiskFreeRate:     c.RiskFreeRate,
		PeriodsPerYear:   c.PeriodsPerYear,
		BarMinutes:       c.BarMinutes,
		RegularHoursOnly: c.RegularHoursOnly,
		MaxWorkers:       c.MaxWorkers,
	}
}

// Freq returns the annualization factor used for the Sharpe ratio.
func (p Params) Freq() float64 {
	if p.PeriodsPerYear > 0 {
		return p.PeriodsPerYear
	}
	return util.AnnualizationFactor(max(p.BarMinutes, 1))
}

// Backtester runs a strategy over historical bars per ticker: fetch, signal,
// simulate, score.
type Backtester struct {
	source    gather.BarSource
	registry  *Registry
	params    Params
	calendar  *util.TradingCalendar
	summaries store.SummaryStore
	log       *slog.Logger
}

// NewBacktester creates a Backtester that reads bars from source and looks up
// strategies in the provided registry.
func NewBacktester(source gather.BarSource, registry *Registry, params Params) *Backtester {
	return &Backtester{
		source:   source,
		registry: registry,
		params:   params,
		calendar: util.NewTradingCalendar(domain.MarketUS),
		log:      slog.Default().With("component", "backtest"),
	}
}

// WithSummaryStore records every completed run in s.
func (bt *Backtester) WithSummaryStore(s store.SummaryStore) *Backtester {
	bt.summaries = s
	return bt
}

// Run executes the named strategy for each symbol over r and returns one
// Summary per successful ticker in input order. Failed tickers do not stop
// the others; their errors are joined into the returned error.
func (bt *Backtester) Run(ctx context.Context, strategyName string, symbols []string, r gather.DateRange) ([]domain.Summary, error) {
	_, rows, err := bt.RunWithID(ctx, strategyName, symbols, r)
	return rows, err
}

// RunWithID behaves like Run and also returns the run ID under which the
// results were recorded. The ID is empty when no SummaryStore is attached or
// nothing succeeded.
func (bt *Backtester) RunWithID(ctx context.Context, strategyName string, symbols []string, r gather.DateRange) (string, []domain.Summary, error) {
	strat, ok := bt.registry.Get(strategyName)
	if !ok {
		return "", nil, fmt.Errorf("unknown strategy %q (have %s): %w",
			strategyName, strings.Join(bt.registry.List(), ", "), domain.ErrInvalidInput)
	}
	symbols = normalizeSymbols(symbols)
	if len(symbols) == 0 {
		return "", nil, fmt.Errorf("no symbols: %w", domain.ErrInvalidInput)
	}
	if err := r.Validate(); err != nil {
		return "", nil, err
	}

	var (
		results  = make([]domain.Summary, len(symbols))
		errs     = make([]error, len(symbols))
		runStart = time.Now()
	)

	bt.log.Info("starting run",
		"strategy", strategyName,
		"source", bt.source.Name(),
		"symbols", len(symbols),
		"range", r.String(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(bt.params.MaxWorkers, 1))
	for i, sym := range symbols {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = fmt.Errorf("%s: %w", sym, err)
				return nil
			}
			summary, _, err := bt.RunSymbol(gctx, strat, sym, r)
			if err != nil {
				bt.log.Error("ticker failed", "symbol", sym, "err", err)
				errs[i] = fmt.Errorf("%s: %w", sym, err)
				return nil
			}
			bt.log.Info("ticker done",
				"symbol", sym,
				"bars", summary.Bars,
				"sharpe", summary.Sharpe,
				"elapsed", time.Since(runStart).Round(time.Millisecond),
			)
			results[i] = summary
			return nil
		})
	}
	_ = g.Wait()

	rows := make([]domain.Summary, 0, len(symbols))
	for i := range symbols {
		if errs[i] == nil {
			rows = append(rows, results[i])
		}
	}
	runErr := errors.Join(errs...)

	var runID string
	if bt.summaries != nil && len(rows) > 0 {
		runID = uuid.NewString()
		run := store.Run{
			ID:        runID,
			Strategy:  strategyName,
			Start:     r.Start,
			End:       r.End,
			CreatedAt: time.Now(),
		}
		if err := bt.summaries.SaveRun(ctx, run, rows); err != nil {
			runID = ""
			runErr = errors.Join(runErr, fmt.Errorf("saving run: %w", err))
		}
	}

	bt.log.Info("run complete",
		"run", runID,
		"succeeded", len(rows),
		"failed", len(symbols)-len(rows),
		"elapsed", time.Since(runStart).Round(time.Millisecond),
	)
	return runID, rows, runErr
}

// RunSymbol runs the full pipeline for one ticker and returns its Summary and
// the simulated curves.
func (bt *Backtester) RunSymbol(ctx context.Context, strat Strategy, symbol string, r gather.DateRange) (domain.Summary, *engine.SimResult, error) {
	bars, err := bt.source.FetchBars(ctx, symbol, r)
	if err != nil {
		return domain.Summary{}, nil, fmt.Errorf("fetching bars: %w", err)
	}
	if bt.params.RegularHoursOnly {
		bars = bt.calendar.FilterSession(bars)
	}
	if len(bars) == 0 {
		return domain.Summary{}, nil, fmt.Errorf("%s %s: %w", symbol, r, domain.ErrNoData)
	}
	return bt.Evaluate(strat, symbol, bars)
}

// Evaluate scores strat on an already fetched bar series.
func (bt *Backtester) Evaluate(strat Strategy, symbol string, bars []domain.Bar) (domain.Summary, *engine.SimResult, error) {
	signals, err := strat.Generate(bars)
	if err != nil {
		return domain.Summary{}, nil, fmt.Errorf("generating signals: %w", err)
	}

	sim, err := engine.Simulate(domain.Closes(bars), signals, bt.params.CostPerShare)
	if err != nil {
		return domain.Summary{}, nil, fmt.Errorf("simulating: %w", err)
	}

	metrics, err := engine.Score(sim.StrategyReturns, sim.Equity, bt.params.Freq(), bt.params.RiskFreeRate)
	if err != nil {
		return domain.Summary{}, nil, fmt.Errorf("scoring: %w", err)
	}

	return domain.Summary{
		Ticker:  symbol,
		Metrics: metrics,
		Bars:    len(bars),
		Trades:  sim.Trades(),
	}, sim, nil
}

// normalizeSymbols upper-cases, trims and de-duplicates symbols, keeping the
// first occurrence.
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
