package us

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/gather"
	"github.com/Waknis/stat-arb-engine/internal/util"
)

// ---------------------------------------------------------------------------
// Compile-time interface checks
// ---------------------------------------------------------------------------

var _ gather.BarSource = (*AlpacaSource)(nil)

// ---------------------------------------------------------------------------
// AlpacaSource: intraday bars from the Alpaca market-data API.
// ---------------------------------------------------------------------------

// AlpacaOptions configures an AlpacaSource.
type AlpacaOptions struct {
	APIKey     string
	APISecret  string
	DataURL    string // empty for the SDK default
	Feed       string // "sip" or "iex"
	BarMinutes int
	Adjustment string // "raw", "split", "dividend" or "all"
	MaxRetries int
	RetryDelay time.Duration
}

// AlpacaSource fetches minute bars for one symbol at a time via the Alpaca
// market-data API.
type AlpacaSource struct {
	client     *marketdata.Client
	timeframe  marketdata.TimeFrame
	feed       marketdata.Feed
	adjustment marketdata.Adjustment
	maxRetries int
	retryDelay time.Duration
	log        *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource from opts, filling defaults for
// zero values.
func NewAlpacaSource(opts AlpacaOptions) *AlpacaSource {
	clientOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		clientOpts.BaseURL = opts.DataURL
	}

	feed := opts.Feed
	if feed == "" {
		feed = marketdata.IEX
	}
	adj := marketdata.Adjustment(opts.Adjustment)
	if adj == "" {
		adj = marketdata.All
	}

	return &AlpacaSource{
		client:     marketdata.NewClient(clientOpts),
		timeframe:  marketdata.NewTimeFrame(max(opts.BarMinutes, 1), marketdata.Min),
		feed:       feed,
		adjustment: adj,
		maxRetries: max(opts.MaxRetries, 1),
		retryDelay: opts.RetryDelay,
		log:        slog.Default().With("source", "alpaca"),
	}
}

// Name returns the source identifier.
func (s *AlpacaSource) Name() string { return "alpaca" }

// FetchBars fetches bars for symbol within r, retrying transient failures.
func (s *AlpacaSource) FetchBars(ctx context.Context, symbol string, r gather.DateRange) ([]domain.Bar, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)

	var raw []marketdata.Bar
	err := util.Retry(ctx, s.maxRetries, s.retryDelay, func() error {
		var err error
		raw, err = s.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame:  s.timeframe,
			Adjustment: s.adjustment,
			Start:      r.Start,
			End:        r.End,
			Feed:       s.feed,
		})
		if err != nil {
			s.log.Warn("GetBars failed", "symbol", symbol, "err", err)
		}
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("GetBars %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, ab := range raw {
		bars = append(bars, domain.Bar{
			Symbol:     symbol,
			Timestamp:  ab.Timestamp.UTC(),
			Open:       ab.Open,
			High:       ab.High,
			Low:        ab.Low,
			Close:      ab.Close,
			Volume:     float64(ab.Volume),
			TradeCount: int64(ab.TradeCount),
			VWAP:       ab.VWAP,
		})
	}
	bars = gather.NormalizeBars(bars, r)
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, r, domain.ErrNoData)
	}

	s.log.Debug("fetched", "symbol", symbol, "bars", len(bars))
	return bars, nil
}
