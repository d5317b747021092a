package us

import (
	"fmt"
	"time"

	"github.com/Waknis/stat-arb-engine/internal/config"
	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/gather"
	"github.com/Waknis/stat-arb-engine/internal/util"
)

// NewSource builds the upstream BarSource named by feed ("alpaca" or
// "polygon") from cfg.
func NewSource(cfg *config.Config, feed string) (gather.BarSource, error) {
	switch feed {
	case "alpaca":
		return NewAlpacaSource(AlpacaOptions{
			APIKey:     cfg.Alpaca.APIKey,
			APISecret:  cfg.Alpaca.APISecret,
			DataURL:    cfg.Alpaca.DataURL,
			Feed:       cfg.Alpaca.Feed,
			BarMinutes: cfg.Backtest.BarMinutes,
			MaxRetries: cfg.Gather.MaxRetries,
			RetryDelay: time.Second,
		}), nil
	case "polygon":
		return NewPolygonSource(PolygonOptions{
			APIKey:          cfg.Polygon.APIKey,
			BaseURL:         cfg.Polygon.BaseURL,
			BarMinutes:      cfg.Backtest.BarMinutes,
			RateLimitPerMin: cfg.Polygon.RateLimitPerMin,
			MaxRetries:      cfg.Gather.MaxRetries,
			RetryDelay:      time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown feed %q (want alpaca or polygon)", feed)
	}
}

// Timeframe returns the on-disk cache directory name for bars of the given
// size, e.g. "1min".
func Timeframe(barMinutes int) string {
	return fmt.Sprintf("%dmin", max(barMinutes, 1))
}

// DefaultEnd returns the last finished trading day from the Alpaca calendar
// when credentials are configured, and otherwise the date of the last
// weekday session close (holidays are not known offline).
func DefaultEnd(cfg *config.Config, now time.Time) time.Time {
	if cfg.Alpaca.APIKey != "" && cfg.Alpaca.APISecret != "" {
		cal := NewSessionCalendar(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL)
		if day, err := cal.LatestFinishedTradingDay(now); err == nil {
			return day
		}
	}
	cl := util.NewTradingCalendar(domain.MarketUS).LastClose(now)
	return time.Date(cl.Year(), cl.Month(), cl.Day(), 0, 0, 0, 0, time.UTC)
}
