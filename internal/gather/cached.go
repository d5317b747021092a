package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/store"
)

var _ BarSource = (*CachedSource)(nil)

// CachedSource is a read-through cache in front of an upstream BarSource.
// The store is consulted one UTC day at a time; runs of days with no cached
// bars are fetched from the upstream and written back, and the result is the
// cached and fetched bars merged over the requested range.
type CachedSource struct {
	upstream BarSource
	store    store.BarStore
	refresh  bool
	log      *slog.Logger
}

// NewCachedSource wraps upstream with the given store. When refresh is true
// the cache is never read, only written.
func NewCachedSource(upstream BarSource, s store.BarStore, refresh bool) *CachedSource {
	return &CachedSource{
		upstream: upstream,
		store:    s,
		refresh:  refresh,
		log:      slog.Default().With("source", "cache"),
	}
}

// Name returns the upstream name with a cache marker.
func (c *CachedSource) Name() string { return c.upstream.Name() + "+cache" }

// FetchBars serves cached days from the store and fills the rest from
// upstream.
func (c *CachedSource) FetchBars(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if c.refresh {
		return c.fill(ctx, symbol, r)
	}

	var bars []domain.Bar
	var gaps []DateRange
	for _, day := range r.Days() {
		cached, err := c.store.ReadBars(ctx, symbol, day.Start, day.End)
		if err != nil {
			return nil, fmt.Errorf("reading cache for %s: %w", symbol, err)
		}
		if len(cached) > 0 {
			bars = append(bars, cached...)
			continue
		}
		if n := len(gaps); n > 0 && gaps[n-1].End.Equal(day.Start) {
			gaps[n-1].End = day.End
		} else {
			gaps = append(gaps, day)
		}
	}

	for _, gap := range gaps {
		fetched, err := c.fill(ctx, symbol, gap)
		if errors.Is(err, domain.ErrNoData) {
			continue
		}
		if err != nil {
			return nil, err
		}
		bars = append(bars, fetched...)
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, r, domain.ErrNoData)
	}
	c.log.Debug("cache read", "symbol", symbol, "bars", len(bars), "gaps", len(gaps))
	return NormalizeBars(bars, r), nil
}

// fill fetches r from upstream and writes the bars back to the store.
func (c *CachedSource) fill(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error) {
	bars, err := c.upstream.FetchBars(ctx, symbol, r)
	if err != nil {
		return nil, err
	}
	if err := c.store.WriteBars(ctx, bars); err != nil {
		// The fetch succeeded; a cache write failure only costs a refetch.
		c.log.Warn("cache write failed", "symbol", symbol, "err", err)
	}
	c.log.Debug("cache fill", "symbol", symbol, "range", r.String(), "bars", len(bars))
	return bars, nil
}
