package gather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/store"
)

var _ Gatherer = (*Prefetcher)(nil)

// Prefetcher downloads bars for a list of symbols into a BarStore so later
// backtests can run from the cache.
type Prefetcher struct {
	source     BarSource
	store      store.BarStore
	symbols    []string
	dateRange  DateRange
	maxWorkers int
	log        *slog.Logger

	fetched atomic.Int64
	empty   atomic.Int64
	failed  atomic.Int64
}

// NewPrefetcher creates a Prefetcher for symbols over r.
func NewPrefetcher(source BarSource, s store.BarStore, symbols []string, r DateRange, maxWorkers int) *Prefetcher {
	return &Prefetcher{
		source:     source,
		store:      s,
		symbols:    symbols,
		dateRange:  r,
		maxWorkers: max(maxWorkers, 1),
		log:        slog.Default().With("gatherer", "prefetch"),
	}
}

// Name returns the gatherer identifier.
func (p *Prefetcher) Name() string { return "prefetch" }

// Stats returns the number of symbols fetched, empty and failed so far.
func (p *Prefetcher) Stats() (fetched, empty, failed int64) {
	return p.fetched.Load(), p.empty.Load(), p.failed.Load()
}

// Run fetches every symbol and writes its bars. Symbols with no data are
// counted but not treated as errors; other failures are joined.
func (p *Prefetcher) Run(ctx context.Context) error {
	if err := p.dateRange.Validate(); err != nil {
		return err
	}

	symCh := make(chan string, len(p.symbols))
	for _, s := range p.symbols {
		symCh <- s
	}
	close(symCh)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errs     []error
		runStart = time.Now()
	)

	p.log.Info("starting prefetch",
		"source", p.source.Name(),
		"symbols", len(p.symbols),
		"range", p.dateRange.String(),
	)

	workers := min(p.maxWorkers, len(p.symbols))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range symCh {
				if ctx.Err() != nil {
					return
				}
				n, err := p.fetchOne(ctx, sym)
				switch {
				case errors.Is(err, domain.ErrNoData):
					p.empty.Add(1)
					p.log.Warn("no data", "symbol", sym)
				case err != nil:
					p.failed.Add(1)
					p.log.Error("prefetch failed", "symbol", sym, "err", err)
					mu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", sym, err))
					mu.Unlock()
				default:
					p.fetched.Add(1)
					p.log.Info("symbol done", "symbol", sym, "bars", n,
						"elapsed", time.Since(runStart).Round(time.Second))
				}
			}
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	fetched, empty, failed := p.Stats()
	p.log.Info("complete",
		"fetched", fetched,
		"empty", empty,
		"failed", failed,
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return errors.Join(errs...)
}

func (p *Prefetcher) fetchOne(ctx context.Context, symbol string) (int, error) {
	bars, err := p.source.FetchBars(ctx, symbol, p.dateRange)
	if err != nil {
		return 0, err
	}
	if err := p.store.WriteBars(ctx, bars); err != nil {
		return 0, fmt.Errorf("writing bars: %w", err)
	}
	return len(bars), nil
}
