package gather

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run executes the gathering process. It returns when the work is done or
	// ctx is cancelled.
	Run(ctx context.Context) error
}

// BarSource fetches intraday bars for one symbol.
type BarSource interface {
	// Name returns the source identifier used in logs.
	Name() string
	// FetchBars returns bars for symbol within r, sorted by timestamp with no
	// duplicate timestamps. An empty result is reported as domain.ErrNoData.
	FetchBars(ctx context.Context, symbol string, r DateRange) ([]domain.Bar, error)
}

// DateRange represents a time range for data fetching. Start is inclusive and
// End is exclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the range.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// String formats the range as "start..end" dates.
func (r DateRange) String() string {
	return r.Start.Format("2006-01-02") + ".." + r.End.Format("2006-01-02")
}

// Validate rejects empty or inverted ranges.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("date range %s: missing bound: %w", r, domain.ErrInvalidInput)
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("date range %s: end not after start: %w", r, domain.ErrInvalidInput)
	}
	return nil
}

// Days splits r at UTC midnights into one range per calendar day, the first
// and last clipped to r.
func (r DateRange) Days() []DateRange {
	var out []DateRange
	for s := r.Start; s.Before(r.End); {
		u := s.UTC()
		next := time.Date(u.Year(), u.Month(), u.Day()+1, 0, 0, 0, 0, time.UTC)
		if next.After(r.End) {
			next = r.End
		}
		out = append(out, DateRange{Start: s, End: next})
		s = next
	}
	return out
}

// ParseDateRange parses YYYY-MM-DD dates in UTC. The end date is inclusive,
// so the returned range ends at midnight after it.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse("2006-01-02", start)
	if err != nil {
		return DateRange{}, fmt.Errorf("parsing start date %q: %w", start, err)
	}
	e, err := time.Parse("2006-01-02", end)
	if err != nil {
		return DateRange{}, fmt.Errorf("parsing end date %q: %w", end, err)
	}
	r := DateRange{Start: s, End: e.AddDate(0, 0, 1)}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// LastNDays returns the range covering the n calendar days ending with the
// date of end (inclusive).
func LastNDays(end time.Time, n int) DateRange {
	if n < 1 {
		n = 1
	}
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return DateRange{Start: e.AddDate(0, 0, -n), End: e}
}

// NormalizeBars sorts bars by timestamp and drops later duplicates of a
// timestamp, keeping the first occurrence. Bars outside r are discarded
// unless r is the zero range.
func NormalizeBars(bars []domain.Bar, r DateRange) []domain.Bar {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
	bounded := !r.Start.IsZero() || !r.End.IsZero()
	out := bars[:0]
	for _, b := range bars {
		if bounded && !r.Contains(b.Timestamp) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(b.Timestamp) {
			continue
		}
		out = append(out, b)
	}
	return out
}
