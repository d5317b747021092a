package util

import (
	"time"

	"github.com/Waknis/stat-arb-engine/internal/domain"
)

const (
	// TradingDaysPerYear is the conventional US equity trading-day count.
	TradingDaysPerYear = 252
	// SessionMinutes is the length of the US regular session (09:30-16:00).
	SessionMinutes = 390
)

// TradingCalendar provides regular-session awareness for a market. Exchange
// holidays are not modelled; a holiday simply has no bars.
type TradingCalendar struct {
	market domain.Market
	loc    *time.Location
	open   time.Duration // offset from local midnight
	close  time.Duration
}

// NewTradingCalendar creates a TradingCalendar for the given market. Unknown
// markets fall back to the US session.
func NewTradingCalendar(market domain.Market) *TradingCalendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// No tzdata available; EST without daylight saving is the closest fixed zone.
		loc = time.FixedZone("EST", -5*60*60)
	}
	return &TradingCalendar{
		market: market,
		loc:    loc,
		open:   9*time.Hour + 30*time.Minute,
		close:  16 * time.Hour,
	}
}

// Location returns the exchange time zone.
func (tc *TradingCalendar) Location() *time.Location { return tc.loc }

// IsMarketOpen returns whether t falls inside a weekday regular session,
// open inclusive and close exclusive.
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	local := t.In(tc.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tc.loc)
	offset := local.Sub(midnight)
	return offset >= tc.open && offset < tc.close
}

// LastClose returns the most recent weekday session close at or before t.
func (tc *TradingCalendar) LastClose(t time.Time) time.Time {
	local := t.In(tc.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tc.loc)
	for {
		cl := day.Add(tc.close)
		if isWeekday(day) && !cl.After(local) {
			return cl
		}
		day = day.AddDate(0, 0, -1)
	}
}

// FilterSession returns the bars whose timestamps fall inside the regular
// session. The input is not modified.
func (tc *TradingCalendar) FilterSession(bars []domain.Bar) []domain.Bar {
	out := make([]domain.Bar, 0, len(bars))
	for _, b := range bars {
		if tc.IsMarketOpen(b.Timestamp) {
			out = append(out, b)
		}
	}
	return out
}

// AnnualizationFactor returns the number of bars of barMinutes length in a
// trading year of regular sessions.
func AnnualizationFactor(barMinutes int) float64 {
	if barMinutes <= 0 {
		barMinutes = 1
	}
	return float64(TradingDaysPerYear*SessionMinutes) / float64(barMinutes)
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
