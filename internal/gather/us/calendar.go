package us

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/util"
)

// SessionCalendar answers trading-day questions using the Alpaca trading
// calendar API.
type SessionCalendar struct {
	client *alpaca.Client
	loc    *time.Location
	settle time.Duration // offset from midnight ET after which a day counts as finished
}

// NewSessionCalendar creates a SessionCalendar against the Alpaca trading
// API at baseURL (empty for the SDK default).
func NewSessionCalendar(apiKey, apiSecret, baseURL string) *SessionCalendar {
	return &SessionCalendar{
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
		loc:    util.NewTradingCalendar(domain.MarketUS).Location(),
		settle: 16*time.Hour + 5*time.Minute,
	}
}

// LatestFinishedTradingDay returns the most recent trading day whose regular
// session ended before now (with a five minute settling margin). The result
// is a UTC midnight date.
func (c *SessionCalendar) LatestFinishedTradingDay(now time.Time) (time.Time, error) {
	now = now.In(c.loc)
	start := now.AddDate(0, 0, -10)

	calendar, err := c.client.GetCalendar(alpaca.GetCalendarRequest{
		Start: start,
		End:   now,
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("GetCalendar: %w", err)
	}

	if len(calendar) == 0 {
		return time.Time{}, fmt.Errorf("no trading days returned from calendar")
	}

	today := now.Format("2006-01-02")
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, c.loc)
	cutoff := midnight.Add(c.settle)

	for i := len(calendar) - 1; i >= 0; i-- {
		day := calendar[i]
		dayDate, err := time.Parse("2006-01-02", day.Date)
		if err != nil {
			continue
		}
		if day.Date == today {
			if now.After(cutoff) {
				return dayDate, nil
			}
			continue
		}
		if day.Date < today {
			return dayDate, nil
		}
	}

	return time.Time{}, fmt.Errorf("could not determine latest finished trading day")
}
