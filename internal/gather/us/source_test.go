package us

import (
	"testing"
	"time"

	"github.com/Waknis/stat-arb-engine/internal/config"
	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/util"
)

func TestNewSource(t *testing.T) {
	cfg := &config.Config{}
	cfg.Polygon.APIKey = "k"
	cfg.Backtest.BarMinutes = 5

	for _, feed := range []string{"alpaca", "polygon"} {
		src, err := NewSource(cfg, feed)
		if err != nil {
			t.Fatalf("NewSource(%s): %v", feed, err)
		}
		if src.Name() != feed {
			t.Errorf("NewSource(%s).Name() = %q", feed, src.Name())
		}
	}
	if _, err := NewSource(cfg, "yahoo"); err == nil {
		t.Error("NewSource(yahoo) should fail")
	}
}

func TestTimeframe(t *testing.T) {
	if got := Timeframe(1); got != "1min" {
		t.Errorf("Timeframe(1) = %q, want 1min", got)
	}
	if got := Timeframe(0); got != "1min" {
		t.Errorf("Timeframe(0) = %q, want 1min", got)
	}
	if got := Timeframe(15); got != "15min" {
		t.Errorf("Timeframe(15) = %q, want 15min", got)
	}
}

func TestDefaultEndWithoutCredentials(t *testing.T) {
	ny := util.NewTradingCalendar(domain.MarketUS).Location()
	tests := []struct {
		now  time.Time
		want time.Time
	}{
		{time.Date(2024, 3, 8, 23, 30, 0, 0, ny), time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)},  // Friday night
		{time.Date(2024, 3, 10, 12, 0, 0, 0, ny), time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC)},  // Sunday
		{time.Date(2024, 3, 12, 11, 0, 0, 0, ny), time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)}, // Tuesday mid-session
	}
	for _, tt := range tests {
		if got := DefaultEnd(&config.Config{}, tt.now); !got.Equal(tt.want) {
			t.Errorf("DefaultEnd(%s) = %s, want %s", tt.now, got, tt.want)
		}
	}
}
