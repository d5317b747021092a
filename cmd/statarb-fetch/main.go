package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Waknis/stat-arb-engine/internal/config"
	"github.com/Waknis/stat-arb-engine/internal/gather"
	"github.com/Waknis/stat-arb-engine/internal/gather/us"
	"github.com/Waknis/stat-arb-engine/internal/store"
	"github.com/Waknis/stat-arb-engine/internal/util"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("statarb-fetch: %v", err)
	}
}

func run() error {
	tickers := flag.String("tickers", "", "comma-separated tickers to cache (required)")
	start := flag.String("start", "", "start date YYYY-MM-DD (default: end minus -days)")
	end := flag.String("end", "", "end date YYYY-MM-DD, inclusive (default: last finished trading day)")
	days := flag.Int("days", 0, "calendar days to cover when -start is empty (default: backtest.days_back)")
	feed := flag.String("feed", "", "bar feed: alpaca or polygon (default: backtest.feed)")
	flag.Parse()

	cfgPath := "config/statarb.yaml"
	if p := os.Getenv("STATARB_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *feed != "" {
		cfg.Backtest.Feed = *feed
	}
	if *days == 0 {
		*days = cfg.Backtest.DaysBack
	}

	var symbols []string
	for _, s := range strings.Split(*tickers, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			symbols = append(symbols, s)
		}
	}
	if len(symbols) == 0 {
		return fmt.Errorf("-tickers is required")
	}

	// Dual logger: stdout + /tmp log file.
	logFileName := fmt.Sprintf("/tmp/statarb-fetch-%s.log", time.Now().Format("2006-01-02"))
	logFile, err := os.Create(logFileName)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer logFile.Close()

	w := io.MultiWriter(os.Stdout, logFile)
	util.SetDefault(util.NewLoggerTo(w, cfg.Logging.Level, cfg.Logging.Format))

	endDay := us.DefaultEnd(cfg, time.Now())
	if *end != "" {
		if endDay, err = time.Parse("2006-01-02", *end); err != nil {
			return fmt.Errorf("invalid -end: %w", err)
		}
	}
	r := gather.LastNDays(endDay, *days)
	if *start != "" {
		if r, err = gather.ParseDateRange(*start, endDay.Format("2006-01-02")); err != nil {
			return fmt.Errorf("invalid date range: %w", err)
		}
	}

	source, err := us.NewSource(cfg, cfg.Backtest.Feed)
	if err != nil {
		return fmt.Errorf("creating source: %w", err)
	}
	pstore := store.NewParquetStore(cfg.Storage.DataDir, us.Timeframe(cfg.Backtest.BarMinutes))

	prefetcher := gather.NewPrefetcher(source, pstore, symbols, r, cfg.Gather.MaxWorkers)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("starting statarb-fetch", "logFile", logFileName, "feed", source.Name(), "range", r.String())
	if err := prefetcher.Run(ctx); err != nil {
		return fmt.Errorf("prefetch: %w", err)
	}
	return nil
}
