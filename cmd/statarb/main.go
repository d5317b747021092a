package main

import (
	"context"
	"errors"
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
	"github.com/Waknis/stat-arb-engine/internal/domain"
	"github.com/Waknis/stat-arb-engine/internal/gather"
	"github.com/Waknis/stat-arb-engine/internal/gather/us"
	"github.com/Waknis/stat-arb-engine/internal/report"
	"github.com/Waknis/stat-arb-engine/internal/store"
	"github.com/Waknis/stat-arb-engine/internal/strategy"
	"github.com/Waknis/stat-arb-engine/internal/strategy/builtins"
	"github.com/Waknis/stat-arb-engine/internal/util"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: statarb <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  run         Backtest a strategy over a list of tickers\n")
		fmt.Fprintf(os.Stderr, "  history     List recorded runs\n")
		fmt.Fprintf(os.Stderr, "  show        Print the summary rows of a recorded run\n")
		fmt.Fprintf(os.Stderr, "  strategies  List available strategies\n")
		fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("statarb %s\n", version)

	case "run":
		err = cmdRun(os.Args[2:])

	case "history":
		err = cmdHistory(os.Args[2:])

	case "show":
		err = cmdShow(os.Args[2:])

	case "strategies":
		cfg := loadConfig()
		for _, name := range builtins.NewRegistry(cfg.Backtest).List() {
			fmt.Println(name)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

// loadConfig reads config/statarb.yaml (or $STATARB_CONFIG), falling back to
// defaults plus environment overrides when the file is absent.
func loadConfig() *config.Config {
	cfgPath := "config/statarb.yaml"
	if p := os.Getenv("STATARB_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// setupLogger installs the default logger on stderr, optionally teeing to a
// dated file under /tmp. The returned func closes the file.
func setupLogger(cfg *config.Config, toFile bool) (func(), error) {
	var w io.Writer = os.Stderr
	closeFn := func() {}
	if toFile {
		name := fmt.Sprintf("/tmp/statarb-%s.log", time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeFn = func() { f.Close() }
	}
	util.SetDefault(util.NewLoggerTo(w, cfg.Logging.Level, cfg.Logging.Format))
	return closeFn, nil
}

// ---------------------------------------------------------------------------
// run
// ---------------------------------------------------------------------------

func cmdRun(args []string) error {
	cfg := loadConfig()

	fs := flag.NewFlagSet("run", flag.ExitOnError)
	tickers := fs.String("tickers", "", "comma- or space-separated tickers (required)")
	start := fs.String("start", "", "start date YYYY-MM-DD (default: end minus -days)")
	end := fs.String("end", "", "end date YYYY-MM-DD, inclusive (default: last finished trading day)")
	days := fs.Int("days", cfg.Backtest.DaysBack, "calendar days to cover when -start is empty")
	strat := fs.String("strategy", cfg.Backtest.Strategy, "strategy name")
	feed := fs.String("feed", cfg.Backtest.Feed, "bar feed: alpaca or polygon")
	format := fs.String("format", "table", "output format: table or markdown")
	sortKey := fs.String("sort", "", "sort rows by ticker, sharpe, return or drawdown")
	out := fs.String("out", "", "also write the summary rows to this Parquet file")
	useCache := fs.Bool("cache", cfg.Backtest.Cache, "read and fill the local Parquet bar cache")
	refresh := fs.Bool("refresh", false, "with -cache, refetch bars even when cached")
	record := fs.Bool("record", true, "record the run in the SQLite history")
	logFile := fs.Bool("logfile", false, "also log to /tmp/statarb-<date>.log")
	_ = fs.Parse(args)

	symbols := splitTickers(*tickers)
	if len(symbols) == 0 {
		fmt.Fprintln(os.Stderr, "run: -tickers is required")
		fs.Usage()
		os.Exit(2)
	}

	cfg.Backtest.Feed = *feed
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	closeLog, err := setupLogger(cfg, *logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	r, err := resolveRange(cfg, *start, *end, *days)
	if err != nil {
		return fmt.Errorf("invalid date range: %w", err)
	}

	source, err := us.NewSource(cfg, cfg.Backtest.Feed)
	if err != nil {
		return fmt.Errorf("creating source: %w", err)
	}
	if *useCache {
		pstore := store.NewParquetStore(cfg.Storage.DataDir, us.Timeframe(cfg.Backtest.BarMinutes))
		source = gather.NewCachedSource(source, pstore, *refresh)
	}

	bt := strategy.NewBacktester(source, builtins.NewRegistry(cfg.Backtest), strategy.ParamsFromConfig(cfg.Backtest))
	if *record {
		sqlStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer sqlStore.Close()
		bt.WithSummaryStore(sqlStore)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID, rows, runErr := bt.RunWithID(ctx, *strat, symbols, r)
	if runErr != nil && len(rows) == 0 {
		return fmt.Errorf("run failed: %w", runErr)
	}
	if runErr != nil {
		slog.Warn("some tickers failed", "err", runErr)
	}

	if err := report.SortRows(rows, *sortKey); err != nil {
		return fmt.Errorf("invalid -sort: %w", err)
	}
	if err := printRows(os.Stdout, rows, *format); err != nil {
		return err
	}
	if runID != "" {
		fmt.Fprintf(os.Stderr, "run %s recorded\n", runID)
	}

	if *out != "" {
		if err := store.WriteSummaries(*out, runID, rows); err != nil {
			return fmt.Errorf("writing %s: %w", *out, err)
		}
		slog.Info("summary written", "path", *out, "rows", len(rows))
	}
	return nil
}

// resolveRange turns the date flags into a DateRange with an exclusive end.
func resolveRange(cfg *config.Config, start, end string, days int) (gather.DateRange, error) {
	endDay := us.DefaultEnd(cfg, time.Now())
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return gather.DateRange{}, fmt.Errorf("parsing end date %q: %w", end, err)
		}
		endDay = t
	}
	if start == "" {
		return gather.LastNDays(endDay, days), nil
	}
	return gather.ParseDateRange(start, endDay.Format("2006-01-02"))
}

func splitTickers(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

func printRows(w io.Writer, rows []domain.Summary, format string) error {
	switch format {
	case "table":
		fmt.Fprintln(w, report.RenderTable(rows))
	case "markdown", "md":
		fmt.Fprint(w, report.RenderMarkdown(rows))
	default:
		return fmt.Errorf("unknown format %q (want table or markdown)", format)
	}
	return nil
}

// ---------------------------------------------------------------------------
// history / show
// ---------------------------------------------------------------------------

func cmdHistory(args []string) error {
	cfg := loadConfig()
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("limit", 20, "number of runs to list")
	_ = fs.Parse(args)

	s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), *limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}
	fmt.Println(report.RenderRuns(runs))
	return nil
}

func cmdShow(args []string) error {
	cfg := loadConfig()
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	format := fs.String("format", "table", "output format: table or markdown")
	sortKey := fs.String("sort", "", "sort rows by ticker, sharpe, return or drawdown")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: statarb show [options] <run-id>")
		os.Exit(2)
	}
	runID := fs.Arg(0)

	s, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer s.Close()

	rows, err := s.ListSummaries(context.Background(), runID)
	if errors.Is(err, domain.ErrNoData) {
		return fmt.Errorf("run %s not found", runID)
	}
	if err != nil {
		return fmt.Errorf("loading run: %w", err)
	}
	if err := report.SortRows(rows, *sortKey); err != nil {
		return fmt.Errorf("invalid -sort: %w", err)
	}
	return printRows(os.Stdout, rows, *format)
}
