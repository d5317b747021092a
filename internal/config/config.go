package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stat-arb engine.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Polygon  Polygon        `yaml:"polygon"`
	Logging  Logging        `yaml:"logging"`
	Backtest BacktestConfig `yaml:"backtest"`
	Gather   GatherConfig   `yaml:"gather"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"` // "sip" or "iex"
}

// Polygon holds credentials for the Polygon.io aggregates API.
type Polygon struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BacktestConfig holds the signal, cost and scoring parameters.
type BacktestConfig struct {
	Strategy         string  `yaml:"strategy"`
	Feed             string  `yaml:"feed"` // "alpaca" or "polygon"
	BarMinutes       int     `yaml:"bar_minutes"`
	Window           int     `yaml:"window"`
	Threshold        float64 `yaml:"threshold"`
	CostPerShare     float64 `yaml:"cost_per_share"`
	RiskFreeRate     float64 `yaml:"risk_free_rate"`
	PeriodsPerYear   float64 `yaml:"periods_per_year"` // 0 derives it from bar_minutes
	RegularHoursOnly bool    `yaml:"regular_hours_only"`
	MaxWorkers       int     `yaml:"max_workers"`
	DaysBack         int     `yaml:"days_back"`
	Cache            bool    `yaml:"cache"`
}

// GatherConfig controls cache warm-up jobs.
type GatherConfig struct {
	MaxWorkers int `yaml:"max_workers"`
	MaxRetries int `yaml:"max_retries"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, fills defaults and then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := newConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults (plus environment
// overrides) when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}
	cfg = newConfig()
	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// newConfig returns a Config preset with the defaults of fields for which an
// explicit zero is a valid setting. Keys present in the YAML overwrite them.
func newConfig() *Config {
	return &Config{
		Backtest: BacktestConfig{
			Threshold:    1.0,
			CostPerShare: 0.0005,
		},
	}
}

// applyDefaults fills zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/statarb.db"
	}
	if cfg.Alpaca.Feed == "" {
		cfg.Alpaca.Feed = "iex"
	}
	if cfg.Polygon.BaseURL == "" {
		cfg.Polygon.BaseURL = "https://api.polygon.io"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	bt := &cfg.Backtest
	if bt.Strategy == "" {
		bt.Strategy = "vwap-reversion"
	}
	if bt.Feed == "" {
		bt.Feed = "polygon"
	}
	if bt.BarMinutes == 0 {
		bt.BarMinutes = 1
	}
	if bt.Window == 0 {
		bt.Window = 30
	}
	if bt.MaxWorkers == 0 {
		bt.MaxWorkers = 4
	}
	if bt.DaysBack == 0 {
		bt.DaysBack = 5
	}

	if cfg.Gather.MaxWorkers == 0 {
		cfg.Gather.MaxWorkers = 4
	}
	if cfg.Gather.MaxRetries == 0 {
		cfg.Gather.MaxRetries = 3
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Polygon.APIKey = v
	}

	if v := os.Getenv("STATARB_FEED"); v != "" {
		cfg.Backtest.Feed = v
	}

	if v := os.Getenv("STATARB_MAX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Backtest.MaxWorkers = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Standard Alpaca env vars (highest priority, the names the SDK reads).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate rejects backtest parameters the pipeline cannot run with.
func (c *Config) Validate() error {
	bt := c.Backtest
	switch {
	case bt.Window < 2:
		return fmt.Errorf("backtest.window must be at least 2, got %d", bt.Window)
	case bt.Threshold < 0:
		return fmt.Errorf("backtest.threshold must be non-negative, got %v", bt.Threshold)
	case bt.CostPerShare < 0:
		return fmt.Errorf("backtest.cost_per_share must be non-negative, got %v", bt.CostPerShare)
	case bt.BarMinutes < 1:
		return fmt.Errorf("backtest.bar_minutes must be positive, got %d", bt.BarMinutes)
	case bt.PeriodsPerYear < 0:
		return fmt.Errorf("backtest.periods_per_year must be non-negative, got %v", bt.PeriodsPerYear)
	case bt.MaxWorkers < 1:
		return fmt.Errorf("backtest.max_workers must be positive, got %d", bt.MaxWorkers)
	}
	switch bt.Feed {
	case "alpaca", "polygon":
	default:
		return fmt.Errorf("backtest.feed must be \"alpaca\" or \"polygon\", got %q", bt.Feed)
	}
	return nil
}
