// Package config provides configuration management for the condor screener.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"condor-screener/internal/analysis/condor"
	"condor-screener/internal/errors"
	"condor-screener/internal/models"
)

// Provider names.
const (
	ProviderPolygon = "polygon"
	ProviderFile    = "file"
)

// Config holds all application configuration.
type Config struct {
	Screener ScreenerConfig `mapstructure:"screener"`
	Provider ProviderConfig `mapstructure:"provider"`
	Output   OutputConfig   `mapstructure:"output"`
	History  HistoryConfig  `mapstructure:"history"`
	Server   ServerConfig   `mapstructure:"server"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`

	// Path is the file the configuration was read from.
	Path string `mapstructure:"-"`
}

// ScreenerConfig holds the screening thresholds and enumeration bounds.
type ScreenerConfig struct {
	MaxDays         int     `mapstructure:"max_days"`
	MinVolume       int64   `mapstructure:"min_volume"`
	MinOpenInterest int64   `mapstructure:"min_open_interest"`
	MaxLegsPerSide  int     `mapstructure:"max_legs_per_side"`
	MaxCandidates   int     `mapstructure:"max_candidates"`
	MinNetCredit    float64 `mapstructure:"min_net_credit"`
	MaxRisk         float64 `mapstructure:"max_risk"`
	MinProbability  float64 `mapstructure:"min_probability"` // percent
	Criteria        string  `mapstructure:"criteria"`        // credit, probability, risk_reward
	Limit           int     `mapstructure:"limit"`
	Volatility      float64 `mapstructure:"volatility"`
	Window          string  `mapstructure:"window"` // first, spot
	Concurrency     int     `mapstructure:"concurrency"`
}

// ProviderConfig holds market data provider configuration.
type ProviderConfig struct {
	Name              string        `mapstructure:"name"` // polygon, file
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	FixturesDir       string        `mapstructure:"fixtures_dir"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	PageSize          int           `mapstructure:"page_size"`
	MaxContracts      int           `mapstructure:"max_contracts"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"` // 0 = unlimited
	BreakerThreshold  int           `mapstructure:"breaker_threshold"`   // 0 = disabled
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
}

// OutputConfig holds presentation and export configuration.
type OutputConfig struct {
	Format       string `mapstructure:"format"` // table, json, yaml
	TopN         int    `mapstructure:"top_n"`
	ColorEnabled bool   `mapstructure:"color_enabled"`
	WriteCSV     bool   `mapstructure:"write_csv"`
	DataDir      string `mapstructure:"data_dir"`
}

// HistoryConfig holds the scan history database configuration.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CacheConfig holds provider cache configuration.
type CacheConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	MaxCost        int64         `mapstructure:"max_cost"`
	SpotTTL        time.Duration `mapstructure:"spot_ttl"`
	ChainTTL       time.Duration `mapstructure:"chain_ttl"`
	ExpirationsTTL time.Duration `mapstructure:"expirations_ttl"`
	EarningsTTL    time.Duration `mapstructure:"earnings_ttl"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/condor-screener"
	}
	return filepath.Join(home, ".config", "condor-screener")
}

// DefaultConfigPath returns the default configuration file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.toml")
}

// Load reads the configuration file at path, or the default file when path
// is empty. A missing file is replaced by the commented template and the
// defaults are used. .env files in the working directory and next to the
// config file are loaded before environment overrides apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env"))

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createTemplateConfig(path); err != nil {
			return nil, err
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	cfg.Path = path
	fillPaths(cfg, filepath.Dir(path))

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	fillPaths(cfg, DefaultConfigDir())
	return cfg
}

// fillPaths points empty file locations into the config directory.
func fillPaths(cfg *Config, dir string) {
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(dir, "history.db")
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(dir, "logs", "screener.log")
	}
}

func setDefaults(v *viper.Viper) {
	p := condor.DefaultParams()

	v.SetDefault("screener.max_days", 30)
	v.SetDefault("screener.min_volume", p.MinVolume)
	v.SetDefault("screener.min_open_interest", p.MinOpenInterest)
	v.SetDefault("screener.max_legs_per_side", p.MaxLegsPerSide)
	v.SetDefault("screener.max_candidates", p.MaxCandidates)
	v.SetDefault("screener.min_net_credit", p.MinNetCredit)
	v.SetDefault("screener.max_risk", p.MaxRisk)
	v.SetDefault("screener.min_probability", p.MinProbabilityPct)
	v.SetDefault("screener.criteria", string(p.RankKey))
	v.SetDefault("screener.limit", p.ResultLimit)
	v.SetDefault("screener.volatility", p.Volatility)
	v.SetDefault("screener.window", string(p.Window))
	v.SetDefault("screener.concurrency", 4)

	v.SetDefault("provider.name", ProviderPolygon)
	v.SetDefault("provider.base_url", "https://api.polygon.io")
	v.SetDefault("provider.fixtures_dir", "testdata")
	v.SetDefault("provider.timeout", "15s")
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.page_size", 250)
	v.SetDefault("provider.max_contracts", 3000)
	v.SetDefault("provider.requests_per_minute", 0)
	v.SetDefault("provider.breaker_threshold", 5)
	v.SetDefault("provider.breaker_cooldown", "30s")

	v.SetDefault("output.format", "table")
	v.SetDefault("output.top_n", 5)
	v.SetDefault("output.color_enabled", true)
	v.SetDefault("output.write_csv", true)
	v.SetDefault("output.data_dir", "data")

	v.SetDefault("history.enabled", true)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_cost", 1<<26)
	v.SetDefault("cache.spot_ttl", "15s")
	v.SetDefault("cache.chain_ttl", "1m")
	v.SetDefault("cache.expirations_ttl", "10m")
	v.SetDefault("cache.earnings_ttl", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)
}

// loadDotEnv loads each existing file. Variables already set in the
// environment win.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("CONDOR_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("CONDOR_PROVIDER_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("CONDOR_DATA_DIR"); v != "" {
		cfg.Output.DataDir = v
	}
	if v := os.Getenv("DEBUG"); v == "1" || strings.EqualFold(v, "true") {
		cfg.Logging.Level = "debug"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case ProviderPolygon:
		if c.Provider.BaseURL == "" {
			return errors.NewConfigError("provider.base_url", c.Provider.BaseURL, "required for the polygon provider")
		}
	case ProviderFile:
		if c.Provider.FixturesDir == "" {
			return errors.NewConfigError("provider.fixtures_dir", c.Provider.FixturesDir, "required for the file provider")
		}
	default:
		return errors.NewConfigError("provider.name", c.Provider.Name, "must be 'polygon' or 'file'")
	}
	if c.Provider.Timeout <= 0 {
		return errors.NewConfigError("provider.timeout", c.Provider.Timeout, "must be > 0")
	}

	if c.Screener.MaxDays <= 0 {
		return errors.NewConfigError("screener.max_days", c.Screener.MaxDays, "must be > 0")
	}
	if c.Screener.Concurrency <= 0 {
		return errors.NewConfigError("screener.concurrency", c.Screener.Concurrency, "must be > 0")
	}
	if err := c.Screener.Params().Validate(); err != nil {
		return err
	}

	switch c.Output.Format {
	case "table", "json", "yaml":
	default:
		return errors.NewConfigError("output.format", c.Output.Format, "must be table, json or yaml")
	}
	if c.Output.TopN <= 0 {
		return errors.NewConfigError("output.top_n", c.Output.TopN, "must be > 0")
	}

	if c.Cache.Enabled && c.Cache.MaxCost <= 0 {
		return errors.NewConfigError("cache.max_cost", c.Cache.MaxCost, "must be > 0 when the cache is enabled")
	}

	return nil
}

// Params converts the screener section into engine parameters.
func (s ScreenerConfig) Params() condor.Params {
	return condor.Params{
		MinVolume:         s.MinVolume,
		MinOpenInterest:   s.MinOpenInterest,
		MaxLegsPerSide:    s.MaxLegsPerSide,
		MaxCandidates:     s.MaxCandidates,
		MinNetCredit:      s.MinNetCredit,
		MaxRisk:           s.MaxRisk,
		MinProbabilityPct: s.MinProbability,
		RankKey:           models.RankKey(s.Criteria),
		ResultLimit:       s.Limit,
		Volatility:        s.Volatility,
		Window:            models.LegWindow(s.Window),
	}
}
