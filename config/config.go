// Package config loads the carteira configuration.
//
// Values come from a YAML file, then environment variables, then defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Quote providers.
const (
	ProviderYahoo = "yahoo"
	ProviderEODHD = "eodhd"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
		// WarmupCron schedules the benchmark and rate warm-up. Empty disables it.
		WarmupCron string `yaml:"warmup_cron"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Upstream struct {
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
		CacheDir          string        `yaml:"cache_dir"`
		UserAgent         string        `yaml:"user_agent"`
	} `yaml:"upstream"`
	Quotes struct {
		Provider    string `yaml:"provider"`
		YahooURL    string `yaml:"yahoo_url"`
		EODHDURL    string `yaml:"eodhd_url"`
		EODHDAPIKey string `yaml:"eodhd_api_key"`
	} `yaml:"quotes"`
	Benchmarks struct {
		Ibov string `yaml:"ibov"`
		Ifix string `yaml:"ifix"`
	} `yaml:"benchmarks"`
	Rates struct {
		BCBURL string `yaml:"bcb_url"`
		CDI    string `yaml:"cdi_series"`
		IPCA   string `yaml:"ipca_series"`
		// FallbackDaily is in percent per business day, FallbackMonthly in percent per month.
		FallbackDaily   float64 `yaml:"fallback_daily"`
		FallbackMonthly float64 `yaml:"fallback_monthly"`
	} `yaml:"rates"`
	Redis struct {
		// Addr enables the shared cache when set.
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		TTL      time.Duration `yaml:"ttl"`
	} `yaml:"redis"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// applyEnv overrides file values with CARTEIRA_* variables.
func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	str("CARTEIRA_ADDR", &c.Server.Addr)
	str("CARTEIRA_WARMUP_CRON", &c.Server.WarmupCron)
	str("CARTEIRA_LOG_LEVEL", &c.Log.Level)
	str("CARTEIRA_CACHE_DIR", &c.Upstream.CacheDir)
	str("CARTEIRA_QUOTE_PROVIDER", &c.Quotes.Provider)
	str("EODHD_API_KEY", &c.Quotes.EODHDAPIKey)
	str("CARTEIRA_REDIS_ADDR", &c.Redis.Addr)
	str("CARTEIRA_REDIS_PASSWORD", &c.Redis.Password)

	if v := os.Getenv("CARTEIRA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CARTEIRA_TIMEOUT: %w", err)
		}
		c.Upstream.Timeout = d
	}
	if v := os.Getenv("CARTEIRA_REQUESTS_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("CARTEIRA_REQUESTS_PER_SECOND: %w", err)
		}
		c.Upstream.RequestsPerSecond = f
	}
	if v := os.Getenv("CARTEIRA_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CARTEIRA_REDIS_DB: %w", err)
		}
		c.Redis.DB = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = 15 * time.Second
	}
	if c.Upstream.RequestsPerSecond == 0 {
		c.Upstream.RequestsPerSecond = 5
	}
	if c.Upstream.Burst == 0 {
		c.Upstream.Burst = 5
	}
	if c.Quotes.Provider == "" {
		c.Quotes.Provider = ProviderYahoo
	}
	if c.Benchmarks.Ibov == "" {
		c.Benchmarks.Ibov = "^BVSP"
	}
	if c.Benchmarks.Ifix == "" {
		c.Benchmarks.Ifix = "IFIX.SA"
	}
	if c.Rates.CDI == "" {
		c.Rates.CDI = "12"
	}
	if c.Rates.IPCA == "" {
		c.Rates.IPCA = "433"
	}
	if c.Rates.FallbackDaily == 0 {
		c.Rates.FallbackDaily = 0.04
	}
	if c.Rates.FallbackMonthly == 0 {
		c.Rates.FallbackMonthly = 0.4
	}
	if c.Redis.TTL == 0 {
		c.Redis.TTL = 15 * time.Minute
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Quotes.Provider {
	case ProviderYahoo:
	case ProviderEODHD:
		if c.Quotes.EODHDAPIKey == "" {
			return fmt.Errorf("quotes.eodhd_api_key is required with the %s provider", ProviderEODHD)
		}
	default:
		return fmt.Errorf("quotes.provider: unknown provider %q", c.Quotes.Provider)
	}
	if c.Upstream.Timeout < 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if c.Upstream.RequestsPerSecond < 0 {
		return fmt.Errorf("upstream.requests_per_second must be positive")
	}
	if c.Rates.FallbackDaily < 0 || c.Rates.FallbackMonthly < 0 {
		return fmt.Errorf("rates fallbacks must be positive")
	}
	if c.Server.WarmupCron != "" {
		if _, err := cron.ParseStandard(c.Server.WarmupCron); err != nil {
			return fmt.Errorf("server.warmup_cron: %w", err)
		}
	}
	return nil
}

// NewLogger returns the logger described by the configuration.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
