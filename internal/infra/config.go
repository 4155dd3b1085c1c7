package infra

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/storage"
)

var (
	// currentUserAgent is protected by a mutex so a front-end can override it at runtime
	uaMu             sync.RWMutex
	currentUserAgent = GetPlatformUserAgent()
)

// GetUserAgent returns the current active User-Agent string. (Thread-safe)
func GetUserAgent() string {
	uaMu.RLock()
	defer uaMu.RUnlock()
	return currentUserAgent
}

// SetUserAgent updates the global User-Agent string. (Thread-safe)
func SetUserAgent(ua string) {
	uaMu.Lock()
	defer uaMu.Unlock()
	currentUserAgent = ua
}

// GetPlatformUserAgent generates a browser-like User-Agent string based on current OS.
func GetPlatformUserAgent() string {
	chromeVer := "120.0.0.0"
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", chromeVer)
	case "linux":
		linuxArch := "x86_64"
		if runtime.GOARCH == "arm64" {
			linuxArch = "aarch64"
		}
		return fmt.Sprintf("Mozilla/5.0 (X11; Linux %s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", linuxArch, chromeVer)
	case "darwin":
		return fmt.Sprintf("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36", chromeVer)
	default:
		return "Mozilla/5.0 (compatible; CryptoDash/1.0)"
	}
}

// Config holds every application setting.
// Values come from config.yaml and are then overridden by environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		CoinGecko struct {
			RestURL           string `yaml:"rest_url"`
			APIKey            string `yaml:"api_key"`
			TimeoutSec        int    `yaml:"timeout_sec"`
			PerPage           int    `yaml:"per_page"`
			RequestsPerMinute int    `yaml:"requests_per_minute"`
		} `yaml:"coingecko"`
		ExchangeRate struct {
			URL        string `yaml:"url"`
			APIKey     string `yaml:"api_key"`
			TimeoutSec int    `yaml:"timeout_sec"`
		} `yaml:"exchange_rate"`
	} `yaml:"api"`

	UI struct {
		DefaultCurrency    string `yaml:"default_currency"`
		DefaultTimeframe   int    `yaml:"default_timeframe"`
		RefreshIntervalSec int    `yaml:"refresh_interval_sec"`
		ChartLoadDelayMS   int    `yaml:"chart_load_delay_ms"`
		ChartRetries       int    `yaml:"chart_retries"`
		FeedAddr           string `yaml:"feed_addr"`
	} `yaml:"ui"`

	Storage struct {
		Driver string `yaml:"driver"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used when a key is missing from the file.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "crypto-dash"
	cfg.App.Version = "dev"
	cfg.API.CoinGecko.RestURL = "https://api.coingecko.com/api/v3"
	cfg.API.CoinGecko.TimeoutSec = 10
	cfg.API.CoinGecko.PerPage = 50
	cfg.API.CoinGecko.RequestsPerMinute = 30
	cfg.API.ExchangeRate.URL = "https://v6.exchangerate-api.com/v6"
	cfg.API.ExchangeRate.TimeoutSec = 10
	cfg.UI.DefaultCurrency = string(domain.USD)
	cfg.UI.DefaultTimeframe = int(domain.Timeframe1D)
	cfg.UI.RefreshIntervalSec = 120
	cfg.UI.ChartLoadDelayMS = 500
	cfg.UI.ChartRetries = 3
	cfg.Storage.Driver = storage.DriverSQLite
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads and parses the config file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses raw YAML, applies env overrides and validates the result.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if !isHTTPURL(c.API.CoinGecko.RestURL) {
		return fmt.Errorf("invalid CoinGecko REST URL: %s", c.API.CoinGecko.RestURL)
	}
	if c.API.CoinGecko.TimeoutSec <= 0 {
		return fmt.Errorf("coingecko timeout must be positive")
	}
	if c.API.CoinGecko.PerPage <= 0 || c.API.CoinGecko.PerPage > 250 {
		return fmt.Errorf("coingecko per_page must be within 1..250, got %d", c.API.CoinGecko.PerPage)
	}
	if c.API.ExchangeRate.URL != "" && !isHTTPURL(c.API.ExchangeRate.URL) {
		return fmt.Errorf("invalid exchange rate URL: %s", c.API.ExchangeRate.URL)
	}

	if _, err := domain.ParseCurrency(c.UI.DefaultCurrency); err != nil {
		return err
	}
	if !domain.Timeframe(c.UI.DefaultTimeframe).Valid() {
		return fmt.Errorf("unsupported default timeframe %d", c.UI.DefaultTimeframe)
	}
	if c.UI.RefreshIntervalSec <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.UI.ChartRetries <= 0 {
		return fmt.Errorf("chart retries must be positive")
	}

	switch c.Storage.Driver {
	case storage.DriverSQLite, storage.DriverBolt:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	return nil
}

// RequestTimeout is the per-request deadline for market data calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.API.CoinGecko.TimeoutSec) * time.Second
}

// RefreshInterval is the market list polling period.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.UI.RefreshIntervalSec) * time.Second
}

// ChartLoadDelay is the pause between a list refresh and the chart load it triggers.
func (c *Config) ChartLoadDelay() time.Duration {
	return time.Duration(c.UI.ChartLoadDelayMS) * time.Millisecond
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// overrideWithEnv lets environment variables win over the config file.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("CRYPTO_FX_API_KEY"); key != "" {
		cfg.API.ExchangeRate.APIKey = key
	}
	if key := os.Getenv("CRYPTO_COINGECKO_KEY"); key != "" {
		cfg.API.CoinGecko.APIKey = key
	}
	if driver := os.Getenv("CRYPTO_STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = strings.ToLower(driver)
	}
	if level := os.Getenv("CRYPTO_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
