package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"crypto_dash/internal/domain"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultUserAgent is a browser-like user agent string to avoid bot detection
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// DefaultCoinGeckoURL is the public API base path.
	DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

	// MaxPageSize is the provider's per_page ceiling.
	MaxPageSize = 250
)

// Config는 애플리케이션의 모든 설정을 담습니다.
// LoadConfig로 로드된 후에 환경 변수를 통해 민감 내용을 덮어씁니다.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	API struct {
		CoinGecko struct {
			BaseURL    string `yaml:"base_url"`
			APIKey     string `yaml:"api_key"`
			TimeoutSec int    `yaml:"timeout_sec"`
			UserAgent  string `yaml:"user_agent"`
		} `yaml:"coingecko"`
	} `yaml:"api"`

	UI struct {
		Currency           string `yaml:"currency"`
		PageSize           int    `yaml:"page_size"`
		WatchlistSize      int    `yaml:"watchlist_size"`
		SearchDebounceMS   int    `yaml:"search_debounce_ms"`
		BlurGraceMS        int    `yaml:"blur_grace_ms"`
		BusyDelayMS        int    `yaml:"busy_delay_ms"`
		PopularSuggestions int    `yaml:"popular_suggestions"`
		MaxSuggestions     int    `yaml:"max_suggestions"`
		RefreshIntervalSec int    `yaml:"refresh_interval_sec"`
		OHLCDays           int    `yaml:"ohlc_days"`
		ChartDays          int    `yaml:"chart_days"`
	} `yaml:"ui"`

	Storage struct {
		Path         string `yaml:"path"`
		FavoritesKey string `yaml:"favorites_key"`
	} `yaml:"storage"`

	Assets struct {
		Enabled     bool   `yaml:"enabled"`
		Dir         string `yaml:"dir"`
		IconSize    int    `yaml:"icon_size"`
		Concurrency int    `yaml:"concurrency"`
	} `yaml:"assets"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "crypto_dash"
	cfg.App.Version = "0.1.0"

	cfg.API.CoinGecko.BaseURL = DefaultCoinGeckoURL
	cfg.API.CoinGecko.TimeoutSec = 15
	cfg.API.CoinGecko.UserAgent = DefaultUserAgent

	cfg.UI.Currency = string(domain.CurrencyUSD)
	cfg.UI.PageSize = 100
	cfg.UI.WatchlistSize = MaxPageSize
	cfg.UI.SearchDebounceMS = 300
	cfg.UI.BlurGraceMS = 150
	cfg.UI.BusyDelayMS = 250
	cfg.UI.PopularSuggestions = 6
	cfg.UI.MaxSuggestions = 8
	cfg.UI.OHLCDays = 7
	cfg.UI.ChartDays = 7

	cfg.Storage.FavoritesKey = "cryptodash-favorites"

	cfg.Assets.Enabled = true
	cfg.Assets.IconSize = 24
	cfg.Assets.Concurrency = 5

	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return &cfg
}

// LoadConfig는 설정 파일을 읽고 파싱합니다.
// A missing file yields DefaultConfig together with ErrConfigNotFound so the caller
// can warn and carry on.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		overrideWithEnv(cfg)
		if verr := cfg.Validate(); verr != nil {
			return nil, fmt.Errorf("invalid configuration: %w", verr)
		}
		return cfg, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
	}

	// Unmarshal over the defaults so omitted keys keep their default value
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// 4원칙: 보안 우선 - 환경 변수 오버라이드 지원
	overrideWithEnv(cfg)

	// 5원칙: 설정 유효성 검사
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	// CoinGecko
	base := c.API.CoinGecko.BaseURL
	if base == "" || (!strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://")) {
		return &domain.ConfigError{Field: "api.coingecko.base_url", Err: fmt.Errorf("invalid URL %q", base)}
	}
	if c.API.CoinGecko.TimeoutSec <= 0 {
		return &domain.ConfigError{Field: "api.coingecko.timeout_sec", Err: errors.New("must be positive")}
	}

	// UI
	if _, err := domain.ParseCurrency(c.UI.Currency); err != nil {
		return &domain.ConfigError{Field: "ui.currency", Err: err}
	}
	if c.UI.PageSize < 1 || c.UI.PageSize > MaxPageSize {
		return &domain.ConfigError{Field: "ui.page_size", Err: fmt.Errorf("must be within 1..%d", MaxPageSize)}
	}
	if c.UI.WatchlistSize < 1 || c.UI.WatchlistSize > MaxPageSize {
		return &domain.ConfigError{Field: "ui.watchlist_size", Err: fmt.Errorf("must be within 1..%d", MaxPageSize)}
	}
	if c.UI.SearchDebounceMS < 0 || c.UI.BlurGraceMS < 0 || c.UI.BusyDelayMS < 0 {
		return &domain.ConfigError{Field: "ui", Err: errors.New("delays must not be negative")}
	}
	if c.UI.PopularSuggestions < 0 || c.UI.MaxSuggestions < 1 {
		return &domain.ConfigError{Field: "ui.max_suggestions", Err: errors.New("suggestion limits out of range")}
	}
	if c.UI.RefreshIntervalSec < 0 {
		return &domain.ConfigError{Field: "ui.refresh_interval_sec", Err: errors.New("must not be negative")}
	}
	if c.UI.OHLCDays < 1 || c.UI.ChartDays < 1 {
		return &domain.ConfigError{Field: "ui.ohlc_days", Err: errors.New("chart windows must be at least one day")}
	}

	// Storage
	if c.Storage.FavoritesKey == "" {
		return &domain.ConfigError{Field: "storage.favorites_key", Err: errors.New("must not be empty")}
	}

	// Assets
	if c.Assets.Enabled && (c.Assets.IconSize <= 0 || c.Assets.Concurrency <= 0) {
		return &domain.ConfigError{Field: "assets", Err: errors.New("icon size and concurrency must be positive")}
	}

	return nil
}

// HTTPTimeout returns the provider request timeout.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.API.CoinGecko.TimeoutSec) * time.Second
}

// Millis converts a millisecond config value to a duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// overrideWithEnv는 환경 변수가 존재할 경우 설정 값을 덮어씁니다.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("CRYPTODASH_COINGECKO_KEY"); key != "" {
		cfg.API.CoinGecko.APIKey = key
	}
	if url := os.Getenv("CRYPTODASH_COINGECKO_URL"); url != "" {
		cfg.API.CoinGecko.BaseURL = url
	}
	if level := os.Getenv("CRYPTODASH_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
