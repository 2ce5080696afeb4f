package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrNoStrategy is returned when neither retrieval strategy can run
var ErrNoStrategy = errors.New("no retrieval strategy enabled: set use_api with a bearer token or use_selenium")

// Config holds all application configuration
type Config struct {
	Version int `toml:"version"`

	UseAPI         bool           `toml:"use_api"`
	APICredentials APICredentials `toml:"api_credentials"`
	// UseSelenium enables the browser strategy, as primary or as fallback
	UseSelenium bool   `toml:"use_selenium"`
	Headless    bool   `toml:"headless"`
	Proxy       string `toml:"proxy"`

	DatabasePath       string   `toml:"database_path"`
	MonitoringInterval Duration `toml:"monitoring_interval"`
	// MonitorSchedule is a cron expression ("0 */2 * * *", "@hourly") that replaces
	// the monitoring_interval ticks when set
	MonitorSchedule string `toml:"monitor_schedule"`
	// MonitorTimeout bounds one monitoring cycle. Zero derives it from the account count.
	MonitorTimeout          Duration `toml:"monitor_timeout"`
	MaxTweetsPerAccount     int      `toml:"max_tweets_per_account"`
	MaxTweetsPerKeyword     int      `toml:"max_tweets_per_keyword"`
	MonitorTweetsPerAccount int      `toml:"monitor_tweets_per_account"`
	RateLimitDelay          Duration `toml:"rate_limit_delay"`
	LogLevel                string   `toml:"log_level"`
	// CacheRaw keeps every fetched batch of raw payloads in the cache dir for replay
	CacheRaw bool `toml:"cache_raw"`

	API     APIConfig     `toml:"api"`
	Browser BrowserConfig `toml:"browser"`

	// Categories maps a category name to the account handles it monitors
	Categories map[string][]string `toml:"categories"`
	// Keywords maps a category name to the keywords counted in reports
	Keywords map[string][]string `toml:"keywords"`

	Alerts    AlertsConfig    `toml:"alerts"`
	Email     EmailConfig     `toml:"email"`
	Export    ExportConfig    `toml:"export"`
	Sentiment SentimentConfig `toml:"sentiment"`
}

// APICredentials are passed through to the API unchanged
type APICredentials struct {
	BearerToken string `toml:"bearer_token"`
}

type APIConfig struct {
	BaseURL    string   `toml:"base_url"`
	MaxCalls   int      `toml:"max_calls"`
	Window     Duration `toml:"window"`
	MaxRetries int      `toml:"max_retries"`
	RetryDelay Duration `toml:"retry_delay"`
	Timeout    Duration `toml:"timeout"`
}

type BrowserConfig struct {
	Mirrors        []string `toml:"mirrors"`
	ScrollPause    Duration `toml:"scroll_pause"`
	MaxIdleScrolls int      `toml:"max_idle_scrolls"`
	WaitTimeout    Duration `toml:"wait_timeout"`
	CookieFile     string   `toml:"cookie_file"`
}

type AlertsConfig struct {
	HighEngagementThreshold int     `toml:"high_engagement_threshold"`
	SentimentThreshold      float64 `toml:"sentiment_threshold"`
	EnableEmail             bool    `toml:"enable_email"`
}

type EmailConfig struct {
	Provider string   `toml:"provider"`
	SMTPHost string   `toml:"smtp_host"`
	SMTPPort int      `toml:"smtp_port"`
	SMTPUser string   `toml:"smtp_user"`
	SMTPPass string   `toml:"smtp_pass"`
	FromAddr string   `toml:"from_address"`
	ToAddrs  []string `toml:"to_addresses"`
}

type ExportConfig struct {
	Auto      bool     `toml:"auto"`
	Formats   []string `toml:"formats"`
	Directory string   `toml:"directory"`
}

// SentimentConfig extends the classifier's domain vocabulary
type SentimentConfig struct {
	Positive []string `toml:"positive"`
	Negative []string `toml:"negative"`
}

// Duration is a time.Duration written as "5m" in TOML. Bare numbers are seconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// ParseDuration accepts Go duration strings or a number of seconds
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version:                 1,
		UseAPI:                  false,
		UseSelenium:             true,
		Headless:                true,
		DatabasePath:            "tweetscope.db",
		MonitoringInterval:      Duration{5 * time.Minute},
		MaxTweetsPerAccount:     50,
		MaxTweetsPerKeyword:     100,
		MonitorTweetsPerAccount: 10,
		RateLimitDelay:          Duration{5 * time.Second},
		LogLevel:                "info",
		API: APIConfig{
			BaseURL:    "https://api.x.com",
			MaxCalls:   450,
			Window:     Duration{15 * time.Minute},
			MaxRetries: 3,
			RetryDelay: Duration{60 * time.Second},
			Timeout:    Duration{30 * time.Second},
		},
		Browser: BrowserConfig{
			Mirrors: []string{
				"https://nitter.net",
				"https://nitter.privacydev.net",
				"https://nitter.poast.org",
			},
			ScrollPause:    Duration{2 * time.Second},
			MaxIdleScrolls: 5,
			WaitTimeout:    Duration{10 * time.Second},
		},
		Categories: map[string][]string{
			"crypto_founders": {"VitalikButerin", "justinsuntron", "hoskinson_charles", "aantonop"},
			"exchanges":       {"binance", "coinbase", "krakenfx", "Gemini", "okx"},
			"analysts":        {"DocumentingBTC", "WClementeIII", "woonomic", "glassnode", "santimentfeed"},
			"crypto_media":    {"CoinDesk", "Cointelegraph", "bitcoinmagazine", "TheBlockPro"},
		},
		Keywords: map[string][]string{
			"major_cryptos":    {"bitcoin", "btc", "ethereum", "eth", "solana", "sol", "cardano", "xrp", "dogecoin"},
			"defi":             {"defi", "yield farming", "liquidity pool", "dex", "stablecoin", "usdt", "usdc", "tvl"},
			"nft":              {"nft", "non-fungible", "opensea", "floor price", "mint"},
			"market_sentiment": {"bullish", "bearish", "moon", "dump", "pump", "fomo", "fud", "hodl", "rekt"},
			"regulation":       {"sec", "regulatory", "etf approval", "bitcoin etf", "cftc", "cbdc", "lawsuit"},
		},
		Alerts: AlertsConfig{
			HighEngagementThreshold: 10000,
			SentimentThreshold:      0.5,
		},
		Email: EmailConfig{
			Provider: "smtp",
			SMTPPort: 587,
		},
		Export: ExportConfig{
			Auto:      true,
			Formats:   []string{"json", "csv"},
			Directory: "exports",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "tweetscope"), nil
}

// CacheDir returns the tweetscope directory inside the user cache dir
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "tweetscope"), nil
}

// RawCacheDir is where fetched batches are kept when cache_raw is set
func RawCacheDir() (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "raw"), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LoadFile reads config from path on top of the defaults.
// The categories and keywords tables replace the defaults rather than merging with them.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if md.IsDefined("categories") || md.IsDefined("keywords") {
		var tables struct {
			Categories map[string][]string `toml:"categories"`
			Keywords   map[string][]string `toml:"keywords"`
		}
		if _, err := toml.DecodeFile(path, &tables); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if md.IsDefined("categories") {
			cfg.Categories = tables.Categories
		}
		if md.IsDefined("keywords") {
			cfg.Keywords = tables.Keywords
		}
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("read config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	return cfg, nil
}

// Load reads the config file at the default location. A missing file yields the defaults.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return LoadFile(path)
}

// Save writes config to the default location
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to path with owner-only permissions
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return err
	}
	return f.Close()
}

// APIEnabled reports whether the structured-API strategy can run
func (c *Config) APIEnabled() bool {
	return c.UseAPI && strings.TrimSpace(c.APICredentials.BearerToken) != ""
}

// CategoryNames returns the configured account categories in sorted order
func (c *Config) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for name := range c.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the config for values the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error

	if !c.APIEnabled() && !c.UseSelenium {
		errs = append(errs, ErrNoStrategy)
	}
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path is empty"))
	}
	if c.MonitoringInterval.Duration < time.Second {
		errs = append(errs, fmt.Errorf("monitoring_interval %s is below one second", c.MonitoringInterval))
	}
	if c.MonitorTimeout.Duration < 0 {
		errs = append(errs, errors.New("monitor_timeout is negative"))
	}
	if c.MaxTweetsPerAccount <= 0 || c.MaxTweetsPerKeyword <= 0 || c.MonitorTweetsPerAccount <= 0 {
		errs = append(errs, errors.New("per-account and per-keyword limits must be positive"))
	}
	if c.RateLimitDelay.Duration < 0 {
		errs = append(errs, errors.New("rate_limit_delay is negative"))
	}
	if c.Alerts.HighEngagementThreshold < 0 {
		errs = append(errs, errors.New("alerts.high_engagement_threshold is negative"))
	}
	if c.Alerts.SentimentThreshold < 0 || c.Alerts.SentimentThreshold > 1 {
		errs = append(errs, fmt.Errorf("alerts.sentiment_threshold %.2f is outside [0, 1]", c.Alerts.SentimentThreshold))
	}
	for _, f := range c.Export.Formats {
		if f != "json" && f != "csv" {
			errs = append(errs, fmt.Errorf("unknown export format %q", f))
		}
	}
	if c.Alerts.EnableEmail && (c.Email.SMTPHost == "" || len(c.Email.ToAddrs) == 0) {
		errs = append(errs, errors.New("email alerts need email.smtp_host and email.to_addresses"))
	}

	return errors.Join(errs...)
}
