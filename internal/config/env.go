package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/subosito/gotenv"
)

// LoadEnv loads a .env file into the process environment without
// overriding variables that are already set
func LoadEnv(envFile string) {
	if err := gotenv.Load(envFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("[config] Could not read env file", "path", envFile, "error", err)
		}
		return
	}
	slog.Debug("[config] Loaded env file", "path", envFile)
}

// ApplyEnv overrides fields from environment variables. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(key); ok {
			d, err := ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			dst.Duration = d
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = SplitList(v)
		}
	}

	boolean("USE_API", &c.UseAPI)
	str("X_BEARER_TOKEN", &c.APICredentials.BearerToken)
	boolean("USE_SELENIUM", &c.UseSelenium)
	boolean("HEADLESS", &c.Headless)
	str("PROXY", &c.Proxy)
	str("DATABASE_PATH", &c.DatabasePath)
	duration("MONITORING_INTERVAL", &c.MonitoringInterval)
	str("MONITOR_SCHEDULE", &c.MonitorSchedule)
	duration("MONITOR_TIMEOUT", &c.MonitorTimeout)
	integer("MAX_TWEETS_PER_ACCOUNT", &c.MaxTweetsPerAccount)
	integer("MAX_TWEETS_PER_KEYWORD", &c.MaxTweetsPerKeyword)
	duration("RATE_LIMIT_DELAY", &c.RateLimitDelay)
	duration("SCROLL_PAUSE_TIME", &c.Browser.ScrollPause)
	str("COOKIE_FILE", &c.Browser.CookieFile)
	integer("HIGH_ENGAGEMENT_THRESHOLD", &c.Alerts.HighEngagementThreshold)
	float("SENTIMENT_THRESHOLD", &c.Alerts.SentimentThreshold)
	boolean("ENABLE_EMAIL_ALERTS", &c.Alerts.EnableEmail)
	boolean("AUTO_EXPORT", &c.Export.Auto)
	list("EXPORT_FORMATS", &c.Export.Formats)
	str("EXPORT_DIRECTORY", &c.Export.Directory)
	str("LOG_LEVEL", &c.LogLevel)
	boolean("CACHE_RAW", &c.CacheRaw)

	return errors.Join(errs...)
}

// SplitList splits a comma-separated value, dropping blanks
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Resolve builds the effective config: the file at path (or the default
// location when path is empty), then envFile, then the process environment
func Resolve(path, envFile string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg, err = Load()
	} else {
		cfg, err = LoadFile(path)
	}
	if err != nil {
		return nil, err
	}

	if envFile != "" {
		LoadEnv(envFile)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	return cfg, nil
}
