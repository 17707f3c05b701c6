// Package config loads artic-select settings.
//
// Sources are applied in order, each overriding the last: built-in defaults,
// an optional TOML file, ARTIC_* environment variables (a .env file is loaded
// into the environment by the root command), then command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/bulk"
	"github.com/Sternrassler/artic-select/pkg/client"
	"github.com/Sternrassler/artic-select/pkg/logging"
	"github.com/Sternrassler/artic-select/pkg/pagination"
	"github.com/Sternrassler/artic-select/pkg/ratelimit"
	"github.com/Sternrassler/artic-select/pkg/view"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ARTIC_"

// DefaultUserAgent identifies artic-select when no user agent is configured.
const DefaultUserAgent = "artic-select/0.1.0 (https://github.com/Sternrassler/artic-select)"

// Duration is a time.Duration written as a string ("15s") in TOML.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config is the full application configuration.
type Config struct {
	BaseURL        string   `toml:"base_url"`
	UserAgent      string   `toml:"user_agent"`
	PageSize       int      `toml:"page_size"`
	MaxConcurrency int      `toml:"max_concurrency"`
	FetchTimeout   Duration `toml:"fetch_timeout"`
	RequestTimeout Duration `toml:"request_timeout"`
	RateLimit      float64  `toml:"rate_limit"`
	Burst          int      `toml:"burst"`
	MaxRetries     int      `toml:"max_retries"`
	RedisAddr      string   `toml:"redis_addr"`
	ListenAddr     string   `toml:"listen_addr"`
	LogLevel       string   `toml:"log_level"`
	LogPretty      bool     `toml:"log_pretty"`
	BulkPolicy     string   `toml:"bulk_policy"`
	ZeroClears     bool     `toml:"zero_clears"`
}

// Default returns the built-in configuration.
func Default() Config {
	fetch := pagination.DefaultConfig()
	return Config{
		BaseURL:        client.DefaultBaseURL,
		UserAgent:      DefaultUserAgent,
		PageSize:       artwork.DefaultPageSize,
		MaxConcurrency: fetch.MaxConcurrency,
		FetchTimeout:   Duration(fetch.Timeout),
		RequestTimeout: Duration(30 * time.Second),
		RateLimit:      ratelimit.DefaultRequestsPerSecond,
		Burst:          ratelimit.DefaultBurst,
		MaxRetries:     0,
		ListenAddr:     ":8080",
		LogLevel:       string(logging.LevelInfo),
		BulkPolicy:     bulk.FillTo.String(),
		ZeroClears:     true,
	}
}

// Load builds the configuration from defaults, the TOML file at path (when
// path is non-empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// applyEnv overrides fields from ARTIC_* variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	duration := func(key string, dst *Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if err := dst.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}

	str("BASE_URL", &c.BaseURL)
	str("USER_AGENT", &c.UserAgent)
	num("PAGE_SIZE", &c.PageSize)
	num("MAX_CONCURRENCY", &c.MaxConcurrency)
	duration("FETCH_TIMEOUT", &c.FetchTimeout)
	duration("REQUEST_TIMEOUT", &c.RequestTimeout)
	float("RATE_LIMIT", &c.RateLimit)
	num("BURST", &c.Burst)
	num("MAX_RETRIES", &c.MaxRetries)
	str("REDIS_ADDR", &c.RedisAddr)
	str("LISTEN_ADDR", &c.ListenAddr)
	str("LOG_LEVEL", &c.LogLevel)
	boolean("LOG_PRETTY", &c.LogPretty)
	str("BULK_POLICY", &c.BulkPolicy)
	boolean("ZERO_CLEARS", &c.ZeroClears)

	return errors.Join(errs...)
}

// Validate checks the configuration for values the packages would reject.
func (c Config) Validate() error {
	var errs []error
	if c.UserAgent == "" {
		errs = append(errs, errors.New("user_agent is required"))
	}
	if c.PageSize <= 0 || c.PageSize > client.MaxPageSize {
		errs = append(errs, fmt.Errorf("page_size must be between 1 and %d (got %d)", client.MaxPageSize, c.PageSize))
	}
	if c.MaxConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrency must be > 0 (got %d)", c.MaxConcurrency))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("max_retries must be >= 0 (got %d)", c.MaxRetries))
	}
	if _, err := bulk.ParsePolicy(c.BulkPolicy); err != nil {
		errs = append(errs, err)
	}
	if !logging.IsLevel(c.LogLevel) {
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// Client returns the API client configuration.
func (c Config) Client() client.Config {
	cfg := client.DefaultConfig(c.UserAgent)
	cfg.BaseURL = c.BaseURL
	cfg.PageSize = c.PageSize
	cfg.Timeout = time.Duration(c.RequestTimeout)
	cfg.RateLimit = c.RateLimit
	cfg.Burst = c.Burst
	cfg.MaxRetries = c.MaxRetries
	return cfg
}

// View returns the session controller configuration.
func (c Config) View() view.Config {
	policy, _ := bulk.ParsePolicy(c.BulkPolicy)
	return view.Config{
		PageSize: c.PageSize,
		Policy:   policy,
		Fetch: pagination.Config{
			MaxConcurrency: c.MaxConcurrency,
			Timeout:        time.Duration(c.FetchTimeout),
		},
		ZeroClears: c.ZeroClears,
	}
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(strings.ToLower(strings.TrimSpace(c.LogLevel)))
	cfg.Pretty = c.LogPretty
	return cfg
}
