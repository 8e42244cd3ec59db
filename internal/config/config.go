// Package config loads scholar's settings from defaults, an optional YAML
// file, a .env file and SCHOLAR_* environment variables, in rising order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SCHOLAR_SEARCH_PAGE_SIZE.
const EnvPrefix = "SCHOLAR"

// Config holds all configuration for the scraper.
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Storage StorageConfig `mapstructure:"storage"`
}

// SearchConfig controls how results pages are requested.
type SearchConfig struct {
	// Endpoint is the results-page URL queried with q, as_ylo, as_yhi and start.
	Endpoint string `mapstructure:"endpoint"`
	// PageSize is the assumed number of results per remote page.
	PageSize int           `mapstructure:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// MinDelay and MaxDelay bound the pause after every request.
	MinDelay time.Duration `mapstructure:"min_delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
	// MaxPerMinute caps request starts per minute. Zero disables the cap.
	MaxPerMinute float64 `mapstructure:"max_per_minute"`
	// UserAgents replaces the built-in identity pool when non-empty.
	UserAgents    []string `mapstructure:"user_agents"`
	Fingerprint   string   `mapstructure:"fingerprint"`
	ProxiesFile   string   `mapstructure:"proxies_file"`
	RespectRobots bool     `mapstructure:"respect_robots"`
	UseCookieJar  bool     `mapstructure:"use_cookie_jar"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
	// Output is stderr, stdout or a file path.
	Output    string `mapstructure:"output"`
	AddSource bool   `mapstructure:"add_source"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// StorageConfig selects where runs are persisted. An empty DSN keeps runs
// in memory only.
type StorageConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load reads configuration. cfgFile, when set, must exist; otherwise
// scholar.yaml is looked up in the working directory and
// ~/.config/scholar, and its absence is not an error.
func Load(cfgFile string) (*Config, error) {
	return load(viper.New(), cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("scholar")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "scholar"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("search.endpoint", "https://scholar.google.com/scholar")
	v.SetDefault("search.page_size", 10)
	v.SetDefault("search.timeout", "10s")
	v.SetDefault("search.min_delay", "2s")
	v.SetDefault("search.max_delay", "5s")
	v.SetDefault("search.max_per_minute", 0)
	v.SetDefault("search.user_agents", []string{})
	v.SetDefault("search.fingerprint", "go")
	v.SetDefault("search.proxies_file", "")
	v.SetDefault("search.respect_robots", false)
	v.SetDefault("search.use_cookie_jar", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("logging.add_source", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("storage.dsn", "")
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	var errs []error
	if c.Search.Endpoint == "" {
		errs = append(errs, errors.New("search.endpoint must be set"))
	}
	if c.Search.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("search.page_size must be positive, got %d", c.Search.PageSize))
	}
	if c.Search.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("search.timeout must be positive, got %s", c.Search.Timeout))
	}
	if c.Search.MinDelay < 0 || c.Search.MaxDelay < c.Search.MinDelay {
		errs = append(errs, fmt.Errorf("search delay range %s-%s is invalid", c.Search.MinDelay, c.Search.MaxDelay))
	}
	if c.Search.MaxPerMinute < 0 {
		errs = append(errs, errors.New("search.max_per_minute must not be negative"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if f := c.Logging.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("logging.format must be text or json, got %q", f))
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level: unknown level %q", s)
	}
	return l, nil
}

// NewLogger builds a slog.Logger from cfg. The returned closer releases a
// log file if Output names one; it is a no-op otherwise.
func NewLogger(cfg LoggingConfig) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer
	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
	case "stdout":
		w = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("config: log output: %w", err)
		}
		w, closer = f, f
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
