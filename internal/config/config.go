package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ligustah/tilerip/internal/logging"
	"github.com/ligustah/tilerip/pkg/tile"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "TILERIP_"

// Config defines configuration for the tilerip CLI.
type Config struct {
	URL         string      `yaml:"url"`
	BBox        string      `yaml:"bbox"`
	MinZoom     int         `yaml:"min_zoom"`
	MaxZoom     int         `yaml:"max_zoom"`
	Output      string      `yaml:"output"`
	Workers     int         `yaml:"workers"`
	NoOverwrite bool        `yaml:"no_overwrite"`
	Limit       int         `yaml:"limit"`
	Extension   string      `yaml:"extension"`
	Progress    bool        `yaml:"progress"`
	MetricsAddr string      `yaml:"metrics_addr"`
	Log         LogConfig   `yaml:"log"`
	HTTP        HTTPConfig  `yaml:"http"`
	Retry       RetryConfig `yaml:"retry"`
}

// LogConfig defines logging output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HTTPConfig defines how tiles are requested.
type HTTPConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	RateLimit float64       `yaml:"rate_limit"`
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Workers:   1,
		Limit:     -1, // unlimited
		Extension: "jpg",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			Attempts:   0,
			Backoff:    500 * time.Millisecond,
			MaxBackoff: 10 * time.Second,
		},
	}
}

// Keys lists every settable key in dotted YAML form.
var Keys = []string{
	"url",
	"bbox",
	"min_zoom",
	"max_zoom",
	"output",
	"workers",
	"no_overwrite",
	"limit",
	"extension",
	"progress",
	"metrics_addr",
	"log.level",
	"log.format",
	"http.timeout",
	"http.user_agent",
	"http.rate_limit",
	"retry.attempts",
	"retry.backoff",
	"retry.max_backoff",
}

// yamlConfig is used for YAML unmarshaling with string durations. Pointers
// distinguish an explicit zero from an absent key.
type yamlConfig struct {
	URL         *string         `yaml:"url"`
	BBox        *string         `yaml:"bbox"`
	MinZoom     *int            `yaml:"min_zoom"`
	MaxZoom     *int            `yaml:"max_zoom"`
	Output      *string         `yaml:"output"`
	Workers     *int            `yaml:"workers"`
	NoOverwrite *bool           `yaml:"no_overwrite"`
	Limit       *int            `yaml:"limit"`
	Extension   *string         `yaml:"extension"`
	Progress    *bool           `yaml:"progress"`
	MetricsAddr *string         `yaml:"metrics_addr"`
	Log         yamlLogConfig   `yaml:"log"`
	HTTP        yamlHTTPConfig  `yaml:"http"`
	Retry       yamlRetryConfig `yaml:"retry"`
}

type yamlLogConfig struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
}

type yamlHTTPConfig struct {
	Timeout   *string  `yaml:"timeout"`
	UserAgent *string  `yaml:"user_agent"`
	RateLimit *float64 `yaml:"rate_limit"`
}

type yamlRetryConfig struct {
	Attempts   *int    `yaml:"attempts"`
	Backoff    *string `yaml:"backoff"`
	MaxBackoff *string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	setString(&cfg.URL, yc.URL)
	setString(&cfg.BBox, yc.BBox)
	setInt(&cfg.MinZoom, yc.MinZoom)
	setInt(&cfg.MaxZoom, yc.MaxZoom)
	setString(&cfg.Output, yc.Output)
	setInt(&cfg.Workers, yc.Workers)
	if yc.NoOverwrite != nil {
		cfg.NoOverwrite = *yc.NoOverwrite
	}
	setInt(&cfg.Limit, yc.Limit)
	setString(&cfg.Extension, yc.Extension)
	if yc.Progress != nil {
		cfg.Progress = *yc.Progress
	}
	setString(&cfg.MetricsAddr, yc.MetricsAddr)
	setString(&cfg.Log.Level, yc.Log.Level)
	setString(&cfg.Log.Format, yc.Log.Format)
	setString(&cfg.HTTP.UserAgent, yc.HTTP.UserAgent)
	if yc.HTTP.RateLimit != nil {
		cfg.HTTP.RateLimit = *yc.HTTP.RateLimit
	}
	setInt(&cfg.Retry.Attempts, yc.Retry.Attempts)

	durations := []struct {
		key string
		src *string
		dst *time.Duration
	}{
		{"http.timeout", yc.HTTP.Timeout, &cfg.HTTP.Timeout},
		{"retry.backoff", yc.Retry.Backoff, &cfg.Retry.Backoff},
		{"retry.max_backoff", yc.Retry.MaxBackoff, &cfg.Retry.MaxBackoff},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

// EnvName returns the environment variable for a key, e.g. "retry.attempts"
// becomes TILERIP_RETRY_ATTEMPTS.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the TILERIP_ prefix.
func (c *Config) LoadFromEnv() error {
	for _, key := range Keys {
		name := EnvName(key)
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return nil
}

// Set assigns a single key from its string form. Keys use the dotted YAML
// names listed in Keys.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "url":
		c.URL = value
	case "bbox":
		c.BBox = value
	case "min_zoom":
		c.MinZoom, err = strconv.Atoi(value)
	case "max_zoom":
		c.MaxZoom, err = strconv.Atoi(value)
	case "output":
		c.Output = value
	case "workers":
		c.Workers, err = strconv.Atoi(value)
	case "no_overwrite":
		c.NoOverwrite, err = strconv.ParseBool(value)
	case "limit":
		c.Limit, err = strconv.Atoi(value)
	case "extension":
		c.Extension = value
	case "progress":
		c.Progress, err = strconv.ParseBool(value)
	case "metrics_addr":
		c.MetricsAddr = value
	case "log.level":
		c.Log.Level = value
	case "log.format":
		c.Log.Format = value
	case "http.timeout":
		c.HTTP.Timeout, err = time.ParseDuration(value)
	case "http.user_agent":
		c.HTTP.UserAgent = value
	case "http.rate_limit":
		c.HTTP.RateLimit, err = strconv.ParseFloat(value, 64)
	case "retry.attempts":
		c.Retry.Attempts, err = strconv.Atoi(value)
	case "retry.backoff":
		c.Retry.Backoff, err = time.ParseDuration(value)
	case "retry.max_backoff":
		c.Retry.MaxBackoff, err = time.ParseDuration(value)
	default:
		return fmt.Errorf("config: unknown key %q", key)
	}
	return err
}

// Box parses the bbox setting.
func (c *Config) Box() (tile.BoundingBox, error) {
	return tile.ParseBoundingBox(c.BBox)
}

// Validate validates the configuration and returns the parsed bounding box.
func (c *Config) Validate() (tile.BoundingBox, error) {
	if c.URL == "" {
		return tile.BoundingBox{}, errors.New("config: URL is required")
	}
	if c.BBox == "" {
		return tile.BoundingBox{}, errors.New("config: bbox is required")
	}
	box, err := c.Box()
	if err != nil {
		return tile.BoundingBox{}, fmt.Errorf("config: %w", err)
	}
	if err := box.Validate(); err != nil {
		return tile.BoundingBox{}, fmt.Errorf("config: %w", err)
	}
	if c.Output == "" {
		return tile.BoundingBox{}, errors.New("config: output is required")
	}
	if c.MinZoom < 0 || c.MaxZoom < 0 {
		return tile.BoundingBox{}, errors.New("config: zoom levels must not be negative")
	}
	if c.Workers <= 0 {
		return tile.BoundingBox{}, errors.New("config: workers must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return tile.BoundingBox{}, fmt.Errorf("config: %w", err)
	}
	if !logging.ValidFormat(c.Log.Format) {
		return tile.BoundingBox{}, fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.HTTP.Timeout < 0 {
		return tile.BoundingBox{}, errors.New("config: http.timeout must not be negative")
	}
	if c.HTTP.RateLimit < 0 {
		return tile.BoundingBox{}, errors.New("config: http.rate_limit must not be negative")
	}
	if c.Retry.Attempts < 0 {
		return tile.BoundingBox{}, errors.New("config: retry.attempts must not be negative")
	}
	return box, nil
}
