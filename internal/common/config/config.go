// Package config binds the render service's environment-variable surface
// into a single Config value, with an optional YAML overlay for operators
// who prefer a file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/edgecomet/render-service/internal/common/yamlutil"
)

const envPrefix = "RS"

// Config is the full environment-bound configuration surface documented
// for the render service. Durations are expressed in milliseconds on the
// wire (matching the *_MS env var names) and converted to time.Duration
// by BrowserIdleTimeout, HealthCheckInterval and RateLimitWindow.
type Config struct {
	Port        int    `envconfig:"PORT" default:"3000"`
	Host        string `envconfig:"HOST" default:"0.0.0.0"`
	CORSEnabled bool   `envconfig:"CORS_ENABLED" default:"true"`

	PoolMinBrowsers       int `envconfig:"POOL_MIN_BROWSERS" default:"1"`
	PoolMaxBrowsers       int `envconfig:"POOL_MAX_BROWSERS" default:"5"`
	PoolMaxContexts       int `envconfig:"POOL_MAX_CONTEXTS" default:"5"`
	BrowserIdleTimeoutMS  int `envconfig:"BROWSER_IDLE_TIMEOUT" default:"300000"`
	HealthCheckIntervalMS int `envconfig:"HEALTH_CHECK_INTERVAL" default:"30000"`

	RateLimitEnabled     bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RateLimitWindowMS    int  `envconfig:"RATE_LIMIT_WINDOW_MS" default:"60000"`
	RateLimitMaxRequests int  `envconfig:"RATE_LIMIT_MAX_REQUESTS" default:"60"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	MetricsPort int    `envconfig:"METRICS_PORT" default:"9090"`
	ConfigFile  string `envconfig:"CONFIG_FILE"`
}

// overlay mirrors the subset of Config fields an operator may set through
// a YAML file referenced by CONFIG_FILE. Fields are pointers so an absent
// key leaves the env-derived default untouched.
type overlay struct {
	Port                  *int    `yaml:"port"`
	Host                  *string `yaml:"host"`
	CORSEnabled           *bool   `yaml:"cors_enabled"`
	PoolMinBrowsers       *int    `yaml:"pool_min_browsers"`
	PoolMaxBrowsers       *int    `yaml:"pool_max_browsers"`
	PoolMaxContexts       *int    `yaml:"pool_max_contexts"`
	BrowserIdleTimeoutMS  *int    `yaml:"browser_idle_timeout_ms"`
	HealthCheckIntervalMS *int    `yaml:"health_check_interval_ms"`
	RateLimitEnabled      *bool   `yaml:"rate_limit_enabled"`
	RateLimitWindowMS     *int    `yaml:"rate_limit_window_ms"`
	RateLimitMaxRequests  *int    `yaml:"rate_limit_max_requests"`
	LogLevel              *string `yaml:"log_level"`
	MetricsPort           *int    `yaml:"metrics_port"`
}

// Load reads Config from the environment, then applies an optional YAML
// overlay when CONFIG_FILE is set.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if cfg.ConfigFile != "" {
		if err := applyOverlay(&cfg, cfg.ConfigFile); err != nil {
			return nil, fmt.Errorf("failed to apply config overlay %q: %w", cfg.ConfigFile, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func applyOverlay(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var ov overlay
	if err := yamlutil.UnmarshalStrict(data, &ov); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}

	if ov.Port != nil {
		cfg.Port = *ov.Port
	}
	if ov.Host != nil {
		cfg.Host = *ov.Host
	}
	if ov.CORSEnabled != nil {
		cfg.CORSEnabled = *ov.CORSEnabled
	}
	if ov.PoolMinBrowsers != nil {
		cfg.PoolMinBrowsers = *ov.PoolMinBrowsers
	}
	if ov.PoolMaxBrowsers != nil {
		cfg.PoolMaxBrowsers = *ov.PoolMaxBrowsers
	}
	if ov.PoolMaxContexts != nil {
		cfg.PoolMaxContexts = *ov.PoolMaxContexts
	}
	if ov.BrowserIdleTimeoutMS != nil {
		cfg.BrowserIdleTimeoutMS = *ov.BrowserIdleTimeoutMS
	}
	if ov.HealthCheckIntervalMS != nil {
		cfg.HealthCheckIntervalMS = *ov.HealthCheckIntervalMS
	}
	if ov.RateLimitEnabled != nil {
		cfg.RateLimitEnabled = *ov.RateLimitEnabled
	}
	if ov.RateLimitWindowMS != nil {
		cfg.RateLimitWindowMS = *ov.RateLimitWindowMS
	}
	if ov.RateLimitMaxRequests != nil {
		cfg.RateLimitMaxRequests = *ov.RateLimitMaxRequests
	}
	if ov.LogLevel != nil {
		cfg.LogLevel = *ov.LogLevel
	}
	if ov.MetricsPort != nil {
		cfg.MetricsPort = *ov.MetricsPort
	}

	return nil
}

// Validate checks that bound values are internally consistent.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.MetricsPort <= 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("METRICS_PORT must be between 1 and 65535, got %d", c.MetricsPort)
	}
	if c.MetricsPort == c.Port {
		return fmt.Errorf("METRICS_PORT (%d) must differ from PORT (%d)", c.MetricsPort, c.Port)
	}
	if c.PoolMinBrowsers < 0 {
		return fmt.Errorf("POOL_MIN_BROWSERS must be >= 0, got %d", c.PoolMinBrowsers)
	}
	if c.PoolMaxBrowsers <= 0 {
		return fmt.Errorf("POOL_MAX_BROWSERS must be > 0, got %d", c.PoolMaxBrowsers)
	}
	if c.PoolMinBrowsers > c.PoolMaxBrowsers {
		return fmt.Errorf("POOL_MIN_BROWSERS (%d) cannot exceed POOL_MAX_BROWSERS (%d)", c.PoolMinBrowsers, c.PoolMaxBrowsers)
	}
	if c.PoolMaxContexts <= 0 {
		return fmt.Errorf("POOL_MAX_CONTEXTS must be > 0, got %d", c.PoolMaxContexts)
	}
	if c.BrowserIdleTimeoutMS <= 0 {
		return fmt.Errorf("BROWSER_IDLE_TIMEOUT must be > 0, got %d", c.BrowserIdleTimeoutMS)
	}
	if c.HealthCheckIntervalMS <= 0 {
		return fmt.Errorf("HEALTH_CHECK_INTERVAL must be > 0, got %d", c.HealthCheckIntervalMS)
	}
	if c.RateLimitEnabled {
		if c.RateLimitWindowMS <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW_MS must be > 0, got %d", c.RateLimitWindowMS)
		}
		if c.RateLimitMaxRequests <= 0 {
			return fmt.Errorf("RATE_LIMIT_MAX_REQUESTS must be > 0, got %d", c.RateLimitMaxRequests)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	return nil
}

// BrowserIdleTimeout returns the configured idle timeout as a duration.
func (c *Config) BrowserIdleTimeout() time.Duration {
	return time.Duration(c.BrowserIdleTimeoutMS) * time.Millisecond
}

// HealthCheckInterval returns the configured health-check interval as a duration.
func (c *Config) HealthCheckInterval() time.Duration {
	return time.Duration(c.HealthCheckIntervalMS) * time.Millisecond
}

// RateLimitWindow returns the configured rate-limit window as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMS) * time.Millisecond
}

// ListenAddr returns the host:port pair the HTTP server should bind.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsListenAddr returns the host:port pair the metrics server should bind.
func (c *Config) MetricsListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}
