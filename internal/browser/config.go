package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// Config holds the pool's sizing and lifecycle policy.
type Config struct {
	MinBrowsers           int
	MaxBrowsers           int
	MaxContextsPerBrowser int
	IdleTimeout           time.Duration
	HealthCheckInterval   time.Duration
	AcquireTimeout        time.Duration

	// LaunchFunc, when set, is used instead of launching a real chromedp
	// allocator. Tests set this to avoid spawning Chrome processes; an
	// unset LaunchFunc means "use the real engine".
	LaunchFunc func(ctx context.Context, id int) (engineHandle, error)
}

// DefaultConfig returns the pool defaults named in the component design:
// 1 / 3 / 5 / 5 min / 30 s.
func DefaultConfig() *Config {
	return &Config{
		MinBrowsers:           1,
		MaxBrowsers:           3,
		MaxContextsPerBrowser: 5,
		IdleTimeout:           5 * time.Minute,
		HealthCheckInterval:   30 * time.Second,
		AcquireTimeout:        30 * time.Second,
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.MinBrowsers < 0 {
		return fmt.Errorf("min browsers cannot be negative")
	}
	if c.MaxBrowsers <= 0 {
		return fmt.Errorf("max browsers must be positive")
	}
	if c.MinBrowsers > c.MaxBrowsers {
		return fmt.Errorf("min browsers (%d) cannot exceed max browsers (%d)", c.MinBrowsers, c.MaxBrowsers)
	}
	if c.MaxContextsPerBrowser <= 0 {
		return fmt.Errorf("max contexts per browser must be positive")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}
	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive")
	}
	if c.AcquireTimeout <= 0 {
		return fmt.Errorf("acquire timeout must be positive")
	}
	return nil
}

// RecommendMaxBrowsers estimates a safe MaxBrowsers from available system
// RAM, reserving 2GB for the host and budgeting 500MB per browser process,
// clamped to [floor, 50].
func RecommendMaxBrowsers(floor int) int {
	v, err := mem.VirtualMemory()
	var totalBytes int64
	if err != nil {
		totalBytes = 8 * 1024 * 1024 * 1024 // conservative 8GB fallback
	} else {
		totalBytes = int64(v.Total)
	}

	const reservedBytes = 2 * 1024 * 1024 * 1024
	const perBrowserBytes = 500 * 1024 * 1024

	available := totalBytes - reservedBytes
	size := int(available / perBrowserBytes)

	if size < floor {
		size = floor
	}
	if size > 50 {
		size = 50
	}
	return size
}
