package fetcher

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// FetchConfig controls security, performance, and behavior of feed and
// per-item page fetching.
type FetchConfig struct {
	// Enabled controls whether per-item secondary page fetches happen at
	// all. When false, items use only the content the feed payload itself
	// carried.
	Enabled bool

	// Threshold is the minimum inline feed-item content length (in
	// characters) below which a secondary page fetch is attempted.
	Threshold int

	// Timeout is the maximum duration for a single HTTP request.
	Timeout time.Duration

	// Parallelism is the maximum number of concurrent secondary fetches.
	Parallelism int

	// MaxBodySize is the maximum HTTP response body size in bytes,
	// enforced during response reading via io.LimitReader.
	MaxBodySize int64

	// MaxRedirects is the maximum number of HTTP redirects to follow.
	MaxRedirects int

	// DenyPrivateIPs blocks URLs resolving to private/loopback/link-local
	// IPs (SSRF prevention). Should always be true in production.
	DenyPrivateIPs bool
}

// DefaultConfig returns production-ready fetch defaults: SSRF prevention
// on, a 25MB body cap, 10 concurrent secondary fetches.
func DefaultConfig() FetchConfig {
	return FetchConfig{
		Enabled:        true,
		Threshold:      1500,
		Timeout:        10 * time.Second,
		Parallelism:    10,
		MaxBodySize:    25 * 1024 * 1024,
		MaxRedirects:   5,
		DenyPrivateIPs: true,
	}
}

// Validate checks that configuration values are safe and usable.
func (c *FetchConfig) Validate() error {
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must be non-negative, got %d", c.Threshold)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.Parallelism < 1 || c.Parallelism > 50 {
		return fmt.Errorf("parallelism must be between 1 and 50, got %d", c.Parallelism)
	}
	minBodySize := int64(1024)
	maxBodySize := int64(100 * 1024 * 1024)
	if c.MaxBodySize < minBodySize || c.MaxBodySize > maxBodySize {
		return fmt.Errorf("max body size must be between %d and %d bytes, got %d", minBodySize, maxBodySize, c.MaxBodySize)
	}
	if c.MaxRedirects < 0 || c.MaxRedirects > 10 {
		return fmt.Errorf("max redirects must be between 0 and 10, got %d", c.MaxRedirects)
	}
	return nil
}

// LoadConfigFromEnv loads FetchConfig from FETCH_* environment variables,
// falling back to DefaultConfig for anything unset, then validates the result.
func LoadConfigFromEnv() (FetchConfig, error) {
	cfg := DefaultConfig()

	if val := os.Getenv("FETCH_ENABLED"); val != "" {
		cfg.Enabled = val == "true"
	}
	if val := os.Getenv("FETCH_THRESHOLD"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_THRESHOLD: %w", err)
		}
		cfg.Threshold = parsed
	}
	if val := os.Getenv("FETCH_TIMEOUT"); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_TIMEOUT: %w (expected format: '10s', '1m')", err)
		}
		cfg.Timeout = parsed
	}
	if val := os.Getenv("FETCH_PARALLELISM"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_PARALLELISM: %w", err)
		}
		cfg.Parallelism = parsed
	}
	if val := os.Getenv("FETCH_MAX_BODY_SIZE"); val != "" {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_BODY_SIZE: %w", err)
		}
		cfg.MaxBodySize = parsed
	}
	if val := os.Getenv("FETCH_MAX_REDIRECTS"); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return cfg, fmt.Errorf("invalid FETCH_MAX_REDIRECTS: %w", err)
		}
		cfg.MaxRedirects = parsed
	}
	if val := os.Getenv("FETCH_DENY_PRIVATE_IPS"); val != "" {
		cfg.DenyPrivateIPs = val == "true"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}
