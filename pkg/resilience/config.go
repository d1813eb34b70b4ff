package resilience

import (
	"os"
	"strconv"
	"time"
)

// Config holds retry and circuit breaker parameters for provider calls.
type Config struct {
	MaxAttempts     int     `toml:"max_attempts"`
	InitialBackoff  string  `toml:"initial_backoff"`
	MaxBackoff      string  `toml:"max_backoff"`
	Multiplier      float64 `toml:"multiplier"`
	BreakerEnabled  bool    `toml:"breaker_enabled"`
	BreakerMinCalls uint32  `toml:"breaker_min_calls"`
	BreakerRatio    float64 `toml:"breaker_ratio"`
	BreakerTimeout  string  `toml:"breaker_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxAttempts    string
	InitialBackoff string
	MaxBackoff     string
}

// InitialBackoffDuration returns InitialBackoff as a time.Duration.
func (c *Config) InitialBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.InitialBackoff)
	return d
}

// MaxBackoffDuration returns MaxBackoff as a time.Duration.
func (c *Config) MaxBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxBackoff)
	return d
}

// BreakerTimeoutDuration returns BreakerTimeout as a time.Duration.
func (c *Config) BreakerTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.BreakerTimeout)
	return d
}

// Finalize applies defaults and environment variable overrides.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.InitialBackoff != "" {
		c.InitialBackoff = overlay.InitialBackoff
	}
	if overlay.MaxBackoff != "" {
		c.MaxBackoff = overlay.MaxBackoff
	}
	if overlay.Multiplier != 0 {
		c.Multiplier = overlay.Multiplier
	}
	c.BreakerEnabled = overlay.BreakerEnabled
	if overlay.BreakerMinCalls != 0 {
		c.BreakerMinCalls = overlay.BreakerMinCalls
	}
	if overlay.BreakerRatio != 0 {
		c.BreakerRatio = overlay.BreakerRatio
	}
	if overlay.BreakerTimeout != "" {
		c.BreakerTimeout = overlay.BreakerTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialBackoff == "" {
		c.InitialBackoff = "500ms"
	}
	if c.MaxBackoff == "" {
		c.MaxBackoff = "10s"
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.BreakerMinCalls == 0 {
		c.BreakerMinCalls = 5
	}
	if c.BreakerRatio == 0 {
		c.BreakerRatio = 0.6
	}
	if c.BreakerTimeout == "" {
		c.BreakerTimeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.MaxAttempts != "" {
		if v := os.Getenv(env.MaxAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				c.MaxAttempts = n
			}
		}
	}
	if env.InitialBackoff != "" {
		if v := os.Getenv(env.InitialBackoff); v != "" {
			c.InitialBackoff = v
		}
	}
	if env.MaxBackoff != "" {
		if v := os.Getenv(env.MaxBackoff); v != "" {
			c.MaxBackoff = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.InitialBackoff); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.MaxBackoff); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.BreakerTimeout); err != nil {
		return err
	}
	return nil
}
