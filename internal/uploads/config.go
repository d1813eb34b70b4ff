package uploads

import (
	"os"
	"path/filepath"
	"time"

	"github.com/scopeline/scopeline/pkg/formatting"
)

// Config holds chunked upload staging parameters.
type Config struct {
	StagingDir    string `toml:"staging_dir"`
	MaxFileSize   string `toml:"max_file_size"`
	IdleTimeout   string `toml:"idle_timeout"`
	SweepInterval string `toml:"sweep_interval"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	StagingDir  string
	MaxFileSize string
	IdleTimeout string
}

// MaxFileSizeBytes returns MaxFileSize as a byte count.
func (c *Config) MaxFileSizeBytes() int64 {
	n, err := formatting.ParseBytes(c.MaxFileSize)
	if err != nil {
		return 500 * 1024 * 1024
	}
	return n
}

// IdleTimeoutDuration returns IdleTimeout as a time.Duration.
func (c *Config) IdleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	return d
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.StagingDir != "" {
		c.StagingDir = overlay.StagingDir
	}
	if overlay.MaxFileSize != "" {
		c.MaxFileSize = overlay.MaxFileSize
	}
	if overlay.IdleTimeout != "" {
		c.IdleTimeout = overlay.IdleTimeout
	}
	if overlay.SweepInterval != "" {
		c.SweepInterval = overlay.SweepInterval
	}
}

func (c *Config) loadDefaults() {
	if c.StagingDir == "" {
		c.StagingDir = filepath.Join(os.TempDir(), "scopeline-uploads")
	}
	if c.MaxFileSize == "" {
		c.MaxFileSize = "500MB"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "30m"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "5m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.StagingDir != "" {
		if v := os.Getenv(env.StagingDir); v != "" {
			c.StagingDir = v
		}
	}
	if env.MaxFileSize != "" {
		if v := os.Getenv(env.MaxFileSize); v != "" {
			c.MaxFileSize = v
		}
	}
	if env.IdleTimeout != "" {
		if v := os.Getenv(env.IdleTimeout); v != "" {
			c.IdleTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if _, err := formatting.ParseBytes(c.MaxFileSize); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.IdleTimeout); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.SweepInterval); err != nil {
		return err
	}
	return nil
}
