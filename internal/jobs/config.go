package jobs

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config controls the job store backend and record lifetime.
type Config struct {
	Backend       string `toml:"backend"`
	TTL           string `toml:"ttl"`
	SweepInterval string `toml:"sweep_interval"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// TTLDuration returns TTL as a time.Duration.
func (c *Config) TTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.TTL)
	return d
}

// SweepIntervalDuration returns SweepInterval as a time.Duration.
func (c *Config) SweepIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.SweepInterval)
	return d
}

// Env maps environment variable names to Config fields.
type Env struct {
	Backend       string
	TTL           string
	SweepInterval string
	RedisAddr     string
	RedisPassword string
	RedisDB       string
}

func DefaultEnv() Env {
	return Env{
		Backend:       "SCOPELINE_JOBS_BACKEND",
		TTL:           "SCOPELINE_JOBS_TTL",
		SweepInterval: "SCOPELINE_JOBS_SWEEP_INTERVAL",
		RedisAddr:     "SCOPELINE_JOBS_REDIS_ADDR",
		RedisPassword: "SCOPELINE_JOBS_REDIS_PASSWORD",
		RedisDB:       "SCOPELINE_JOBS_REDIS_DB",
	}
}

func (c *Config) Finalize(env Env) error {
	c.loadDefaults()
	c.loadEnv(env)
	return c.validate()
}

func (c *Config) Merge(in *Config) {
	if in == nil {
		return
	}
	if in.Backend != "" {
		c.Backend = in.Backend
	}
	if in.TTL != "" {
		c.TTL = in.TTL
	}
	if in.SweepInterval != "" {
		c.SweepInterval = in.SweepInterval
	}
	if in.RedisAddr != "" {
		c.RedisAddr = in.RedisAddr
	}
	if in.RedisPassword != "" {
		c.RedisPassword = in.RedisPassword
	}
	if in.RedisDB != 0 {
		c.RedisDB = in.RedisDB
	}
}

func (c *Config) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.TTL == "" {
		c.TTL = "1h"
	}
	if c.SweepInterval == "" {
		c.SweepInterval = "1m"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
}

func (c *Config) loadEnv(env Env) {
	if v := os.Getenv(env.Backend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(env.TTL); v != "" {
		c.TTL = v
	}
	if v := os.Getenv(env.SweepInterval); v != "" {
		c.SweepInterval = v
	}
	if v := os.Getenv(env.RedisAddr); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv(env.RedisPassword); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv(env.RedisDB); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("jobs: unknown backend %q", c.Backend)
	}
	if _, err := time.ParseDuration(c.TTL); err != nil {
		return fmt.Errorf("jobs: invalid ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.SweepInterval); err != nil {
		return fmt.Errorf("jobs: invalid sweep_interval: %w", err)
	}
	return nil
}
