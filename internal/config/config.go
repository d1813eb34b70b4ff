package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/jobs"
	"github.com/scopeline/scopeline/internal/pipeline"
	"github.com/scopeline/scopeline/internal/render"
	"github.com/scopeline/scopeline/internal/transcription"
	"github.com/scopeline/scopeline/internal/uploads"
	"github.com/scopeline/scopeline/internal/vision"
	"github.com/scopeline/scopeline/pkg/database"
	"github.com/scopeline/scopeline/pkg/resilience"
	"github.com/scopeline/scopeline/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvScopelineEnv             = "SCOPELINE_ENV"
	EnvScopelineShutdownTimeout = "SCOPELINE_SHUTDOWN_TIMEOUT"
	EnvScopelineVersion         = "SCOPELINE_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "SCOPELINE_DB_HOST",
	Port:            "SCOPELINE_DB_PORT",
	Name:            "SCOPELINE_DB_NAME",
	User:            "SCOPELINE_DB_USER",
	Password:        "SCOPELINE_DB_PASSWORD",
	SSLMode:         "SCOPELINE_DB_SSL_MODE",
	MaxOpenConns:    "SCOPELINE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "SCOPELINE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "SCOPELINE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "SCOPELINE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "SCOPELINE_STORAGE_CONTAINER_NAME",
	ConnectionString: "SCOPELINE_STORAGE_CONNECTION_STRING",
}

var uploadsEnv = &uploads.Env{
	StagingDir:  "SCOPELINE_UPLOADS_STAGING_DIR",
	MaxFileSize: "SCOPELINE_UPLOADS_MAX_FILE_SIZE",
	IdleTimeout: "SCOPELINE_UPLOADS_IDLE_TIMEOUT",
}

var resilienceEnv = &resilience.Env{
	MaxAttempts:    "SCOPELINE_RESILIENCE_MAX_ATTEMPTS",
	InitialBackoff: "SCOPELINE_RESILIENCE_INITIAL_BACKOFF",
	MaxBackoff:     "SCOPELINE_RESILIENCE_MAX_BACKOFF",
}

// Config is the root configuration for the Scopeline service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	Storage         storage.Config       `toml:"storage"`
	API             APIConfig            `toml:"api"`
	Uploads         uploads.Config       `toml:"uploads"`
	Jobs            jobs.Config          `toml:"jobs"`
	Transcription   transcription.Config `toml:"transcription"`
	Extraction      extraction.Config    `toml:"extraction"`
	Vision          vision.Config        `toml:"vision"`
	Pipeline        pipeline.Config      `toml:"pipeline"`
	Resilience      resilience.Config    `toml:"resilience"`
	Branding        render.Branding      `toml:"branding"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Env returns the SCOPELINE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvScopelineEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Uploads.Merge(&overlay.Uploads)
	c.Jobs.Merge(&overlay.Jobs)
	c.Transcription.Merge(&overlay.Transcription)
	c.Extraction.Merge(&overlay.Extraction)
	c.Vision.Merge(&overlay.Vision)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Resilience.Merge(&overlay.Resilience)
	c.Branding.Merge(&overlay.Branding)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Uploads.Finalize(uploadsEnv); err != nil {
		return fmt.Errorf("uploads: %w", err)
	}
	if err := c.Jobs.Finalize(jobs.DefaultEnv()); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	if err := c.Transcription.Finalize(transcription.DefaultEnv()); err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if err := c.Extraction.Finalize(extraction.DefaultEnv()); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if err := c.Vision.Finalize(vision.DefaultEnv()); err != nil {
		return fmt.Errorf("vision: %w", err)
	}
	if err := c.Pipeline.Finalize(pipeline.DefaultEnv()); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := c.Resilience.Finalize(resilienceEnv); err != nil {
		return fmt.Errorf("resilience: %w", err)
	}
	if err := c.Branding.Finalize(render.DefaultEnv()); err != nil {
		return fmt.Errorf("branding: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvScopelineShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvScopelineVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvScopelineEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
