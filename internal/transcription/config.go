package transcription

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls the speech-to-text provider client.
type Config struct {
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Language       string  `toml:"language"`
	RequestTimeout string  `toml:"request_timeout"`
	CostPerMinute  float64 `toml:"cost_per_minute"`
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// Env maps environment variable names to Config fields.
type Env struct {
	BaseURL        string
	APIKey         string
	Model          string
	Language       string
	RequestTimeout string
	CostPerMinute  string
}

func DefaultEnv() Env {
	return Env{
		BaseURL:        "SCOPELINE_TRANSCRIPTION_BASE_URL",
		APIKey:         "SCOPELINE_TRANSCRIPTION_API_KEY",
		Model:          "SCOPELINE_TRANSCRIPTION_MODEL",
		Language:       "SCOPELINE_TRANSCRIPTION_LANGUAGE",
		RequestTimeout: "SCOPELINE_TRANSCRIPTION_REQUEST_TIMEOUT",
		CostPerMinute:  "SCOPELINE_TRANSCRIPTION_COST_PER_MINUTE",
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
	if in.BaseURL != "" {
		c.BaseURL = in.BaseURL
	}
	if in.APIKey != "" {
		c.APIKey = in.APIKey
	}
	if in.Model != "" {
		c.Model = in.Model
	}
	if in.Language != "" {
		c.Language = in.Language
	}
	if in.RequestTimeout != "" {
		c.RequestTimeout = in.RequestTimeout
	}
	if in.CostPerMinute > 0 {
		c.CostPerMinute = in.CostPerMinute
	}
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "whisper-1"
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "10m"
	}
	if c.CostPerMinute <= 0 {
		c.CostPerMinute = 0.006
	}
}

func (c *Config) loadEnv(env Env) {
	if v := os.Getenv(env.BaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(env.APIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(env.Model); v != "" {
		c.Model = v
	}
	if v := os.Getenv(env.Language); v != "" {
		c.Language = v
	}
	if v := os.Getenv(env.RequestTimeout); v != "" {
		c.RequestTimeout = v
	}
	if v := os.Getenv(env.CostPerMinute); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.CostPerMinute = f
		}
	}
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("transcription: api key is required")
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("transcription: invalid request_timeout: %w", err)
	}
	return nil
}
