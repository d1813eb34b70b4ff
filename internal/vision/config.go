package vision

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls the photo analysis model client. Token prices are USD per
// million tokens.
type Config struct {
	BaseURL          string  `toml:"base_url"`
	APIKey           string  `toml:"api_key"`
	Model            string  `toml:"model"`
	MaxTokens        int     `toml:"max_tokens"`
	RequestTimeout   string  `toml:"request_timeout"`
	MaxImageBytes    int64   `toml:"max_image_bytes"`
	InputTokenPrice  float64 `toml:"input_token_price"`
	OutputTokenPrice float64 `toml:"output_token_price"`
}

// RequestTimeoutDuration returns RequestTimeout as a time.Duration.
func (c *Config) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestTimeout)
	return d
}

// Env maps environment variable names to Config fields.
type Env struct {
	BaseURL          string
	APIKey           string
	Model            string
	MaxTokens        string
	RequestTimeout   string
	MaxImageBytes    string
	InputTokenPrice  string
	OutputTokenPrice string
}

func DefaultEnv() Env {
	return Env{
		BaseURL:          "SCOPELINE_VISION_BASE_URL",
		APIKey:           "SCOPELINE_VISION_API_KEY",
		Model:            "SCOPELINE_VISION_MODEL",
		MaxTokens:        "SCOPELINE_VISION_MAX_TOKENS",
		RequestTimeout:   "SCOPELINE_VISION_REQUEST_TIMEOUT",
		MaxImageBytes:    "SCOPELINE_VISION_MAX_IMAGE_BYTES",
		InputTokenPrice:  "SCOPELINE_VISION_INPUT_TOKEN_PRICE",
		OutputTokenPrice: "SCOPELINE_VISION_OUTPUT_TOKEN_PRICE",
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
	if in.MaxTokens > 0 {
		c.MaxTokens = in.MaxTokens
	}
	if in.RequestTimeout != "" {
		c.RequestTimeout = in.RequestTimeout
	}
	if in.MaxImageBytes > 0 {
		c.MaxImageBytes = in.MaxImageBytes
	}
	if in.InputTokenPrice > 0 {
		c.InputTokenPrice = in.InputTokenPrice
	}
	if in.OutputTokenPrice > 0 {
		c.OutputTokenPrice = in.OutputTokenPrice
	}
}

func (c *Config) loadDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.anthropic.com"
	}
	if c.Model == "" {
		c.Model = "claude-sonnet-4-20250514"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "2m"
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = 5 << 20
	}
	if c.InputTokenPrice <= 0 {
		c.InputTokenPrice = 3.0
	}
	if c.OutputTokenPrice <= 0 {
		c.OutputTokenPrice = 15.0
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
	if v := os.Getenv(env.MaxTokens); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv(env.RequestTimeout); v != "" {
		c.RequestTimeout = v
	}
	if v := os.Getenv(env.MaxImageBytes); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxImageBytes = n
		}
	}
	if v := os.Getenv(env.InputTokenPrice); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.InputTokenPrice = f
		}
	}
	if v := os.Getenv(env.OutputTokenPrice); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.OutputTokenPrice = f
		}
	}
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("vision: api key is required")
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		return fmt.Errorf("vision: invalid request_timeout: %w", err)
	}
	return nil
}
