package pipeline

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config controls pipeline execution limits and defaults.
type Config struct {
	JobTimeout       string   `toml:"job_timeout"`
	PhotoConcurrency int      `toml:"photo_concurrency"`
	DefaultTemplate  string   `toml:"default_template"`
	DefaultFormats   []string `toml:"default_formats"`
	MaxPDFPages      int      `toml:"max_pdf_pages"`
	KeepTranscript   bool     `toml:"keep_transcript"`
}

// JobTimeoutDuration returns JobTimeout as a time.Duration.
func (c *Config) JobTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.JobTimeout)
	return d
}

// Env maps environment variable names to Config fields.
type Env struct {
	JobTimeout       string
	PhotoConcurrency string
	DefaultTemplate  string
	DefaultFormats   string
	MaxPDFPages      string
	KeepTranscript   string
}

func DefaultEnv() Env {
	return Env{
		JobTimeout:       "SCOPELINE_PIPELINE_JOB_TIMEOUT",
		PhotoConcurrency: "SCOPELINE_PIPELINE_PHOTO_CONCURRENCY",
		DefaultTemplate:  "SCOPELINE_PIPELINE_DEFAULT_TEMPLATE",
		DefaultFormats:   "SCOPELINE_PIPELINE_DEFAULT_FORMATS",
		MaxPDFPages:      "SCOPELINE_PIPELINE_MAX_PDF_PAGES",
		KeepTranscript:   "SCOPELINE_PIPELINE_KEEP_TRANSCRIPT",
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
	if in.JobTimeout != "" {
		c.JobTimeout = in.JobTimeout
	}
	if in.PhotoConcurrency > 0 {
		c.PhotoConcurrency = in.PhotoConcurrency
	}
	if in.DefaultTemplate != "" {
		c.DefaultTemplate = in.DefaultTemplate
	}
	if in.DefaultFormats != nil {
		c.DefaultFormats = in.DefaultFormats
	}
	if in.MaxPDFPages > 0 {
		c.MaxPDFPages = in.MaxPDFPages
	}
	c.KeepTranscript = c.KeepTranscript || in.KeepTranscript
}

func (c *Config) loadDefaults() {
	if c.JobTimeout == "" {
		c.JobTimeout = "30m"
	}
	if c.PhotoConcurrency <= 0 {
		c.PhotoConcurrency = 4
	}
	if c.DefaultTemplate == "" {
		c.DefaultTemplate = "jral"
	}
	if len(c.DefaultFormats) == 0 {
		c.DefaultFormats = []string{"docx", "pdf"}
	}
	if c.MaxPDFPages <= 0 {
		c.MaxPDFPages = 200
	}
}

func (c *Config) loadEnv(env Env) {
	if v := os.Getenv(env.JobTimeout); v != "" {
		c.JobTimeout = v
	}
	if v := os.Getenv(env.PhotoConcurrency); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PhotoConcurrency = n
		}
	}
	if v := os.Getenv(env.DefaultTemplate); v != "" {
		c.DefaultTemplate = v
	}
	if v := os.Getenv(env.DefaultFormats); v != "" {
		formats := strings.Split(v, ",")
		c.DefaultFormats = make([]string, 0, len(formats))
		for _, format := range formats {
			if trimmed := strings.TrimSpace(format); trimmed != "" {
				c.DefaultFormats = append(c.DefaultFormats, trimmed)
			}
		}
	}
	if v := os.Getenv(env.MaxPDFPages); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxPDFPages = n
		}
	}
	if v := os.Getenv(env.KeepTranscript); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.KeepTranscript = b
		}
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.JobTimeout); err != nil {
		return fmt.Errorf("pipeline: invalid job_timeout: %w", err)
	}
	for _, format := range c.DefaultFormats {
		if !slices.Contains([]string{"docx", "pdf"}, format) {
			return fmt.Errorf("pipeline: unknown default format %q", format)
		}
	}
	switch c.DefaultTemplate {
	case "jral", "trade", "narrative":
	default:
		return fmt.Errorf("pipeline: unknown default template %q", c.DefaultTemplate)
	}
	return nil
}
