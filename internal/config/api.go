package config

import (
	"fmt"
	"os"

	"github.com/scopeline/scopeline/pkg/formatting"
	"github.com/scopeline/scopeline/pkg/middleware"
	"github.com/scopeline/scopeline/pkg/pagination"
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "SCOPELINE_CORS_ENABLED",
	Origins:          "SCOPELINE_CORS_ORIGINS",
	AllowedMethods:   "SCOPELINE_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "SCOPELINE_CORS_ALLOWED_HEADERS",
	AllowCredentials: "SCOPELINE_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "SCOPELINE_CORS_MAX_AGE",
}

var authEnv = &middleware.AuthEnv{
	Enabled:       "SCOPELINE_AUTH_ENABLED",
	Issuer:        "SCOPELINE_AUTH_ISSUER",
	Audience:      "SCOPELINE_AUTH_AUDIENCE",
	TenantClaim:   "SCOPELINE_AUTH_TENANT_CLAIM",
	DefaultTenant: "SCOPELINE_AUTH_DEFAULT_TENANT",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "SCOPELINE_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "SCOPELINE_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig holds API routing, CORS, auth, and pagination settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize string                `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Auth          middleware.AuthConfig `toml:"auth"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxUploadSizeBytes returns the parsed chunk upload form limit.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	size, err := formatting.ParseBytes(c.MaxUploadSize)
	if err != nil {
		return 64 * 1024 * 1024 // 64MB fallback
	}
	return size
}

// Finalize applies defaults, environment variable overrides, and validation
// for the API config and its nested CORS, auth, and pagination configs.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay across nested configs.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	if overlay.MaxUploadSize != "" {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Auth.Merge(&overlay.Auth)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = "64MB"
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv("SCOPELINE_API_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("SCOPELINE_API_MAX_UPLOAD_SIZE"); v != "" {
		c.MaxUploadSize = v
	}
}
