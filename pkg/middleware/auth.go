package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// AuthConfig holds bearer token verification settings. When disabled, every
// request runs under DefaultTenant.
type AuthConfig struct {
	Enabled       bool   `toml:"enabled"`
	Issuer        string `toml:"issuer"`
	Audience      string `toml:"audience"`
	TenantClaim   string `toml:"tenant_claim"`
	DefaultTenant string `toml:"default_tenant"`
}

// AuthEnv maps auth config fields to environment variable names.
type AuthEnv struct {
	Enabled       string
	Issuer        string
	Audience      string
	TenantClaim   string
	DefaultTenant string
}

// Finalize applies defaults and environment variable overrides.
func (c *AuthConfig) Finalize(env *AuthEnv) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return nil
}

// Merge overwrites fields from overlay. The boolean always applies; string
// fields only apply when non-empty.
func (c *AuthConfig) Merge(overlay *AuthConfig) {
	c.Enabled = overlay.Enabled

	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.Audience != "" {
		c.Audience = overlay.Audience
	}
	if overlay.TenantClaim != "" {
		c.TenantClaim = overlay.TenantClaim
	}
	if overlay.DefaultTenant != "" {
		c.DefaultTenant = overlay.DefaultTenant
	}
}

func (c *AuthConfig) loadDefaults() {
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant_id"
	}
	if c.DefaultTenant == "" {
		c.DefaultTenant = "default"
	}
}

func (c *AuthConfig) loadEnv(env *AuthEnv) {
	if env.Enabled != "" {
		if v := os.Getenv(env.Enabled); v != "" {
			if enabled, err := strconv.ParseBool(v); err == nil {
				c.Enabled = enabled
			}
		}
	}
	if env.Issuer != "" {
		if v := os.Getenv(env.Issuer); v != "" {
			c.Issuer = v
		}
	}
	if env.Audience != "" {
		if v := os.Getenv(env.Audience); v != "" {
			c.Audience = v
		}
	}
	if env.TenantClaim != "" {
		if v := os.Getenv(env.TenantClaim); v != "" {
			c.TenantClaim = v
		}
	}
	if env.DefaultTenant != "" {
		if v := os.Getenv(env.DefaultTenant); v != "" {
			c.DefaultTenant = v
		}
	}
}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	Subject string
	Tenant  string
}

type identityKey struct{}

// WithIdentity returns a context carrying the identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom extracts the caller identity from the context.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

// TenantFrom extracts the caller's tenant, empty when unauthenticated.
func TenantFrom(ctx context.Context) string {
	identity, _ := IdentityFrom(ctx)
	return identity.Tenant
}

// NewVerifier builds an OIDC token verifier from the issuer's discovery
// document. Only called when auth is enabled.
func NewVerifier(ctx context.Context, cfg *AuthConfig) (*oidc.IDTokenVerifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	return provider.Verifier(&oidc.Config{ClientID: cfg.Audience}), nil
}

// Auth returns middleware that verifies bearer tokens and attaches the
// caller's identity. When disabled, requests pass through under the
// configured default tenant.
func Auth(cfg *AuthConfig, verifier *oidc.IDTokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled {
				ctx := WithIdentity(r.Context(), Identity{Tenant: cfg.DefaultTenant})
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			raw, ok := bearerToken(r)
			if !ok {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			token, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				logger.Warn("token rejected", "error", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			claims := map[string]any{}
			if err := token.Claims(&claims); err != nil {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			tenant, _ := claims[cfg.TenantClaim].(string)
			if tenant == "" {
				tenant = cfg.DefaultTenant
			}

			ctx := WithIdentity(r.Context(), Identity{
				Subject: token.Subject,
				Tenant:  tenant,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
