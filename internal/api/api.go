// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/scopeline/scopeline/internal/config"
	"github.com/scopeline/scopeline/internal/infrastructure"
	"github.com/scopeline/scopeline/pkg/middleware"
	"github.com/scopeline/scopeline/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// Upload and job janitors are registered with the lifecycle coordinator
// before the module is returned.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain)

	var verifier *oidc.IDTokenVerifier
	if cfg.API.Auth.Enabled {
		v, err := middleware.NewVerifier(context.Background(), &cfg.API.Auth)
		if err != nil {
			return nil, nil, fmt.Errorf("auth verifier: %w", err)
		}
		verifier = v
	}

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Auth(&cfg.API.Auth, verifier, runtime.Logger))
	m.Use(middleware.Logger(runtime.Logger))

	if err := domain.Start(runtime); err != nil {
		return nil, nil, fmt.Errorf("domain start: %w", err)
	}

	return m, domain, nil
}
