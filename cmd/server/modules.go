package main

import (
	"encoding/json"
	"net/http"

	"github.com/scopeline/scopeline/internal/api"
	"github.com/scopeline/scopeline/internal/config"
	"github.com/scopeline/scopeline/internal/infrastructure"
	"github.com/scopeline/scopeline/pkg/module"
	"github.com/scopeline/scopeline/pkg/openapi"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, _, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure, cfg *config.Config) (*module.Router, error) {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !infra.Lifecycle.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	router.HandleNative("GET /metrics", infra.Metrics.Handler().ServeHTTP)

	specBytes, err := openapi.MarshalJSON(api.Spec(cfg))
	if err != nil {
		return nil, err
	}
	router.HandleNative("GET /openapi.json", openapi.ServeSpec(specBytes))

	return router, nil
}
