package api

import (
	"net/http"

	"github.com/scopeline/scopeline/pkg/routes"
)

func registerRoutes(mux *http.ServeMux, domain *Domain) {
	routes.Register(
		mux,
		domain.Uploads.Handler(domain.Pipeline).Routes(),
		domain.Jobs.Handler().Routes(),
		domain.Analyses.Handler().Routes(),
		domain.Taxonomy.Routes(),
	)
}
