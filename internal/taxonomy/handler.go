package taxonomy

import (
	"log/slog"
	"net/http"

	"github.com/scopeline/scopeline/pkg/handlers"
	"github.com/scopeline/scopeline/pkg/routes"
)

// Handler serves the built-in cost-code set so clients can display categories
// and assemble custom taxonomies for job submission.
type Handler struct {
	logger *slog.Logger
}

// NewHandler creates a Handler with the given logger.
func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{logger: logger.With("handler", "taxonomy")}
}

// Routes returns the route group definition for taxonomy endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/taxonomy",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{code}", Handler: h.Find},
		},
	}
}

// List returns every code in the default taxonomy, in display order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, Default().Codes())
}

// Find returns a single code entry by its cost-code path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	t := Default()
	for _, c := range t.Codes() {
		if c.Code == r.PathValue("code") {
			handlers.RespondJSON(w, http.StatusOK, c)
			return
		}
	}
	handlers.RespondError(w, h.logger, http.StatusNotFound, ErrUnknownCode)
}
