package analyses

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/pkg/handlers"
	"github.com/scopeline/scopeline/pkg/middleware"
	"github.com/scopeline/scopeline/pkg/pagination"
	"github.com/scopeline/scopeline/pkg/routes"
)

// Handler provides HTTP endpoints for the analysis archive.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "analyses"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for analysis endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/analyses",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "GET", Pattern: "/{id}/documents/{documentId}", Handler: h.Download},
		},
	}
}

// List returns a paginated list of the tenant's analyses.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), middleware.TenantFrom(r.Context()), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single analysis with its documents.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	a, err := h.sys.Find(r.Context(), middleware.TenantFrom(r.Context()), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, a)
}

// Delete removes an analysis, its documents, and their stored blobs.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	if err := h.sys.Delete(r.Context(), middleware.TenantFrom(r.Context()), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Download streams one generated document from blob storage.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}
	documentID, err := uuid.Parse(r.PathValue("documentId"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrDocumentNotFound)
		return
	}

	stream, err := h.sys.OpenDocument(r.Context(), middleware.TenantFrom(r.Context()), id, documentID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer stream.Body.Close()

	w.Header().Set("Content-Type", stream.Document.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", stream.Document.FileName))
	if stream.Document.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.Document.Size, 10))
	}

	if _, err := io.Copy(w, stream.Body); err != nil {
		h.logger.Warn("document stream interrupted",
			"analysis", id,
			"document", documentID,
			"error", err,
		)
	}
}
