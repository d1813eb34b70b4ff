package uploads

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/internal/taxonomy"
	"github.com/scopeline/scopeline/pkg/handlers"
	"github.com/scopeline/scopeline/pkg/routes"
)

// maxChunkForm bounds the multipart form memory for one chunk request.
const maxChunkForm = 64 << 20

// StartRequest carries a finalized input set into the pipeline.
type StartRequest struct {
	Primary     *Assembled
	Attached    []*Assembled
	RawText     string
	ProjectName string
	Template    string
	Formats     []string
	CostCodes   []taxonomy.Code
}

// Starter accepts a finalized input set and launches a processing job.
// Implemented by the pipeline orchestrator.
type Starter interface {
	Start(ctx context.Context, req StartRequest) (uuid.UUID, error)
}

// CompleteRequest is the optional JSON body of the complete endpoint.
// AttachSessions lists additional finished upload sessions to fold into the
// same job (photos, extra clips); Text is appended to the transcript verbatim.
type CompleteRequest struct {
	ProjectName    string          `json:"project_name"`
	Template       string          `json:"template"`
	Formats        []string        `json:"formats"`
	CostCodes      []taxonomy.Code `json:"cost_codes"`
	AttachSessions []string        `json:"attach_sessions"`
	Text           string          `json:"text"`
}

// Handler provides HTTP endpoints for chunked uploads.
type Handler struct {
	sys     System
	starter Starter
	logger  *slog.Logger
}

// NewHandler creates a Handler with the given assembler, job starter, and logger.
func NewHandler(sys System, starter Starter, logger *slog.Logger) *Handler {
	return &Handler{
		sys:     sys,
		starter: starter,
		logger:  logger.With("handler", "uploads"),
	}
}

// Routes returns the route group definition for upload endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/upload",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/chunk", Handler: h.Chunk},
			{Method: "POST", Pattern: "/complete/{session_id}", Handler: h.Complete},
		},
	}
}

// Chunk accepts one multipart chunk and reports session progress.
func (h *Handler) Chunk(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxChunkForm); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	chunkIndex, err := strconv.Atoi(r.FormValue("chunk_index"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrChunkOutOfRange)
		return
	}

	totalChunks, err := strconv.Atoi(r.FormValue("total_chunks"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrChunkOutOfRange)
		return
	}

	file, header, err := r.FormFile("chunk")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEmptyChunk)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrEmptyChunk)
		return
	}

	fileName := r.FormValue("filename")
	if fileName == "" {
		fileName = header.Filename
	}

	receipt, err := h.sys.AcceptChunk(r.Context(), ChunkCommand{
		SessionID:   r.FormValue("session_id"),
		Data:        data,
		ChunkIndex:  chunkIndex,
		TotalChunks: totalChunks,
		FileName:    fileName,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, receipt)
}

// Complete finalizes the named session (plus any attached sessions) and
// starts a processing job over the assembled input set.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	var req CompleteRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
	}

	primary, err := h.sys.Finalize(r.Context(), sessionID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	attached := make([]*Assembled, 0, len(req.AttachSessions))
	for _, id := range req.AttachSessions {
		file, err := h.sys.Finalize(r.Context(), id)
		if err != nil {
			primary.Cleanup()
			for _, f := range attached {
				f.Cleanup()
			}
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
		attached = append(attached, file)
	}

	jobID, err := h.starter.Start(r.Context(), StartRequest{
		Primary:     primary,
		Attached:    attached,
		RawText:     req.Text,
		ProjectName: req.ProjectName,
		Template:    req.Template,
		Formats:     req.Formats,
		CostCodes:   req.CostCodes,
	})
	if err != nil {
		primary.Cleanup()
		for _, f := range attached {
			f.Cleanup()
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, map[string]string{
		"job_id": jobID.String(),
	})
}
