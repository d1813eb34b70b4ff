package pipeline

import (
	"context"
	"errors"

	"github.com/scopeline/scopeline/internal/extraction"
	"github.com/scopeline/scopeline/internal/render"
	"github.com/scopeline/scopeline/internal/transcription"
)

// Failure reasons surfaced to clients. Diagnostic detail stays in the
// service log.
const (
	ReasonTimeout            = "timeout"
	ReasonUnsupportedMedia   = "unsupported_media"
	ReasonTranscription      = "transcription_provider_error"
	ReasonExtractionSchema   = "extraction_schema_error"
	ReasonExtractionProvider = "extraction_provider_error"
	ReasonEmptyTranscript    = "empty_transcript"
	ReasonDocumentRender     = "document_render_error"
	ReasonStorage            = "storage_error"
	ReasonInternal           = "internal_error"
)

// ErrArchive marks a completed analysis that could not be persisted.
var ErrArchive = errors.New("archive analysis failed")

func failureReason(err error) string {
	var renderErr *render.RenderError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ErrUnsupportedMedia):
		return ReasonUnsupportedMedia
	case errors.Is(err, transcription.ErrProvider):
		return ReasonTranscription
	case errors.Is(err, extraction.ErrSchema):
		return ReasonExtractionSchema
	case errors.Is(err, extraction.ErrEmptyTranscript):
		return ReasonEmptyTranscript
	case errors.Is(err, extraction.ErrProvider):
		return ReasonExtractionProvider
	case errors.As(err, &renderErr):
		return ReasonDocumentRender
	case errors.Is(err, ErrArchive):
		return ReasonStorage
	default:
		return ReasonInternal
	}
}
