package uploads

import (
	"errors"
	"net/http"
)

// Domain errors for upload operations.
var (
	ErrSessionNotFound     = errors.New("upload session not found")
	ErrConflictingMetadata = errors.New("chunk metadata conflicts with upload session")
	ErrChunkOutOfRange     = errors.New("chunk index outside declared range")
	ErrIncompleteUpload    = errors.New("upload session is missing chunks")
	ErrFileTooLarge        = errors.New("upload exceeds maximum file size")
	ErrEmptyChunk          = errors.New("chunk contains no data")
)

// MapHTTPStatus maps upload domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrSessionNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrConflictingMetadata) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrChunkOutOfRange) || errors.Is(err, ErrEmptyChunk) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrIncompleteUpload) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
