package analyses

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates no analysis matches the id within the tenant.
	ErrNotFound = errors.New("analysis not found")

	// ErrDocumentNotFound indicates no document matches within the analysis.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDuplicate indicates an analysis id collision on save.
	ErrDuplicate = errors.New("analysis already exists")
)

// MapHTTPStatus translates analysis errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
