package jobs

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound indicates the job id is unknown or its record expired.
	ErrNotFound = errors.New("job not found")

	// ErrTerminal indicates an update against a completed or failed job.
	ErrTerminal = errors.New("job already in terminal state")

	// ErrExists indicates a create with an id already in the store.
	ErrExists = errors.New("job already exists")
)

// MapHTTPStatus translates store errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTerminal), errors.Is(err, ErrExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
