package render

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTemplate indicates a template name outside the known set.
	ErrUnknownTemplate = errors.New("unknown document template")

	// ErrUnknownFormat indicates a format name outside the known set.
	ErrUnknownFormat = errors.New("unknown document format")

	// ErrNoContent indicates a render request with nothing to document.
	ErrNoContent = errors.New("no content to render")
)

// RenderError scopes a failure to one output format so callers can keep
// the remaining formats.
type RenderError struct {
	Format string
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
