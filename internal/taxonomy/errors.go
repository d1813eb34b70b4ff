package taxonomy

import "errors"

// Domain errors for taxonomy construction.
var (
	ErrEmptyTaxonomy = errors.New("taxonomy has no codes")
	ErrInvalidCode   = errors.New("taxonomy code is empty")
	ErrDuplicateCode = errors.New("taxonomy code is duplicated")
	ErrUnknownCode   = errors.New("taxonomy code not found")
)
