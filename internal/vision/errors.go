package vision

import (
	"errors"
	"fmt"

	"github.com/scopeline/scopeline/pkg/resilience"
)

var (
	// ErrProvider is the sentinel wrapped by every ProviderError.
	ErrProvider = errors.New("photo analysis provider error")

	// ErrUnsupportedImage indicates a format the model cannot accept.
	ErrUnsupportedImage = errors.New("unsupported image format")

	// ErrImageTooLarge indicates the encoded image exceeds the request cap.
	ErrImageTooLarge = errors.New("image exceeds provider size limit")
)

// ProviderError captures an upstream failure with enough detail to
// classify it.
type ProviderError struct {
	Status int
	Body   string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("photo analysis provider: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("photo analysis provider: %v", e.Err)
}

func (e *ProviderError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrProvider
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

func (e *ProviderError) Retryable() bool {
	if e.Status == 0 {
		return true
	}
	return e.Status == 429 || e.Status >= 500
}

// Classify maps photo analysis errors onto retry decisions.
func Classify(err error) resilience.Classification {
	if errors.Is(err, ErrUnsupportedImage) || errors.Is(err, ErrImageTooLarge) {
		return resilience.Classification{Retryable: false, RecordFailure: false}
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return resilience.Classification{
			Retryable:     pe.Retryable(),
			RecordFailure: true,
		}
	}
	return resilience.Classification{Retryable: false, RecordFailure: true}
}
