package extraction

import (
	"errors"
	"fmt"

	"github.com/scopeline/scopeline/pkg/resilience"
)

var (
	// ErrProvider is the sentinel wrapped by every ProviderError.
	ErrProvider = errors.New("extraction provider error")

	// ErrSchema indicates the model returned unusable output twice in a
	// row. The job fails rather than fabricating scope data.
	ErrSchema = errors.New("extraction output failed schema validation")

	// ErrEmptyTranscript indicates there was no text to extract from.
	ErrEmptyTranscript = errors.New("transcript is empty")
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
		return fmt.Sprintf("extraction provider: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("extraction provider: %v", e.Err)
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

// Classify maps extraction errors onto retry decisions. Schema failures are
// terminal here because the extractor already spent its repair attempt.
func Classify(err error) resilience.Classification {
	if errors.Is(err, ErrSchema) || errors.Is(err, ErrEmptyTranscript) {
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
