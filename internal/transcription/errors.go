package transcription

import (
	"errors"
	"fmt"

	"github.com/scopeline/scopeline/pkg/resilience"
)

// ErrProvider is the sentinel wrapped by every ProviderError.
var ErrProvider = errors.New("transcription provider error")

// ProviderError captures an upstream failure with enough detail to classify
// it. Status 0 means the request never produced a response.
type ProviderError struct {
	Status int
	Body   string
	Err    error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transcription provider: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("transcription provider: %v", e.Err)
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

// Retryable reports whether the failure is transient. Rate limiting and
// server-side errors retry; other upstream rejections are permanent.
func (e *ProviderError) Retryable() bool {
	if e.Status == 0 {
		return true
	}
	return e.Status == 429 || e.Status >= 500
}

// Classify maps provider errors onto retry decisions for the resilience
// executor.
func Classify(err error) resilience.Classification {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return resilience.Classification{
			Retryable:     pe.Retryable(),
			RecordFailure: true,
		}
	}
	return resilience.Classification{Retryable: false, RecordFailure: true}
}
