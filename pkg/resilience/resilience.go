// Package resilience wraps provider calls with bounded exponential backoff
// and a per-operation circuit breaker. Validation errors are never retried;
// only failures the classifier marks retryable are.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrNilOperation indicates Execute was called without a callback.
var ErrNilOperation = errors.New("resilience: operation callback is nil")

// Classification describes how a failure should be treated.
type Classification struct {
	// Retryable permits another attempt after backoff.
	Retryable bool
	// RecordFailure counts the error against the circuit breaker.
	RecordFailure bool
}

// Classifier maps an error to its retry classification.
type Classifier func(err error) Classification

// DefaultClassifier treats every error as retryable and breaker-visible.
func DefaultClassifier(error) Classification {
	return Classification{Retryable: true, RecordFailure: true}
}

// Executor runs operations with retry and circuit breaking.
// One breaker is maintained per operation name.
type Executor struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[any]
}

// NewExecutor creates an Executor from the given finalized configuration.
func NewExecutor(cfg Config, logger *slog.Logger) *Executor {
	return &Executor{
		cfg:      cfg,
		logger:   logger.With("system", "resilience"),
		breakers: make(map[string]*gobreaker.CircuitBreaker[any]),
	}
}

// Execute runs fn under the retry policy, guarded by the operation's breaker.
func (e *Executor) Execute(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classify Classifier,
) error {
	if fn == nil {
		return ErrNilOperation
	}
	if classify == nil {
		classify = DefaultClassifier
	}

	if !e.cfg.BreakerEnabled {
		return e.retry(ctx, operation, fn, classify)
	}

	breaker := e.breaker(operation, classify)
	_, err := breaker.Execute(func() (any, error) {
		return nil, e.retry(ctx, operation, fn, classify)
	})
	return err
}

func (e *Executor) retry(
	ctx context.Context,
	operation string,
	fn func(context.Context) error,
	classify Classifier,
) error {
	backoff := e.cfg.InitialBackoffDuration()

	var err error
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}

		class := classify(err)
		if !class.Retryable || attempt == e.cfg.MaxAttempts {
			return &OperationError{Operation: operation, Err: err}
		}

		wait := min(backoff, e.cfg.MaxBackoffDuration())
		e.logger.Warn(
			"retrying operation",
			"operation", operation,
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &OperationError{Operation: operation, Err: err}
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * e.cfg.Multiplier)
	}

	return &OperationError{Operation: operation, Err: err}
}

func (e *Executor) breaker(operation string, classify Classifier) *gobreaker.CircuitBreaker[any] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.breakers[operation]; ok {
		return b
	}

	settings := gobreaker.Settings{
		Name:    operation,
		Timeout: e.cfg.BreakerTimeoutDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < e.cfg.BreakerMinCalls {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= e.cfg.BreakerRatio
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			e.logger.Warn(
				"breaker state change",
				"operation", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	b := gobreaker.NewCircuitBreaker[any](settings)
	e.breakers[operation] = b
	return b
}

// OperationError wraps a provider failure with its operation name so callers
// can report which stage of a pipeline failed.
type OperationError struct {
	Operation string
	Err       error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
