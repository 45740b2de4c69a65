package translation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
)

// ErrMissingAPIKey is returned when an engine is created without credentials
var ErrMissingAPIKey = errors.New("API key not found")

// ErrEmptyResponse is returned when the engine answers without any text
var ErrEmptyResponse = errors.New("engine returned no text")

// Engine generates text for a prompt. Implementations wrap failures that are
// worth retrying (timeouts, unavailability, rate limits) with Transient.
type Engine interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EngineFunc adapts a function to the Engine interface
type EngineFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f
func (f EngineFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// TransientError marks an engine failure as retryable
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient engine error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. nil stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err belongs to the retryable failure class
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// isTransportError reports failures below the API layer: refused dials,
// resets and connections dropped mid-response. A cancelled caller context
// is not one of them.
func isTransportError(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
