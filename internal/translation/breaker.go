package translation

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"codeberg.org/snonux/dsxlate/internal/logger"
)

// BreakerSettings configures the circuit breaker around an engine
type BreakerSettings struct {
	Name             string
	FailureThreshold uint32        // consecutive transient failures before opening
	OpenTimeout      time.Duration // time spent open before probing again
}

// DefaultBreakerSettings trips after five consecutive transient failures
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "engine",
		FailureThreshold: 5,
		OpenTimeout:      30 * time.Second,
	}
}

// BreakerEngine short-circuits calls while the wrapped engine keeps failing
// transiently. Rejected calls are reported as transient so the retry loop
// backs off instead of writing placeholders straight away.
type BreakerEngine struct {
	next Engine
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerEngine wraps next with a circuit breaker
func NewBreakerEngine(next Engine, settings BreakerSettings) *BreakerEngine {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = DefaultBreakerSettings().FailureThreshold
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 1,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.GetDefault().WithField(logger.FieldComponent, "breaker").
				Warnf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	})

	return &BreakerEngine{next: next, cb: cb}
}

// State returns the current breaker state
func (b *BreakerEngine) State() gobreaker.State {
	return b.cb.State()
}

// Generate calls the wrapped engine through the breaker
func (b *BreakerEngine) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Generate(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", Transient(err)
		}
		return "", err
	}
	return out.(string), nil
}
