package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"codeberg.org/snonux/dsxlate/internal"
	"codeberg.org/snonux/dsxlate/internal/logger"
)

// Placeholder markers prepended to the original text when a field cannot be
// translated
const (
	RetryMarker      = "[TRANSLATION_ERROR_RETRY]"
	UnexpectedMarker = "[TRANSLATION_ERROR_UNEXPECTED]"
)

// Defaults for the retry loop
const (
	DefaultRetries    = 3
	DefaultRetryDelay = 5 * time.Second
)

// ErrTranslationFailed is returned under PolicyHalt when a field could not
// be translated
var ErrTranslationFailed = errors.New("translation failed")

// Policy decides what a failed field does to its batch
type Policy string

const (
	// PolicyDegrade writes a placeholder and carries on
	PolicyDegrade Policy = "degrade"
	// PolicyHalt aborts the batch on the first failed field
	PolicyHalt Policy = "halt"
)

// ParsePolicy validates a policy name. Empty means PolicyDegrade.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyDegrade:
		return PolicyDegrade, nil
	case PolicyHalt:
		return PolicyHalt, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (use degrade or halt)", s)
	}
}

// Options configures a FieldTranslator
type Options struct {
	Retries int           // total attempts for transient failures, at least 1
	Delay   time.Duration // pause between attempts
	Policy  Policy
	Prompt  Prompt
}

// Stats counts engine activity of a FieldTranslator
type Stats struct {
	Calls        int64
	Placeholders int64
}

// FieldTranslator translates single text values with bounded retry
type FieldTranslator struct {
	engine  Engine
	retries int
	delay   time.Duration
	policy  Policy
	prompt  Prompt
	sleep   func(ctx context.Context, d time.Duration) error

	calls        atomic.Int64
	placeholders atomic.Int64
}

// NewFieldTranslator creates a field translator around engine
func NewFieldTranslator(engine Engine, opts Options) *FieldTranslator {
	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}
	policy := opts.Policy
	if policy == "" {
		policy = PolicyDegrade
	}
	return &FieldTranslator{
		engine:  engine,
		retries: retries,
		delay:   opts.Delay,
		policy:  policy,
		prompt:  opts.Prompt,
		sleep:   sleepContext,
	}
}

// Stats returns the counters accumulated so far
func (f *FieldTranslator) Stats() Stats {
	return Stats{
		Calls:        f.calls.Load(),
		Placeholders: f.placeholders.Load(),
	}
}

// Translate returns the translation of text. Blank text is returned as is
// without calling the engine. Engine failures never surface as errors under
// PolicyDegrade: the result is a placeholder embedding the original text.
// A cancelled context is always returned as an error.
func (f *FieldTranslator) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	log := logger.FromContext(ctx)
	prompt := f.prompt.Build(text)

	for attempt := 1; attempt <= f.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return text, err
		}

		f.calls.Add(1)
		out, err := f.engine.Generate(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return text, ctxErr
		}

		if !IsTransient(err) {
			log.WithError(err).Errorf("Unexpected error translating '%s'", internal.Snippet(text, 50))
			return f.fail(UnexpectedMarker, text, err)
		}

		log.WithError(err).WithField(logger.FieldAttempt, attempt).
			Warnf("Attempt %d/%d failed for '%s'", attempt, f.retries, internal.Snippet(text, 50))

		if attempt < f.retries {
			if err := f.sleep(ctx, f.delay); err != nil {
				return text, err
			}
		}
	}

	log.Errorf("Max retries reached for '%s'. Returning error placeholder.", internal.Snippet(text, 50))
	return f.fail(RetryMarker, text, fmt.Errorf("gave up after %d attempts", f.retries))
}

func (f *FieldTranslator) fail(marker, text string, cause error) (string, error) {
	f.placeholders.Add(1)
	placeholder := Placeholder(marker, text)
	if f.policy == PolicyHalt {
		return placeholder, fmt.Errorf("%w: %s: %v", ErrTranslationFailed, marker, cause)
	}
	return placeholder, nil
}

// Placeholder builds the inline error value for a failed field
func Placeholder(marker, text string) string {
	return marker + " " + text
}

// IsPlaceholder reports whether value is an error placeholder
func IsPlaceholder(value string) bool {
	return strings.HasPrefix(value, RetryMarker+" ") || strings.HasPrefix(value, UnexpectedMarker+" ")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
