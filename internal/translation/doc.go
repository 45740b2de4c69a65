// Package translation turns dataset text into the target language through a
// generative text engine. It provides the engine abstraction with Gemini and
// OpenAI backends, a circuit breaker, and the field and record translators
// with bounded retry and inline error placeholders.
package translation
