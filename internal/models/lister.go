package models

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"codeberg.org/snonux/dsxlate/internal/translation"
)

// Lister prints the models of one engine provider
type Lister struct {
	provider string
	source   translation.ModelLister
	out      io.Writer
}

// NewLister creates a lister for the models of source
func NewLister(provider string, source translation.ModelLister) *Lister {
	return &Lister{
		provider: provider,
		source:   source,
		out:      os.Stdout,
	}
}

// SetOutput redirects the listing
func (l *Lister) SetOutput(w io.Writer) {
	l.out = w
}

// Categorize splits model names into text generation models and the rest.
// Both lists are sorted.
func Categorize(names []string) (text, other []string) {
	for _, name := range names {
		id := strings.ToLower(name)
		switch {
		case strings.Contains(id, "embed"), strings.Contains(id, "tts"),
			strings.Contains(id, "audio"), strings.Contains(id, "dall-e"),
			strings.Contains(id, "imagen"), strings.Contains(id, "whisper"),
			strings.Contains(id, "moderation"), strings.Contains(id, "aqa"):
			other = append(other, name)
		case strings.Contains(id, "gemini"), strings.Contains(id, "gemma"),
			strings.Contains(id, "gpt"), strings.HasPrefix(id, "o1"),
			strings.HasPrefix(id, "o3"), strings.HasPrefix(id, "o4"):
			text = append(text, name)
		default:
			other = append(other, name)
		}
	}
	sort.Strings(text)
	sort.Strings(other)
	return text, other
}

// ListAvailableModels prints the available models grouped by category
func (l *Lister) ListAvailableModels(ctx context.Context) error {
	names, err := l.source.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	text, other := Categorize(names)

	fmt.Fprintf(l.out, "Available %s Models:\n", l.provider)
	fmt.Fprintln(l.out, "\nText Generation Models (usable for translation):")
	if len(text) == 0 {
		fmt.Fprintln(l.out, "  No text generation models found")
	}
	for _, model := range text {
		fmt.Fprintf(l.out, "  %s\n", model)
	}

	if len(other) > 0 {
		fmt.Fprintln(l.out, "\nOther Models:")
		for _, model := range other {
			fmt.Fprintf(l.out, "  %s\n", model)
		}
	}
	return nil
}
