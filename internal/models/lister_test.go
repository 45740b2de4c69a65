package models

import (
	"bytes"
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"codeberg.org/snonux/dsxlate/internal/translation"
)

type staticModels struct {
	names []string
	err   error
}

func (s staticModels) ListModels(ctx context.Context) ([]string, error) {
	return s.names, s.err
}

func TestCategorize(t *testing.T) {
	text, other := Categorize([]string{
		"gpt-4o-mini", "text-embedding-3-small", "gemini-2.0-flash", "tts-1",
		"dall-e-3", "gemma-3-27b-it", "o3-mini", "babbage-002", "embedding-001",
	})

	wantText := []string{"gemini-2.0-flash", "gemma-3-27b-it", "gpt-4o-mini", "o3-mini"}
	wantOther := []string{"babbage-002", "dall-e-3", "embedding-001", "text-embedding-3-small", "tts-1"}

	if !reflect.DeepEqual(text, wantText) {
		t.Errorf("text = %v, want %v", text, wantText)
	}
	if !reflect.DeepEqual(other, wantOther) {
		t.Errorf("other = %v, want %v", other, wantOther)
	}
}

func TestListAvailableModels(t *testing.T) {
	lister := NewLister("Gemini", staticModels{names: []string{"gemini-2.0-flash", "embedding-001"}})
	var out bytes.Buffer
	lister.SetOutput(&out)

	if err := lister.ListAvailableModels(context.Background()); err != nil {
		t.Fatalf("ListAvailableModels failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Available Gemini Models:", "  gemini-2.0-flash\n", "Other Models:", "  embedding-001\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("Output missing %q:\n%s", want, got)
		}
	}
}

func TestListAvailableModels_NoTextModels(t *testing.T) {
	lister := NewLister("OpenAI", staticModels{})
	var out bytes.Buffer
	lister.SetOutput(&out)

	if err := lister.ListAvailableModels(context.Background()); err != nil {
		t.Fatalf("ListAvailableModels failed: %v", err)
	}
	if !strings.Contains(out.String(), "No text generation models found") {
		t.Errorf("Unexpected output: %s", out.String())
	}
}

func TestListAvailableModels_Error(t *testing.T) {
	lister := NewLister("OpenAI", staticModels{err: errors.New("401 unauthorized")})
	lister.SetOutput(&bytes.Buffer{})

	if err := lister.ListAvailableModels(context.Background()); err == nil {
		t.Error("Expected error")
	}
}

func TestListAvailableModels_Integration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: OPENAI_API_KEY not set")
	}

	engine, err := translation.NewOpenAIEngine(translation.OpenAIConfig{APIKey: apiKey})
	if err != nil {
		t.Fatalf("NewOpenAIEngine failed: %v", err)
	}

	lister := NewLister("OpenAI", engine)
	lister.SetOutput(&bytes.Buffer{})
	if err := lister.ListAvailableModels(context.Background()); err != nil {
		t.Errorf("ListAvailableModels failed: %v", err)
	}
}
