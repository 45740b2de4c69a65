package translation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini engine
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string        // optional API endpoint override
	Timeout time.Duration // per request, 0 disables
}

// GeminiEngine generates text with the Gemini API
type GeminiEngine struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiEngine creates a Gemini engine
func NewGeminiEngine(ctx context.Context, cfg GeminiConfig) (*GeminiEngine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini %w", ErrMissingAPIKey)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiEngine{
		client:  client,
		model:   model,
		timeout: cfg.Timeout,
	}, nil
}

// Model returns the model name in use
func (e *GeminiEngine) Model() string {
	return e.model
}

// Generate sends prompt to Gemini and returns the response text unmodified
func (e *GeminiEngine) Generate(ctx context.Context, prompt string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyGeminiError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// ListModels returns the names of the models available to the API key
func (e *GeminiEngine) ListModels(ctx context.Context) ([]string, error) {
	var names []string
	for model, err := range e.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list Gemini models: %w", err)
		}
		names = append(names, strings.TrimPrefix(model.Name, "models/"))
	}
	return names, nil
}

// classifyGeminiError marks deadline, unavailable and resource exhausted
// responses as transient, as well as connection failures
func classifyGeminiError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTransportError(err) {
		return Transient(err)
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		var code int
		var status string
		switch v := any(e).(type) {
		case genai.APIError:
			code, status = v.Code, v.Status
		case *genai.APIError:
			code, status = v.Code, v.Status
		default:
			continue
		}
		if transientStatus(code) || transientGRPCStatus(status) {
			return Transient(err)
		}
		return fmt.Errorf("Gemini API error: %w", err)
	}

	return fmt.Errorf("Gemini API error: %w", err)
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func transientGRPCStatus(status string) bool {
	switch status {
	case "DEADLINE_EXCEEDED", "UNAVAILABLE", "RESOURCE_EXHAUSTED":
		return true
	}
	return false
}
