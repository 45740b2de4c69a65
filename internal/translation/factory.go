package translation

import (
	"context"
	"fmt"
	"time"
)

// Engine providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// EngineConfig selects and configures an engine
type EngineConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
	// Breaker wraps the engine in a circuit breaker
	Breaker         bool
	BreakerSettings BreakerSettings
}

// ModelLister is implemented by engines that can enumerate their models
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// NewEngine creates the engine selected by cfg.Provider
func NewEngine(ctx context.Context, cfg EngineConfig) (Engine, error) {
	var engine Engine
	switch cfg.Provider {
	case ProviderGemini, "":
		e, err := NewGeminiEngine(ctx, GeminiConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		engine = e
	case ProviderOpenAI:
		e, err := NewOpenAIEngine(OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		engine = e
	default:
		return nil, fmt.Errorf("unsupported engine provider: %s", cfg.Provider)
	}

	if cfg.Breaker {
		settings := cfg.BreakerSettings
		if settings.Name == "" {
			settings.Name = cfg.Provider
		}
		engine = NewBreakerEngine(engine, settings)
	}
	return engine, nil
}
