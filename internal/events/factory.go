package events

import (
	"fmt"
	"strings"

	"github.com/jbaudry/chronotrace/internal/model"
	"github.com/jbaudry/chronotrace/internal/worker"
)

// NewProvider creates an event-span classifier based on configuration
func NewProvider(config Config, limiter *worker.Limiter) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "rules", "":
		return NewRulesProvider(), nil

	case "openai":
		return NewOpenAIProvider(config, limiter)

	case "ollama":
		// Ollama exposes an OpenAI-compatible endpoint
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434/v1"
		}
		if config.APIKey == "" {
			config.APIKey = "ollama" // the compat endpoint ignores the key
		}
		p, err := NewOpenAIProvider(config, limiter)
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, fmt.Errorf("%w: unknown extractor provider: %s (supported: rules, openai, ollama)",
			model.ErrConfiguration, config.Provider)
	}
}

// ConfigFromModel converts the pipeline configuration into provider config
func ConfigFromModel(cfg model.ExtractorConfig) Config {
	return Config{
		Provider:  cfg.Provider,
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		MaxTokens: cfg.MaxTokens,
	}
}
