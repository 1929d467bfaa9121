// Package events is the capability boundary around the clinical event-span
// classifier. Anything that turns text into scored typed spans can sit
// behind Provider: a remote model, a local server, or the rule lexicon.
// The association engine never knows which one ran.
package events

import (
	"context"

	"github.com/jbaudry/chronotrace/internal/model"
)

// Provider defines the interface for event-span classifiers
type Provider interface {
	// Name returns the provider name
	Name() string

	// ExtractEvents classifies event spans in one document's text. An empty
	// result is a valid outcome (nothing scored above the model's internal
	// threshold), not an error. The caller bounds the call with ctx.
	ExtractEvents(ctx context.Context, req Request) (*Response, error)
}

// Request is the classification input for one document
type Request struct {
	// DocID identifies the document, for logging only
	DocID string

	// Text is the normalized document text; spans index into it
	Text string

	// EventTypes restricts which types the classifier should emit
	EventTypes []model.EventType
}

// Response is the classifier output
type Response struct {
	Events []model.EventMention `json:"events"`

	// Model names what actually ran (for the run report)
	Model string `json:"model,omitempty"`

	// TokensUsed tracks consumption for remote providers
	TokensUsed int `json:"tokens_used,omitempty"`
}

// Config holds classifier provider configuration
type Config struct {
	// Provider name: "rules", "openai", "ollama"
	Provider string

	// Model name (provider-specific; unused by rules)
	Model string

	// APIKey for remote providers
	APIKey string

	// BaseURL for OpenAI-compatible endpoints (e.g. a local Ollama)
	BaseURL string

	// Timeout per call, seconds
	Timeout int

	// MaxTokens bounds the response size for remote providers
	MaxTokens int
}

// typesAllowed builds the membership set for span filtering
func typesAllowed(types []model.EventType) map[model.EventType]bool {
	allowed := make(map[model.EventType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return allowed
}
