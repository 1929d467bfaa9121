package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/jbaudry/chronotrace/internal/model"
	"github.com/jbaudry/chronotrace/internal/worker"
)

// OpenAIProvider runs event-span classification through an OpenAI-compatible
// chat completion endpoint (including a local Ollama in compatibility mode).
type OpenAIProvider struct {
	client  *openai.Client
	config  Config
	limiter *worker.Limiter
	key     string // rate-limiter key: one bucket per endpoint
}

// NewOpenAIProvider creates a remote classifier provider. The limiter is
// optional; pass nil to disable throttling.
func NewOpenAIProvider(config Config, limiter *worker.Limiter) (*OpenAIProvider, error) {
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, fmt.Errorf("%w: openai provider requires an API key", model.ErrConfiguration)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	key := config.BaseURL
	if key == "" {
		key = "api.openai.com"
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  config,
		limiter: limiter,
		key:     key,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// ExtractEvents sends the document text and parses the span JSON the model
// returns. Spans that do not index into the text, carry unknown types or
// out-of-range scores are dropped rather than failing the document.
func (p *OpenAIProvider) ExtractEvents(ctx context.Context, req Request) (*Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx, p.key); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %v", model.ErrExternalService, err)
		}
	}

	timeout := time.Duration(p.config.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	modelName := p.config.Model
	if modelName == "" {
		modelName = openai.GPT4oMini
	}

	maxTokens := p.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2000
	}

	chatReq := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You label clinical event spans in French medical text. Respond with JSON only, no prose.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildSpanPrompt(req),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0, // span offsets must be reproducible
	}

	resp, err := p.client.CreateChatCompletion(callCtx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", model.ErrExternalService, req.DocID, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: %s: empty completion", model.ErrExternalService, req.DocID)
	}

	mentions := parseSpanJSON(resp.Choices[0].Message.Content, req.Text, req.EventTypes)
	return &Response{
		Events:     mentions,
		Model:      modelName,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

// buildSpanPrompt describes the span-JSON protocol to the model
func buildSpanPrompt(req Request) string {
	var names []string
	for _, t := range req.EventTypes {
		names = append(names, string(t))
	}
	if len(names) == 0 {
		for _, t := range model.AllEventTypes() {
			names = append(names, string(t))
		}
	}

	return fmt.Sprintf(`Find clinical event spans in the text below.

Allowed types: %s.

Return a JSON array. Each element: {"type": "...", "start": <byte offset>,
"end": <byte offset>, "text": "<exact substring>", "score": <0..1>}.
Offsets index into the text exactly as given. Return [] if nothing qualifies.

Text:
%s`, strings.Join(names, ", "), req.Text)
}

// spanPayload is the wire shape of one model-emitted span
type spanPayload struct {
	Type  string  `json:"type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// parseSpanJSON validates the model output against the source text.
// It is lenient about markdown fences and strict about span integrity.
func parseSpanJSON(content, text string, types []model.EventType) []model.EventMention {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var payloads []spanPayload
	if err := json.Unmarshal([]byte(content), &payloads); err != nil {
		return nil
	}

	allowed := typesAllowed(types)
	var mentions []model.EventMention
	for _, p := range payloads {
		kind, err := model.ParseEventType(p.Type)
		if err != nil {
			continue
		}
		if len(allowed) > 0 && !allowed[kind] {
			continue
		}
		span := model.Span{Start: p.Start, End: p.End}
		if !span.Valid() || span.End > len(text) {
			continue
		}
		if p.Score < 0 || p.Score > 1 {
			continue
		}
		surface := text[span.Start:span.End]
		if p.Text != "" && p.Text != surface {
			// model hallucinated offsets; try to re-anchor on the quoted text
			if idx := strings.Index(text, p.Text); idx >= 0 {
				span = model.Span{Start: idx, End: idx + len(p.Text)}
				surface = p.Text
			} else {
				continue
			}
		}
		mentions = append(mentions, model.EventMention{
			Type:    kind,
			Span:    span,
			Surface: surface,
			Score:   p.Score,
		})
	}
	return dropOverlaps(mentions)
}
