package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"family-os/internal/config"
	"family-os/internal/shared"
)

// ErrMalformedOutput marks a model reply that is not the JSON we asked for.
var ErrMalformedOutput = errors.New("malformed model output")

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// TextGenerator is an interface for generating JSON text from a prompt.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (ContentResponse, error)
}

// Client is a TextGenerator that holds resources.
type Client interface {
	TextGenerator
	Close() error
}

// New returns the client for the configured provider.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg), nil
	case config.ProviderGroq:
		return NewGroqClient(cfg), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.LLMProvider)
}

// DecodeJSON parses a model reply into v. Markdown code fences around the
// payload are tolerated. Any failure wraps ErrMalformedOutput.
func DecodeJSON(content string, v any) error {
	raw := strings.TrimSpace(content)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```")
		// Drop the info string ("json", "JSON", "jsonc", ...) on the opening line.
		if info, rest, ok := strings.Cut(raw, "\n"); ok && !strings.ContainsAny(info, "{[") {
			raw = rest
		}
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}
	if raw == "" {
		return fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: %v. Response: %s", ErrMalformedOutput, err, content)
	}
	return nil
}
